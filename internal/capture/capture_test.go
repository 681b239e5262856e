package capture

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conforme/conforme-cli/internal/config"
	"github.com/conforme/conforme-cli/internal/model"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func testCapturer(t *testing.T, source, houseBase string, useHash bool) *Capturer {
	t.Helper()
	cfg := &config.Config{Extensions: []string{".pdf", ".png", ".txt"}}
	cfg.Paths.SourceFolder = source
	cfg.Paths.HouseBase = houseBase
	cfg.Control.UseHash = useHash

	c := New(cfg)
	c.Now = func() time.Time {
		return time.Date(2025, 3, 15, 9, 30, 0, 0, time.UTC)
	}
	return c
}

func TestRunCapturesAcceptedFilesRecursively(t *testing.T) {
	source := t.TempDir()
	houseBase := t.TempDir()
	writeFile(t, filepath.Join(source, "peca.pdf"), "pdf-bytes")
	writeFile(t, filepath.Join(source, "sub", "banner.png"), "png-bytes")
	writeFile(t, filepath.Join(source, "ignorar.docx"), "doc-bytes")

	c := testCapturer(t, source, houseBase, false)

	res, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(houseBase, "ArquivosHouse15032025"), res.HouseFolder)
	assert.Equal(t, 2, res.Manifest.Run.TotalFiles)
	assert.Equal(t, 2, res.Manifest.Run.SuccessCount)
	assert.Equal(t, 0, res.Manifest.Run.ErrorCount)

	names := map[string]bool{}
	for _, f := range res.Manifest.Files {
		assert.Equal(t, model.CopySuccess, f.CopyStatus)
		assert.FileExists(t, f.DestinationPath)
		names[f.OriginalName] = true
	}
	assert.True(t, names["peca.pdf"])
	assert.True(t, names["banner.png"])
	assert.False(t, names["ignorar.docx"])

	assert.FileExists(t, res.ManifestPath)
}

func TestRunComputesHashWhenEnabled(t *testing.T) {
	source := t.TempDir()
	writeFile(t, filepath.Join(source, "peca.txt"), "conteudo")

	c := testCapturer(t, source, t.TempDir(), true)

	res, err := c.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Manifest.Files, 1)

	sum := sha256.Sum256([]byte("conteudo"))
	assert.Equal(t, hex.EncodeToString(sum[:]), res.Manifest.Files[0].SHA256)
}

func TestRunHouseFolderCollisionGetsTimestampSuffix(t *testing.T) {
	source := t.TempDir()
	houseBase := t.TempDir()
	writeFile(t, filepath.Join(source, "a.txt"), "a")
	require.NoError(t, os.MkdirAll(filepath.Join(houseBase, "ArquivosHouse15032025"), 0o755))

	c := testCapturer(t, source, houseBase, false)

	res, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(houseBase, "ArquivosHouse15032025_093000"), res.HouseFolder)
}

func TestRunDuplicateNamesGetCounterSuffix(t *testing.T) {
	source := t.TempDir()
	writeFile(t, filepath.Join(source, "um", "peca.pdf"), "um")
	writeFile(t, filepath.Join(source, "dois", "peca.pdf"), "dois")

	c := testCapturer(t, source, t.TempDir(), false)

	res, err := c.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Manifest.Files, 2)

	names := []string{res.Manifest.Files[0].DestinationName, res.Manifest.Files[1].DestinationName}
	assert.ElementsMatch(t, []string{"peca.pdf", "peca_1.pdf"}, names)
}

func TestRunMissingSourceFolderFails(t *testing.T) {
	c := testCapturer(t, filepath.Join(t.TempDir(), "nao-existe"), t.TempDir(), false)

	_, err := c.Run(context.Background())
	assert.Error(t, err)
}

func TestRunCopyFailureRecordedNotFatal(t *testing.T) {
	source := t.TempDir()
	writeFile(t, filepath.Join(source, "ok.txt"), "ok")
	// A file removed between scan and copy produces a per-file error entry.
	ghost := filepath.Join(source, "ghost.txt")
	writeFile(t, ghost, "ghost")

	c := testCapturer(t, source, t.TempDir(), false)

	files, err := c.scan(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 2)
	require.NoError(t, os.Remove(ghost))

	house, err := c.createHouseFolder()
	require.NoError(t, err)
	copied := c.copyAll(context.Background(), files, house)

	statuses := map[string]model.CopyStatus{}
	for _, f := range copied {
		statuses[f.OriginalName] = f.CopyStatus
	}
	assert.Equal(t, model.CopySuccess, statuses["ok.txt"])
	assert.Equal(t, model.CopyError, statuses["ghost.txt"])
}
