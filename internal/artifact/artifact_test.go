package artifact

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conforme/conforme-cli/internal/model"
)

func TestManifestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	in := &model.Manifest{
		Run: model.ManifestRun{
			Timestamp:    time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC),
			SourceFolder: "/dados/entrada",
			HouseFolder:  dir,
			TotalFiles:   2,
			SuccessCount: 1,
			ErrorCount:   1,
		},
		Config: model.ManifestConfig{AcceptedExtensions: []string{".pdf", ".png"}, UseHash: true},
		Files: []model.FileDescriptor{
			{OriginalName: "peca.pdf", Extension: ".pdf", SizeBytes: 1024, CopyStatus: model.CopySuccess, SHA256: "abc"},
			{OriginalName: "ruim.png", Extension: ".png", CopyStatus: model.CopyError, CopyError: "permission denied"},
		},
	}

	path, err := WriteManifest(dir, in)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ManifestName), path)

	out, err := ReadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestResultsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	in := &model.Results{
		Meta: model.ResultsMeta{
			ExecutedAt: time.Date(2025, 3, 15, 11, 0, 0, 0, time.UTC),
			TotalFiles: 1,
			Succeeded:  1,
		},
		Results: []model.EvaluationResult{{
			ID:              "item-1",
			SourceFile:      "peca.pdf",
			Status:          model.StatusSuccess,
			Verdict:         model.VerdictApproved,
			ExtractedFields: map[string]string{"RESULTADO": "Aprovado"},
		}},
	}

	path := ResultsPath(dir, time.Date(2025, 3, 15, 11, 0, 5, 0, time.UTC))
	assert.Equal(t, filepath.Join(dir, "resultados_15032025_110005.json"), path)

	require.NoError(t, WriteResults(path, in))

	out, err := ReadResults(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestWriteJSONLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, WriteJSON(filepath.Join(dir, "a.json"), map[string]int{"x": 1}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, "a.json", entries[0].Name())
}

func TestReadManifestMissingFile(t *testing.T) {
	_, err := ReadManifest(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestReadResultsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{truncated"), 0o644))

	_, err := ReadResults(path)
	assert.Error(t, err)
}
