package evaluate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMIMEType(t *testing.T) {
	assert.Equal(t, "application/pdf", MIMEType(".pdf"))
	assert.Equal(t, "image/png", MIMEType(".PNG"))
	assert.Equal(t, "application/vnd.ms-outlook", MIMEType(".msg"))
	assert.Equal(t, "application/octet-stream", MIMEType(".xyz"))
}

func TestReadContentPartText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "peca.html")
	require.NoError(t, os.WriteFile(path, []byte("<p>oferta</p>"), 0o644))

	part, err := readContentPart(path)
	require.NoError(t, err)

	assert.Equal(t, "<p>oferta</p>", part.Text)
	assert.Nil(t, part.Data)
}

func TestReadContentPartBinary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "peca.pdf")
	require.NoError(t, os.WriteFile(path, []byte{0x25, 0x50, 0x44, 0x46}, 0o644))

	part, err := readContentPart(path)
	require.NoError(t, err)

	assert.Equal(t, []byte{0x25, 0x50, 0x44, 0x46}, part.Data)
	assert.Equal(t, "application/pdf", part.MIMEType)
	assert.Empty(t, part.Text)
}

func TestReadContentPartMissingFile(t *testing.T) {
	_, err := readContentPart(filepath.Join(t.TempDir(), "nao-existe.txt"))
	assert.Error(t, err)
}
