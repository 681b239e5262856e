// Package artifact reads and writes the JSON files that connect pipeline
// stages. Writes are atomic (temp file then rename) so a crash mid-write
// never leaves a stage consuming a truncated artifact.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"

	"github.com/conforme/conforme-cli/internal/model"
)

// ManifestName is the fixed manifest filename inside a house folder.
const ManifestName = "manifest.json"

// WriteJSON marshals v with indentation and writes it atomically to path.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrapf(err, "marshaling artifact %s", filepath.Base(path))
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "creating artifact directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return eris.Wrap(err, "creating temp artifact")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return eris.Wrapf(err, "writing artifact %s", filepath.Base(path))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return eris.Wrapf(err, "closing artifact %s", filepath.Base(path))
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return eris.Wrapf(err, "publishing artifact %s", filepath.Base(path))
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "reading artifact %s", path)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return eris.Wrapf(err, "decoding artifact %s", path)
	}
	return nil
}

// WriteManifest writes the capture manifest into the house folder and
// returns its path.
func WriteManifest(houseFolder string, m *model.Manifest) (string, error) {
	path := filepath.Join(houseFolder, ManifestName)
	if err := WriteJSON(path, m); err != nil {
		return "", err
	}
	return path, nil
}

// ReadManifest loads a capture manifest.
func ReadManifest(path string) (*model.Manifest, error) {
	var m model.Manifest
	if err := readJSON(path, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// ResultsPath builds a timestamped results filename inside dir.
func ResultsPath(dir string, now time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("resultados_%s.json", now.Format("02012006_150405")))
}

// WriteResults writes an evaluation results artifact.
func WriteResults(path string, r *model.Results) error {
	return WriteJSON(path, r)
}

// ReadResults loads an evaluation results artifact.
func ReadResults(path string) (*model.Results, error) {
	var r model.Results
	if err := readJSON(path, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
