// Package capture implements the first pipeline stage: scanning a source
// tree for marketing files, copying them into a dated house folder, and
// writing the manifest the evaluate stage consumes.
package capture

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/conforme/conforme-cli/internal/artifact"
	"github.com/conforme/conforme-cli/internal/config"
	"github.com/conforme/conforme-cli/internal/model"
)

const houseFolderPrefix = "ArquivosHouse"

// Capturer runs the capture stage.
type Capturer struct {
	source     string
	houseBase  string
	extensions []string
	useHash    bool

	// Now is the clock used for house-folder naming and manifest metadata.
	Now func() time.Time
}

// New builds a Capturer from the loaded configuration.
func New(cfg *config.Config) *Capturer {
	return &Capturer{
		source:     cfg.Paths.SourceFolder,
		houseBase:  cfg.Paths.HouseBase,
		extensions: cfg.Extensions,
		useHash:    cfg.Control.UseHash,
		Now:        time.Now,
	}
}

// Result reports where the capture run landed.
type Result struct {
	HouseFolder  string
	ManifestPath string
	Manifest     *model.Manifest
}

// Run scans the source folder, copies accepted files into a fresh house
// folder, and writes the manifest. Per-file copy failures are recorded in
// the manifest, never returned as errors.
func (c *Capturer) Run(ctx context.Context) (*Result, error) {
	log := zap.L().With(zap.String("source", c.source))

	files, err := c.scan(ctx)
	if err != nil {
		return nil, err
	}
	log.Info("capture: scan complete", zap.Int("files", len(files)))

	houseFolder, err := c.createHouseFolder()
	if err != nil {
		return nil, err
	}
	log.Info("capture: house folder created", zap.String("folder", houseFolder))

	copied := c.copyAll(ctx, files, houseFolder)

	success, failed := 0, 0
	for _, f := range copied {
		if f.CopyStatus == model.CopySuccess {
			success++
		} else {
			failed++
		}
	}

	manifest := &model.Manifest{
		Run: model.ManifestRun{
			Timestamp:    c.Now(),
			SourceFolder: c.source,
			HouseFolder:  houseFolder,
			TotalFiles:   len(copied),
			SuccessCount: success,
			ErrorCount:   failed,
		},
		Config: model.ManifestConfig{
			AcceptedExtensions: c.extensions,
			UseHash:            c.useHash,
		},
		Files: copied,
	}

	manifestPath, err := artifact.WriteManifest(houseFolder, manifest)
	if err != nil {
		return nil, err
	}
	log.Info("capture: manifest written",
		zap.String("manifest", manifestPath),
		zap.Int("success", success),
		zap.Int("errors", failed),
	)

	return &Result{HouseFolder: houseFolder, ManifestPath: manifestPath, Manifest: manifest}, nil
}

// scan walks the source tree collecting files with accepted extensions.
// A missing source folder is an error; unreadable entries are skipped.
func (c *Capturer) scan(ctx context.Context) ([]model.FileDescriptor, error) {
	if _, err := os.Stat(c.source); err != nil {
		return nil, eris.Wrapf(err, "source folder %s", c.source)
	}

	accepted := make(map[string]bool, len(c.extensions))
	for _, ext := range c.extensions {
		accepted[strings.ToLower(ext)] = true
	}

	var found []model.FileDescriptor
	err := filepath.WalkDir(c.source, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			zap.L().Warn("capture: skipping unreadable entry", zap.String("path", path), zap.Error(err))
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if !accepted[ext] {
			return nil
		}

		info, statErr := d.Info()
		if statErr != nil {
			zap.L().Warn("capture: stat failed", zap.String("path", path), zap.Error(statErr))
			return nil
		}

		found = append(found, model.FileDescriptor{
			OriginalName: d.Name(),
			SourcePath:   path,
			OriginFolder: filepath.Dir(path),
			Extension:    ext,
			SizeBytes:    info.Size(),
			ModifiedAt:   info.ModTime(),
			CopyStatus:   model.CopyPending,
		})
		return nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "scanning source folder")
	}
	return found, nil
}

// createHouseFolder makes the dated destination folder, appending a
// timestamp suffix when today's folder already exists.
func (c *Capturer) createHouseFolder() (string, error) {
	now := c.Now()
	folder := filepath.Join(c.houseBase, houseFolderPrefix+now.Format("02012006"))
	if _, err := os.Stat(folder); err == nil {
		folder = folder + "_" + now.Format("150405")
	}
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return "", eris.Wrapf(err, "creating house folder %s", folder)
	}
	return folder, nil
}

func (c *Capturer) copyAll(ctx context.Context, files []model.FileDescriptor, houseFolder string) []model.FileDescriptor {
	copied := make([]model.FileDescriptor, 0, len(files))
	for i, f := range files {
		if ctx.Err() != nil {
			f.CopyStatus = model.CopyError
			f.CopyError = ctx.Err().Error()
			copied = append(copied, f)
			continue
		}

		destName := uniqueName(houseFolder, f.OriginalName)
		destPath := filepath.Join(houseFolder, destName)

		if err := copyFile(f.SourcePath, destPath); err != nil {
			f.CopyStatus = model.CopyError
			f.CopyError = err.Error()
			zap.L().Error("capture: copy failed",
				zap.String("file", f.OriginalName),
				zap.Int("index", i+1),
				zap.Int("total", len(files)),
				zap.Error(err),
			)
			copied = append(copied, f)
			continue
		}

		if c.useHash {
			hash, hashErr := hashFile(destPath)
			if hashErr != nil {
				zap.L().Warn("capture: hash failed", zap.String("file", destName), zap.Error(hashErr))
			} else {
				f.SHA256 = hash
			}
		}

		f.DestinationName = destName
		f.DestinationPath = destPath
		f.CopyStatus = model.CopySuccess
		copied = append(copied, f)
		zap.L().Debug("capture: copied",
			zap.String("file", destName),
			zap.Int("index", i+1),
			zap.Int("total", len(files)),
		)
	}
	return copied
}

// uniqueName resolves destination-name collisions with a _N suffix.
func uniqueName(dir, name string) string {
	if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
		return name
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for counter := 1; ; counter++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, counter, ext)
		if _, err := os.Stat(filepath.Join(dir, candidate)); err != nil {
			return candidate
		}
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return eris.Wrapf(err, "opening %s", src)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return eris.Wrapf(err, "creating %s", dst)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return eris.Wrapf(err, "copying to %s", dst)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return eris.Wrapf(err, "closing %s", dst)
	}

	if info, statErr := os.Stat(src); statErr == nil {
		os.Chtimes(dst, time.Now(), info.ModTime())
	}
	return nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", eris.Wrapf(err, "opening %s for hashing", path)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", eris.Wrapf(err, "hashing %s", path)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
