package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conforme/conforme-cli/internal/model"
	"github.com/conforme/conforme-cli/internal/pipeline"
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Copy source files into a dated house folder and write the manifest",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := pipeline.New(cfg, nil)

		result, err := p.Capture(cmd.Context())
		if err != nil {
			return eris.Wrap(err, "capture stage")
		}

		copied := 0
		for _, f := range result.Manifest.Files {
			if f.CopyStatus == model.CopySuccess {
				copied++
			}
		}

		zap.L().Info("capture complete",
			zap.String("house_folder", result.HouseFolder),
			zap.String("manifest", result.ManifestPath),
			zap.Int("files", len(result.Manifest.Files)),
			zap.Int("copied", copied),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(captureCmd)
}
