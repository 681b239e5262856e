package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conforme/conforme-cli/internal/pipeline"
)

var exportInput string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export an existing results artifact to Excel",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := pipeline.New(cfg, nil)

		runPath, masterPath, err := p.Export(exportInput)
		if err != nil {
			return eris.Wrap(err, "export stage")
		}

		zap.L().Info("export complete",
			zap.String("run_workbook", runPath),
			zap.String("master_workbook", masterPath),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportInput, "input", "", "path to the resultados_*.json artifact (required)")
	_ = exportCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(exportCmd)
}
