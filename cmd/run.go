package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: capture, evaluate, export",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		p, err := initPipeline(ctx)
		if err != nil {
			return err
		}

		result, err := p.Run(ctx)
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		zap.L().Info("pipeline complete",
			zap.String("manifest", result.ManifestPath),
			zap.String("results", result.ResultsPath),
			zap.String("run_workbook", result.RunExcel),
			zap.String("master_workbook", result.MasterExcel),
			zap.Int("total", result.Summary.Total),
			zap.Int("errors", result.Summary.Errors),
			zap.String("overall", string(result.Summary.Overall())),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
