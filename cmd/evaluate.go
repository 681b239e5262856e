package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conforme/conforme-cli/internal/pipeline"
)

var evaluateManifest string

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate the files of an existing capture manifest",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		client, err := initClient(ctx)
		if err != nil {
			return err
		}

		p := pipeline.New(cfg, client)

		result, err := p.Evaluate(ctx, evaluateManifest)
		if err != nil {
			return eris.Wrap(err, "evaluate stage")
		}

		zap.L().Info("evaluate complete",
			zap.String("results", result.ResultsPath),
			zap.Int("total", result.Summary.Total),
			zap.Int("approved", result.Summary.Approved),
			zap.Int("rejected", result.Summary.Rejected),
			zap.Int("inconclusive", result.Summary.Inconclusive),
			zap.Int("errors", result.Summary.Errors),
			zap.String("overall", string(result.Summary.Overall())),
		)
		return nil
	},
}

func init() {
	evaluateCmd.Flags().StringVar(&evaluateManifest, "manifest", "", "path to the capture manifest.json (required)")
	_ = evaluateCmd.MarkFlagRequired("manifest")
	rootCmd.AddCommand(evaluateCmd)
}
