// Package pipeline orchestrates the three stages: capture files into a
// house folder, evaluate them against the model, and export the results to
// spreadsheets. Each stage reads the previous stage's JSON artifact so a
// run can resume from any point.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/conforme/conforme-cli/internal/artifact"
	"github.com/conforme/conforme-cli/internal/capture"
	"github.com/conforme/conforme-cli/internal/config"
	"github.com/conforme/conforme-cli/internal/evaluate"
	"github.com/conforme/conforme-cli/internal/export"
	"github.com/conforme/conforme-cli/internal/model"
	"github.com/conforme/conforme-cli/internal/prompt"
	"github.com/conforme/conforme-cli/internal/rules"
	"github.com/conforme/conforme-cli/internal/verdict"
	"github.com/conforme/conforme-cli/pkg/vertex"
)

// Pipeline wires the stage implementations to shared configuration.
type Pipeline struct {
	cfg    *config.Config
	client vertex.Client
	rules  *rules.Repository

	// Now is the clock for results artifacts. Tests override it.
	Now func() time.Time
}

// New builds a Pipeline. The client may be nil for capture-only or
// export-only invocations.
func New(cfg *config.Config, client vertex.Client) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		client: client,
		rules:  rules.NewRepository(cfg.Paths.RulesDir),
		Now:    time.Now,
	}
}

// Capture runs the capture stage and returns where the manifest landed.
func (p *Pipeline) Capture(ctx context.Context) (*capture.Result, error) {
	return capture.New(p.cfg).Run(ctx)
}

// EvaluateResult reports where the evaluate stage wrote its artifact.
type EvaluateResult struct {
	ResultsPath string
	Results     *model.Results
	Summary     model.BatchSummary
}

// Evaluate runs the evaluate stage over an existing manifest: builds the
// rule-aware system prompt, sends each successfully copied file to the
// model, and writes the results artifact into the temp folder.
func (p *Pipeline) Evaluate(ctx context.Context, manifestPath string) (*EvaluateResult, error) {
	manifest, err := artifact.ReadManifest(manifestPath)
	if err != nil {
		return nil, err
	}

	categories, err := p.rules.Load(false)
	if err != nil {
		return nil, err
	}
	system := prompt.ReplaceRulesPlaceholder(p.rules.LoadInstruction(), categories)

	zap.L().Info("pipeline: evaluate stage starting",
		zap.String("manifest", manifestPath),
		zap.Int("files", len(manifest.Files)),
		zap.Int("rule_categories", len(categories)),
	)

	engine := evaluate.NewEngine(p.cfg, p.client, system)
	engine.Now = p.Now

	results, err := engine.EvaluateManifest(ctx, manifest)
	if err != nil {
		return nil, err
	}

	resultsPath := artifact.ResultsPath(p.cfg.Paths.TempDir, p.Now())
	if err := artifact.WriteResults(resultsPath, results); err != nil {
		return nil, err
	}

	summary := verdict.Summarize(results.Results)
	zap.L().Info("pipeline: evaluate stage complete",
		zap.String("results", resultsPath),
		zap.Int("total", summary.Total),
		zap.Int("approved", summary.Approved),
		zap.Int("rejected", summary.Rejected),
		zap.String("overall", string(summary.Overall())),
	)

	return &EvaluateResult{ResultsPath: resultsPath, Results: results, Summary: summary}, nil
}

// Export runs the export stage over an existing results artifact.
func (p *Pipeline) Export(resultsPath string) (runPath, masterPath string, err error) {
	results, err := artifact.ReadResults(resultsPath)
	if err != nil {
		return "", "", err
	}
	return export.New(p.cfg).Export(results)
}

// RunResult reports every artifact one full pipeline run produced.
type RunResult struct {
	ManifestPath string
	ResultsPath  string
	RunExcel     string
	MasterExcel  string
	Summary      model.BatchSummary
}

// Run executes capture, evaluate, and export back to back.
func (p *Pipeline) Run(ctx context.Context) (*RunResult, error) {
	captured, err := p.Capture(ctx)
	if err != nil {
		return nil, err
	}

	evaluated, err := p.Evaluate(ctx, captured.ManifestPath)
	if err != nil {
		return nil, err
	}

	runExcel, masterExcel, err := p.Export(evaluated.ResultsPath)
	if err != nil {
		return nil, err
	}

	return &RunResult{
		ManifestPath: captured.ManifestPath,
		ResultsPath:  evaluated.ResultsPath,
		RunExcel:     runExcel,
		MasterExcel:  masterExcel,
		Summary:      evaluated.Summary,
	}, nil
}
