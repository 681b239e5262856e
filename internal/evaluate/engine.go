// Package evaluate implements the second pipeline stage: sending each
// captured file to the generative model, parsing the response, and writing
// the results artifact.
package evaluate

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/conforme/conforme-cli/internal/config"
	"github.com/conforme/conforme-cli/internal/model"
	"github.com/conforme/conforme-cli/internal/parse"
	"github.com/conforme/conforme-cli/internal/resilience"
	"github.com/conforme/conforme-cli/pkg/vertex"
)

const rawResponseOmitted = "[nao salvo]"

// Engine evaluates files against the generative model using a fixed system
// prompt built by the caller.
type Engine struct {
	client  vertex.Client
	ai      config.AIConfig
	system  string
	parser  *parse.Parser
	saveRaw bool
	limiter *rate.Limiter
	retry   resilience.RetryConfig

	// Now is the clock stamped onto results. Tests override it.
	Now func() time.Time
}

// NewEngine builds an Engine. The system prompt must already contain the
// compliance rules; the limiter paces calls between items.
func NewEngine(cfg *config.Config, client vertex.Client, system string) *Engine {
	interval := time.Duration(cfg.Processing.DelayBetweenCalls * float64(time.Second))
	limiter := rate.NewLimiter(rate.Inf, 1)
	if interval > 0 {
		limiter = rate.NewLimiter(rate.Every(interval), 1)
	}

	return &Engine{
		client:  client,
		ai:      cfg.AI,
		system:  system,
		parser:  parse.NewParser(model.FixedTaxonomyFields),
		saveRaw: cfg.Control.SaveRawResponse,
		limiter: limiter,
		retry: resilience.RetryConfig{
			MaxAttempts: cfg.Processing.RetryAttempts,
			Delay:       time.Duration(cfg.Processing.RetryDelaySecs * float64(time.Second)),
			OnRetry:     resilience.RetryLogger("vertex", "generate"),
		},
		Now: time.Now,
	}
}

// SetSleeper overrides the retry wait, for tests.
func (e *Engine) SetSleeper(s resilience.Sleeper) {
	e.retry.Sleep = s
}

// SetFields replaces the extracted field set. The server uses this to parse
// rule-category answers instead of the fixed taxonomy.
func (e *Engine) SetFields(fields []string) {
	e.parser = parse.NewParser(fields)
}

// EvaluateFile sends one file to the model and parses the response. Errors
// are recorded on the result, never returned; a batch must survive any
// single item.
func (e *Engine) EvaluateFile(ctx context.Context, path, name string) model.EvaluationResult {
	result := model.EvaluationResult{
		ID:         uuid.NewString(),
		SourceFile: name,
		SourcePath: path,
		Timestamp:  e.Now(),
		Status:     model.StatusPending,
	}

	part, err := readContentPart(path)
	if err != nil {
		result.Status = model.StatusError
		result.Error = err.Error()
		return result
	}

	return e.evaluatePart(ctx, result, part)
}

// EvaluateText sends an inline text snippet to the model. Used by the
// server for pasted text and scraped page analyses.
func (e *Engine) EvaluateText(ctx context.Context, text, label string) model.EvaluationResult {
	result := model.EvaluationResult{
		ID:         uuid.NewString(),
		SourceFile: label,
		Timestamp:  e.Now(),
		Status:     model.StatusPending,
	}
	return e.evaluatePart(ctx, result, vertex.Part{Text: text})
}

func (e *Engine) evaluatePart(ctx context.Context, result model.EvaluationResult, part vertex.Part) model.EvaluationResult {
	req := vertex.GenerateRequest{
		Model:           e.ai.Model,
		System:          e.system,
		Parts:           []vertex.Part{part},
		MaxOutputTokens: e.ai.MaxOutputTokens,
		StopSequences:   e.ai.StopSequences,
		Seed:            e.ai.Seed,
	}
	if e.ai.Temperature > 0 {
		temp := e.ai.Temperature
		req.Temperature = &temp
	}
	if e.ai.TopP > 0 {
		topP := e.ai.TopP
		req.TopP = &topP
	}

	resp, err := resilience.DoVal(ctx, e.retry, func(ctx context.Context) (*vertex.GenerateResponse, error) {
		return e.client.Generate(ctx, req)
	})
	if err != nil {
		result.Status = model.StatusError
		result.Error = err.Error()
		zap.L().Error("evaluate: model call failed", zap.String("file", result.SourceFile), zap.Error(err))
		return result
	}

	result.Status = model.StatusSuccess
	if e.saveRaw {
		result.RawResponse = resp.Text
	} else {
		result.RawResponse = rawResponseOmitted
	}

	if parse.IsOutOfScope(resp.Text) {
		result.ExtractedFields = model.NewFieldSet(e.parser.Fields(), string(model.VerdictOutOfScope))
		result.Verdict = model.VerdictOutOfScope
		return result
	}

	result.ExtractedFields = e.parser.Extract(resp.Text)
	result.Verdict = parse.ResolveVerdict(result.ExtractedFields)
	return result
}

// EvaluateManifest runs the evaluate stage over a capture manifest: only
// successfully copied files are sent, calls are paced by the limiter, and
// per-item failures land in the results rather than aborting the batch.
func (e *Engine) EvaluateManifest(ctx context.Context, m *model.Manifest) (*model.Results, error) {
	var results []model.EvaluationResult
	total := len(m.Files)

	for i, f := range m.Files {
		log := zap.L().With(
			zap.String("file", f.OriginalName),
			zap.Int("index", i+1),
			zap.Int("total", total),
		)

		if f.CopyStatus != model.CopySuccess {
			log.Warn("evaluate: skipping file with copy error")
			continue
		}
		if _, err := os.Stat(f.DestinationPath); err != nil {
			log.Error("evaluate: copied file missing", zap.Error(err))
			continue
		}

		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		log.Info("evaluate: sending to model")
		result := e.EvaluateFile(ctx, f.DestinationPath, f.DestinationName)
		result.SHA256 = f.SHA256
		result.OriginFolder = f.OriginFolder
		results = append(results, result)

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	meta := model.ResultsMeta{ExecutedAt: e.Now(), TotalFiles: len(results)}
	for _, r := range results {
		if r.Status == model.StatusSuccess {
			meta.Succeeded++
		} else {
			meta.Errors++
		}
	}

	zap.L().Info("evaluate: batch complete",
		zap.Int("total", meta.TotalFiles),
		zap.Int("success", meta.Succeeded),
		zap.Int("errors", meta.Errors),
	)
	return &model.Results{Meta: meta, Results: results}, nil
}
