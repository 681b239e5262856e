package main

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/conforme/conforme-cli/internal/evaluate"
	"github.com/conforme/conforme-cli/internal/model"
	"github.com/conforme/conforme-cli/internal/prompt"
	"github.com/conforme/conforme-cli/internal/scrape"
	"github.com/conforme/conforme-cli/internal/store"
	"github.com/conforme/conforme-cli/internal/verdict"
)

const maxUploadBytes = 64 << 20

// Fields of the fixed response contract used for pasted text and URL
// analyses. Resumo only appears in guided mode but is harmless to extract.
var contractFields = []string{
	"Relacionado ao BV",
	"Avaliação do Agente",
	"Resultado",
	"Obs",
	"Resumo",
}

var evaluationIDRe = regexp.MustCompile(`^RNF\d{7}$`)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("server: encode response failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (env *serverEnv) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (env *serverEnv) newEngine(in prompt.Input) *evaluate.Engine {
	return evaluate.NewEngine(env.cfg, env.client, env.builder.System(in))
}

// checkGuidedPrompt applies the mode's guided-prompt requirement and the
// scope guard. A non-empty return is the rejection message.
func (env *serverEnv) checkGuidedPrompt(flags model.ModeFlags, mode model.EvaluationMode, guided string) string {
	if !flags.UseGuidedPrompt {
		return ""
	}
	if guided == "" {
		return fmt.Sprintf("guided_prompt é obrigatório para o modo %s", mode)
	}
	if env.cfg.ScopeGuard.Enabled {
		if d := env.guard.Check(guided); !d.Allowed {
			return d.Reason
		}
	}
	return ""
}

// persistAndRespond stores the batch under a fresh sequential ID and writes
// the analysis response.
func (env *serverEnv) persistAndRespond(w http.ResponseWriter, r *http.Request, username string, results []model.EvaluationResult) {
	summary := verdict.Summarize(results)
	overall := summary.Overall()

	id, err := env.store.GenerateID(r.Context())
	if err != nil {
		zap.L().Error("server: generate evaluation id failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "falha ao gerar ID da avaliação")
		return
	}

	eval := store.Evaluation{
		ID:            id,
		RequestDate:   time.Now().UTC(),
		Username:      username,
		ItemCount:     len(results),
		OverallResult: overall,
		Results:       resultMaps(results),
	}
	if err := env.store.SaveEvaluation(r.Context(), eval); err != nil {
		zap.L().Error("server: save evaluation failed", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "falha ao salvar a avaliação")
		return
	}

	zap.L().Info("server: analysis complete",
		zap.String("id", id),
		zap.String("username", username),
		zap.Int("items", len(results)),
		zap.String("overall", string(overall)),
	)

	writeJSON(w, http.StatusOK, map[string]any{
		"id":             id,
		"overall_result": overall,
		"summary":        summary,
		"results":        results,
	})
}

func (env *serverEnv) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "corpo multipart inválido")
		return
	}

	mode := model.EvaluationMode(r.FormValue("evaluation_mode"))
	if mode == "" {
		mode = model.ModeConventional
	}
	flags := env.cfg.ModeFlags(mode)
	guided := strings.TrimSpace(r.FormValue("guided_prompt"))
	username := formUsername(r.FormValue("username"))

	if msg := env.checkGuidedPrompt(flags, mode, guided); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "nenhum arquivo enviado")
		return
	}

	categories, err := env.rules.Load(false)
	if err != nil {
		zap.L().Error("server: load rules failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "falha ao carregar as regras de compliance")
		return
	}

	engine := env.newEngine(prompt.Input{
		Kind:       model.ItemKindMarketing,
		Mode:       mode,
		Flags:      flags,
		Guided:     guided,
		Categories: categories,
	})
	engine.SetFields(prompt.ExpectedFields(categories, env.cfg.ExtraFields))

	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = c.Name
	}

	results := env.evaluateUploads(r, engine, files, names)
	env.persistAndRespond(w, r, username, results)
}

// evaluateUploads writes each upload into a private temp directory under
// the uploads root, evaluates it, and cleans up. The mutex keeps concurrent
// requests from interleaving in the shared directory.
func (env *serverEnv) evaluateUploads(r *http.Request, engine *evaluate.Engine, files []*multipart.FileHeader, categoryNames []string) []model.EvaluationResult {
	env.uploads.Lock()
	defer env.uploads.Unlock()

	results := make([]model.EvaluationResult, 0, len(files))

	if err := os.MkdirAll(env.cfg.Paths.UploadsDir, 0o755); err != nil {
		zap.L().Error("server: create uploads dir failed", zap.Error(err))
	}
	dir, err := os.MkdirTemp(env.cfg.Paths.UploadsDir, "analise_")
	if err != nil {
		zap.L().Error("server: create request dir failed", zap.Error(err))
		for _, fh := range files {
			results = append(results, uploadFailure(fh.Filename, err))
		}
		return results
	}
	defer os.RemoveAll(dir)

	for _, fh := range files {
		name := filepath.Base(fh.Filename)
		path, err := saveUpload(fh, dir, name)
		if err != nil {
			zap.L().Error("server: save upload failed", zap.String("file", name), zap.Error(err))
			results = append(results, uploadFailure(name, err))
			continue
		}

		result := engine.EvaluateFile(r.Context(), path, name)
		reclassify(&result, categoryNames)
		results = append(results, result)
	}
	return results
}

func saveUpload(fh *multipart.FileHeader, dir, name string) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	path := filepath.Join(dir, name)
	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}
	return path, nil
}

func uploadFailure(name string, err error) model.EvaluationResult {
	return model.EvaluationResult{
		ID:         uuid.NewString(),
		SourceFile: name,
		Timestamp:  time.Now().UTC(),
		Status:     model.StatusError,
		Error:      err.Error(),
	}
}

// reclassify replaces the engine's taxonomy verdict with the rule-category
// classification used by the analysis endpoints.
func reclassify(result *model.EvaluationResult, categoryNames []string) {
	if result.Status != model.StatusSuccess || result.Verdict == model.VerdictOutOfScope {
		return
	}
	result.Verdict = verdict.Classify(result.ExtractedFields, categoryNames)
}

type analyzeTextRequest struct {
	Text           string `json:"text"`
	EvaluationMode string `json:"evaluation_mode"`
	GuidedPrompt   string `json:"guided_prompt"`
	Username       string `json:"username"`
}

func (env *serverEnv) handleAnalyzeText(w http.ResponseWriter, r *http.Request) {
	var req analyzeTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "corpo da requisição inválido")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text é obrigatório")
		return
	}

	mode := model.EvaluationMode(req.EvaluationMode)
	if mode == "" {
		mode = model.ModeConventional
	}
	flags := env.cfg.ModeFlags(mode)
	guided := strings.TrimSpace(req.GuidedPrompt)

	if msg := env.checkGuidedPrompt(flags, mode, guided); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	engine := env.newEngine(prompt.Input{
		Kind:   model.ItemKindText,
		Mode:   mode,
		Flags:  flags,
		Guided: guided,
	})
	engine.SetFields(contractFields)

	result := engine.EvaluateText(r.Context(), req.Text, "texto colado")
	applyContractVerdict(&result)

	env.persistAndRespond(w, r, formUsername(req.Username), []model.EvaluationResult{result})
}

type analyzeURLRequest struct {
	URLs     string `json:"urls"`
	Username string `json:"username"`
}

func (env *serverEnv) handleAnalyzeURL(w http.ResponseWriter, r *http.Request) {
	var req analyzeURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "corpo da requisição inválido")
		return
	}

	urls := scrape.SplitURLs(req.URLs)
	if len(urls) == 0 {
		writeError(w, http.StatusBadRequest, "urls é obrigatório")
		return
	}

	engine := env.newEngine(prompt.Input{
		Kind: model.ItemKindLinks,
		Mode: model.ModeConventional,
	})
	engine.SetFields(contractFields)

	results := make([]model.EvaluationResult, 0, len(urls))
	for _, raw := range urls {
		results = append(results, env.evaluateURL(r, engine, raw))
	}

	env.persistAndRespond(w, r, formUsername(req.Username), results)
}

// evaluateURL scrapes one page and evaluates its analysis text. Pages not
// related to the bank are marked out of scope without a model call.
func (env *serverEnv) evaluateURL(r *http.Request, engine *evaluate.Engine, raw string) model.EvaluationResult {
	pageURL := scrape.NormalizeURL(raw)

	page, err := env.scraper.Fetch(r.Context(), pageURL)
	if err != nil {
		zap.L().Error("server: scrape failed", zap.String("url", pageURL), zap.Error(err))
		return model.EvaluationResult{
			ID:         uuid.NewString(),
			SourceFile: pageURL,
			Timestamp:  time.Now().UTC(),
			Status:     model.StatusError,
			Error:      err.Error(),
		}
	}

	if !page.RelatedToBV {
		return model.EvaluationResult{
			ID:         uuid.NewString(),
			SourceFile: pageURL,
			Timestamp:  time.Now().UTC(),
			Status:     model.StatusSuccess,
			Verdict:    model.VerdictOutOfScope,
			ExtractedFields: map[string]string{
				"Relacionado ao BV":   "Não",
				"Avaliação do Agente": fmt.Sprintf("O site %s não é relacionado ao Banco BV. Avaliação não aplicável.", page.BrandName()),
				"Resultado":           string(model.VerdictOutOfScope),
			},
		}
	}

	result := engine.EvaluateText(r.Context(), page.AnalysisText(), pageURL)
	applyContractVerdict(&result)
	return result
}

// applyContractVerdict derives the verdict from the fixed contract's
// Resultado field.
func applyContractVerdict(result *model.EvaluationResult) {
	if result.Status != model.StatusSuccess || result.Verdict == model.VerdictOutOfScope {
		return
	}
	switch strings.ToUpper(strings.TrimSpace(result.ExtractedFields["Resultado"])) {
	case "APROVADO", "APROVADA":
		result.Verdict = model.VerdictApproved
	case "REPROVADO", "REPROVADA":
		result.Verdict = model.VerdictRejected
	default:
		result.Verdict = model.VerdictInconclusive
	}
}

func (env *serverEnv) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("file")
	if name != filepath.Base(name) || name == "" || name == "." || name == ".." {
		writeError(w, http.StatusBadRequest, "nome de arquivo inválido")
		return
	}

	path := filepath.Join(env.cfg.Paths.OutputFolder, name)
	if _, err := os.Stat(path); err != nil {
		writeError(w, http.StatusNotFound, "arquivo não encontrado")
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeFile(w, r, path)
}

func (env *serverEnv) handleGetEvaluation(w http.ResponseWriter, r *http.Request) {
	id := strings.ToUpper(strings.TrimSpace(r.PathValue("id")))
	if !evaluationIDRe.MatchString(id) {
		writeError(w, http.StatusBadRequest, "formato de ID inválido. Use RNF seguido de 7 dígitos, ex: RNF0000001")
		return
	}

	eval, err := env.store.GetEvaluation(r.Context(), id)
	if err != nil {
		zap.L().Error("server: get evaluation failed", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "falha ao consultar a avaliação")
		return
	}
	if eval == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("avaliação %s não encontrada", id))
		return
	}

	writeJSON(w, http.StatusOK, eval)
}

func (env *serverEnv) handleListEvaluations(w http.ResponseWriter, r *http.Request) {
	filter := store.Filter{Username: strings.TrimSpace(r.URL.Query().Get("username"))}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			writeError(w, http.StatusBadRequest, "limit deve ser um inteiro positivo")
			return
		}
		filter.Limit = limit
	}

	evals, err := env.store.ListEvaluations(r.Context(), filter)
	if err != nil {
		zap.L().Error("server: list evaluations failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "falha ao listar as avaliações")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"evaluations": evals,
		"count":       len(evals),
	})
}

func (env *serverEnv) handleStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := env.store.Statistics(r.Context())
	if err != nil {
		zap.L().Error("server: statistics failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "falha ao calcular as estatísticas")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func formUsername(raw string) string {
	if u := strings.TrimSpace(raw); u != "" {
		return u
	}
	return "anonimo"
}

func resultMaps(results []model.EvaluationResult) []map[string]any {
	out := make([]map[string]any, 0, len(results))
	for _, res := range results {
		data, err := json.Marshal(res)
		if err != nil {
			zap.L().Error("server: marshal result failed", zap.Error(err))
			continue
		}
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	return out
}
