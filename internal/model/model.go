package model

import "time"

// Verdict is the canonical per-item outcome of a compliance evaluation.
// Values are the Portuguese labels that appear in exported spreadsheets
// and stored evaluations.
type Verdict string

const (
	VerdictApproved     Verdict = "Aprovado"
	VerdictRejected     Verdict = "Reprovado"
	VerdictInconclusive Verdict = "Inconclusivo"
	VerdictOutOfScope   Verdict = "Fora do Escopo"
	VerdictIgnored      Verdict = "Ignorado"
)

// ItemKind describes what is being evaluated. Marketing items get the full
// rule-driven prompt; everything else gets the shorter compliance prompt.
type ItemKind string

const (
	ItemKindMarketing ItemKind = "marketing"
	ItemKindText      ItemKind = "text"
	ItemKindLinks     ItemKind = "links"
)

// EvaluationMode selects which prompt blocks an evaluation uses.
type EvaluationMode string

const (
	ModeConventional EvaluationMode = "conventional"
	ModeGuided       EvaluationMode = "guided"
	ModeCombined     EvaluationMode = "combined"
)

// ModeFlags maps an evaluation mode to its prompt-assembly flags.
type ModeFlags struct {
	UseStandardRules bool `yaml:"use_standard_rules" mapstructure:"use_standard_rules"`
	UseGuidedPrompt  bool `yaml:"use_guided_prompt" mapstructure:"use_guided_prompt"`
}

// RuleCategory is a named group of compliance rules sourced from one rule
// document. Categories with no rules are never constructed.
type RuleCategory struct {
	Name  string   `json:"name"`
	Rules []string `json:"rules"`
}

// ExtraField is an additional extraction target beyond rule categories.
type ExtraField struct {
	Name       string `yaml:"name" json:"name" mapstructure:"name"`
	PromptHint string `yaml:"prompt_hint" json:"prompt_hint" mapstructure:"prompt_hint"`
}

// ScopeDecision is the outcome of validating a guided prompt against the
// scope-guard keyword policy.
type ScopeDecision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// CopyStatus tracks the outcome of copying a captured file into the house
// folder.
type CopyStatus string

const (
	CopyPending CopyStatus = "pendente"
	CopySuccess CopyStatus = "sucesso"
	CopyError   CopyStatus = "erro"
)

// FileDescriptor describes one file found during the capture stage. JSON
// keys match the manifest artifact consumed by the evaluate stage.
type FileDescriptor struct {
	OriginalName    string     `json:"nome_original"`
	SourcePath      string     `json:"caminho_completo"`
	OriginFolder    string     `json:"pasta_origem"`
	Extension       string     `json:"extensao"`
	SizeBytes       int64      `json:"tamanho_bytes"`
	ModifiedAt      time.Time  `json:"data_modificacao"`
	SHA256          string     `json:"hash_sha256,omitempty"`
	DestinationName string     `json:"nome_destino,omitempty"`
	DestinationPath string     `json:"caminho_destino,omitempty"`
	CopyStatus      CopyStatus `json:"status_copia"`
	CopyError       string     `json:"erro_copia,omitempty"`
}

// ManifestRun holds execution metadata for one capture run.
type ManifestRun struct {
	Timestamp    time.Time `json:"data_hora"`
	SourceFolder string    `json:"pasta_origem"`
	HouseFolder  string    `json:"pasta_destino"`
	TotalFiles   int       `json:"total_arquivos"`
	SuccessCount int       `json:"arquivos_sucesso"`
	ErrorCount   int       `json:"arquivos_erro"`
}

// ManifestConfig snapshots the capture configuration so the evaluate stage
// can audit how files were selected.
type ManifestConfig struct {
	AcceptedExtensions []string `json:"extensoes_aceitas"`
	UseHash            bool     `json:"use_hash"`
}

// Manifest is the artifact produced by the capture stage. It is immutable
// once written; the evaluate stage consumes it read-only.
type Manifest struct {
	Run    ManifestRun      `json:"execucao"`
	Config ManifestConfig   `json:"configuracao"`
	Files  []FileDescriptor `json:"arquivos"`
}

// ItemStatus tracks the processing outcome of one evaluated item.
type ItemStatus string

const (
	StatusPending ItemStatus = "pendente"
	StatusSuccess ItemStatus = "sucesso"
	StatusError   ItemStatus = "erro"
)

// EvaluationResult holds the raw and parsed outcome for one evaluated file.
// ExtractedFields keys are restricted to rule-category names, extra-field
// names, and the fixed taxonomy fields; construct via NewFieldSet.
type EvaluationResult struct {
	ID              string            `json:"id"`
	SourceFile      string            `json:"arquivo"`
	SourcePath      string            `json:"caminho"`
	Timestamp       time.Time         `json:"data_avaliacao"`
	Status          ItemStatus        `json:"status"`
	RawResponse     string            `json:"resposta_raw,omitempty"`
	ExtractedFields map[string]string `json:"campos_extraidos"`
	Error           string            `json:"erro,omitempty"`
	Verdict         Verdict           `json:"avaliacao_final,omitempty"`
	SHA256          string            `json:"hash_sha256,omitempty"`
	OriginFolder    string            `json:"pasta_origem,omitempty"`
}

// NewFieldSet builds an extraction map restricted to the given field names,
// every value initialized to val.
func NewFieldSet(names []string, val string) map[string]string {
	m := make(map[string]string, len(names))
	for _, n := range names {
		m[n] = val
	}
	return m
}

// BatchSummary aggregates per-item verdicts for one evaluate run.
// Invariants: Approved+Rejected+Inconclusive+OutOfScope+Ignored == Succeeded
// and Succeeded+Errors == Total.
type BatchSummary struct {
	Total        int `json:"total"`
	Succeeded    int `json:"succeeded"`
	Approved     int `json:"approved"`
	Rejected     int `json:"rejected"`
	Inconclusive int `json:"inconclusive"`
	OutOfScope   int `json:"out_of_scope"`
	Ignored      int `json:"ignored"`
	Errors       int `json:"errors"`
}

// Overall derives the batch-level verdict: any rejection rejects the batch;
// out-of-scope or ignored items make it inconclusive; otherwise approved.
func (s BatchSummary) Overall() Verdict {
	switch {
	case s.Rejected > 0:
		return VerdictRejected
	case s.OutOfScope > 0 || s.Ignored > 0:
		return VerdictInconclusive
	default:
		return VerdictApproved
	}
}

// ResultsMeta holds execution metadata for one evaluate run.
type ResultsMeta struct {
	ExecutedAt time.Time `json:"data_execucao"`
	TotalFiles int       `json:"total_arquivos"`
	Succeeded  int       `json:"sucesso"`
	Errors     int       `json:"erros"`
}

// Results is the artifact produced by the evaluate stage and consumed by
// the export stage.
type Results struct {
	Meta    ResultsMeta        `json:"metadata"`
	Results []EvaluationResult `json:"resultados"`
}

// Row is one exported line with the fixed, ordered column set the export
// collaborator renders.
type Row struct {
	Date         string
	FileName     string
	FolderPath   string
	SHA256       string
	Content      string
	Violations   string
	Evaluation   string
	Result       string
	Rationale    string
	Suggestions  string
	Status       string
	Error        string
	HumanOpinion string
}

// RowColumns is the export column order. The export collaborator must not
// reorder it; the cumulative master sheet depends on stable positions.
var RowColumns = []string{
	"Data",
	"Nome do Arquivo",
	"Caminho Pasta",
	"Hash SHA256",
	"Conteudo Identificado",
	"Violacoes Encontradas",
	"Avaliacao",
	"Resultado",
	"Justificativa",
	"Recomendacoes",
	"Status Processamento",
	"Erro",
	"Parecer Final Humano",
}

// Values returns the row cells in RowColumns order.
func (r Row) Values() []string {
	return []string{
		r.Date,
		r.FileName,
		r.FolderPath,
		r.SHA256,
		r.Content,
		r.Violations,
		r.Evaluation,
		r.Result,
		r.Rationale,
		r.Suggestions,
		r.Status,
		r.Error,
		r.HumanOpinion,
	}
}

// FixedTaxonomyFields are the extraction targets every marketing evaluation
// requests in addition to rule categories and configured extra fields.
var FixedTaxonomyFields = []string{
	"ARQUIVO",
	"CONTEUDO_IDENTIFICADO",
	"VIOLACOES_ENCONTRADAS",
	"AVALIACAO",
	"RESULTADO",
	"JUSTIFICATIVA",
	"RECOMENDACOES",
}
