package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/conforme/conforme-cli/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Paths       PathsConfig                `yaml:"paths" mapstructure:"paths"`
	Extensions  []string                   `yaml:"accepted_extensions" mapstructure:"accepted_extensions"`
	AI          AIConfig                   `yaml:"ai" mapstructure:"ai"`
	Processing  ProcessingConfig           `yaml:"processing" mapstructure:"processing"`
	Control     ControlConfig              `yaml:"control" mapstructure:"control"`
	ScopeGuard  ScopeGuardConfig           `yaml:"ai_scope_guard" mapstructure:"ai_scope_guard"`
	Modes       map[string]model.ModeFlags `yaml:"evaluation_modes" mapstructure:"evaluation_modes"`
	ExtraFields []model.ExtraField         `yaml:"extra_fields" mapstructure:"extra_fields"`
	Context     SystemContext              `yaml:"system_context" mapstructure:"system_context"`
	BasicPrompt string                     `yaml:"basic_compliance_prompt" mapstructure:"basic_compliance_prompt"`
	Export      ExportConfig               `yaml:"export" mapstructure:"export"`
	Store       StoreConfig                `yaml:"store" mapstructure:"store"`
	Server      ServerConfig               `yaml:"server" mapstructure:"server"`
	Log         LogConfig                  `yaml:"log" mapstructure:"log"`
}

// PathsConfig locates the directories the pipeline reads and writes.
type PathsConfig struct {
	SourceFolder string `yaml:"source_folder" mapstructure:"source_folder"`
	HouseBase    string `yaml:"house_base" mapstructure:"house_base"`
	RulesDir     string `yaml:"rules_dir" mapstructure:"rules_dir"`
	TempDir      string `yaml:"temp_dir" mapstructure:"temp_dir"`
	UploadsDir   string `yaml:"uploads_dir" mapstructure:"uploads_dir"`
	OutputFolder string `yaml:"output_folder" mapstructure:"output_folder"`
}

// AIConfig holds Vertex AI connection and generation parameters.
type AIConfig struct {
	ProjectID       string   `yaml:"project_id" mapstructure:"project_id"`
	Location        string   `yaml:"location" mapstructure:"location"`
	Model           string   `yaml:"model_name" mapstructure:"model_name"`
	APIKey          string   `yaml:"api_key" mapstructure:"api_key"`
	Temperature     float32  `yaml:"temperature" mapstructure:"temperature"`
	MaxOutputTokens int32    `yaml:"max_output_tokens" mapstructure:"max_output_tokens"`
	TopP            float32  `yaml:"top_p" mapstructure:"top_p"`
	Seed            *int32   `yaml:"seed" mapstructure:"seed"`
	StopSequences   []string `yaml:"stop_sequences" mapstructure:"stop_sequences"`
}

// ProcessingConfig controls the evaluate batch loop.
type ProcessingConfig struct {
	RetryAttempts     int     `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	RetryDelaySecs    float64 `yaml:"retry_delay_seconds" mapstructure:"retry_delay_seconds"`
	DelayBetweenCalls float64 `yaml:"delay_between_calls" mapstructure:"delay_between_calls"`
}

// ControlConfig holds feature toggles.
type ControlConfig struct {
	UseHash         bool `yaml:"use_hash" mapstructure:"use_hash"`
	SaveRawResponse bool `yaml:"save_raw_response" mapstructure:"save_raw_response"`
}

// ScopeGuardConfig holds the keyword policy for guided prompts plus the
// guard text injected into system prompts when enabled.
type ScopeGuardConfig struct {
	Enabled          bool     `yaml:"enabled" mapstructure:"enabled"`
	GuardPrompt      string   `yaml:"guard_prompt" mapstructure:"guard_prompt"`
	Competitors      []string `yaml:"competitors" mapstructure:"competitors"`
	OffTopicKeywords []string `yaml:"off_topic_keywords" mapstructure:"off_topic_keywords"`
	InScopeKeywords  []string `yaml:"in_scope_keywords" mapstructure:"in_scope_keywords"`
}

// SystemContext feeds role and product context into marketing prompts.
type SystemContext struct {
	Role          string   `yaml:"role" mapstructure:"role"`
	Products      []string `yaml:"products" mapstructure:"products"`
	Instructions  []string `yaml:"evaluation_instructions" mapstructure:"evaluation_instructions"`
	MaxTextLength int      `yaml:"max_text_length" mapstructure:"max_text_length"`
}

// ExportConfig configures spreadsheet generation.
type ExportConfig struct {
	FilenamePrefix string `yaml:"filename_prefix" mapstructure:"filename_prefix"`
	DateFormat     string `yaml:"date_format" mapstructure:"date_format"`
	MasterFilename string `yaml:"master_filename" mapstructure:"master_filename"`
}

// StoreConfig configures the evaluations database.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from config.yaml and CONFORME_* environment
// variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("CONFORME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional; env vars and defaults can carry a run.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("paths.source_folder", "./ArquivosOrigem")
	v.SetDefault("paths.house_base", ".")
	v.SetDefault("paths.rules_dir", "./rules")
	v.SetDefault("paths.temp_dir", "./TEMP")
	v.SetDefault("paths.uploads_dir", "./uploads")
	v.SetDefault("paths.output_folder", "./Resultados")
	v.SetDefault("accepted_extensions", []string{
		".pdf", ".jpg", ".jpeg", ".png", ".gif", ".webp",
		".txt", ".html", ".htm", ".csv", ".rtf", ".msg", ".eml",
	})
	v.SetDefault("ai.location", "us-central1")
	v.SetDefault("ai.model_name", "gemini-2.5-flash")
	v.SetDefault("ai.temperature", 0.1)
	v.SetDefault("ai.max_output_tokens", 4096)
	v.SetDefault("ai.top_p", 0.85)
	v.SetDefault("processing.retry_attempts", 3)
	v.SetDefault("processing.retry_delay_seconds", 10)
	v.SetDefault("processing.delay_between_calls", 1.0)
	v.SetDefault("control.use_hash", true)
	v.SetDefault("control.save_raw_response", true)
	v.SetDefault("ai_scope_guard.enabled", false)
	v.SetDefault("ai_scope_guard.competitors", defaultCompetitors)
	v.SetDefault("ai_scope_guard.off_topic_keywords", defaultOffTopic)
	v.SetDefault("ai_scope_guard.in_scope_keywords", defaultInScope)
	v.SetDefault("evaluation_modes.conventional.use_standard_rules", true)
	v.SetDefault("evaluation_modes.conventional.use_guided_prompt", false)
	v.SetDefault("evaluation_modes.guided.use_standard_rules", false)
	v.SetDefault("evaluation_modes.guided.use_guided_prompt", true)
	v.SetDefault("evaluation_modes.combined.use_standard_rules", true)
	v.SetDefault("evaluation_modes.combined.use_guided_prompt", true)
	v.SetDefault("system_context.role", "analista de compliance")
	v.SetDefault("system_context.max_text_length", 120)
	v.SetDefault("export.filename_prefix", "ResultadoConforme")
	v.SetDefault("export.date_format", "02012006")
	v.SetDefault("export.master_filename", "historico_master.xlsx")
	v.SetDefault("store.path", "database/evaluations.db")
	v.SetDefault("server.port", 8000)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks the settings the evaluate stage cannot run without. It is
// called before any AI client is constructed so misconfiguration fails the
// whole run up front.
func (c *Config) Validate() error {
	if c.AI.ProjectID == "" && c.AI.APIKey == "" {
		return eris.New("config: ai.project_id or ai.api_key must be set")
	}
	if c.AI.Model == "" {
		return eris.New("config: ai.model_name must be set")
	}
	if len(c.Extensions) == 0 {
		return eris.New("config: accepted_extensions must not be empty")
	}
	return nil
}

// ModeFlags resolves the prompt flags for an evaluation mode, falling back
// to conventional for unknown modes.
func (c *Config) ModeFlags(mode model.EvaluationMode) model.ModeFlags {
	if f, ok := c.Modes[string(mode)]; ok {
		return f
	}
	return c.Modes[string(model.ModeConventional)]
}

// ExtraFieldNames returns the configured extra-field names in order.
func (c *Config) ExtraFieldNames() []string {
	names := make([]string, 0, len(c.ExtraFields))
	for _, f := range c.ExtraFields {
		names = append(names, f.Name)
	}
	return names
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

// Default keyword lists for the scope guard. Overridable per deployment;
// matching is case-insensitive substring search.
var defaultCompetitors = []string{
	"santander", "itaú", "itau", "bradesco", "caixa", "banco do brasil",
	"nubank", "inter", "c6", "original", "safra", "btg", "xp", "modal",
	"pan", "bmg", "daycoval", "abc", "votorantim", "sicoob", "sicredi",
}

var defaultOffTopic = []string{
	"receita", "culinária", "piada", "música", "filme", "série", "jogo",
	"esporte", "futebol", "política", "religião", "horóscopo",
	"previsão do tempo", "traduzir", "tradução", "código", "programação",
	"python", "javascript",
}

var defaultInScope = []string{
	"avaliar", "avaliação", "analisar", "análise", "verificar", "verificação",
	"risco", "compliance", "conformidade", "regulatório", "lgpd", "bacen",
	"produto", "serviço", "oferta", "promoção", "campanha", "marketing",
	"site", "página", "conteúdo", "texto", "imagem", "documento",
	"cartão", "empréstimo", "financiamento", "seguro", "conta", "crédito",
	"bv", "banco", "financeira", "taxa", "juros", "cet", "contrato",
}
