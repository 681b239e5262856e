package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conforme/conforme-cli/internal/model"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "gemini-2.5-flash", cfg.AI.Model)
	assert.Equal(t, "us-central1", cfg.AI.Location)
	assert.InDelta(t, 0.1, cfg.AI.Temperature, 0.001)
	assert.Equal(t, int32(4096), cfg.AI.MaxOutputTokens)
	assert.InDelta(t, 0.85, cfg.AI.TopP, 0.001)
	assert.Nil(t, cfg.AI.Seed)
	assert.Equal(t, 3, cfg.Processing.RetryAttempts)
	assert.InDelta(t, 10, cfg.Processing.RetryDelaySecs, 0.001)
	assert.True(t, cfg.Control.UseHash)
	assert.Contains(t, cfg.Extensions, ".pdf")
	assert.Contains(t, cfg.ScopeGuard.Competitors, "itaú")
	assert.Contains(t, cfg.ScopeGuard.InScopeKeywords, "compliance")
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "ResultadoConforme", cfg.Export.FilenamePrefix)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
ai:
  project_id: my-project
  model_name: gemini-2.0-flash-001
  temperature: 0.5
processing:
  retry_attempts: 5
extra_fields:
  - name: Publico Alvo
    prompt_hint: identifique o publico alvo da peca
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "my-project", cfg.AI.ProjectID)
	assert.Equal(t, "gemini-2.0-flash-001", cfg.AI.Model)
	assert.InDelta(t, 0.5, cfg.AI.Temperature, 0.001)
	assert.Equal(t, 5, cfg.Processing.RetryAttempts)
	require.Len(t, cfg.ExtraFields, 1)
	assert.Equal(t, "Publico Alvo", cfg.ExtraFields[0].Name)
	assert.Equal(t, []string{"Publico Alvo"}, cfg.ExtraFieldNames())
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		AI:         AIConfig{Model: "gemini-2.5-flash"},
		Extensions: []string{".pdf"},
	}
	assert.Error(t, cfg.Validate(), "missing project and key")

	cfg.AI.ProjectID = "proj"
	assert.NoError(t, cfg.Validate())

	cfg.AI.Model = ""
	assert.Error(t, cfg.Validate(), "missing model")

	cfg.AI.Model = "gemini-2.5-flash"
	cfg.Extensions = nil
	assert.Error(t, cfg.Validate(), "missing extensions")
}

func TestModeFlags(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	conv := cfg.ModeFlags(model.ModeConventional)
	assert.True(t, conv.UseStandardRules)
	assert.False(t, conv.UseGuidedPrompt)

	guided := cfg.ModeFlags(model.ModeGuided)
	assert.False(t, guided.UseStandardRules)
	assert.True(t, guided.UseGuidedPrompt)

	combined := cfg.ModeFlags(model.ModeCombined)
	assert.True(t, combined.UseStandardRules)
	assert.True(t, combined.UseGuidedPrompt)

	// Unknown modes fall back to conventional.
	unknown := cfg.ModeFlags(model.EvaluationMode("typo"))
	assert.Equal(t, conv, unknown)
}

func TestInitLogger(t *testing.T) {
	assert.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.Error(t, InitLogger(LogConfig{Level: "nope", Format: "json"}))
}
