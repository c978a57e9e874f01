package common

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, k := range []string{"DB_URL", "GEMINI_MODEL", "OPENROUTER_MODEL", "MAX_PROMPT_CHARS", "ML_TIMEOUT", "WORKERS", "GEMINI_TRANSPORT"} {
		t.Setenv(k, "")
	}
	cfg := LoadConfig()

	assert.Empty(t, cfg.Database.DSN)
	assert.Equal(t, "claims.db", cfg.Database.SQLitePath)
	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.GeminiModel)
	assert.Equal(t, "mistralai/mistral-7b-instruct", cfg.LLM.OpenRouterModel)
	assert.Equal(t, "google/gemini-2.0-flash-001", cfg.LLM.OpenRouterFallbackModel)
	assert.Equal(t, 50000, cfg.LLM.MaxPromptChars)
	assert.InDelta(t, 0.1, cfg.LLM.Temperature, 1e-6)
	assert.Equal(t, 60*time.Second, cfg.Scoring.Timeout)
	assert.Equal(t, TransportREST, cfg.LLM.GeminiTransport)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("MAX_PROMPT_CHARS", "1200")
	t.Setenv("ML_TIMEOUT", "5s")
	t.Setenv("WORKERS", "not-a-number")
	t.Setenv("OPENROUTER_API_KEY", "sk-or")

	cfg := LoadConfig()
	assert.Equal(t, 1200, cfg.LLM.MaxPromptChars)
	assert.Equal(t, 5*time.Second, cfg.Scoring.Timeout)
	assert.Equal(t, 4, cfg.Server.Workers)
	assert.Equal(t, "sk-or", cfg.LLM.OpenRouterAPIKey)
}

func TestLoadConfigFile_Overlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "claims.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  gemini_model: gemini-1.5-pro
  max_prompt_chars: 8000
server:
  inbox_dir: /srv/inbox
  workers: 2
`), 0o600))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini-1.5-pro", cfg.LLM.GeminiModel)
	assert.Equal(t, 8000, cfg.LLM.MaxPromptChars)
	assert.Equal(t, "/srv/inbox", cfg.Server.InboxDir)
	assert.Equal(t, 2, cfg.Server.Workers)
	// untouched keys keep their env defaults
	assert.Equal(t, "tesseract", cfg.OCR.Tesseract)
}

func TestLoadConfigFile_Errors(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("llm: [unterminated"), 0o600))
	_, err = LoadConfigFile(bad)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestConfigValidate(t *testing.T) {
	cfg := LoadConfig()
	cfg.LLM.MaxPromptChars = 0
	cfg.LLM.GeminiTransport = "grpc"
	cfg.Scoring.ScriptPath = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.Contains(t, err.Error(), "MAX_PROMPT_CHARS")
	assert.Contains(t, err.Error(), "GEMINI_TRANSPORT")
	assert.Contains(t, err.Error(), "ML_PREDICT_SCRIPT_PATH")
}

func TestEnsureRequestID(t *testing.T) {
	ctx, id := EnsureRequestID(context.Background())
	assert.NotEmpty(t, id)
	assert.Equal(t, id, RequestIDFromContext(ctx))

	same, again := EnsureRequestID(ctx)
	assert.Equal(t, id, again)
	assert.Equal(t, ctx, same)
}
