package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"PORT", "AGRIMIND_ENGINE", "OPENAI_API_KEY", "OPENAI_MODEL", "OPENAI_BASE_URL",
	"GEMINI_API_KEY", "GEMINI_MODEL", "TELEGRAM_BOT_TOKEN", "WEBHOOK_URL", "LOG_LEVEL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, ":8000", cfg.Addr())
	assert.Equal(t, 60*time.Second, cfg.GetRequestTimeout())
	assert.Equal(t, 30*time.Second, cfg.GetBreakerOpenTimeout())
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "agrimind.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9090"
engine: gemini
gemini:
  api_key: from-file
  model: gemini-2.0-flash
breaker:
  consecutive_failures: 3
  open_timeout: 10s
request_timeout: 15s
`), 0o600))

	t.Setenv("GEMINI_MODEL", "gemini-2.5-pro")
	t.Setenv("OPENAI_API_KEY", "sk-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "gemini", cfg.Engine)
	assert.Equal(t, "from-file", cfg.Gemini.APIKey)
	assert.Equal(t, "gemini-2.5-pro", cfg.Gemini.Model)
	assert.Equal(t, "sk-env", cfg.OpenAI.APIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.Equal(t, 3, cfg.Breaker.ConsecutiveFailures)
	assert.Equal(t, 15*time.Second, cfg.GetRequestTimeout())
	assert.Equal(t, 10*time.Second, cfg.GetBreakerOpenTimeout())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_BadYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [1, 2"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"openai only", func(c *Config) { c.OpenAI.APIKey = "k" }, ""},
		{"gemini default", func(c *Config) { c.Gemini.APIKey = "k"; c.Engine = "google" }, ""},
		{"no keys", func(c *Config) {}, "no provider configured"},
		{"default engine without key", func(c *Config) { c.Gemini.APIKey = "k" }, `engine "gpt" has no api key`},
		{"unknown engine", func(c *Config) { c.OpenAI.APIKey = "k"; c.Engine = "llama" }, `unknown engine "llama"`},
		{"bad timeout", func(c *Config) { c.OpenAI.APIKey = "k"; c.RequestTimeout = "soon" }, "request_timeout"},
		{"negative timeout", func(c *Config) { c.OpenAI.APIKey = "k"; c.RequestTimeout = "-1s" }, "must be positive"},
		{"breaker threshold", func(c *Config) { c.OpenAI.APIKey = "k"; c.Breaker.ConsecutiveFailures = 0 }, "consecutive_failures"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
