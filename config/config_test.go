package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"OLLAMA_URL", "OLLAMA_MODEL", "OPENAI_API_KEY", "SPEC_DB_PATH", "SPEC_UPLOAD_DIR", "PORT"} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	d, err := cfg.LLM.TimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 60*time.Second, d)
	assert.True(t, cfg.Reaper.Enabled())
}

func TestLoad_Formats(t *testing.T) {
	clearEnv(t)
	files := map[string]string{
		"config.json": `{"server_addr":":9000","llm":{"provider":"openai","model":"gpt-4o-mini","api_key":"k","timeout":"30s"}}`,
		"config.yaml": "server_addr: \":9000\"\nllm:\n  provider: openai\n  model: gpt-4o-mini\n  api_key: k\n  timeout: 30s\n",
		"config.toml": "server_addr = \":9000\"\n[llm]\nprovider = \"openai\"\nmodel = \"gpt-4o-mini\"\napi_key = \"k\"\ntimeout = \"30s\"\n",
	}
	for name, body := range files {
		t.Run(name, func(t *testing.T) {
			cfg, err := Load(writeFile(t, name, body))
			require.NoError(t, err)
			assert.Equal(t, ":9000", cfg.ServerAddr)
			assert.Equal(t, "openai", cfg.LLM.Provider)
			assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
			d, err := cfg.LLM.TimeoutDuration()
			require.NoError(t, err)
			assert.Equal(t, 30*time.Second, d)
			// Untouched sections keep their defaults.
			assert.Empty(t, cfg.LLM.BaseURL)
			assert.Equal(t, "data/specs.db", cfg.DatabasePath)
			assert.Equal(t, "@every 1h", cfg.Reaper.Schedule)
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("OLLAMA_URL", "http://gpu-box:11434")
	t.Setenv("OLLAMA_MODEL", "qwen2.5")
	t.Setenv("SPEC_DB_PATH", "/var/lib/specs.db")
	t.Setenv("PORT", "8081")

	cfg, err := Load(writeFile(t, "config.yaml", "llm:\n  provider: ollama\n  base_url: http://localhost:11434\n"))
	require.NoError(t, err)
	assert.Equal(t, "http://gpu-box:11434", cfg.LLM.BaseURL)
	assert.Equal(t, "qwen2.5", cfg.LLM.Model)
	assert.Equal(t, "/var/lib/specs.db", cfg.DatabasePath)
	assert.Equal(t, ":8081", cfg.ServerAddr)
}

func TestLoad_OllamaEnvIgnoredForOtherProviders(t *testing.T) {
	clearEnv(t)
	t.Setenv("OLLAMA_URL", "http://gpu-box:11434")
	t.Setenv("OLLAMA_MODEL", "qwen2.5")

	cfg, err := Load(writeFile(t, "config.yaml", "llm:\n  provider: openai\n  model: gpt-4o-mini\n"))
	require.NoError(t, err)
	assert.Empty(t, cfg.LLM.BaseURL)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "config.ini", "x=1"))
	assert.ErrorContains(t, err, "unsupported config format")

	_, err = Load(writeFile(t, "config.json", `{"llm":{"provider":"ollama","timeout":"soon"}}`))
	assert.ErrorContains(t, err, "llm.timeout")

	_, err = Load(writeFile(t, "config.json", `{"llm":{"provider":""}}`))
	assert.ErrorContains(t, err, "llm.provider")
}

func TestLoad_BlankFieldsFallBackToDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(writeFile(t, "config.json", `{"server_addr":"","reaper":{"schedule":"off"},"logging":{"format":"console"}}`))
	require.NoError(t, err)
	assert.Equal(t, ":3000", cfg.ServerAddr)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.False(t, cfg.Reaper.Enabled())
	assert.Equal(t, "10m", cfg.Reaper.GracePeriod)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestReaperConfig(t *testing.T) {
	assert.False(t, ReaperConfig{Schedule: "off"}.Enabled())
	assert.False(t, ReaperConfig{}.Enabled())

	g, err := ReaperConfig{GracePeriod: "90s"}.Grace()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, g)
}
