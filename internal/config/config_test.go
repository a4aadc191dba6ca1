package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"PORT", "DATA_DIR", "GEMINI_API_KEYS", "GEMINI_API_KEY", "GOOGLE_CLOUD_PROJECT", "LLM_PROVIDER", "OCR_PROVIDER"} {
		t.Setenv(k, "")
	}
}

func TestLoadConfigCreatesDefault(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.NoError(t, err, "default config file should be written")

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 700, cfg.Pipeline.ClassificationThreshold)
	assert.Equal(t, 1000, cfg.Pipeline.ChunkTokens)
	assert.Equal(t, 4, cfg.Pipeline.CharsPerToken)
	assert.Equal(t, filepath.Join(dir, "data"), cfg.Storage.DataDirectory)
	assert.Equal(t, filepath.Join(dir, "data", "results"), cfg.Storage.ResultsDirectory)
}

func TestLoadConfigFromFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9000
llm:
  provider: vertex
  project_id: my-project
ocr:
  provider: textlayer
pipeline:
  page_concurrency: 8
logging:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "vertex", cfg.LLM.Provider)
	assert.Equal(t, "my-project", cfg.LLM.ProjectID)
	assert.Equal(t, "textlayer", cfg.OCR.Provider)
	assert.Equal(t, 8, cfg.Pipeline.PageConcurrency)
	assert.Equal(t, 700, cfg.Pipeline.ClassificationThreshold, "unset keys keep defaults")
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestEnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	dataDir := t.TempDir()
	t.Setenv("PORT", "7000")
	t.Setenv("DATA_DIR", dataDir)
	t.Setenv("GEMINI_API_KEYS", "k1, k2,,k3")
	t.Setenv("LLM_PROVIDER", "VERTEX")
	t.Setenv("GOOGLE_CLOUD_PROJECT", "proj")
	t.Setenv("OCR_PROVIDER", "vision")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, dataDir, cfg.Storage.DataDirectory)
	assert.Equal(t, filepath.Join(dataDir, "temp"), cfg.Storage.TempDirectory)
	assert.Equal(t, []string{"k1", "k2", "k3"}, cfg.LLM.APIKeys)
	assert.Equal(t, "vertex", cfg.LLM.Provider)
	assert.Equal(t, "proj", cfg.LLM.ProjectID)
	assert.Equal(t, "vision", cfg.OCR.Provider)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr bool
	}{
		{"defaults", func(*AppConfig) {}, false},
		{"bad llm provider", func(c *AppConfig) { c.LLM.Provider = "openai" }, true},
		{"bad ocr provider", func(c *AppConfig) { c.OCR.Provider = "tesseract" }, true},
		{"bad port", func(c *AppConfig) { c.Server.Port = 70000 }, true},
		{"zero values filled", func(c *AppConfig) {
			c.Pipeline = PipelineConfig{}
			c.Storage = StorageConfig{}
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Positive(t, cfg.Pipeline.PageConcurrency)
			assert.NotEmpty(t, cfg.Storage.ResultsDirectory)
		})
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := DefaultConfig()
	cfg.Storage.DataDirectory = filepath.Join(base, "data")
	cfg.Storage.TempDirectory = filepath.Join(base, "data", "temp")
	cfg.Storage.ResultsDirectory = filepath.Join(base, "data", "results")

	require.NoError(t, cfg.EnsureDirectories())
	for _, d := range []string{cfg.Storage.TempDirectory, cfg.Storage.ResultsDirectory} {
		info, err := os.Stat(d)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
	assert.Equal(t, "0.0.0.0:8080", cfg.GetServerAddr())
}
