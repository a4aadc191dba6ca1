// Package config provides YAML-based configuration with environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppConfig represents the root configuration structure.
type AppConfig struct {
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Processing ProcessingConfig `yaml:"processing"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	LLM        LLMConfig        `yaml:"llm"`
	OCR        OCRConfig        `yaml:"ocr"`
	Jobs       JobsConfig       `yaml:"jobs"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port                   int    `yaml:"port"`
	BindAddress            string `yaml:"bind_address"`
	EnableCORS             bool   `yaml:"enable_cors"`
	AllowOrigins           string `yaml:"allow_origins"`
	ReadTimeoutSeconds     int    `yaml:"read_timeout_seconds"`
	RequestTimeoutSeconds  int    `yaml:"request_timeout_seconds"`
	IdleTimeoutSeconds     int    `yaml:"idle_timeout_seconds"`
	ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds"`
	BodyLimit              string `yaml:"body_limit"`
	EnableRequestLogging   bool   `yaml:"enable_request_logging"`
}

// StorageConfig contains file storage settings.
type StorageConfig struct {
	DataDirectory    string `yaml:"data_directory"`
	TempDirectory    string `yaml:"temp_directory"`
	ResultsDirectory string `yaml:"results_directory"`
}

// ProcessingConfig contains job processing settings.
type ProcessingConfig struct {
	MaxConcurrentJobs      int   `yaml:"max_concurrent_jobs"`
	JobRetentionMinutes    int   `yaml:"job_retention_minutes"`
	CleanupIntervalMinutes int   `yaml:"cleanup_interval_minutes"`
	MaxFilesPerJob         int   `yaml:"max_files_per_job"`
	MaxFileBytes           int64 `yaml:"max_file_bytes"`
	MaxJobBytes            int64 `yaml:"max_job_bytes"`
}

// PipelineConfig tunes the summarization pipeline.
type PipelineConfig struct {
	PageConcurrency         int  `yaml:"page_concurrency"`
	ClassificationThreshold int  `yaml:"classification_threshold"`
	ChunkTokens             int  `yaml:"chunk_tokens"`
	CharsPerToken           int  `yaml:"chars_per_token"`
	NaturalOrder            bool `yaml:"natural_order"`
}

// LLMConfig selects and configures the language model provider.
type LLMConfig struct {
	Provider    string   `yaml:"provider"` // gemini or vertex
	APIKeys     []string `yaml:"api_keys"`
	ProjectID   string   `yaml:"project_id"`
	Region      string   `yaml:"region"`
	TextModel   string   `yaml:"text_model"`
	VisionModel string   `yaml:"vision_model"`
}

// OCRConfig selects how page text is extracted.
type OCRConfig struct {
	Provider string `yaml:"provider"` // vision, textlayer or hybrid
}

// JobsConfig tunes the progress stream.
type JobsConfig struct {
	QueueSize        int `yaml:"queue_size"`
	KeepAliveSeconds int `yaml:"keep_alive_seconds"`
}

// LoggingConfig selects log level and format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:                   8080,
			BindAddress:            "0.0.0.0",
			EnableCORS:             true,
			AllowOrigins:           "*",
			ReadTimeoutSeconds:     60,
			RequestTimeoutSeconds:  120,
			IdleTimeoutSeconds:     120,
			ShutdownTimeoutSeconds: 30,
			BodyLimit:              "200M",
			EnableRequestLogging:   true,
		},
		Storage: StorageConfig{
			DataDirectory:    "./data",
			TempDirectory:    "./data/temp",
			ResultsDirectory: "./data/results",
		},
		Processing: ProcessingConfig{
			MaxConcurrentJobs:      2,
			JobRetentionMinutes:    60,
			CleanupIntervalMinutes: 5,
			MaxFilesPerJob:         200,
			MaxFileBytes:           50 << 20,
			MaxJobBytes:            200 << 20,
		},
		Pipeline: PipelineConfig{
			PageConcurrency:         4,
			ClassificationThreshold: 700,
			ChunkTokens:             1000,
			CharsPerToken:           4,
			NaturalOrder:            true,
		},
		LLM: LLMConfig{
			Provider:    "gemini",
			Region:      "europe-west1",
			TextModel:   "gemini-2.5-flash",
			VisionModel: "gemini-2.5-flash",
		},
		OCR: OCRConfig{
			Provider: "hybrid",
		},
		Jobs: JobsConfig{
			QueueSize:        64,
			KeepAliveSeconds: 15,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig loads configuration from a YAML file, writing the default
// configuration there first if the file does not exist. A .env file next
// to the working directory is loaded before environment overrides apply.
func LoadConfig(configPath string) (*AppConfig, error) {
	_ = godotenv.Load()

	var config *AppConfig
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		config = DefaultConfig()
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		config = DefaultConfig()
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	config.applyEnvironmentOverrides()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	config.resolvePaths(filepath.Dir(configPath))
	return config, nil
}

// Save writes the configuration as YAML.
func (c *AppConfig) Save(configPath string) error {
	output, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if dir := filepath.Dir(configPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	header := []byte("# Exhibit summarizer configuration\n# This file is auto-generated on first run\n\n")
	if err := os.WriteFile(configPath, append(header, output...), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values.
func (c *AppConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		c.Storage.DataDirectory = dataDir
		c.Storage.TempDirectory = filepath.Join(dataDir, "temp")
		c.Storage.ResultsDirectory = filepath.Join(dataDir, "results")
	}

	if keys := os.Getenv("GEMINI_API_KEYS"); keys != "" {
		c.LLM.APIKeys = splitList(keys)
	} else if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKeys = []string{key}
	}

	if project := os.Getenv("GOOGLE_CLOUD_PROJECT"); project != "" {
		c.LLM.ProjectID = project
	}

	if provider := os.Getenv("LLM_PROVIDER"); provider != "" {
		c.LLM.Provider = strings.ToLower(provider)
	}

	if provider := os.Getenv("OCR_PROVIDER"); provider != "" {
		c.OCR.Provider = strings.ToLower(provider)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks required settings and fills defaults for zero values.
func (c *AppConfig) Validate() error {
	switch c.LLM.Provider {
	case "gemini", "vertex":
	default:
		return fmt.Errorf("llm.provider must be gemini or vertex, got %q", c.LLM.Provider)
	}
	switch c.OCR.Provider {
	case "vision", "textlayer", "hybrid":
	default:
		return fmt.Errorf("ocr.provider must be vision, textlayer or hybrid, got %q", c.OCR.Provider)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}

	if c.Storage.DataDirectory == "" {
		c.Storage.DataDirectory = "./data"
	}
	if c.Storage.TempDirectory == "" {
		c.Storage.TempDirectory = filepath.Join(c.Storage.DataDirectory, "temp")
	}
	if c.Storage.ResultsDirectory == "" {
		c.Storage.ResultsDirectory = filepath.Join(c.Storage.DataDirectory, "results")
	}
	if c.Processing.MaxConcurrentJobs == 0 {
		c.Processing.MaxConcurrentJobs = 2
	}
	if c.Processing.JobRetentionMinutes == 0 {
		c.Processing.JobRetentionMinutes = 60
	}
	if c.Processing.CleanupIntervalMinutes == 0 {
		c.Processing.CleanupIntervalMinutes = 5
	}
	if c.Pipeline.PageConcurrency == 0 {
		c.Pipeline.PageConcurrency = 4
	}
	if c.Pipeline.ClassificationThreshold == 0 {
		c.Pipeline.ClassificationThreshold = 700
	}
	if c.Pipeline.ChunkTokens == 0 {
		c.Pipeline.ChunkTokens = 1000
	}
	if c.Pipeline.CharsPerToken == 0 {
		c.Pipeline.CharsPerToken = 4
	}
	if c.LLM.TextModel == "" {
		c.LLM.TextModel = "gemini-2.5-flash"
	}
	if c.LLM.VisionModel == "" {
		c.LLM.VisionModel = c.LLM.TextModel
	}
	if c.LLM.Region == "" {
		c.LLM.Region = "europe-west1"
	}
	if c.Jobs.KeepAliveSeconds == 0 {
		c.Jobs.KeepAliveSeconds = 15
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	return nil
}

// resolvePaths converts relative paths to absolute based on config file location.
func (c *AppConfig) resolvePaths(configDir string) {
	for _, p := range []*string{&c.Storage.DataDirectory, &c.Storage.TempDirectory, &c.Storage.ResultsDirectory} {
		if !filepath.IsAbs(*p) {
			*p = filepath.Join(configDir, *p)
		}
	}
}

// GetServerAddr returns the server bind address.
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// EnsureDirectories creates all necessary directories.
func (c *AppConfig) EnsureDirectories() error {
	dirs := []string{
		c.Storage.DataDirectory,
		c.Storage.TempDirectory,
		c.Storage.ResultsDirectory,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
