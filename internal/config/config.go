// Package config loads ragchat settings from YAML files, a .env file and
// the environment.
//
// Precedence, lowest first:
//  1. Built-in defaults (NewConfig)
//  2. User config ($XDG_CONFIG_HOME/ragchat/config.yaml)
//  3. Project config (.ragchat.yaml in the working directory)
//  4. .env in the working directory (never overrides the real environment)
//  5. RAGCHAT_* environment variables and provider API keys
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/briany/genai-rag-chatbot/internal/embed"
	ragerrors "github.com/briany/genai-rag-chatbot/internal/errors"
	"github.com/briany/genai-rag-chatbot/internal/llm"
	"github.com/briany/genai-rag-chatbot/internal/store"
)

// Retrieval modes.
const (
	ModeKeyword   = "keyword"
	ModeEmbedding = "embedding"
	ModeBM25      = "bm25"
)

const (
	// ProjectConfigFile is looked up in the working directory.
	ProjectConfigFile = ".ragchat.yaml"

	// EnvConfigDir overrides the user config directory. The --config-dir
	// flag sets it.
	EnvConfigDir = "RAGCHAT_CONFIG_DIR"
)

// Config is the complete ragchat configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Data       DataConfig       `yaml:"data" json:"data"`
	Chunking   ChunkingConfig   `yaml:"chunking" json:"chunking"`
	Retrieval  RetrievalConfig  `yaml:"retrieval" json:"retrieval"`
	Keyword    KeywordConfig    `yaml:"keyword" json:"keyword"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	LLM        LLMConfig        `yaml:"llm" json:"llm"`
	Server     ServerConfig     `yaml:"server" json:"server"`
	Watch      WatchConfig      `yaml:"watch" json:"watch"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
	Telemetry  TelemetryConfig  `yaml:"telemetry" json:"telemetry"`
}

// DataConfig locates the snapshot files.
type DataConfig struct {
	Dir string `yaml:"dir" json:"dir"`
}

// ChunkingConfig sizes chunks in characters.
type ChunkingConfig struct {
	Size    int `yaml:"size" json:"size"`
	Overlap int `yaml:"overlap" json:"overlap"`
}

// RetrievalConfig selects the document store.
type RetrievalConfig struct {
	// Mode is keyword, embedding or bm25.
	Mode string `yaml:"mode" json:"mode"`
	// BM25Backend is sqlite or bleve. Only used in bm25 mode.
	BM25Backend   string `yaml:"bm25_backend" json:"bm25_backend"`
	IngestWorkers int    `yaml:"ingest_workers" json:"ingest_workers"`
}

// KeywordConfig configures the keyword store.
type KeywordConfig struct {
	// PersistChunks saves chunk bodies so keyword search survives a restart.
	PersistChunks bool `yaml:"persist_chunks" json:"persist_chunks"`
}

// EmbeddingsConfig configures the embedding provider and vector index.
type EmbeddingsConfig struct {
	Provider     string        `yaml:"provider" json:"provider"`
	Model        string        `yaml:"model" json:"model"`
	Host         string        `yaml:"host" json:"host"`
	APIKey       string        `yaml:"-" json:"-"`
	Dimensions   int           `yaml:"dimensions" json:"dimensions"`
	BatchSize    int           `yaml:"batch_size" json:"batch_size"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout"`
	CacheSize    int           `yaml:"cache_size" json:"cache_size"`
	IndexBackend string        `yaml:"index_backend" json:"index_backend"`
}

// LLMConfig configures answer synthesis. Empty Model and BaseURL select
// the provider's defaults. API keys come from the environment only and are
// never written back to YAML.
type LLMConfig struct {
	Provider          string        `yaml:"provider" json:"provider"`
	Model             string        `yaml:"model" json:"model"`
	BaseURL           string        `yaml:"base_url" json:"base_url"`
	APIKey            string        `yaml:"-" json:"-"`
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
	Temperature       float64       `yaml:"temperature" json:"temperature"`
	MaxTokens         int           `yaml:"max_tokens" json:"max_tokens"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host           string   `yaml:"host" json:"host"`
	Port           int      `yaml:"port" json:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"`
	MaxUploadMB    int      `yaml:"max_upload_mb" json:"max_upload_mb"`
}

// WatchConfig configures inbox ingestion.
type WatchConfig struct {
	Dir      string        `yaml:"dir" json:"dir"`
	Debounce time.Duration `yaml:"debounce" json:"debounce"`
}

// TelemetryConfig configures the local search statistics kept in the
// data directory.
type TelemetryConfig struct {
	Enabled       bool          `yaml:"enabled" json:"enabled"`
	FlushInterval time.Duration `yaml:"flush_interval" json:"flush_interval"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	File      string `yaml:"file" json:"file"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
}

// NewConfig returns the built-in defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Data:    DataConfig{Dir: "data"},
		Chunking: ChunkingConfig{
			Size:    1000,
			Overlap: 200,
		},
		Retrieval: RetrievalConfig{
			Mode:          ModeKeyword,
			BM25Backend:   store.BM25BackendSQLite,
			IngestWorkers: 4,
		},
		Embeddings: EmbeddingsConfig{
			Provider:     string(embed.ProviderStatic),
			Dimensions:   embed.DefaultDimensions,
			BatchSize:    embed.DefaultBatchSize,
			Timeout:      embed.DefaultTimeout,
			IndexBackend: store.BackendFlat,
		},
		LLM: LLMConfig{
			Provider:          llm.ProviderOpenRouter,
			Timeout:           llm.DefaultTimeout,
			RequestsPerMinute: llm.DefaultRequestsPerMinute,
			Temperature:       0.7,
			MaxTokens:         1000,
		},
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8001,
			AllowedOrigins: []string{"http://localhost:3000"},
			MaxUploadMB:    32,
		},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
		Telemetry: TelemetryConfig{
			Enabled:       true,
			FlushInterval: 30 * time.Second,
		},
	}
}

// GetUserConfigDir returns the directory holding the user config.
func GetUserConfigDir() string {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return dir
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "ragchat")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "ragchat")
	}
	return filepath.Join(home, ".config", "ragchat")
}

// GetUserConfigPath returns the user config file path.
func GetUserConfigPath() string {
	return filepath.Join(GetUserConfigDir(), "config.yaml")
}

// UserConfigExists reports whether the user config file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// Load builds and validates the configuration for the project rooted at dir.
func Load(dir string) (*Config, error) {
	cfg, err := LoadUnvalidated(dir)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadUnvalidated merges every configuration layer without validating
// the result. ragchat doctor uses it to report invalid settings.
func LoadUnvalidated(dir string) (*Config, error) {
	cfg := NewConfig()

	if err := cfg.loadYAML(GetUserConfigPath()); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}
	if err := cfg.loadYAML(filepath.Join(dir, ProjectConfigFile)); err != nil {
		return nil, fmt.Errorf("failed to load project config: %w", err)
	}

	envPath := filepath.Join(dir, ".env")
	if fileExists(envPath) {
		if err := godotenv.Load(envPath); err != nil {
			return nil, ragerrors.New(ragerrors.ErrCodeConfigRead, "failed to load .env", err).
				WithDetail("path", envPath)
		}
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

// loadYAML decodes path over c. Keys absent from the file keep their
// current values. A missing file is not an error.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return ragerrors.New(ragerrors.ErrCodeConfigRead, "failed to read config file", err).
			WithDetail("path", path)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return ragerrors.ConfigError(fmt.Sprintf("failed to parse %s", path), err).
			WithSuggestion("check the YAML syntax, or regenerate it with 'ragchat config init --force'")
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	setString("RAGCHAT_DATA_DIR", &c.Data.Dir)
	setInt("RAGCHAT_CHUNK_SIZE", &c.Chunking.Size)
	setInt("RAGCHAT_CHUNK_OVERLAP", &c.Chunking.Overlap)
	setString("RAGCHAT_RETRIEVAL_MODE", &c.Retrieval.Mode)
	setString("RAGCHAT_BM25_BACKEND", &c.Retrieval.BM25Backend)
	if v := os.Getenv("RAGCHAT_PERSIST_CHUNKS"); v != "" {
		c.Keyword.PersistChunks = strings.EqualFold(v, "true") || v == "1"
	}

	setString("RAGCHAT_EMBEDDINGS_PROVIDER", &c.Embeddings.Provider)
	setString("RAGCHAT_EMBEDDINGS_MODEL", &c.Embeddings.Model)
	setString("RAGCHAT_EMBEDDINGS_HOST", &c.Embeddings.Host)
	setString("RAGCHAT_INDEX_BACKEND", &c.Embeddings.IndexBackend)
	setString("OPENAI_API_KEY", &c.Embeddings.APIKey)

	setString("RAGCHAT_LLM_PROVIDER", &c.LLM.Provider)
	setString("RAGCHAT_LLM_MODEL", &c.LLM.Model)
	setString("RAGCHAT_LLM_BASE_URL", &c.LLM.BaseURL)
	switch strings.ToLower(c.LLM.Provider) {
	case llm.ProviderGemini:
		setString("GEMINI_API_KEY", &c.LLM.APIKey)
	default:
		setString("OPENROUTER_API_KEY", &c.LLM.APIKey)
	}

	setInt("RAGCHAT_PORT", &c.Server.Port)
	setString("RAGCHAT_WATCH_DIR", &c.Watch.Dir)
	setString("RAGCHAT_LOG_LEVEL", &c.Logging.Level)
	if v := os.Getenv("RAGCHAT_TELEMETRY"); v != "" {
		c.Telemetry.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
}

// Validate rejects settings the stores and providers cannot run with.
func (c *Config) Validate() error {
	if c.Chunking.Size <= 0 {
		return invalid(fmt.Sprintf("chunking.size must be positive, got %d", c.Chunking.Size))
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return invalid(fmt.Sprintf("chunking.overlap must be in [0, %d), got %d", c.Chunking.Size, c.Chunking.Overlap))
	}

	modes := []string{ModeKeyword, ModeEmbedding, ModeBM25}
	if !slices.Contains(modes, strings.ToLower(c.Retrieval.Mode)) {
		return invalid(fmt.Sprintf("retrieval.mode must be one of %s, got %q", strings.Join(modes, ", "), c.Retrieval.Mode))
	}
	if !slices.Contains(store.ValidBM25Backends(), strings.ToLower(c.Retrieval.BM25Backend)) {
		return invalid(fmt.Sprintf("retrieval.bm25_backend must be one of %s, got %q",
			strings.Join(store.ValidBM25Backends(), ", "), c.Retrieval.BM25Backend))
	}
	if c.Retrieval.IngestWorkers < 0 {
		return invalid(fmt.Sprintf("retrieval.ingest_workers must be non-negative, got %d", c.Retrieval.IngestWorkers))
	}

	if c.Embeddings.Provider != "" && !embed.IsValidProvider(c.Embeddings.Provider) {
		return invalid(fmt.Sprintf("embeddings.provider must be one of %s, got %q",
			strings.Join(embed.ValidProviders(), ", "), c.Embeddings.Provider))
	}
	if c.Embeddings.Dimensions < 0 {
		return invalid(fmt.Sprintf("embeddings.dimensions must be non-negative, got %d", c.Embeddings.Dimensions))
	}
	if c.Embeddings.IndexBackend != "" && !slices.Contains(store.ValidIndexBackends(), strings.ToLower(c.Embeddings.IndexBackend)) {
		return invalid(fmt.Sprintf("embeddings.index_backend must be one of %s, got %q",
			strings.Join(store.ValidIndexBackends(), ", "), c.Embeddings.IndexBackend))
	}

	if c.LLM.Provider != "" && !slices.Contains(llm.ValidProviders(), strings.ToLower(c.LLM.Provider)) {
		return invalid(fmt.Sprintf("llm.provider must be one of %s, got %q",
			strings.Join(llm.ValidProviders(), ", "), c.LLM.Provider))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return invalid(fmt.Sprintf("llm.temperature must be between 0 and 2, got %.2f", c.LLM.Temperature))
	}
	if c.LLM.MaxTokens < 0 {
		return invalid(fmt.Sprintf("llm.max_tokens must be non-negative, got %d", c.LLM.MaxTokens))
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return invalid(fmt.Sprintf("server.port must be between 0 and 65535, got %d", c.Server.Port))
	}

	levels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(levels, strings.ToLower(c.Logging.Level)) {
		return invalid(fmt.Sprintf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level))
	}
	return nil
}

func invalid(msg string) error {
	return ragerrors.ConfigError(msg, nil).
		WithSuggestion("fix " + ProjectConfigFile + " or " + GetUserConfigPath())
}

// WriteYAML writes c to path. API keys are never written.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// YAML renders c the way WriteYAML would.
func (c *Config) YAML() (string, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	return string(data), nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
