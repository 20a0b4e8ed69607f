package embed

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// ProviderType names an embedding provider.
type ProviderType string

const (
	// ProviderStatic hashes text locally. Offline, deterministic, default.
	ProviderStatic ProviderType = "static"

	// ProviderOllama calls a local Ollama daemon.
	ProviderOllama ProviderType = "ollama"

	// ProviderOpenAI calls an OpenAI-compatible /embeddings endpoint.
	ProviderOpenAI ProviderType = "openai"
)

// Config selects and configures an embedder.
type Config struct {
	Provider   ProviderType
	Model      string
	Host       string // Ollama host or OpenAI-compatible base URL
	APIKey     string
	Dimensions int
	BatchSize  int
	Timeout    time.Duration
	MaxRetries int

	// CacheSize bounds the LRU in front of the provider. Zero selects the
	// default, a negative value disables caching.
	CacheSize int
}

// NewEmbedder builds the embedder described by cfg. RAGCHAT_EMBEDDER, when
// set, overrides cfg.Provider.
func NewEmbedder(ctx context.Context, cfg Config) (Embedder, error) {
	provider := cfg.Provider
	if env := os.Getenv("RAGCHAT_EMBEDDER"); env != "" {
		provider = ParseProvider(env)
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}

	var (
		embedder Embedder
		err      error
	)
	switch provider {
	case ProviderStatic, "":
		embedder = NewStaticEmbedder(cfg.Dimensions)
	case ProviderOllama:
		embedder, err = NewOllamaEmbedder(ctx, OllamaConfig{
			Host:       cfg.Host,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			BatchSize:  cfg.BatchSize,
			Timeout:    cfg.Timeout,
			MaxRetries: cfg.MaxRetries,
		})
	case ProviderOpenAI:
		embedder, err = NewOpenAIEmbedder(OpenAIConfig{
			BaseURL:    cfg.Host,
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			BatchSize:  cfg.BatchSize,
			Timeout:    cfg.Timeout,
			MaxRetries: cfg.MaxRetries,
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider %q (valid: %s)", provider, strings.Join(ValidProviders(), ", "))
	}
	if err != nil {
		return nil, err
	}

	slog.Debug("embedder_created",
		slog.String("provider", string(provider)),
		slog.String("model", embedder.ModelName()),
		slog.Int("dimensions", embedder.Dimensions()))

	if cfg.CacheSize < 0 {
		return embedder, nil
	}
	return NewCachedEmbedder(embedder, cfg.CacheSize), nil
}

// ParseProvider lower-cases s into a ProviderType without validating it.
func ParseProvider(s string) ProviderType {
	return ProviderType(strings.ToLower(strings.TrimSpace(s)))
}

// ValidProviders lists the accepted provider names.
func ValidProviders() []string {
	return []string{string(ProviderStatic), string(ProviderOllama), string(ProviderOpenAI)}
}

// IsValidProvider reports whether s names a provider.
func IsValidProvider(s string) bool {
	p := ParseProvider(s)
	for _, v := range ValidProviders() {
		if string(p) == v {
			return true
		}
	}
	return false
}
