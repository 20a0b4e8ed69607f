package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Provider names.
const (
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
)

// Config selects and configures a completion provider.
type Config struct {
	Provider          string
	APIKey            string
	Model             string
	BaseURL           string
	Timeout           time.Duration
	RequestsPerMinute int
}

// New builds the configured provider. Without an API key it returns
// (nil, nil): callers fall back to answering without a model.
func New(ctx context.Context, cfg Config) (Provider, error) {
	if cfg.APIKey == "" {
		slog.Info("completion_provider_disabled", slog.String("reason", "no API key"))
		return nil, nil
	}

	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenRouter, "":
		p, err := NewOpenRouterProvider(OpenRouterConfig{
			BaseURL:           cfg.BaseURL,
			APIKey:            cfg.APIKey,
			Model:             cfg.Model,
			Timeout:           cfg.Timeout,
			RequestsPerMinute: cfg.RequestsPerMinute,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	case ProviderGemini:
		p, err := NewGeminiProvider(ctx, GeminiConfig{APIKey: cfg.APIKey, Model: cfg.Model, Timeout: cfg.Timeout})
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown completion provider %q (valid: openrouter, gemini)", cfg.Provider)
	}
}

// ValidProviders lists the accepted provider names.
func ValidProviders() []string {
	return []string{ProviderOpenRouter, ProviderGemini}
}
