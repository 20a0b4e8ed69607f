package embed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	ragerrors "github.com/briany/genai-rag-chatbot/internal/errors"
)

const (
	DefaultOllamaHost  = "http://localhost:11434"
	DefaultOllamaModel = "all-minilm"

	ollamaConnectTimeout = 5 * time.Second
)

// OllamaConfig configures the Ollama embedder.
type OllamaConfig struct {
	Host       string
	Model      string
	Dimensions int
	BatchSize  int
	Timeout    time.Duration
	MaxRetries int
	PoolSize   int

	// SkipHealthCheck skips the /api/tags probe in NewOllamaEmbedder.
	SkipHealthCheck bool
}

// DefaultOllamaConfig returns the local-daemon defaults.
func DefaultOllamaConfig() OllamaConfig {
	return OllamaConfig{
		Host:       DefaultOllamaHost,
		Model:      DefaultOllamaModel,
		Dimensions: DefaultDimensions,
		BatchSize:  DefaultBatchSize,
		Timeout:    DefaultTimeout,
		MaxRetries: DefaultMaxRetries,
		PoolSize:   4,
	}
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float64 `json:"embeddings"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// OllamaEmbedder calls a local Ollama daemon's /api/embed endpoint.
type OllamaEmbedder struct {
	client    *http.Client
	transport *http.Transport
	config    OllamaConfig

	mu     sync.RWMutex
	closed bool
}

// NewOllamaEmbedder applies defaults and, unless skipped, checks that the
// daemon is reachable and has the model pulled.
func NewOllamaEmbedder(ctx context.Context, cfg OllamaConfig) (*OllamaEmbedder, error) {
	def := DefaultOllamaConfig()
	if cfg.Host == "" {
		cfg.Host = def.Host
	}
	cfg.Host = strings.TrimRight(cfg.Host, "/")
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = def.Dimensions
	}
	if cfg.BatchSize <= 0 || cfg.BatchSize > MaxBatchSize {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = def.MaxRetries
	}

	client, transport := newPooledClient(cfg.PoolSize)
	e := &OllamaEmbedder{client: client, transport: transport, config: cfg}

	if !cfg.SkipHealthCheck {
		checkCtx, cancel := context.WithTimeout(ctx, ollamaConnectTimeout)
		defer cancel()
		if err := e.checkModel(checkCtx); err != nil {
			transport.CloseIdleConnections()
			return nil, ragerrors.New(ragerrors.ErrCodeProviderUnavailable,
				"failed to connect to Ollama or find model", err).
				WithSuggestion(fmt.Sprintf("run 'ollama pull %s' or set embeddings.provider: static", cfg.Model))
		}
	}
	return e, nil
}

func (e *OllamaEmbedder) checkModel(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.config.Host+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return fmt.Errorf("failed to decode model list: %w", err)
	}
	for _, m := range tags.Models {
		if m.Name == e.config.Model || strings.TrimSuffix(m.Name, ":latest") == e.config.Model {
			return nil
		}
	}
	return fmt.Errorf("model %q not found", e.config.Model)
}

func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch sends texts in BatchSize groups and checks every vector has
// the configured length.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, fmt.Errorf("embedder is closed")
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, 0, len(texts))
	for _, batch := range splitBatches(texts, e.config.BatchSize) {
		var resp ollamaEmbedResponse
		err := postJSON(ctx, e.client, e.config.Host+"/api/embed", nil,
			ollamaEmbedRequest{Model: e.config.Model, Input: batch},
			&resp, e.config.Timeout, e.config.MaxRetries)
		if err != nil {
			return nil, ragerrors.New(ragerrors.ErrCodeEmbeddingFailed, "ollama embedding failed", err)
		}
		if len(resp.Embeddings) != len(batch) {
			return nil, ragerrors.New(ragerrors.ErrCodeEmbeddingFailed,
				fmt.Sprintf("ollama returned %d embeddings for %d texts", len(resp.Embeddings), len(batch)), nil)
		}
		for _, emb := range resp.Embeddings {
			if len(emb) != e.config.Dimensions {
				return nil, ragerrors.New(ragerrors.ErrCodeDimensionMismatch,
					fmt.Sprintf("model %s returned %d dimensions, expected %d", e.config.Model, len(emb), e.config.Dimensions), nil)
			}
			results = append(results, normalizeVector(toFloat32(emb)))
		}
	}
	return results, nil
}

func (e *OllamaEmbedder) Dimensions() int { return e.config.Dimensions }

func (e *OllamaEmbedder) ModelName() string { return e.config.Model }

func (e *OllamaEmbedder) Available(ctx context.Context) bool {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return false
	}
	checkCtx, cancel := context.WithTimeout(ctx, ollamaConnectTimeout)
	defer cancel()
	return e.checkModel(checkCtx) == nil
}

func (e *OllamaEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.transport.CloseIdleConnections()
	return nil
}

var _ Embedder = (*OllamaEmbedder)(nil)
