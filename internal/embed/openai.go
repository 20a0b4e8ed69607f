package embed

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	ragerrors "github.com/briany/genai-rag-chatbot/internal/errors"
)

const (
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultOpenAIModel   = "text-embedding-3-small"
)

// OpenAIConfig configures an OpenAI-compatible /embeddings client.
type OpenAIConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int
	BatchSize  int
	Timeout    time.Duration
	MaxRetries int
}

type openAIEmbedRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// OpenAIEmbedder talks to any server implementing the OpenAI embeddings
// API. The configured dimension is requested explicitly so models that
// support shortening return vectors of the index's length.
type OpenAIEmbedder struct {
	client    *http.Client
	transport *http.Transport
	config    OpenAIConfig

	mu     sync.RWMutex
	closed bool
}

// NewOpenAIEmbedder validates cfg and applies defaults.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, ragerrors.ConfigError("openai embeddings need an API key", nil).
			WithSuggestion("set RAGCHAT_EMBEDDINGS_API_KEY or embeddings.api_key")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenAIBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}
	if cfg.BatchSize <= 0 || cfg.BatchSize > MaxBatchSize {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}

	client, transport := newPooledClient(4)
	return &OpenAIEmbedder{client: client, transport: transport, config: cfg}, nil
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, fmt.Errorf("embedder is closed")
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	headers := map[string]string{"Authorization": "Bearer " + e.config.APIKey}
	results := make([][]float32, 0, len(texts))
	for _, batch := range splitBatches(texts, e.config.BatchSize) {
		var resp openAIEmbedResponse
		err := postJSON(ctx, e.client, e.config.BaseURL+"/embeddings", headers,
			openAIEmbedRequest{Model: e.config.Model, Input: batch, Dimensions: e.config.Dimensions},
			&resp, e.config.Timeout, e.config.MaxRetries)
		if err != nil {
			return nil, ragerrors.New(ragerrors.ErrCodeEmbeddingFailed, "openai embedding failed", err)
		}
		if len(resp.Data) != len(batch) {
			return nil, ragerrors.New(ragerrors.ErrCodeEmbeddingFailed,
				fmt.Sprintf("provider returned %d embeddings for %d texts", len(resp.Data), len(batch)), nil)
		}

		sort.Slice(resp.Data, func(i, j int) bool { return resp.Data[i].Index < resp.Data[j].Index })
		for _, d := range resp.Data {
			if len(d.Embedding) != e.config.Dimensions {
				return nil, ragerrors.New(ragerrors.ErrCodeDimensionMismatch,
					fmt.Sprintf("model %s returned %d dimensions, expected %d", e.config.Model, len(d.Embedding), e.config.Dimensions), nil)
			}
			results = append(results, normalizeVector(toFloat32(d.Embedding)))
		}
	}
	return results, nil
}

func (e *OpenAIEmbedder) Dimensions() int { return e.config.Dimensions }

func (e *OpenAIEmbedder) ModelName() string { return e.config.Model }

// Available reports whether the embedder is open. Remote availability is
// only known once a request is made.
func (e *OpenAIEmbedder) Available(_ context.Context) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return !e.closed
}

func (e *OpenAIEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		e.transport.CloseIdleConnections()
	}
	return nil
}

var _ Embedder = (*OpenAIEmbedder)(nil)
