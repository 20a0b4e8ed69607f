package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultOpenRouterURL   = "https://openrouter.ai/api/v1"
	DefaultOpenRouterModel = "qwen/qwen3-14b:free"
	DefaultReferer         = "http://localhost:3000"
	DefaultTitle           = "GenAI RAG Chatbot"
	DefaultTimeout         = 15 * time.Second

	// DefaultRequestsPerMinute matches the free-tier limit.
	DefaultRequestsPerMinute = 20
)

// OpenRouterConfig configures an OpenAI-compatible chat completions client.
type OpenRouterConfig struct {
	BaseURL           string
	APIKey            string
	Model             string
	Referer           string
	Title             string
	Timeout           time.Duration
	RequestsPerMinute int
}

// OpenRouterProvider calls POST {base}/chat/completions. Requests are
// throttled client-side so bursts of questions queue instead of drawing
// 429s.
type OpenRouterProvider struct {
	client  *http.Client
	config  OpenRouterConfig
	limiter *rate.Limiter
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// NewOpenRouterProvider applies defaults. An API key is required.
func NewOpenRouterProvider(cfg OpenRouterConfig) (*OpenRouterProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openrouter provider needs an API key")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenRouterURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = DefaultOpenRouterModel
	}
	if cfg.Referer == "" {
		cfg.Referer = DefaultReferer
	}
	if cfg.Title == "" {
		cfg.Title = DefaultTitle
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}

	return &OpenRouterProvider{
		client:  &http.Client{},
		config:  cfg,
		limiter: rate.NewLimiter(limit, 1),
	}, nil
}

func (p *OpenRouterProvider) Name() string { return "openrouter/" + p.config.Model }

// Complete sends one non-streaming request. Non-2xx responses return a
// *StatusError; network failures and timeouts a *TransportError.
func (p *OpenRouterProvider) Complete(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	if err := p.limiter.Wait(ctx); err != nil {
		return "", &TransportError{Err: fmt.Errorf("rate limiter: %w", err)}
	}

	var messages []chatMessage
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	payload, err := json.Marshal(chatRequest{
		Model:       p.config.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("HTTP-Referer", p.config.Referer)
	httpReq.Header.Set("X-Title", p.config.Title)

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	slog.Debug("completion_response",
		slog.String("provider", p.Name()),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{Status: resp.StatusCode, Body: string(body)}
	}

	var out chatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("failed to decode completion: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("completion response has no choices")
	}
	return out.Choices[0].Message.Content, nil
}

var _ Provider = (*OpenRouterProvider)(nil)
