package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	ragerrors "github.com/briany/genai-rag-chatbot/internal/errors"
)

// statusError is a non-2xx provider response.
type statusError struct {
	Status int
	Body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("embedding request failed with status %d: %s", e.Status, e.Body)
}

// retryableEmbedError treats rate limits, server errors and transport
// failures as transient. Other 4xx responses are not retried.
func retryableEmbedError(err error) bool {
	if se, ok := err.(*statusError); ok {
		return se.Status == http.StatusTooManyRequests || se.Status >= 500
	}
	return true
}

func newPooledClient(poolSize int) (*http.Client, *http.Transport) {
	if poolSize <= 0 {
		poolSize = 4
	}
	transport := &http.Transport{
		MaxIdleConns:        poolSize,
		MaxIdleConnsPerHost: poolSize,
		MaxConnsPerHost:     poolSize * 2,
		IdleConnTimeout:     10 * time.Second,
	}
	// No client-level timeout: each attempt carries its own context deadline.
	return &http.Client{Transport: transport}, transport
}

// postJSON sends body to url and decodes a 2xx response into out. Each
// attempt gets its own timeout; transient failures back off exponentially.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string,
	body any, out any, timeout time.Duration, maxRetries int) error {

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	cfg := ragerrors.RetryConfig{
		MaxRetries:   maxRetries,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2,
		ShouldRetry: func(err error) bool {
			return ctx.Err() == nil && retryableEmbedError(err)
		},
	}

	attempt := 0
	return ragerrors.Retry(ctx, cfg, func() error {
		attempt++
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		slog.Debug("embedding_attempt",
			slog.Int("attempt", attempt),
			slog.String("url", url),
			slog.Duration("timeout", timeout))

		req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := client.Do(req)
		if err != nil {
			slog.Debug("embedding_attempt_failed", slog.Int("attempt", attempt), slog.String("error", err.Error()))
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return &statusError{Status: resp.StatusCode, Body: string(respBody)}
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	})
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
