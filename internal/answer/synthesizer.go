// Package answer turns retrieved passages and a question into a grounded
// Markdown answer.
package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/briany/genai-rag-chatbot/internal/llm"
)

const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1000
)

// Source is a passage shown alongside an answer.
type Source struct {
	DocumentName string  `json:"document_name"`
	ChunkText    string  `json:"chunk_text"`
	Score        float64 `json:"score"`
}

// Answer is the synthesizer's output. Sources are empty when the provider
// failed.
type Answer struct {
	Text    string   `json:"response"`
	Sources []Source `json:"sources"`
}

// Synthesizer prompts a completion provider with retrieved context. A nil
// provider puts it in mock mode, which describes what was found without
// calling any model.
type Synthesizer struct {
	provider    llm.Provider
	temperature float64
	maxTokens   int
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

func WithTemperature(t float64) Option {
	return func(s *Synthesizer) { s.temperature = t }
}

func WithMaxTokens(n int) Option {
	return func(s *Synthesizer) {
		if n > 0 {
			s.maxTokens = n
		}
	}
}

// NewSynthesizer returns a synthesizer using provider, which may be nil.
func NewSynthesizer(provider llm.Provider, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		provider:    provider,
		temperature: DefaultTemperature,
		maxTokens:   DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MockMode reports whether no provider is configured.
func (s *Synthesizer) MockMode() bool { return s.provider == nil }

// Answer never fails: provider errors become the answer text and the
// sources are dropped.
func (s *Synthesizer) Answer(ctx context.Context, question string, sources []Source) Answer {
	if s.provider == nil {
		if len(sources) == 0 {
			return Answer{Text: mockEmptyAnswer(question), Sources: []Source{}}
		}
		return Answer{Text: mockFoundAnswer(question, len(sources)), Sources: highlight(sources, question)}
	}

	start := time.Now()
	text, err := s.provider.Complete(ctx, llm.Request{
		System:      SystemPrompt,
		Prompt:      BuildUserPrompt(question, sources),
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
	})
	if err != nil {
		slog.Warn("completion_failed",
			slog.String("provider", s.provider.Name()),
			slog.Int("sources", len(sources)),
			slog.String("error", err.Error()))
		return Answer{Text: failureText(err), Sources: []Source{}}
	}

	slog.Debug("completion_succeeded",
		slog.String("provider", s.provider.Name()),
		slog.Int("sources", len(sources)),
		slog.Duration("duration", time.Since(start)))
	return Answer{Text: text, Sources: highlight(sources, question)}
}

func failureText(err error) string {
	var statusErr *llm.StatusError
	var transportErr *llm.TransportError
	switch {
	case errors.As(err, &statusErr):
		return fmt.Sprintf("API Error (%d): %s", statusErr.Status, statusErr.Body)
	case errors.As(err, &transportErr), errors.Is(err, context.DeadlineExceeded):
		return fmt.Sprintf("Sorry, I encountered an HTTP error: %v", err)
	default:
		return fmt.Sprintf("Sorry, an unexpected error occurred: %v", err)
	}
}

func highlight(sources []Source, question string) []Source {
	out := make([]Source, len(sources))
	for i, src := range sources {
		src.ChunkText = HighlightKeywords(src.ChunkText, question)
		out[i] = src
	}
	return out
}
