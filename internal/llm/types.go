// Package llm talks to text-completion services. Providers turn a system
// instruction and a user prompt into one answer string.
package llm

import (
	"context"
	"fmt"
)

// Request is a single-turn completion request.
type Request struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Provider completes prompts.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)

	// Name identifies the provider and model in logs.
	Name() string
}

// StatusError is a non-success response from the provider. Body holds the
// raw response text.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("completion request failed with status %d: %s", e.Status, e.Body)
}

// TransportError wraps failures to reach the provider at all: DNS,
// connection resets, timeouts.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }
