package embed

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"
)

// StaticEmbedder hashes words and character trigrams into a fixed number
// of buckets. It needs no network or model download and is deterministic,
// which makes it the offline default. Similar wording gives nearby
// vectors; meaning does not.
type StaticEmbedder struct {
	dims int

	mu     sync.RWMutex
	closed bool
}

var proseStopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "but": true,
	"is": true, "are": true, "was": true, "were": true, "be": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "it": true, "this": true, "that": true,
}

const (
	wordWeight  = 0.7
	ngramWeight = 0.3
	ngramSize   = 3
)

// NewStaticEmbedder returns a hash embedder producing dims-length vectors.
// Non-positive dims selects DefaultDimensions.
func NewStaticEmbedder(dims int) *StaticEmbedder {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &StaticEmbedder{dims: dims}
}

func (e *StaticEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, fmt.Errorf("embedder is closed")
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return make([]float32, e.dims), nil
	}
	return normalizeVector(e.vector(trimmed)), nil
}

func (e *StaticEmbedder) vector(text string) []float32 {
	vec := make([]float32, e.dims)

	lower := strings.ToLower(text)
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if proseStopWords[w] {
			continue
		}
		vec[bucket(w, e.dims)] += wordWeight
	}

	compact := []rune(strings.Join(words, ""))
	for i := 0; i+ngramSize <= len(compact); i++ {
		vec[bucket(string(compact[i:i+ngramSize]), e.dims)] += ngramWeight
	}
	return vec
}

// bucket maps s to [0, size) with FNV-64.
func bucket(s string, size int) int {
	h := fnv.New64()
	_, _ = h.Write([]byte(s))
	return int(h.Sum64() % uint64(size))
}

func (e *StaticEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("failed to embed text %d: %w", i, err)
		}
		results[i] = vec
	}
	return results, nil
}

func (e *StaticEmbedder) Dimensions() int { return e.dims }

func (e *StaticEmbedder) ModelName() string { return fmt.Sprintf("static-%d", e.dims) }

func (e *StaticEmbedder) Available(_ context.Context) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return !e.closed
}

func (e *StaticEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

var _ Embedder = (*StaticEmbedder)(nil)
