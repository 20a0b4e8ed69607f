// Package embed produces the fixed-length vectors stored by the embedding
// index. Providers are interchangeable behind Embedder.
package embed

import (
	"context"
	"math"
	"time"
)

const (
	// DefaultDimensions matches the MiniLM-class sentence models the
	// embedding index was sized for.
	DefaultDimensions = 384

	// DefaultBatchSize caps texts per provider request.
	DefaultBatchSize = 32

	// MaxBatchSize prevents a single request from exhausting provider memory.
	MaxBatchSize = 256

	// DefaultTimeout bounds one provider request.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxRetries applies to transient provider failures.
	DefaultMaxRetries = 3
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one embedding per text, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding length.
	Dimensions() int

	// ModelName identifies the model, and is part of the cache key.
	ModelName() string

	// Available reports whether the provider can serve requests now.
	Available(ctx context.Context) bool

	Close() error
}

// normalizeVector returns v scaled to unit length. Zero vectors are returned as-is.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}

// splitBatches cuts texts into consecutive groups of at most size.
func splitBatches(texts []string, size int) [][]string {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var batches [][]string
	for start := 0; start < len(texts); start += size {
		end := start + size
		if end > len(texts) {
			end = len(texts)
		}
		batches = append(batches, texts[start:end])
	}
	return batches
}
