package store

import (
	"fmt"
	"strings"
)

// Similarity index backends.
const (
	BackendFlat = "flat"
	BackendHNSW = "hnsw"
)

// Neighbor is one search hit from a SimilarityIndex. Position is the
// vector's insertion position; Distance is squared L2.
type Neighbor struct {
	Position int
	Distance float32
}

// SimilarityIndex is a position-aligned vector arena. The EmbeddingIndex
// keeps a key table in the same order, so implementations must never
// reorder vectors.
type SimilarityIndex interface {
	// Add appends vectors after the existing ones.
	Add(vectors [][]float32) error

	// Search returns up to k neighbors by ascending distance.
	Search(query []float32, k int) ([]Neighbor, error)

	// Reset replaces the contents with vectors. A nil slice empties the index.
	Reset(vectors [][]float32) error

	Len() int
	Dimensions() int

	Save(path string) error
	Load(path string) error
}

// NewSimilarityIndex creates an empty index for the named backend.
func NewSimilarityIndex(backend string, dims int) (SimilarityIndex, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("invalid vector dimensions %d", dims)
	}
	switch strings.ToLower(backend) {
	case BackendFlat, "":
		return NewFlatIndex(dims), nil
	case BackendHNSW:
		return NewHNSWIndex(dims), nil
	default:
		return nil, fmt.Errorf("unknown index backend %q (valid: flat, hnsw)", backend)
	}
}

// ValidIndexBackends lists the accepted backend names.
func ValidIndexBackends() []string {
	return []string{BackendFlat, BackendHNSW}
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func checkDimensions(dims int, vectors [][]float32) error {
	for _, v := range vectors {
		if len(v) != dims {
			return ErrDimensionMismatch{Expected: dims, Got: len(v)}
		}
	}
	return nil
}
