// Package store holds the indexes that back retrieval: the substring
// KeywordIndex, the vector EmbeddingIndex and the BM25 LexicalStore.
// All three satisfy DocumentStore so the retrieval layer can swap them.
package store

import (
	"context"
	"fmt"

	"github.com/briany/genai-rag-chatbot/internal/chunk"
	ragerrors "github.com/briany/genai-rag-chatbot/internal/errors"
)

// ScoredChunk is a search hit. HasScore is false for stores without a
// meaningful relevance value; Score then carries the raw match count.
type ScoredChunk struct {
	Chunk    chunk.Chunk
	Score    float64
	HasScore bool
}

// DocumentSummary describes one registered document.
type DocumentSummary struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunk_count"`
}

// DocumentStore is the contract shared by every retrieval backend.
type DocumentStore interface {
	// Add registers chunks under a new document id and returns it. An
	// empty chunk list is rejected with ErrNoChunks.
	Add(ctx context.Context, filename string, chunks []chunk.Chunk) (string, error)

	// Search returns at most k chunks, best first.
	Search(ctx context.Context, query string, k int) ([]ScoredChunk, error)

	// List returns one summary per registered document.
	List(ctx context.Context) ([]DocumentSummary, error)

	// Delete removes a document and its chunks. It reports false when the
	// id is unknown.
	Delete(ctx context.Context, documentID string) (bool, error)

	// Chunks returns every stored chunk in storage order.
	Chunks(ctx context.Context) ([]chunk.Chunk, error)

	Close() error
}

// ErrStoreClosed is returned by operations on a closed store.
var ErrStoreClosed = ragerrors.New(ragerrors.ErrCodeInternal, "store is closed", nil)

// ErrNoChunks is returned by Add when there is nothing to register.
var ErrNoChunks = ragerrors.ValidationError("document has no chunks", nil)

// ErrDimensionMismatch indicates an embedding of the wrong length.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d (delete the data directory and re-ingest after changing embedders)", e.Expected, e.Got)
}
