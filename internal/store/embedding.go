package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/briany/genai-rag-chatbot/internal/chunk"
	"github.com/briany/genai-rag-chatbot/internal/embed"
	ragerrors "github.com/briany/genai-rag-chatbot/internal/errors"
)

const (
	embeddingMetadataFile = "documents_metadata.json"
	vectorIndexPrefix     = "vector_index."
)

// embeddingEntryMetadata mirrors the chunk metadata plus the owning document.
type embeddingEntryMetadata struct {
	Source       string `json:"source"`
	ChunkIndex   int    `json:"chunk_index"`
	StartPos     int    `json:"start_pos"`
	EndPos       int    `json:"end_pos"`
	DocumentID   string `json:"document_id"`
	DocumentName string `json:"document_name"`
}

type embeddingEntry struct {
	Text       string                 `json:"text"`
	Metadata   embeddingEntryMetadata `json:"metadata"`
	ChunkIndex int                    `json:"chunk_index"`
	ChunkID    string                 `json:"chunk_id,omitempty"`
}

func (e embeddingEntry) chunk() chunk.Chunk {
	return chunk.Chunk{
		ID:         e.ChunkID,
		DocumentID: e.Metadata.DocumentID,
		Content:    e.Text,
		Metadata: chunk.Metadata{
			Source:     e.Metadata.Source,
			ChunkIndex: e.Metadata.ChunkIndex,
			StartPos:   e.Metadata.StartPos,
			EndPos:     e.Metadata.EndPos,
		},
	}
}

// embeddingSnapshot is the documents_metadata.json layout. Keys records
// the similarity index order.
type embeddingSnapshot struct {
	Metadata map[string]embeddingEntry `json:"metadata"`
	Keys     []string                  `json:"keys"`
}

// EmbeddingIndex ranks chunks by squared L2 distance between the query
// embedding and each chunk embedding.
//
// Position i of the similarity index always holds the vector of keys[i].
// Both are only ever replaced together while the write lock is held, and
// only after the provider call they depend on has succeeded.
type EmbeddingIndex struct {
	mu       sync.RWMutex
	dataDir  string
	backend  string
	embedder embed.Embedder
	newID    func() string
	closed   bool

	index   SimilarityIndex
	keys    []string
	entries map[string]embeddingEntry
}

// EmbeddingOption configures an EmbeddingIndex.
type EmbeddingOption func(*EmbeddingIndex)

// WithIndexBackend selects the similarity backend ("flat" or "hnsw").
func WithIndexBackend(backend string) EmbeddingOption {
	return func(e *EmbeddingIndex) { e.backend = backend }
}

// WithEmbeddingIDFunc replaces the document id generator.
func WithEmbeddingIDFunc(fn func() string) EmbeddingOption {
	return func(e *EmbeddingIndex) { e.newID = fn }
}

// NewEmbeddingIndex opens the index rooted at dataDir. An empty dataDir
// keeps everything in memory.
func NewEmbeddingIndex(ctx context.Context, dataDir string, embedder embed.Embedder, opts ...EmbeddingOption) (*EmbeddingIndex, error) {
	e := &EmbeddingIndex{
		dataDir:  dataDir,
		backend:  BackendFlat,
		embedder: embedder,
		newID:    uuid.NewString,
		entries:  make(map[string]embeddingEntry),
	}
	for _, opt := range opts {
		opt(e)
	}

	index, err := NewSimilarityIndex(e.backend, embedder.Dimensions())
	if err != nil {
		return nil, ragerrors.ConfigError(err.Error(), err)
	}
	e.index = index
	e.load(ctx)
	return e, nil
}

func (e *EmbeddingIndex) indexPath() string {
	return filepath.Join(e.dataDir, vectorIndexPrefix+e.backend)
}

// load restores the last snapshot. When the vector file is missing or does
// not line up with the key table, the vectors are re-embedded from the
// stored texts. Any failure leaves the index empty.
func (e *EmbeddingIndex) load(ctx context.Context) {
	if e.dataDir == "" {
		return
	}

	var snap embeddingSnapshot
	found, err := readJSON(filepath.Join(e.dataDir, embeddingMetadataFile), &snap)
	if err != nil {
		slog.Warn("embedding_metadata_load_failed", slog.String("error", err.Error()))
		return
	}
	if !found || len(snap.Metadata) == 0 {
		return
	}

	keys := snap.Keys
	if len(keys) == 0 {
		for key := range snap.Metadata {
			keys = append(keys, key)
		}
		sort.Strings(keys)
	}
	for _, key := range keys {
		if _, ok := snap.Metadata[key]; !ok {
			slog.Warn("embedding_metadata_inconsistent", slog.String("missing_key", key))
			return
		}
	}

	if err := e.index.Load(e.indexPath()); err != nil || e.index.Len() != len(keys) {
		reason := "length mismatch"
		if err != nil {
			reason = err.Error()
		}
		slog.Warn("vector_index_rebuild", slog.String("reason", reason), slog.Int("keys", len(keys)))

		texts := make([]string, len(keys))
		for i, key := range keys {
			texts[i] = snap.Metadata[key].Text
		}
		vecs, err := e.embedder.EmbedBatch(ctx, texts)
		if err == nil && len(vecs) != len(texts) {
			err = fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(texts))
		}
		if err == nil {
			err = e.index.Reset(vecs)
		}
		if err != nil {
			slog.Error("vector_index_rebuild_failed", slog.String("error", err.Error()))
			_ = e.index.Reset(nil)
			return
		}
	}

	e.keys = keys
	e.entries = snap.Metadata
	slog.Debug("embedding_index_loaded",
		slog.String("backend", e.backend),
		slog.Int("vectors", e.index.Len()))
}

// embedAll embeds texts in one call and checks the result shape.
func (e *EmbeddingIndex) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := e.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		if ragerrors.GetCode(err) != "" {
			return nil, err
		}
		return nil, ragerrors.New(ragerrors.ErrCodeEmbeddingFailed, "embedding request failed", err)
	}
	if len(vecs) != len(texts) {
		return nil, ragerrors.New(ragerrors.ErrCodeEmbeddingFailed,
			fmt.Sprintf("embedder returned %d vectors for %d texts", len(vecs), len(texts)), nil)
	}
	if err := checkDimensions(e.index.Dimensions(), vecs); err != nil {
		return nil, ragerrors.New(ragerrors.ErrCodeDimensionMismatch, err.Error(), err)
	}
	return vecs, nil
}

// Add embeds every chunk in one batch and appends the vectors in chunk
// order. A provider failure leaves the index unchanged.
func (e *EmbeddingIndex) Add(ctx context.Context, filename string, chunks []chunk.Chunk) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return "", ErrStoreClosed
	}

	if len(chunks) == 0 {
		return "", ErrNoChunks
	}
	docID := e.newID()

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vecs, err := e.embedAll(ctx, texts)
	if err != nil {
		return "", err
	}
	if err := e.index.Add(vecs); err != nil {
		return "", err
	}

	for i, c := range chunks {
		key := fmt.Sprintf("%s_%d", docID, i)
		e.keys = append(e.keys, key)
		e.entries[key] = embeddingEntry{
			Text: c.Content,
			Metadata: embeddingEntryMetadata{
				Source:       c.Metadata.Source,
				ChunkIndex:   c.Metadata.ChunkIndex,
				StartPos:     c.Metadata.StartPos,
				EndPos:       c.Metadata.EndPos,
				DocumentID:   docID,
				DocumentName: filename,
			},
			ChunkIndex: i,
			ChunkID:    c.ID,
		}
	}

	e.save()
	return docID, nil
}

// Search embeds the query and returns the nearest chunks. Score is the
// squared L2 distance, so lower is better.
func (e *EmbeddingIndex) Search(ctx context.Context, query string, k int) ([]ScoredChunk, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, ErrStoreClosed
	}
	if e.index.Len() == 0 || k <= 0 {
		return []ScoredChunk{}, nil
	}

	vec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, ragerrors.New(ragerrors.ErrCodeEmbeddingFailed, "failed to embed query", err)
	}
	neighbors, err := e.index.Search(vec, k)
	if err != nil {
		return nil, err
	}

	out := make([]ScoredChunk, 0, len(neighbors))
	for _, n := range neighbors {
		if n.Position < 0 || n.Position >= len(e.keys) {
			continue
		}
		entry := e.entries[e.keys[n.Position]]
		out = append(out, ScoredChunk{Chunk: entry.chunk(), Score: float64(n.Distance), HasScore: true})
	}
	return out, nil
}

// List groups chunks by document in key order.
func (e *EmbeddingIndex) List(ctx context.Context) ([]DocumentSummary, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, ErrStoreClosed
	}

	var out []DocumentSummary
	pos := make(map[string]int)
	for _, key := range e.keys {
		meta := e.entries[key].Metadata
		i, ok := pos[meta.DocumentID]
		if !ok {
			i = len(out)
			pos[meta.DocumentID] = i
			out = append(out, DocumentSummary{DocumentID: meta.DocumentID, Filename: meta.DocumentName})
		}
		out[i].ChunkCount++
	}
	if out == nil {
		out = []DocumentSummary{}
	}
	return out, nil
}

// Delete drops a document and rebuilds the similarity index from the
// surviving chunks, re-embedding them in key order. If re-embedding fails
// the previous state is kept and the error returned.
func (e *EmbeddingIndex) Delete(ctx context.Context, documentID string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false, ErrStoreClosed
	}

	survivors := make([]string, 0, len(e.keys))
	for _, key := range e.keys {
		if e.entries[key].Metadata.DocumentID != documentID {
			survivors = append(survivors, key)
		}
	}
	if len(survivors) == len(e.keys) {
		return false, nil
	}

	fresh, err := NewSimilarityIndex(e.backend, e.index.Dimensions())
	if err != nil {
		return false, err
	}
	if len(survivors) > 0 {
		texts := make([]string, len(survivors))
		for i, key := range survivors {
			texts[i] = e.entries[key].Text
		}
		vecs, err := e.embedAll(ctx, texts)
		if err != nil {
			return false, err
		}
		if err := fresh.Reset(vecs); err != nil {
			return false, err
		}
	}

	for _, key := range e.keys {
		if e.entries[key].Metadata.DocumentID == documentID {
			delete(e.entries, key)
		}
	}
	e.index = fresh
	e.keys = survivors

	e.save()
	return true, nil
}

// Chunks returns every chunk in key order.
func (e *EmbeddingIndex) Chunks(ctx context.Context) ([]chunk.Chunk, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, ErrStoreClosed
	}
	out := make([]chunk.Chunk, 0, len(e.keys))
	for _, key := range e.keys {
		out = append(out, e.entries[key].chunk())
	}
	return out, nil
}

// Len returns the number of indexed vectors.
func (e *EmbeddingIndex) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.index.Len()
}

// Backend returns the similarity backend name.
func (e *EmbeddingIndex) Backend() string { return e.backend }

func (e *EmbeddingIndex) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

// save writes the vector snapshot and then the metadata that indexes it.
// Failures are logged.
func (e *EmbeddingIndex) save() {
	if e.dataDir == "" {
		return
	}
	if e.index.Len() == 0 {
		if err := os.Remove(e.indexPath()); err != nil && !os.IsNotExist(err) {
			slog.Error("vector_index_remove_failed", slog.String("error", err.Error()))
		}
	} else if err := e.index.Save(e.indexPath()); err != nil {
		slog.Error("vector_index_save_failed", slog.String("error", err.Error()))
	}

	snap := embeddingSnapshot{Metadata: e.entries, Keys: e.keys}
	if snap.Keys == nil {
		snap.Keys = []string{}
	}
	if err := writeJSONAtomic(filepath.Join(e.dataDir, embeddingMetadataFile), snap); err != nil {
		slog.Error("embedding_metadata_save_failed", slog.String("error", err.Error()))
	}
}

var _ DocumentStore = (*EmbeddingIndex)(nil)
