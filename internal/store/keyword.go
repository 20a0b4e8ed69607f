package store

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/briany/genai-rag-chatbot/internal/chunk"
)

const (
	keywordMetadataFile = "simple_documents_metadata.json"
	keywordChunksFile   = "simple_documents_chunks.json"
)

// keywordDocument is one entry of the keyword metadata file.
type keywordDocument struct {
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunk_count"`
	DocID      string `json:"doc_id"`
}

// KeywordIndex ranks chunks by how many distinct query terms occur as
// substrings of their lower-cased content.
//
// Only the document table is written to disk by default. Chunk bodies live
// in memory and are gone after a restart, leaving documents listed that no
// longer match anything. WithPersistChunks stores the bodies as well.
type KeywordIndex struct {
	mu            sync.RWMutex
	dataDir       string
	persistChunks bool
	newID         func() string
	closed        bool

	chunks    []chunk.Chunk
	documents map[string]keywordDocument
	docOrder  []string
}

// KeywordOption configures a KeywordIndex.
type KeywordOption func(*KeywordIndex)

// WithPersistChunks makes the index save chunk bodies next to the
// document table and restore them on open.
func WithPersistChunks(enabled bool) KeywordOption {
	return func(k *KeywordIndex) { k.persistChunks = enabled }
}

// WithKeywordIDFunc replaces the document id generator.
func WithKeywordIDFunc(fn func() string) KeywordOption {
	return func(k *KeywordIndex) { k.newID = fn }
}

// NewKeywordIndex opens the index rooted at dataDir. An empty dataDir keeps
// everything in memory. Unreadable snapshot files are logged and ignored.
func NewKeywordIndex(dataDir string, opts ...KeywordOption) *KeywordIndex {
	k := &KeywordIndex{
		dataDir:   dataDir,
		newID:     uuid.NewString,
		documents: make(map[string]keywordDocument),
	}
	for _, opt := range opts {
		opt(k)
	}
	k.load()
	return k
}

func (k *KeywordIndex) load() {
	if k.dataDir == "" {
		return
	}

	var docs map[string]keywordDocument
	found, err := readJSON(filepath.Join(k.dataDir, keywordMetadataFile), &docs)
	if err != nil {
		slog.Warn("keyword_metadata_load_failed", slog.String("error", err.Error()))
		return
	}
	if !found {
		return
	}
	for id, doc := range docs {
		k.documents[id] = doc
		k.docOrder = append(k.docOrder, id)
	}
	sort.Strings(k.docOrder)

	if !k.persistChunks {
		return
	}
	var chunks []chunk.Chunk
	if _, err := readJSON(filepath.Join(k.dataDir, keywordChunksFile), &chunks); err != nil {
		slog.Warn("keyword_chunks_load_failed", slog.String("error", err.Error()))
		return
	}
	for _, c := range chunks {
		if _, ok := k.documents[c.DocumentID]; ok {
			k.chunks = append(k.chunks, c)
		}
	}
	slog.Debug("keyword_index_loaded",
		slog.Int("documents", len(k.documents)),
		slog.Int("chunks", len(k.chunks)))
}

// Add stamps chunks with a fresh document id and appends them.
func (k *KeywordIndex) Add(ctx context.Context, filename string, chunks []chunk.Chunk) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return "", ErrStoreClosed
	}
	if len(chunks) == 0 {
		return "", ErrNoChunks
	}

	docID := k.newID()
	for _, c := range chunks {
		c.DocumentID = docID
		k.chunks = append(k.chunks, c)
	}
	k.documents[docID] = keywordDocument{Filename: filename, ChunkCount: len(chunks), DocID: docID}
	k.docOrder = append(k.docOrder, docID)

	k.save()
	return docID, nil
}

// Search scores every chunk against the query terms. Chunks matching no
// term are left out, ties keep insertion order.
func (k *KeywordIndex) Search(ctx context.Context, query string, limit int) ([]ScoredChunk, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.closed {
		return nil, ErrStoreClosed
	}

	terms := QueryTerms(query)
	if len(terms) == 0 || limit <= 0 {
		return []ScoredChunk{}, nil
	}

	var hits []ScoredChunk
	for _, c := range k.chunks {
		content := strings.ToLower(c.Content)
		score := 0
		for _, term := range terms {
			if strings.Contains(content, term) {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, ScoredChunk{Chunk: c, Score: float64(score)})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	if hits == nil {
		hits = []ScoredChunk{}
	}
	return hits, nil
}

// List returns documents in registration order.
func (k *KeywordIndex) List(ctx context.Context) ([]DocumentSummary, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.closed {
		return nil, ErrStoreClosed
	}

	out := make([]DocumentSummary, 0, len(k.docOrder))
	for _, id := range k.docOrder {
		doc := k.documents[id]
		out = append(out, DocumentSummary{DocumentID: id, Filename: doc.Filename, ChunkCount: doc.ChunkCount})
	}
	return out, nil
}

// Delete drops the document and its chunks.
func (k *KeywordIndex) Delete(ctx context.Context, documentID string) (bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return false, ErrStoreClosed
	}

	if _, ok := k.documents[documentID]; !ok {
		return false, nil
	}

	kept := k.chunks[:0]
	for _, c := range k.chunks {
		if c.DocumentID != documentID {
			kept = append(kept, c)
		}
	}
	k.chunks = kept
	delete(k.documents, documentID)
	for i, id := range k.docOrder {
		if id == documentID {
			k.docOrder = append(k.docOrder[:i], k.docOrder[i+1:]...)
			break
		}
	}

	k.save()
	return true, nil
}

// Chunks returns a copy of all chunks in insertion order.
func (k *KeywordIndex) Chunks(ctx context.Context) ([]chunk.Chunk, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.closed {
		return nil, ErrStoreClosed
	}
	out := make([]chunk.Chunk, len(k.chunks))
	copy(out, k.chunks)
	return out, nil
}

func (k *KeywordIndex) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.closed = true
	return nil
}

// save rewrites the snapshot files. Failures are logged; the in-memory
// state stays authoritative for this process.
func (k *KeywordIndex) save() {
	if k.dataDir == "" {
		return
	}
	if err := writeJSONAtomic(filepath.Join(k.dataDir, keywordMetadataFile), k.documents); err != nil {
		slog.Error("keyword_metadata_save_failed", slog.String("error", err.Error()))
	}
	if k.persistChunks {
		if err := writeJSONAtomic(filepath.Join(k.dataDir, keywordChunksFile), k.chunks); err != nil {
			slog.Error("keyword_chunks_save_failed", slog.String("error", err.Error()))
		}
	}
}

var _ DocumentStore = (*KeywordIndex)(nil)
