package store

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/briany/genai-rag-chatbot/internal/chunk"
)

const lexicalSnapshotFile = "bm25_chunks.json"

type lexicalEntry struct {
	Key   string      `json:"key"`
	Chunk chunk.Chunk `json:"chunk"`
}

type lexicalSnapshot struct {
	Documents []DocumentSummary `json:"documents"`
	Chunks    []lexicalEntry    `json:"chunks"`
}

// LexicalStore ranks chunks with BM25. Chunk bodies are kept in a JSON
// snapshot; the BM25 index is derived from it and rebuilt whenever the two
// disagree on load.
type LexicalStore struct {
	mu      sync.RWMutex
	dataDir string
	index   BM25Index
	newID   func() string
	closed  bool

	entries   []lexicalEntry
	byKey     map[string]int
	documents []DocumentSummary
}

// LexicalOption configures a LexicalStore.
type LexicalOption func(*LexicalStore)

// WithLexicalIDFunc replaces the document id generator.
func WithLexicalIDFunc(fn func() string) LexicalOption {
	return func(l *LexicalStore) { l.newID = fn }
}

// NewLexicalStore opens a BM25 store in dataDir using backend ("sqlite" or
// "bleve"). An empty dataDir keeps everything in memory.
func NewLexicalStore(ctx context.Context, dataDir, backend string, opts ...LexicalOption) (*LexicalStore, error) {
	var base string
	if dataDir != "" {
		base = filepath.Join(dataDir, "bm25")
	}
	index, err := NewBM25IndexWithBackend(base, DefaultBM25Config(), backend)
	if err != nil {
		return nil, err
	}

	l := &LexicalStore{
		dataDir: dataDir,
		index:   index,
		newID:   uuid.NewString,
		byKey:   make(map[string]int),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.load(ctx)
	return l, nil
}

func (l *LexicalStore) load(ctx context.Context) {
	if l.dataDir == "" {
		return
	}

	var snap lexicalSnapshot
	if _, err := readJSON(filepath.Join(l.dataDir, lexicalSnapshotFile), &snap); err != nil {
		slog.Warn("bm25_snapshot_load_failed", slog.String("error", err.Error()))
	}
	l.documents = snap.Documents
	l.setEntries(snap.Chunks)

	indexed, err := l.index.AllIDs()
	if err == nil && sameKeys(indexed, l.entries) {
		return
	}

	slog.Info("bm25_reindex", slog.Int("indexed", len(indexed)), slog.Int("chunks", len(l.entries)))
	if len(indexed) > 0 {
		if err := l.index.Delete(ctx, indexed); err != nil {
			slog.Error("bm25_reindex_failed", slog.String("error", err.Error()))
			return
		}
	}
	if err := l.index.Index(ctx, l.bm25Documents(l.entries)); err != nil {
		slog.Error("bm25_reindex_failed", slog.String("error", err.Error()))
	}
}

func sameKeys(ids []string, entries []lexicalEntry) bool {
	if len(ids) != len(entries) {
		return false
	}
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	sort.Strings(keys)
	for i := range keys {
		if keys[i] != sorted[i] {
			return false
		}
	}
	return true
}

func (l *LexicalStore) setEntries(entries []lexicalEntry) {
	l.entries = entries
	l.byKey = make(map[string]int, len(entries))
	for i, e := range entries {
		l.byKey[e.Key] = i
	}
}

func (l *LexicalStore) bm25Documents(entries []lexicalEntry) []BM25Document {
	docs := make([]BM25Document, len(entries))
	for i, e := range entries {
		docs[i] = BM25Document{ID: e.Key, Content: e.Chunk.Content}
	}
	return docs
}

// Add indexes the chunks before recording them. An indexing failure
// leaves the store unchanged.
func (l *LexicalStore) Add(ctx context.Context, filename string, chunks []chunk.Chunk) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return "", ErrStoreClosed
	}
	if len(chunks) == 0 {
		return "", ErrNoChunks
	}

	docID := l.newID()
	added := make([]lexicalEntry, len(chunks))
	for i, c := range chunks {
		c.DocumentID = docID
		added[i] = lexicalEntry{Key: fmt.Sprintf("%s_%d", docID, i), Chunk: c}
	}
	if err := l.index.Index(ctx, l.bm25Documents(added)); err != nil {
		return "", err
	}

	l.setEntries(append(l.entries, added...))
	l.documents = append(l.documents, DocumentSummary{DocumentID: docID, Filename: filename, ChunkCount: len(chunks)})
	l.save()
	return docID, nil
}

// Search returns BM25 hits, best first. Score is the BM25 score.
func (l *LexicalStore) Search(ctx context.Context, query string, k int) ([]ScoredChunk, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return nil, ErrStoreClosed
	}
	if len(l.entries) == 0 || k <= 0 {
		return []ScoredChunk{}, nil
	}

	hits, err := l.index.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}
	out := make([]ScoredChunk, 0, len(hits))
	for _, h := range hits {
		i, ok := l.byKey[h.DocID]
		if !ok {
			continue
		}
		out = append(out, ScoredChunk{Chunk: l.entries[i].Chunk, Score: h.Score, HasScore: true})
	}
	return out, nil
}

func (l *LexicalStore) List(ctx context.Context) ([]DocumentSummary, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return nil, ErrStoreClosed
	}
	out := make([]DocumentSummary, len(l.documents))
	copy(out, l.documents)
	return out, nil
}

func (l *LexicalStore) Delete(ctx context.Context, documentID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false, ErrStoreClosed
	}

	docIdx := -1
	for i, d := range l.documents {
		if d.DocumentID == documentID {
			docIdx = i
			break
		}
	}
	if docIdx < 0 {
		return false, nil
	}

	var removed []string
	kept := make([]lexicalEntry, 0, len(l.entries))
	for _, e := range l.entries {
		if e.Chunk.DocumentID == documentID {
			removed = append(removed, e.Key)
			continue
		}
		kept = append(kept, e)
	}
	if err := l.index.Delete(ctx, removed); err != nil {
		return false, err
	}

	l.setEntries(kept)
	l.documents = append(l.documents[:docIdx:docIdx], l.documents[docIdx+1:]...)
	l.save()
	return true, nil
}

func (l *LexicalStore) Chunks(ctx context.Context) ([]chunk.Chunk, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return nil, ErrStoreClosed
	}
	out := make([]chunk.Chunk, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.Chunk
	}
	return out, nil
}

func (l *LexicalStore) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.index.Close()
}

func (l *LexicalStore) save() {
	if l.dataDir == "" {
		return
	}
	snap := lexicalSnapshot{Documents: l.documents, Chunks: l.entries}
	if snap.Documents == nil {
		snap.Documents = []DocumentSummary{}
	}
	if snap.Chunks == nil {
		snap.Chunks = []lexicalEntry{}
	}
	if err := writeJSONAtomic(filepath.Join(l.dataDir, lexicalSnapshotFile), snap); err != nil {
		slog.Error("bm25_snapshot_save_failed", slog.String("error", err.Error()))
	}
}

var _ DocumentStore = (*LexicalStore)(nil)
