package store

import (
	"context"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bm25Backends = []string{BM25BackendSQLite, BM25BackendBleve}

func newMemBM25(t *testing.T, backend string) BM25Index {
	t.Helper()
	idx, err := NewBM25IndexWithBackend("", DefaultBM25Config(), backend)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

var bm25Docs = []BM25Document{
	{ID: "1", Content: "Goroutines are scheduled by the Go runtime."},
	{ID: "2", Content: "Python uses a global interpreter lock."},
	{ID: "3", Content: "The runtime multiplexes goroutines onto threads; goroutines are cheap."},
}

// TS01: Matching documents are returned with positive scores
func TestBM25Index_IndexAndSearch(t *testing.T) {
	for _, backend := range bm25Backends {
		t.Run(backend, func(t *testing.T) {
			// Given: three indexed documents
			idx := newMemBM25(t, backend)
			require.NoError(t, idx.Index(context.Background(), bm25Docs))
			assert.Equal(t, 3, idx.Count())

			// When: searching for a term two of them contain
			results, err := idx.Search(context.Background(), "Goroutines", 10)

			// Then: only those two come back, best first
			require.NoError(t, err)
			require.Len(t, results, 2)
			ids := []string{results[0].DocID, results[1].DocID}
			sort.Strings(ids)
			assert.Equal(t, []string{"1", "3"}, ids)
			assert.Greater(t, results[0].Score, 0.0)
			assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
		})
	}
}

func TestBM25Index_Search_AnyTermMatches(t *testing.T) {
	for _, backend := range bm25Backends {
		t.Run(backend, func(t *testing.T) {
			idx := newMemBM25(t, backend)
			require.NoError(t, idx.Index(context.Background(), bm25Docs))

			results, err := idx.Search(context.Background(), "interpreter threads", 10)

			require.NoError(t, err)
			assert.Len(t, results, 2)
		})
	}
}

func TestBM25Index_Search_StopWordsAndEmpty(t *testing.T) {
	for _, backend := range bm25Backends {
		t.Run(backend, func(t *testing.T) {
			idx := newMemBM25(t, backend)
			require.NoError(t, idx.Index(context.Background(), bm25Docs))

			results, err := idx.Search(context.Background(), "the are by", 10)
			require.NoError(t, err)
			assert.Empty(t, results)

			results, err = idx.Search(context.Background(), "   ", 10)
			require.NoError(t, err)
			assert.Empty(t, results)
		})
	}
}

// TS02: Deleted documents disappear from search and AllIDs
func TestBM25Index_Delete(t *testing.T) {
	for _, backend := range bm25Backends {
		t.Run(backend, func(t *testing.T) {
			idx := newMemBM25(t, backend)
			ctx := context.Background()
			require.NoError(t, idx.Index(ctx, bm25Docs))

			require.NoError(t, idx.Delete(ctx, []string{"1", "2"}))

			results, err := idx.Search(ctx, "goroutines", 10)
			require.NoError(t, err)
			require.Len(t, results, 1)
			assert.Equal(t, "3", results[0].DocID)

			ids, err := idx.AllIDs()
			require.NoError(t, err)
			assert.Equal(t, []string{"3"}, ids)
		})
	}
}

func TestBM25Index_ReindexReplaces(t *testing.T) {
	for _, backend := range bm25Backends {
		t.Run(backend, func(t *testing.T) {
			idx := newMemBM25(t, backend)
			ctx := context.Background()
			require.NoError(t, idx.Index(ctx, []BM25Document{{ID: "1", Content: "apples"}}))
			require.NoError(t, idx.Index(ctx, []BM25Document{{ID: "1", Content: "oranges"}}))

			results, err := idx.Search(ctx, "apples", 10)
			require.NoError(t, err)
			assert.Empty(t, results)
			assert.Equal(t, 1, idx.Count())
		})
	}
}

func TestBM25Index_PersistsOnDisk(t *testing.T) {
	for _, backend := range bm25Backends {
		t.Run(backend, func(t *testing.T) {
			base := filepath.Join(t.TempDir(), "bm25")
			idx, err := NewBM25IndexWithBackend(base, DefaultBM25Config(), backend)
			require.NoError(t, err)
			require.NoError(t, idx.Index(context.Background(), bm25Docs))
			require.NoError(t, idx.Close())

			reopened, err := NewBM25IndexWithBackend(base, DefaultBM25Config(), backend)
			require.NoError(t, err)
			defer func() { _ = reopened.Close() }()

			assert.Equal(t, 3, reopened.Count())
			if backend == BM25BackendSQLite {
				assert.FileExists(t, BM25IndexPath(filepath.Dir(base), backend))
			} else {
				assert.DirExists(t, BM25IndexPath(filepath.Dir(base), backend))
			}
		})
	}
}

func TestNewBM25IndexWithBackend_Unknown(t *testing.T) {
	_, err := NewBM25IndexWithBackend("", DefaultBM25Config(), "lucene")
	assert.ErrorContains(t, err, "unknown BM25 backend")
}

func TestProseSpans(t *testing.T) {
	spans := proseSpans("Héllo, a world-42!")
	require.Len(t, spans, 3)
	assert.Equal(t, proseSpan{term: "Héllo", start: 0, end: 6}, spans[0])
	assert.Equal(t, "world", spans[1].term)
	assert.Equal(t, "42", spans[2].term)
}
