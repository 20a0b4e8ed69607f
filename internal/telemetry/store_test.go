package telemetry

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := OpenSQLiteStore(context.Background(), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestSQLiteStore_EmptySummary(t *testing.T) {
	st := openTestStore(t)

	snap, err := st.Summary(context.Background(), 5)

	require.NoError(t, err)
	assert.Zero(t, snap.TotalQueries)
	assert.NotNil(t, snap.ModeCounts)
	assert.NotNil(t, snap.TopTerms)
	assert.NotNil(t, snap.ZeroResultQueries)
	assert.True(t, snap.Since.IsZero())
}

func TestSQLiteStore_TS01_SaveAccumulates(t *testing.T) {
	// Given: an empty store
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	// When: saving two batches for the same day and one for another mode
	require.NoError(t, st.Save(ctx, "2026-01-02", Batch{
		Mode: "keyword", Queries: 3, ZeroResults: 1,
		Latencies:   map[LatencyBucket]int64{BucketP10: 3},
		Terms:       map[string]int64{"vector": 2, "search": 1},
		ZeroQueries: []ZeroQuery{{Query: "nothing here", Timestamp: now}},
	}))
	require.NoError(t, st.Save(ctx, "2026-01-02", Batch{
		Mode: "keyword", Queries: 2,
		Latencies: map[LatencyBucket]int64{BucketP10: 1, BucketP500: 1},
		Terms:     map[string]int64{"search": 4},
	}))
	require.NoError(t, st.Save(ctx, "2026-01-01", Batch{Mode: "bm25", Queries: 1}))

	// Then: the summary adds everything up
	snap, err := st.Summary(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(6), snap.TotalQueries)
	assert.Equal(t, int64(1), snap.ZeroResultCount)
	assert.Equal(t, map[string]int64{"keyword": 5, "bm25": 1}, snap.ModeCounts)
	assert.Equal(t, int64(4), snap.LatencyDistribution[BucketP10])
	assert.Equal(t, int64(1), snap.LatencyDistribution[BucketP500])
	assert.Equal(t, []TermCount{{Term: "search", Count: 5}}, snap.TopTerms)
	assert.Equal(t, []string{"nothing here"}, snap.ZeroResultQueries)
	assert.Equal(t, "2026-01-01", snap.Since.Format("2006-01-02"))
}

func TestSQLiteStore_TrimsZeroResultQueries(t *testing.T) {
	// Given: more zero-result queries than the store keeps
	st := openTestStore(t)
	ctx := context.Background()
	var zq []ZeroQuery
	for i := 0; i < maxZeroQueries+5; i++ {
		zq = append(zq, ZeroQuery{Query: fmt.Sprintf("q%d", i), Timestamp: time.Now()})
	}

	// When: saving them
	require.NoError(t, st.Save(ctx, "2026-01-01", Batch{Mode: "keyword", Queries: int64(len(zq)), ZeroQueries: zq}))

	// Then: the newest are shown oldest first and the table is bounded
	snap, err := st.Summary(ctx, 5)
	require.NoError(t, err)
	require.Len(t, snap.ZeroResultQueries, zeroQueriesShown)
	assert.Equal(t, fmt.Sprintf("q%d", maxZeroQueries+4), snap.ZeroResultQueries[zeroQueriesShown-1])

	var n int
	require.NoError(t, st.db.QueryRow(`SELECT COUNT(*) FROM zero_result_queries`).Scan(&n))
	assert.Equal(t, maxZeroQueries, n)
}

func TestSQLiteStore_PersistsAcrossOpen(t *testing.T) {
	// Given: a file-backed store with one batch
	path := filepath.Join(t.TempDir(), "data", FileName)
	ctx := context.Background()
	st, err := OpenSQLiteStore(ctx, path)
	require.NoError(t, err)
	require.NoError(t, st.Save(ctx, "2026-03-04", Batch{Mode: "embedding", Queries: 2}))
	require.NoError(t, st.Close())

	// When: reopening it
	st, err = OpenSQLiteStore(ctx, path)
	require.NoError(t, err)
	defer st.Close()

	// Then: the counts are still there
	snap, err := st.Summary(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(2), snap.ModeCounts["embedding"])
}

func TestRecorder_WithSQLiteStore(t *testing.T) {
	// Given: a recorder over a real store
	st := openTestStore(t)
	r := NewRecorder(st, Config{Mode: "keyword"})

	// When: recording and reporting
	r.Record(QueryEvent{Query: "hybrid retrieval", ResultCount: 2, Latency: time.Millisecond})
	r.Record(QueryEvent{Query: "hybrid retrieval", ResultCount: 2, Latency: time.Millisecond})
	snap, err := r.Report(context.Background(), 5)

	// Then: the store reflects both searches
	require.NoError(t, err)
	assert.Equal(t, int64(2), snap.TotalQueries)
	assert.Equal(t, int64(2), snap.LatencyDistribution[BucketP10])
	assert.Contains(t, snap.TopTerms, TermCount{Term: "hybrid", Count: 2})
}
