package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ragerrors "github.com/briany/genai-rag-chatbot/internal/errors"
)

var backends = []string{BackendFlat, BackendHNSW}

func newTestEmbeddingIndex(t *testing.T, dir, backend string, emb *fakeEmbedder) *EmbeddingIndex {
	t.Helper()
	idx, err := NewEmbeddingIndex(context.Background(), dir, emb,
		WithIndexBackend(backend), WithEmbeddingIDFunc(sequentialIDs("doc")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

// TS01: The nearest chunk comes first with its distance as score
func TestEmbeddingIndex_AddAndSearch(t *testing.T) {
	for _, backend := range backends {
		t.Run(backend, func(t *testing.T) {
			// Given: one document of three chunks
			ctx := context.Background()
			emb := newFakeEmbedder()
			idx := newTestEmbeddingIndex(t, "", backend, emb)
			docID, err := idx.Add(ctx, "guide.txt", makeChunks("guide.txt",
				"vector databases store embeddings",
				"bread needs flour and yeast",
				"mountain hiking trails in autumn",
			))
			require.NoError(t, err)
			assert.Equal(t, "doc1", docID)
			assert.Equal(t, 1, emb.callCount())

			// When: searching with the exact text of one chunk
			hits, err := idx.Search(ctx, "bread needs flour and yeast", 2)

			// Then: that chunk is first at distance zero
			require.NoError(t, err)
			require.NotEmpty(t, hits)
			assert.Equal(t, "bread needs flour and yeast", hits[0].Chunk.Content)
			assert.True(t, hits[0].HasScore)
			assert.InDelta(t, 0.0, hits[0].Score, 1e-5)
			assert.Equal(t, "doc1", hits[0].Chunk.DocumentID)
			assert.Equal(t, "guide.txt", hits[0].Chunk.Metadata.Source)
			assert.LessOrEqual(t, len(hits), 2)
		})
	}
}

func TestEmbeddingIndex_Search_EmptyIndexSkipsProvider(t *testing.T) {
	emb := newFakeEmbedder()
	idx := newTestEmbeddingIndex(t, "", BackendFlat, emb)

	hits, err := idx.Search(context.Background(), "anything", 5)

	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.Equal(t, 0, emb.callCount())
}

// TS02: A provider failure during add changes nothing
func TestEmbeddingIndex_Add_ProviderFailure(t *testing.T) {
	emb := newFakeEmbedder()
	emb.setFail(true)
	idx := newTestEmbeddingIndex(t, t.TempDir(), BackendFlat, emb)

	_, err := idx.Add(context.Background(), "a.txt", makeChunks("a.txt", "text"))

	require.Error(t, err)
	assert.Equal(t, ragerrors.ErrCodeEmbeddingFailed, ragerrors.GetCode(err))
	assert.Equal(t, 0, idx.Len())
	docs, _ := idx.List(context.Background())
	assert.Empty(t, docs)
}

func TestEmbeddingIndex_Add_DimensionMismatch(t *testing.T) {
	emb := newFakeEmbedder()
	emb.wrongDims = true
	idx := newTestEmbeddingIndex(t, "", BackendFlat, emb)

	_, err := idx.Add(context.Background(), "a.txt", makeChunks("a.txt", "text"))

	require.Error(t, err)
	assert.Equal(t, ragerrors.ErrCodeDimensionMismatch, ragerrors.GetCode(err))
	assert.Equal(t, 0, idx.Len())
}

func TestEmbeddingIndex_Add_NoChunks(t *testing.T) {
	emb := newFakeEmbedder()
	idx := newTestEmbeddingIndex(t, "", BackendFlat, emb)

	id, err := idx.Add(context.Background(), "empty.txt", nil)

	require.ErrorIs(t, err, ErrNoChunks)
	assert.Equal(t, ragerrors.ErrCodeInvalidInput, ragerrors.GetCode(err))
	assert.Empty(t, id)
	assert.Equal(t, 0, emb.callCount())
	docs, _ := idx.List(context.Background())
	assert.Empty(t, docs)
}

// TS03: Delete rebuilds the index from survivors
func TestEmbeddingIndex_Delete(t *testing.T) {
	for _, backend := range backends {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			emb := newFakeEmbedder()
			idx := newTestEmbeddingIndex(t, t.TempDir(), backend, emb)
			_, err := idx.Add(ctx, "one.txt", makeChunks("one.txt", "alpha particles", "beta decay"))
			require.NoError(t, err)
			_, err = idx.Add(ctx, "two.txt", makeChunks("two.txt", "gamma rays"))
			require.NoError(t, err)

			ok, err := idx.Delete(ctx, "unknown")
			require.NoError(t, err)
			assert.False(t, ok)

			ok, err = idx.Delete(ctx, "doc1")
			require.NoError(t, err)
			assert.True(t, ok)

			assert.Equal(t, 1, idx.Len())
			docs, err := idx.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []DocumentSummary{{DocumentID: "doc2", Filename: "two.txt", ChunkCount: 1}}, docs)

			hits, err := idx.Search(ctx, "alpha particles", 5)
			require.NoError(t, err)
			assert.Equal(t, []string{"gamma rays"}, contents(hits))

			ok, err = idx.Delete(ctx, "doc2")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, 0, idx.Len())
		})
	}
}

func TestEmbeddingIndex_Delete_FailedReembedKeepsState(t *testing.T) {
	ctx := context.Background()
	emb := newFakeEmbedder()
	idx := newTestEmbeddingIndex(t, "", BackendFlat, emb)
	_, err := idx.Add(ctx, "one.txt", makeChunks("one.txt", "alpha"))
	require.NoError(t, err)
	_, err = idx.Add(ctx, "two.txt", makeChunks("two.txt", "beta"))
	require.NoError(t, err)

	emb.setFail(true)
	ok, err := idx.Delete(ctx, "doc1")

	require.Error(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, idx.Len())
	docs, _ := idx.List(ctx)
	assert.Len(t, docs, 2)
}

// TS04: Snapshots restore keys, metadata and vectors
func TestEmbeddingIndex_Reopen(t *testing.T) {
	for _, backend := range backends {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			dir := t.TempDir()
			idx := newTestEmbeddingIndex(t, dir, backend, newFakeEmbedder())
			_, err := idx.Add(ctx, "notes.txt", makeChunks("notes.txt", "first note", "second note"))
			require.NoError(t, err)
			require.NoError(t, idx.Close())

			assert.FileExists(t, filepath.Join(dir, "vector_index."+backend))
			data, err := os.ReadFile(filepath.Join(dir, embeddingMetadataFile))
			require.NoError(t, err)
			var snap embeddingSnapshot
			require.NoError(t, json.Unmarshal(data, &snap))
			assert.Equal(t, []string{"doc1_0", "doc1_1"}, snap.Keys)
			assert.Equal(t, "notes.txt", snap.Metadata["doc1_1"].Metadata.DocumentName)
			assert.Equal(t, 1, snap.Metadata["doc1_1"].ChunkIndex)

			emb := newFakeEmbedder()
			reopened := newTestEmbeddingIndex(t, dir, backend, emb)
			assert.Equal(t, 2, reopened.Len())
			assert.Equal(t, 0, emb.callCount())

			hits, err := reopened.Search(ctx, "second note", 1)
			require.NoError(t, err)
			require.Len(t, hits, 1)
			assert.Equal(t, "second note", hits[0].Chunk.Content)
		})
	}
}

func TestEmbeddingIndex_Reopen_RebuildsMissingVectors(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	idx := newTestEmbeddingIndex(t, dir, BackendFlat, newFakeEmbedder())
	_, err := idx.Add(ctx, "notes.txt", makeChunks("notes.txt", "first note", "second note"))
	require.NoError(t, err)
	require.NoError(t, idx.Close())
	require.NoError(t, os.Remove(filepath.Join(dir, "vector_index.flat")))

	emb := newFakeEmbedder()
	reopened := newTestEmbeddingIndex(t, dir, BackendFlat, emb)

	assert.Equal(t, 2, reopened.Len())
	assert.Equal(t, 1, emb.callCount())
}

func TestEmbeddingIndex_UnknownBackend(t *testing.T) {
	_, err := NewEmbeddingIndex(context.Background(), "", newFakeEmbedder(), WithIndexBackend("annoy"))
	assert.Equal(t, ragerrors.ErrCodeConfigInvalid, ragerrors.GetCode(err))
}
