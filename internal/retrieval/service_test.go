package retrieval

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briany/genai-rag-chatbot/internal/chunk"
	ragerrors "github.com/briany/genai-rag-chatbot/internal/errors"
	"github.com/briany/genai-rag-chatbot/internal/store"
	"github.com/briany/genai-rag-chatbot/internal/telemetry"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	chunker, err := chunk.New()
	require.NoError(t, err)
	svc := NewService(store.NewKeywordIndex(""), chunker, nil)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNormalizeK(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{-3, DefaultK},
		{0, DefaultK},
		{1, 1},
		{50, 50},
		{51, MaxK},
		{1000, MaxK},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeK(tt.in), "k=%d", tt.in)
	}
}

// TS01: Ingest then search returns the chunk with its document name
func TestService_IngestAndSearch(t *testing.T) {
	// Given: a service over an in-memory keyword store
	svc := newTestService(t)
	ctx := context.Background()
	path := writeFile(t, t.TempDir(), "rag.txt", "Retrieval augmented generation grounds answers in documents.")

	// When: ingesting the file
	res, err := svc.Ingest(ctx, path)
	require.NoError(t, err)

	// Then: one document with one chunk is registered
	assert.Equal(t, "rag.txt", res.Filename)
	assert.Equal(t, 1, res.ChunksCount)
	assert.NotEmpty(t, res.DocumentID)

	// And: keyword search scores the hit at 1.0 and names the document
	results, err := svc.Search(ctx, "retrieval documents", 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1.0, results[0].Score)
	assert.Equal(t, "rag.txt", results[0].DocumentName)
	assert.Equal(t, res.DocumentID, results[0].DocumentID)
}

// TS02: A three chunk document can be found by its middle chunk, then deleted
func TestService_IngestSearchDeleteLifecycle(t *testing.T) {
	// Given: a 60/10 chunker and a document whose unique term sits in the second window only
	ctx := context.Background()
	chunker, err := chunk.New(chunk.WithChunkSize(60), chunk.WithOverlap(10))
	require.NoError(t, err)
	svc := NewService(store.NewKeywordIndex(""), chunker, nil)
	t.Cleanup(func() { _ = svc.Close() })
	text := strings.Repeat("a", 65) + "zebra" + strings.Repeat("b", 60)
	path := writeFile(t, t.TempDir(), "zoo.txt", text)

	// When: ingesting it
	res, err := svc.Ingest(ctx, path)
	require.NoError(t, err)

	// Then: the listing reports three chunks
	docs, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, store.DocumentSummary{DocumentID: res.DocumentID, Filename: "zoo.txt", ChunkCount: 3}, docs[0])

	// And: the unique term ranks the second chunk first
	results, err := svc.Search(ctx, "zebra", 0)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, 1, results[0].Chunk.Metadata.ChunkIndex)
	assert.Contains(t, results[0].Chunk.Content, "zebra")

	// When: deleting the document
	deleted, err := svc.Delete(ctx, res.DocumentID)
	require.NoError(t, err)
	assert.True(t, deleted)

	// Then: nothing is listed and the same query finds nothing
	docs, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)
	results, err = svc.Search(ctx, "zebra", 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestService_Search_UnknownDocumentName(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.store.Add(ctx, "", []chunk.Chunk{{ID: "c1", Content: "orphan passage about vectors"}})
	require.NoError(t, err)

	results, err := svc.Search(ctx, "vectors", 3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, UnknownDocument, results[0].DocumentName)
}

func TestService_Search_EmptyQueryReturnsNothing(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Ingest(context.Background(), writeFile(t, t.TempDir(), "a.txt", "some text here"))
	require.NoError(t, err)

	results, err := svc.Search(context.Background(), "", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

// TS02: Uploads are staged in a temp file and ingested under their own name
func TestService_IngestReader(t *testing.T) {
	svc := newTestService(t)

	res, err := svc.IngestReader(context.Background(), "../notes.txt", strings.NewReader("Embeddings map text to vectors."))
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", res.Filename)

	docs, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "notes.txt", docs[0].Filename)
}

func TestService_IngestReader_UnsupportedType(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.IngestReader(context.Background(), "report.xlsx", strings.NewReader("x"))

	require.Error(t, err)
	assert.Equal(t, ragerrors.ErrCodeUnsupportedFile, ragerrors.GetCode(err))
	assert.Contains(t, err.Error(), "Unsupported file type: .xlsx")
}

func TestService_Ingest_EmptyTextRejected(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Ingest(context.Background(), writeFile(t, t.TempDir(), "blank.txt", "   \n\n  "))

	require.Error(t, err)
	assert.Equal(t, ragerrors.ErrCodeInvalidInput, ragerrors.GetCode(err))
	assert.Contains(t, err.Error(), "has no extractable text")

	docs, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
}

// TS03: Concurrent ingest keeps input order
func TestService_IngestFiles_KeepsOrder(t *testing.T) {
	// Given: several files and a worker limit below the file count
	chunker, err := chunk.New()
	require.NoError(t, err)
	svc := NewService(store.NewKeywordIndex(""), chunker, nil, WithIngestWorkers(2))
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"one.txt", "two.txt", "three.txt", "four.txt"} {
		paths = append(paths, writeFile(t, dir, name, "content of "+name))
	}

	// When: ingesting them together
	results, err := svc.IngestFiles(context.Background(), paths)

	// Then: results line up with the inputs
	require.NoError(t, err)
	require.Len(t, results, 4)
	for i, p := range paths {
		assert.Equal(t, filepath.Base(p), results[i].Filename)
	}
}

func TestService_IngestFiles_ReturnsFirstError(t *testing.T) {
	svc := newTestService(t)
	dir := t.TempDir()
	paths := []string{
		writeFile(t, dir, "good.txt", "fine"),
		writeFile(t, dir, "bad.xlsx", "nope"),
	}

	_, err := svc.IngestFiles(context.Background(), paths)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.xlsx")
}

// TS04: Without a completion provider Ask answers from the mock templates
func TestService_Ask_MockMode(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	assert.True(t, svc.MockMode())

	empty, err := svc.Ask(ctx, "What is retrieval?")
	require.NoError(t, err)
	assert.Contains(t, empty.Text, "No Relevant Documents Found")
	assert.Empty(t, empty.Sources)

	_, err = svc.Ingest(ctx, writeFile(t, t.TempDir(), "rag.txt", "Retrieval finds passages before generation."))
	require.NoError(t, err)

	found, err := svc.Ask(ctx, "explain retrieval")
	require.NoError(t, err)
	assert.Contains(t, found.Text, "Information Found")
	require.Len(t, found.Sources, 1)
	assert.Contains(t, found.Sources[0].ChunkText, "**Retrieval**")
}

func TestService_Delete(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	res, err := svc.Ingest(ctx, writeFile(t, t.TempDir(), "a.txt", "delete me please"))
	require.NoError(t, err)

	ok, err := svc.Delete(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.Delete(ctx, res.DocumentID)
	require.NoError(t, err)
	assert.True(t, ok)

	chunks, err := svc.Chunks(ctx)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestService_SearchRecordsTelemetry(t *testing.T) {
	// Given: a service with an in-memory recorder and one document
	chunker, err := chunk.New()
	require.NoError(t, err)
	rec := telemetry.NewRecorder(nil, telemetry.Config{Mode: "keyword"})
	svc := NewService(store.NewKeywordIndex(""), chunker, nil, WithTelemetry(rec))
	defer svc.Close()
	ctx := context.Background()
	_, err = svc.IngestReader(ctx, "rag.txt", strings.NewReader("Hybrid retrieval mixes keyword and vector search."))
	require.NoError(t, err)

	// When: searching once with a hit and once without
	_, err = svc.Search(ctx, "hybrid", 5)
	require.NoError(t, err)
	_, err = svc.Search(ctx, "zebra", 5)
	require.NoError(t, err)

	// Then: both searches are in the statistics
	stats, err := svc.Stats(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalQueries)
	assert.Equal(t, []string{"zebra"}, stats.ZeroResultQueries)
}

func TestService_Stats_Disabled(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Stats(context.Background(), 10)

	assert.Equal(t, ragerrors.ErrCodeConfigInvalid, ragerrors.GetCode(err))
}
