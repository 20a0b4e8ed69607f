package mcp

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briany/genai-rag-chatbot/internal/chunk"
	"github.com/briany/genai-rag-chatbot/internal/retrieval"
	"github.com/briany/genai-rag-chatbot/internal/store"
)

func newTestServer(t *testing.T) (*Server, *retrieval.Service) {
	t.Helper()
	chunker, err := chunk.New()
	require.NoError(t, err)
	svc := retrieval.NewService(store.NewKeywordIndex(""), chunker, nil)
	t.Cleanup(func() { _ = svc.Close() })

	srv, err := NewServer(svc)
	require.NoError(t, err)
	return srv, svc
}

func ingest(t *testing.T, svc *retrieval.Service, name, content string) string {
	t.Helper()
	res, err := svc.IngestReader(context.Background(), name, strings.NewReader(content))
	require.NoError(t, err)
	return res.DocumentID
}

func TestNewServer_RequiresService(t *testing.T) {
	srv, err := NewServer(nil)

	assert.Error(t, err)
	assert.Nil(t, srv)
}

func TestServer_Info(t *testing.T) {
	srv, _ := newTestServer(t)

	name, ver := srv.Info()

	assert.Equal(t, "ragchat", name)
	assert.NotEmpty(t, ver)
	assert.NotNil(t, srv.MCPServer())
}

func TestServer_ListTools(t *testing.T) {
	srv, _ := newTestServer(t)

	names := make([]string, 0, 4)
	for _, tool := range srv.ListTools() {
		assert.NotEmpty(t, tool.Description)
		names = append(names, tool.Name)
	}

	assert.Equal(t, []string{"search_documents", "ask", "list_documents", "delete_document"}, names)
}

// TS01: search_documents returns markdown passages
func TestCallTool_SearchDocuments(t *testing.T) {
	// Given: an ingested document
	srv, svc := newTestServer(t)
	ingest(t, svc, "rag.txt", "Retrieval augmented generation grounds answers in documents.")

	// When: searching for a term it contains
	text, err := srv.CallTool(context.Background(), "search_documents", map[string]any{"query": "retrieval", "limit": float64(3)})

	// Then: the markdown names the document and shows the passage
	require.NoError(t, err)
	assert.Contains(t, text, `## Search Results for "retrieval"`)
	assert.Contains(t, text, "Found 1 result\n")
	assert.Contains(t, text, "### 1. rag.txt (chunk 0, score: 1.00)")
	assert.Contains(t, text, "grounds answers in documents")
}

func TestCallTool_SearchDocuments_NoResults(t *testing.T) {
	srv, _ := newTestServer(t)

	text, err := srv.CallTool(context.Background(), "search_documents", map[string]any{"query": "nothing"})

	require.NoError(t, err)
	assert.Equal(t, `No results found for "nothing"`, text)
}

func TestCallTool_SearchDocuments_RequiresQuery(t *testing.T) {
	srv, _ := newTestServer(t)

	_, err := srv.CallTool(context.Background(), "search_documents", map[string]any{"query": "   "})

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
}

// TS02: ask answers in mock mode with a source list
func TestCallTool_Ask(t *testing.T) {
	// Given: a document and no completion provider
	srv, svc := newTestServer(t)
	ingest(t, svc, "rag.txt", "Retrieval finds passages before generation.")

	// When: asking about it
	text, err := srv.CallTool(context.Background(), "ask", map[string]any{"question": "explain retrieval"})

	// Then: the mock answer is followed by the sources
	require.NoError(t, err)
	assert.Contains(t, text, "Information Found")
	assert.Contains(t, text, "**Sources:**")
	assert.Contains(t, text, "1. rag.txt (score: 1.00)")
}

func TestCallTool_Ask_RequiresQuestion(t *testing.T) {
	srv, _ := newTestServer(t)

	_, err := srv.CallTool(context.Background(), "ask", map[string]any{})

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
}

func TestCallTool_ListAndDelete(t *testing.T) {
	srv, svc := newTestServer(t)
	ctx := context.Background()

	text, err := srv.CallTool(ctx, "list_documents", nil)
	require.NoError(t, err)
	assert.Equal(t, "No documents have been ingested.", text)

	id := ingest(t, svc, "notes.txt", "alpha beta")
	text, err = srv.CallTool(ctx, "list_documents", nil)
	require.NoError(t, err)
	assert.Contains(t, text, "## Documents (1)")
	assert.Contains(t, text, "| `"+id+"` | notes.txt | 1 |")

	text, err = srv.CallTool(ctx, "delete_document", map[string]any{"document_id": id})
	require.NoError(t, err)
	assert.Contains(t, text, "deleted")

	_, err = srv.CallTool(ctx, "delete_document", map[string]any{"document_id": id})
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeDocumentNotFound, mcpErr.Code)
}

func TestCallTool_UnknownTool(t *testing.T) {
	srv, _ := newTestServer(t)

	_, err := srv.CallTool(context.Background(), "search_code", nil)

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeMethodNotFound, mcpErr.Code)
	assert.Contains(t, mcpErr.Message, "search_code")
}

func TestSearchDocuments_StructuredOutput(t *testing.T) {
	srv, svc := newTestServer(t)
	id := ingest(t, svc, "rag.txt", "Retrieval augmented generation.")

	_, out, err := srv.searchDocuments(context.Background(), SearchDocumentsInput{Query: "retrieval"})

	require.NoError(t, err)
	require.Len(t, out.Results, 1)
	assert.Equal(t, id, out.Results[0].DocumentID)
	assert.Equal(t, "rag.txt", out.Results[0].DocumentName)
	assert.Equal(t, 1.0, out.Results[0].Score)
}

func TestServe_UnknownTransport(t *testing.T) {
	srv, _ := newTestServer(t)

	err := srv.Serve(context.Background(), "sse")

	assert.ErrorContains(t, err, "unknown transport")
}
