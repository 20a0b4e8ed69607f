package mcp

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/briany/genai-rag-chatbot/internal/chunk"
)

const documentScheme = "document://"

// registerResources exposes every document's stored text under
// document://{id}. A template is used because documents come and go while
// the server runs.
func (s *Server) registerResources() {
	s.mcp.AddResourceTemplate(
		&mcp.ResourceTemplate{
			Name:        "document",
			URITemplate: documentScheme + "{id}",
			Description: "Stored text of an ingested document, reassembled from its chunks",
			MIMEType:    "text/plain",
		},
		func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			return s.handleReadResource(ctx, req.Params.URI)
		},
	)
}

// ReadDocument returns the chunk contents of a document in chunk order.
// Chunks overlap, so this is the stored text rather than the original file.
func (s *Server) ReadDocument(ctx context.Context, documentID string) (string, error) {
	all, err := s.svc.Chunks(ctx)
	if err != nil {
		return "", MapError(err)
	}

	var chunks []chunk.Chunk
	for _, c := range all {
		if c.DocumentID == documentID {
			chunks = append(chunks, c)
		}
	}
	if len(chunks) == 0 {
		return "", NewResourceNotFoundError(documentScheme + documentID)
	}
	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].Metadata.ChunkIndex < chunks[j].Metadata.ChunkIndex
	})

	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = c.Content
	}
	return strings.Join(parts, "\n\n"), nil
}

func (s *Server) handleReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	if !strings.HasPrefix(uri, documentScheme) {
		return nil, NewResourceNotFoundError(uri)
	}
	id := strings.TrimPrefix(uri, documentScheme)
	if id == "" || strings.Contains(id, "/") {
		return nil, NewInvalidParamsError(fmt.Sprintf("invalid document uri: %s", uri))
	}

	text, err := s.ReadDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: "text/plain",
				Text:     text,
			},
		},
	}, nil
}
