package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/briany/genai-rag-chatbot/internal/retrieval"
	"github.com/briany/genai-rag-chatbot/internal/store"
	"github.com/briany/genai-rag-chatbot/pkg/version"
)

// ServerName is reported to MCP clients during initialization.
const ServerName = "ragchat"

const (
	defaultSearchLimit = retrieval.DefaultK
	maxSearchLimit     = retrieval.MaxK
)

// Server bridges MCP clients with a retrieval.Service.
type Server struct {
	mcp    *mcp.Server
	svc    *retrieval.Service
	logger *slog.Logger
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

var tools = []ToolInfo{
	{
		Name:        "search_documents",
		Description: "Search the ingested documents and return the most relevant passages with their source document and score.",
	},
	{
		Name:        "ask",
		Description: "Answer a question using only the ingested documents. Returns a markdown answer and the passages it was grounded on.",
	},
	{
		Name:        "list_documents",
		Description: "List the ingested documents with their ids and chunk counts.",
	},
	{
		Name:        "delete_document",
		Description: "Remove an ingested document and all of its passages by document id.",
	},
}

// NewServer creates an MCP server over svc.
func NewServer(svc *retrieval.Service) (*Server, error) {
	if svc == nil {
		return nil, errors.New("retrieval service is required")
	}

	s := &Server{
		svc:    svc,
		logger: slog.Default(),
	}
	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    ServerName,
			Version: version.Version,
		},
		nil,
	)

	s.registerTools()
	s.registerResources()
	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return ServerName, version.Version
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	out := make([]ToolInfo, len(tools))
	copy(out, tools)
	return out
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[0].Name, Description: tools[0].Description}, s.mcpSearchDocumentsHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[1].Name, Description: tools[1].Description}, s.mcpAskHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[2].Name, Description: tools[2].Description}, s.mcpListDocumentsHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[3].Name, Description: tools[3].Description}, s.mcpDeleteDocumentHandler)
	s.logger.Info("MCP tools registered", slog.Int("count", len(tools)))
}

// CallTool invokes a tool by name and returns its markdown rendering.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	switch name {
	case "search_documents":
		query, _ := args["query"].(string)
		limit := 0
		if v, ok := args["limit"].(float64); ok {
			limit = int(v)
		} else if v, ok := args["limit"].(int); ok {
			limit = v
		}
		text, _, err := s.searchDocuments(ctx, SearchDocumentsInput{Query: query, Limit: limit})
		return text, err
	case "ask":
		question, _ := args["question"].(string)
		text, _, err := s.ask(ctx, AskInput{Question: question})
		return text, err
	case "list_documents":
		text, _, err := s.listDocuments(ctx)
		return text, err
	case "delete_document":
		id, _ := args["document_id"].(string)
		text, _, err := s.deleteDocument(ctx, DeleteDocumentInput{DocumentID: id})
		return text, err
	default:
		return "", NewMethodNotFoundError(name)
	}
}

func (s *Server) searchDocuments(ctx context.Context, input SearchDocumentsInput) (string, SearchDocumentsOutput, error) {
	start := time.Now()
	requestID := generateRequestID()

	query := strings.TrimSpace(input.Query)
	if query == "" {
		return "", SearchDocumentsOutput{}, NewInvalidParamsError("query parameter is required")
	}
	limit := clampLimit(input.Limit, defaultSearchLimit, 1, maxSearchLimit)

	s.logger.Info("mcp_search_start",
		slog.String("request_id", requestID),
		slog.String("query", query),
		slog.Int("limit", limit))

	results, err := s.svc.Search(ctx, query, limit)
	if err != nil {
		s.logger.Error("mcp_search_failed",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()))
		return "", SearchDocumentsOutput{}, MapError(err)
	}

	out := SearchDocumentsOutput{Results: make([]SearchResultOutput, 0, len(results))}
	for _, r := range results {
		out.Results = append(out.Results, ToSearchResultOutput(r))
	}

	s.logger.Info("mcp_search_complete",
		slog.String("request_id", requestID),
		slog.Int("results", len(results)),
		slog.Duration("duration", time.Since(start)))
	return FormatSearchResults(query, results), out, nil
}

func (s *Server) ask(ctx context.Context, input AskInput) (string, AskOutput, error) {
	start := time.Now()
	requestID := generateRequestID()

	question := strings.TrimSpace(input.Question)
	if question == "" {
		return "", AskOutput{}, NewInvalidParamsError("question parameter is required")
	}

	ans, err := s.svc.Ask(ctx, question)
	if err != nil {
		s.logger.Error("mcp_ask_failed",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()))
		return "", AskOutput{}, MapError(err)
	}

	s.logger.Info("mcp_ask_complete",
		slog.String("request_id", requestID),
		slog.Int("sources", len(ans.Sources)),
		slog.Bool("mock", s.svc.MockMode()),
		slog.Duration("duration", time.Since(start)))
	return FormatAnswer(ans), AskOutput{Answer: ans.Text, Sources: ans.Sources, Mock: s.svc.MockMode()}, nil
}

func (s *Server) listDocuments(ctx context.Context) (string, ListDocumentsOutput, error) {
	docs, err := s.svc.List(ctx)
	if err != nil {
		return "", ListDocumentsOutput{}, MapError(err)
	}
	if docs == nil {
		docs = []store.DocumentSummary{}
	}
	return FormatDocuments(docs), ListDocumentsOutput{Documents: docs}, nil
}

func (s *Server) deleteDocument(ctx context.Context, input DeleteDocumentInput) (string, DeleteDocumentOutput, error) {
	id := strings.TrimSpace(input.DocumentID)
	if id == "" {
		return "", DeleteDocumentOutput{}, NewInvalidParamsError("document_id parameter is required")
	}

	ok, err := s.svc.Delete(ctx, id)
	if err != nil {
		return "", DeleteDocumentOutput{}, MapError(err)
	}
	if !ok {
		return "", DeleteDocumentOutput{}, MapError(fmt.Errorf("%s: %w", id, ErrDocumentNotFound))
	}

	msg := fmt.Sprintf("Document `%s` deleted.", id)
	return msg, DeleteDocumentOutput{Deleted: true, Message: msg}, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

func (s *Server) mcpSearchDocumentsHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchDocumentsInput) (
	*mcp.CallToolResult,
	SearchDocumentsOutput,
	error,
) {
	text, out, err := s.searchDocuments(ctx, input)
	if err != nil {
		return nil, SearchDocumentsOutput{}, err
	}
	return textResult(text), out, nil
}

func (s *Server) mcpAskHandler(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (
	*mcp.CallToolResult,
	AskOutput,
	error,
) {
	text, out, err := s.ask(ctx, input)
	if err != nil {
		return nil, AskOutput{}, err
	}
	return textResult(text), out, nil
}

func (s *Server) mcpListDocumentsHandler(ctx context.Context, _ *mcp.CallToolRequest, _ ListDocumentsInput) (
	*mcp.CallToolResult,
	ListDocumentsOutput,
	error,
) {
	text, out, err := s.listDocuments(ctx)
	if err != nil {
		return nil, ListDocumentsOutput{}, err
	}
	return textResult(text), out, nil
}

func (s *Server) mcpDeleteDocumentHandler(ctx context.Context, _ *mcp.CallToolRequest, input DeleteDocumentInput) (
	*mcp.CallToolResult,
	DeleteDocumentOutput,
	error,
) {
	text, out, err := s.deleteDocument(ctx, input)
	if err != nil {
		return nil, DeleteDocumentOutput{}, err
	}
	return textResult(text), out, nil
}

// Serve runs the server over the named transport until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("Starting MCP server", slog.String("transport", transport))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("MCP server stopped with error", slog.String("error", err.Error()))
		} else {
			s.logger.Info("MCP server stopped gracefully")
		}
		return err
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
