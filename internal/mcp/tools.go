package mcp

import (
	"github.com/briany/genai-rag-chatbot/internal/answer"
	"github.com/briany/genai-rag-chatbot/internal/store"
)

// SearchDocumentsInput defines the input schema for the search_documents tool.
type SearchDocumentsInput struct {
	Query string `json:"query" jsonschema:"the text to search the ingested documents for"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of passages, default 5, max 50"`
}

// SearchDocumentsOutput defines the output schema for the search_documents tool.
type SearchDocumentsOutput struct {
	Results []SearchResultOutput `json:"results" jsonschema:"retrieved passages, best first"`
}

// SearchResultOutput is one retrieved passage.
type SearchResultOutput struct {
	DocumentID   string  `json:"document_id" jsonschema:"id of the document the passage belongs to"`
	DocumentName string  `json:"document_name" jsonschema:"filename the document was ingested under"`
	ChunkIndex   int     `json:"chunk_index" jsonschema:"position of the passage within its document"`
	Content      string  `json:"content" jsonschema:"passage text"`
	Score        float64 `json:"score" jsonschema:"relevance score; 1.0 when the backend does not score"`
}

// AskInput defines the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the ingested documents"`
}

// AskOutput defines the output schema for the ask tool.
type AskOutput struct {
	Answer  string          `json:"answer" jsonschema:"markdown answer"`
	Sources []answer.Source `json:"sources" jsonschema:"passages the answer was grounded on"`
	Mock    bool            `json:"mock,omitempty" jsonschema:"true when no completion model is configured"`
}

// ListDocumentsInput defines the input schema for the list_documents tool (no parameters).
type ListDocumentsInput struct{}

// ListDocumentsOutput defines the output schema for the list_documents tool.
type ListDocumentsOutput struct {
	Documents []store.DocumentSummary `json:"documents" jsonschema:"registered documents"`
}

// DeleteDocumentInput defines the input schema for the delete_document tool.
type DeleteDocumentInput struct {
	DocumentID string `json:"document_id" jsonschema:"id returned by ingestion or list_documents"`
}

// DeleteDocumentOutput defines the output schema for the delete_document tool.
type DeleteDocumentOutput struct {
	Deleted bool   `json:"deleted"`
	Message string `json:"message"`
}
