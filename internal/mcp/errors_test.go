package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ragerrors "github.com/briany/genai-rag-chatbot/internal/errors"
)

func TestMapError_NilError(t *testing.T) {
	assert.Nil(t, MapError(nil))
}

func TestMapError_Sentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"document not found", ErrDocumentNotFound, ErrCodeDocumentNotFound, "Document not found"},
		{"deadline", context.DeadlineExceeded, ErrCodeTimeout, "timed out"},
		{"canceled", context.Canceled, ErrCodeTimeout, "canceled"},
		{"tool not found", ErrToolNotFound, ErrCodeMethodNotFound, "Tool not found"},
		{"invalid params", ErrInvalidParams, ErrCodeInvalidParams, "Invalid parameters"},
		{"unknown", errors.New("disk on fire"), ErrCodeInternalError, "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := MapError(tt.err)

			require.NotNil(t, result)
			assert.Equal(t, tt.wantCode, result.Code)
			assert.Contains(t, result.Message, tt.wantMsg)
		})
	}
}

func TestMapError_WrappedError(t *testing.T) {
	// Given: a wrapped sentinel
	err := fmt.Errorf("delete: %w", ErrDocumentNotFound)

	// When: mapping the error
	result := MapError(err)

	// Then: the sentinel is still recognised
	require.NotNil(t, result)
	assert.Equal(t, ErrCodeDocumentNotFound, result.Code)
}

func TestMapError_PassesThroughMCPError(t *testing.T) {
	orig := NewInvalidParamsError("query parameter is required")

	result := MapError(fmt.Errorf("tool: %w", orig))

	assert.Same(t, orig, result)
}

func TestMCPError_Error(t *testing.T) {
	err := &MCPError{Code: ErrCodeInvalidParams, Message: "missing required field"}

	msg := err.Error()

	assert.Contains(t, msg, "MCP error")
	assert.Contains(t, msg, "-32602")
	assert.Contains(t, msg, "missing required field")
}

func TestNewMethodNotFoundError(t *testing.T) {
	err := NewMethodNotFoundError("unknown_tool")

	assert.Equal(t, ErrCodeMethodNotFound, err.Code)
	assert.Contains(t, err.Message, "unknown_tool")
}

func TestNewResourceNotFoundError(t *testing.T) {
	err := NewResourceNotFoundError("document://abc")

	assert.Equal(t, ErrCodeMethodNotFound, err.Code)
	assert.Contains(t, err.Message, "document://abc")
}

// TS01: Structured errors map by category and code
func TestMapError_RagError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"unsupported file", ragerrors.New(ragerrors.ErrCodeUnsupportedFile, "Unsupported file type: .xlsx", nil), ErrCodeUnsupportedFile},
		{"file not found", ragerrors.New(ragerrors.ErrCodeFileNotFound, "missing.txt not found", nil), ErrCodeFileNotFound},
		{"persistence", ragerrors.PersistenceError("write snapshot", nil), ErrCodeInternalError},
		{"provider timeout", ragerrors.New(ragerrors.ErrCodeProviderTimeout, "timeout", nil), ErrCodeTimeout},
		{"provider unavailable", ragerrors.ProviderError("down", nil), ErrCodeProviderFailed},
		{"validation", ragerrors.ValidationError("bad input", nil), ErrCodeInvalidParams},
		{"unknown document", ragerrors.New(ragerrors.ErrCodeDocumentNotFound, "no such document", nil), ErrCodeDocumentNotFound},
		{"internal", ragerrors.New(ragerrors.ErrCodeInternal, "unexpected", nil), ErrCodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: a wrapped structured error
			err := fmt.Errorf("operation failed: %w", tt.err)

			// When: mapping it
			result := MapError(err)

			// Then: the code follows the category and the message survives
			require.NotNil(t, result)
			assert.Equal(t, tt.wantCode, result.Code)
			assert.Contains(t, result.Message, tt.err.(*ragerrors.RagError).Message)
		})
	}
}

func TestMapError_RagErrorWithSuggestion(t *testing.T) {
	err := ragerrors.New(ragerrors.ErrCodeUnsupportedFile, "Unsupported file type: .xlsx", nil).
		WithSuggestion("upload .pdf, .docx or .txt files")

	result := MapError(err)

	require.NotNil(t, result)
	assert.Equal(t, "Unsupported file type: .xlsx upload .pdf, .docx or .txt files", result.Message)
}
