// Package mcp exposes the document store and answer pipeline as Model
// Context Protocol tools.
package mcp

import (
	"context"
	"errors"
	"fmt"

	ragerrors "github.com/briany/genai-rag-chatbot/internal/errors"
)

// Custom MCP error codes.
const (
	// ErrCodeDocumentNotFound indicates the document id is not registered.
	ErrCodeDocumentNotFound = -32001

	// ErrCodeProviderFailed indicates an embedding or completion provider failed.
	ErrCodeProviderFailed = -32002

	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout = -32003

	ErrCodeFileNotFound    = -32004
	ErrCodeUnsupportedFile = -32005

	// Standard JSON-RPC error codes.
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrToolNotFound     = errors.New("tool not found")
	ErrInvalidParams    = errors.New("invalid parameters")
)

// MCPError is a protocol error with a JSON-RPC code.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to MCP errors. Structured errors keep
// their message and suggestion; anything unrecognised becomes an internal
// error without leaking details.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var mcpErr *MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr
	}

	var ragErr *ragerrors.RagError
	if errors.As(err, &ragErr) {
		return mapRagError(ragErr)
	}

	switch {
	case errors.Is(err, ErrDocumentNotFound):
		return &MCPError{Code: ErrCodeDocumentNotFound, Message: "Document not found."}
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	case errors.Is(err, ErrToolNotFound):
		return &MCPError{Code: ErrCodeMethodNotFound, Message: "Tool not found."}
	case errors.Is(err, ErrInvalidParams):
		return &MCPError{Code: ErrCodeInvalidParams, Message: "Invalid parameters."}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
	}
}

func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{
		Code:    ErrCodeMethodNotFound,
		Message: fmt.Sprintf("Tool '%s' not found.", name),
	}
}

func NewResourceNotFoundError(uri string) *MCPError {
	return &MCPError{
		Code:    ErrCodeMethodNotFound,
		Message: fmt.Sprintf("Resource '%s' not found.", uri),
	}
}

func mapRagError(re *ragerrors.RagError) *MCPError {
	message := re.Message
	if re.Suggestion != "" {
		message = fmt.Sprintf("%s %s", re.Message, re.Suggestion)
	}

	code := ErrCodeInternalError
	switch re.Category {
	case ragerrors.CategoryIO:
		switch re.Code {
		case ragerrors.ErrCodeFileNotFound:
			code = ErrCodeFileNotFound
		case ragerrors.ErrCodeUnsupportedFile:
			code = ErrCodeUnsupportedFile
		}
	case ragerrors.CategoryProvider:
		code = ErrCodeProviderFailed
		if re.Code == ragerrors.ErrCodeProviderTimeout {
			code = ErrCodeTimeout
		}
	case ragerrors.CategoryValidation:
		code = ErrCodeInvalidParams
		if re.Code == ragerrors.ErrCodeDocumentNotFound {
			code = ErrCodeDocumentNotFound
		}
	}
	return &MCPError{Code: code, Message: message}
}
