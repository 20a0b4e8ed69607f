package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TS01: Wrapping preserves the cause
func TestRagError_Unwrap_PreservesCause(t *testing.T) {
	// Given: an underlying error
	cause := errors.New("disk quota exceeded")

	// When: wrapping it
	err := New(ErrCodePersistenceFailed, "save keyword metadata", cause)

	// Then: the chain reaches the cause
	require.NotNil(t, err)
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "[ERR_204_PERSISTENCE_FAILED] save keyword metadata", err.Error())
}

func TestRagError_CategoryFromCode(t *testing.T) {
	tests := []struct {
		code     string
		expected Category
	}{
		{ErrCodeConfigInvalid, CategoryConfig},
		{ErrCodeUnsupportedFile, CategoryIO},
		{ErrCodeEmbeddingFailed, CategoryProvider},
		{ErrCodeDocumentNotFound, CategoryValidation},
		{ErrCodeInternal, CategoryInternal},
		{"bogus", CategoryInternal},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, New(tt.code, "x", nil).Category)
		})
	}
}

// TS02: errors.Is matches by code through fmt wrapping
func TestRagError_Is_MatchesByCodeThroughWrapping(t *testing.T) {
	// Given: a sentinel and a wrapped instance with the same code
	sentinel := New(ErrCodeUnsupportedFile, "unsupported", nil)
	err := fmt.Errorf("ingest report.xlsx: %w", New(ErrCodeUnsupportedFile, "Unsupported file type: .xlsx", nil))

	// Then: errors.Is sees through the wrapping
	assert.True(t, errors.Is(err, sentinel))
	assert.False(t, errors.Is(err, New(ErrCodeInternal, "other", nil)))
	assert.Equal(t, ErrCodeUnsupportedFile, GetCode(err))
	assert.Equal(t, CategoryIO, GetCategory(err))
}

func TestRagError_RetryableAndFatal(t *testing.T) {
	assert.True(t, IsRetryable(New(ErrCodeProviderTimeout, "timeout", nil)))
	assert.False(t, IsRetryable(New(ErrCodeInvalidInput, "bad", nil)))
	assert.False(t, IsRetryable(errors.New("plain")))
	assert.True(t, IsFatal(New(ErrCodeDataDirLocked, "locked", nil)))
	assert.False(t, IsFatal(nil))
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestRagError_WithDetailAndSuggestion(t *testing.T) {
	err := ValidationError("chunk_overlap must be smaller than chunk_size", nil).
		WithDetail("chunk_size", "100").
		WithSuggestion("lower chunking.overlap")

	assert.Equal(t, "100", err.Details["chunk_size"])
	out := FormatForCLI(err)
	assert.Contains(t, out, "Error: chunk_overlap must be smaller than chunk_size")
	assert.Contains(t, out, "Hint: lower chunking.overlap")
	assert.Contains(t, out, "Code: ERR_401_INVALID_INPUT")
}

func TestFormatForCLI_PlainError(t *testing.T) {
	assert.Equal(t, "", FormatForCLI(nil))
	assert.Contains(t, FormatForCLI(errors.New("boom")), "Code: ERR_501_INTERNAL")
}

func TestLogAttrs(t *testing.T) {
	attrs := LogAttrs(PersistenceError("write", errors.New("eio")).WithDetail("path", "/tmp/x"))
	assert.Contains(t, attrs, "error_code")
	assert.Contains(t, attrs, "eio")
	assert.Contains(t, attrs, "/tmp/x")
	assert.Equal(t, []any{"error", "plain"}, LogAttrs(errors.New("plain")))
}
