package errors

import (
	stderrors "errors"
	"fmt"
)

// RagError is the structured error carried through ingest, retrieval and
// answer synthesis. The HTTP and MCP layers map it by Category.
type RagError struct {
	Code       string
	Message    string
	Category   Category
	Severity   Severity
	Details    map[string]string
	Cause      error
	Retryable  bool
	Suggestion string
}

func (e *RagError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *RagError) Unwrap() error {
	return e.Cause
}

// Is matches another RagError by code so sentinel values work with errors.Is.
func (e *RagError) Is(target error) bool {
	if t, ok := target.(*RagError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *RagError) WithDetail(key, value string) *RagError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion attaches a hint shown by the CLI.
func (e *RagError) WithSuggestion(suggestion string) *RagError {
	e.Suggestion = suggestion
	return e
}

// New creates a RagError. Category, severity and the retryable flag are
// derived from the code.
func New(code, message string, cause error) *RagError {
	return &RagError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a RagError whose message is err's message. Wrap(code, nil) is nil.
func Wrap(code string, err error) *RagError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

func ConfigError(message string, cause error) *RagError {
	return New(ErrCodeConfigInvalid, message, cause)
}

func ValidationError(message string, cause error) *RagError {
	return New(ErrCodeInvalidInput, message, cause)
}

func PersistenceError(message string, cause error) *RagError {
	return New(ErrCodePersistenceFailed, message, cause)
}

func ProviderError(message string, cause error) *RagError {
	return New(ErrCodeProviderUnavailable, message, cause)
}

// IsRetryable reports whether err, or any RagError in its chain, is retryable.
func IsRetryable(err error) bool {
	var re *RagError
	if stderrors.As(err, &re) {
		return re.Retryable
	}
	return false
}

// IsFatal reports whether err has fatal severity.
func IsFatal(err error) bool {
	var re *RagError
	if stderrors.As(err, &re) {
		return re.Severity == SeverityFatal
	}
	return false
}

// GetCode returns the code of the first RagError in err's chain, or "".
func GetCode(err error) string {
	var re *RagError
	if stderrors.As(err, &re) {
		return re.Code
	}
	return ""
}

// GetCategory returns the category of the first RagError in err's chain, or "".
func GetCategory(err error) Category {
	var re *RagError
	if stderrors.As(err, &re) {
		return re.Category
	}
	return ""
}
