// Package errors provides structured errors for the ragchat pipeline.
//
// Codes follow the pattern ERR_NNN_NAME where the hundreds digit selects
// the category:
//   - 1NN: configuration
//   - 2NN: files, snapshots and extraction
//   - 3NN: embedding and completion providers
//   - 4NN: caller input
//   - 5NN: everything else
package errors

// Category groups codes for logging and HTTP mapping.
type Category string

const (
	CategoryConfig     Category = "CONFIG"
	CategoryIO         Category = "IO"
	CategoryProvider   Category = "PROVIDER"
	CategoryValidation Category = "VALIDATION"
	CategoryInternal   Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal means the process cannot continue.
	SeverityFatal   Severity = "FATAL"
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
)

const (
	// Config errors (100-199)
	ErrCodeConfigInvalid = "ERR_101_CONFIG_INVALID"
	ErrCodeConfigRead    = "ERR_102_CONFIG_READ"

	// IO errors (200-299)
	ErrCodeFileNotFound      = "ERR_201_FILE_NOT_FOUND"
	ErrCodeUnsupportedFile   = "ERR_202_UNSUPPORTED_FILE_TYPE"
	ErrCodeExtractionFailed  = "ERR_203_EXTRACTION_FAILED"
	ErrCodePersistenceFailed = "ERR_204_PERSISTENCE_FAILED"
	ErrCodeDataDirLocked     = "ERR_205_DATA_DIR_LOCKED"

	// Provider errors (300-399)
	ErrCodeProviderTimeout     = "ERR_301_PROVIDER_TIMEOUT"
	ErrCodeProviderUnavailable = "ERR_302_PROVIDER_UNAVAILABLE"
	ErrCodeEmbeddingFailed     = "ERR_303_EMBEDDING_FAILED"
	ErrCodeCompletionFailed    = "ERR_304_COMPLETION_FAILED"

	// Validation errors (400-499)
	ErrCodeInvalidInput      = "ERR_401_INVALID_INPUT"
	ErrCodeDimensionMismatch = "ERR_402_DIMENSION_MISMATCH"
	ErrCodeQueryEmpty        = "ERR_403_QUERY_EMPTY"
	ErrCodeDocumentNotFound  = "ERR_404_DOCUMENT_NOT_FOUND"

	// Internal errors (500-599)
	ErrCodeInternal       = "ERR_501_INTERNAL"
	ErrCodeIndexCorrupted = "ERR_502_INDEX_CORRUPTED"
)

func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryProvider
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeIndexCorrupted, ErrCodeDataDirLocked:
		return SeverityFatal
	}
	if isRetryableCode(code) {
		return SeverityWarning
	}
	return SeverityError
}

// isRetryableCode reports whether an operation failing with code may succeed on retry.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeProviderTimeout, ErrCodeProviderUnavailable:
		return true
	default:
		return false
	}
}
