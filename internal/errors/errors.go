package errors

import (
	"errors"
	"fmt"
)

// RamError is the structured error type for RAM.
// It carries enough context for logging, retry decisions and CLI presentation.
type RamError struct {
	// Code is the unique error code (e.g., "ERR_201_FILE_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is derived from the code.
	Category Category

	// Severity is derived from the code.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable hint for the user.
	Suggestion string
}

// Sentinel values for errors.Is checks. They match any RamError with the same code.
var (
	ErrConflictingScope  = &RamError{Code: ErrCodeConflictingScope}
	ErrNoProjectFound    = &RamError{Code: ErrCodeNoProjectFound}
	ErrNotFound          = &RamError{Code: ErrCodeFileNotFound}
	ErrPermissionDenied  = &RamError{Code: ErrCodeFilePermission}
	ErrEncoding          = &RamError{Code: ErrCodeEncoding}
	ErrSizeLimitExceeded = &RamError{Code: ErrCodeFileTooLarge}
	ErrEmbeddingFailure  = &RamError{Code: ErrCodeEmbeddingFailed}
	ErrStorageWrite      = &RamError{Code: ErrCodeStorageWrite}
	ErrStoreBusy         = &RamError{Code: ErrCodeStoreBusy}
	ErrDimensionMismatch = &RamError{Code: ErrCodeDimensionMismatch}
)

// Error implements the error interface.
func (e *RamError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *RamError) Unwrap() error {
	return e.Cause
}

// Is matches by code, so errors.Is works against the sentinels above.
func (e *RamError) Is(target error) bool {
	if t, ok := target.(*RamError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *RamError) WithDetail(key, value string) *RamError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *RamError) WithSuggestion(suggestion string) *RamError {
	e.Suggestion = suggestion
	return e
}

// New creates a RamError. Category, severity and the retryable flag come from the code.
func New(code string, message string, cause error) *RamError {
	return &RamError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a RamError from an existing error, reusing its message.
func Wrap(code string, err error) *RamError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *RamError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *RamError {
	return New(ErrCodeInternal, message, cause)
}

// As returns the first RamError in err's chain.
func As(err error) (*RamError, bool) {
	var re *RamError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// IsRetryable reports whether any RamError in the chain is retryable.
func IsRetryable(err error) bool {
	re, ok := As(err)
	return ok && re.Retryable
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	re, ok := As(err)
	return ok && re.Severity == SeverityFatal
}

// GetCode extracts the error code, or "" when err is not a RamError.
func GetCode(err error) string {
	if re, ok := As(err); ok {
		return re.Code
	}
	return ""
}

// GetCategory extracts the category, or "" when err is not a RamError.
func GetCategory(err error) Category {
	if re, ok := As(err); ok {
		return re.Category
	}
	return ""
}
