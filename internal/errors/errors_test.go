package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRamError_Unwrap_PreservesOriginalError(t *testing.T) {
	// Given: an original error
	originalErr := errors.New("original error")

	// When: wrapping with RamError
	ramErr := New(ErrCodeFileNotFound, "file not found: test.txt", originalErr)

	// Then: unwrapping returns original error
	require.NotNil(t, ramErr)
	assert.Equal(t, originalErr, errors.Unwrap(ramErr))
	assert.True(t, errors.Is(ramErr, originalErr))
}

func TestRamError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{"config error", ErrCodeConfigInvalid, "bad value", "[ERR_102_CONFIG_INVALID] bad value"},
		{"file error", ErrCodeFileNotFound, "a.txt not found", "[ERR_201_FILE_NOT_FOUND] a.txt not found"},
		{"scope error", ErrCodeConflictingScope, "pick one", "[ERR_407_CONFLICTING_SCOPE] pick one"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, nil)
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestRamError_Is_MatchesSentinelThroughWrapping(t *testing.T) {
	// Given: a busy-store error wrapped by fmt.Errorf
	err := fmt.Errorf("append: %w", New(ErrCodeStoreBusy, "locked", nil))

	// Then: it matches the sentinel but not other kinds
	assert.True(t, errors.Is(err, ErrStoreBusy))
	assert.False(t, errors.Is(err, ErrStorageWrite))
}

func TestNew_DerivesCategoryAndSeverity(t *testing.T) {
	tests := []struct {
		code      string
		category  Category
		severity  Severity
		retryable bool
	}{
		{ErrCodeConfigInvalid, CategoryConfig, SeverityError, false},
		{ErrCodeEncoding, CategoryIO, SeverityError, false},
		{ErrCodeStoreBusy, CategoryIO, SeverityWarning, true},
		{ErrCodeDimensionMismatch, CategoryValidation, SeverityFatal, false},
		{ErrCodeNoProjectFound, CategoryValidation, SeverityError, false},
		{ErrCodeEmbeddingFailed, CategoryInternal, SeverityError, false},
		{"BAD", CategoryInternal, SeverityError, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "msg", nil)
			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, tt.severity, err.Severity)
			assert.Equal(t, tt.retryable, err.Retryable)
		})
	}
}

func TestRamError_WithDetailAndSuggestion(t *testing.T) {
	err := New(ErrCodeFileTooLarge, "too big", nil).
		WithDetail("size", "42").
		WithSuggestion("split the file")

	assert.Equal(t, "42", err.Details["size"])
	assert.Equal(t, "split the file", err.Suggestion)
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestHelpers_HandleWrappedAndPlainErrors(t *testing.T) {
	wrapped := fmt.Errorf("ctx: %w", New(ErrCodeDimensionMismatch, "dims", nil))
	plain := errors.New("plain")

	assert.True(t, IsFatal(wrapped))
	assert.False(t, IsFatal(plain))
	assert.False(t, IsRetryable(plain))
	assert.Equal(t, ErrCodeDimensionMismatch, GetCode(wrapped))
	assert.Equal(t, "", GetCode(plain))
	assert.Equal(t, CategoryValidation, GetCategory(wrapped))
}
