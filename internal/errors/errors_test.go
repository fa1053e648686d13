package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeSearchError_Unwrap_PreservesOriginalError(t *testing.T) {
	originalErr := errors.New("original error")

	wrapped := New(ErrCodeFileNotFound, KindFileError, "file not found: test.txt", originalErr)

	require.NotNil(t, wrapped)
	assert.Equal(t, originalErr, errors.Unwrap(wrapped))
	assert.True(t, errors.Is(wrapped, originalErr))
}

func TestCodeSearchError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		kind     Kind
		message  string
		expected string
	}{
		{
			name:     "file error",
			code:     ErrCodeFileNotFound,
			kind:     KindFileError,
			message:  "file.go not found",
			expected: "[ERR_301_FILE_NOT_FOUND] file.go not found",
		},
		{
			name:     "backend unavailable",
			code:     ErrCodeVectorStoreUnavailable,
			kind:     KindBackendUnavailable,
			message:  "qdrant unreachable",
			expected: "[ERR_102_VECTOR_STORE_UNAVAILABLE] qdrant unreachable",
		},
		{
			name:     "timeout",
			code:     ErrCodeSearchTimeout,
			kind:     KindTimeout,
			message:  "search exceeded deadline",
			expected: "[ERR_601_SEARCH_TIMEOUT] search exceeded deadline",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.kind, tt.message, nil)
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestCodeSearchError_Is_MatchesByCode(t *testing.T) {
	err1 := New(ErrCodeFileNotFound, KindFileError, "file A not found", nil)
	err2 := New(ErrCodeFileNotFound, KindFileError, "file B not found", nil)

	assert.True(t, errors.Is(err1, err2))
}

func TestCodeSearchError_Is_DoesNotMatchDifferentCodes(t *testing.T) {
	err1 := New(ErrCodeFileNotFound, KindFileError, "file not found", nil)
	err2 := New(ErrCodeNoFilters, KindInvalidArgument, "no filters", nil)

	assert.False(t, errors.Is(err1, err2))
}

func TestCodeSearchError_WithDetails_AddsContext(t *testing.T) {
	err := New(ErrCodeFileNotFound, KindFileError, "file not found", nil)

	err = err.WithDetail("path", "/foo/bar.go")
	err = err.WithDetail("size", "1024")

	assert.Equal(t, "/foo/bar.go", err.Details["path"])
	assert.Equal(t, "1024", err.Details["size"])
}

func TestCodeSearchError_WithSuggestion_AddsSuggestion(t *testing.T) {
	err := New(ErrCodeNetworkTimeout, KindBackendUnavailable, "connection timed out", nil)

	err = err.WithSuggestion("Check your network connection")

	assert.Equal(t, "Check your network connection", err.Suggestion)
}

func TestCodeSearchError_SeverityForKind(t *testing.T) {
	tests := []struct {
		kind         Kind
		wantSeverity Severity
	}{
		{KindInvalidArgument, SeverityFatal},
		{KindBackendUnavailable, SeverityWarning},
		{KindTimeout, SeverityWarning},
		{KindFileError, SeverityError},
		{KindParseError, SeverityError},
		{KindBackendError, SeverityError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			err := New("ERR_TEST", tt.kind, "test message", nil)
			assert.Equal(t, tt.wantSeverity, err.Severity)
		})
	}
}

func TestCodeSearchError_RetryableForKind(t *testing.T) {
	tests := []struct {
		kind          Kind
		wantRetryable bool
	}{
		{KindBackendUnavailable, true},
		{KindTimeout, true},
		{KindFileError, false},
		{KindInvalidArgument, false},
		{KindParseError, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			err := New("ERR_TEST", tt.kind, "test message", nil)
			assert.Equal(t, tt.wantRetryable, err.Retryable)
		})
	}
}

func TestWrap_CreatesCodeSearchErrorFromError(t *testing.T) {
	originalErr := errors.New("something went wrong")

	wrapped := Wrap(ErrCodeQueryFailed, KindBackendError, originalErr)

	require.NotNil(t, wrapped)
	assert.Equal(t, ErrCodeQueryFailed, wrapped.Code)
	assert.Equal(t, "something went wrong", wrapped.Message)
	assert.Equal(t, originalErr, wrapped.Cause)
}

func TestBackendUnavailable_CreatesRetryableError(t *testing.T) {
	err := BackendUnavailable("qdrant connection refused", nil)

	assert.Equal(t, KindBackendUnavailable, err.Kind)
	assert.True(t, err.Retryable)
}

func TestFileFailure_CreatesFileErrorKind(t *testing.T) {
	err := FileFailure("cannot read file", nil)

	assert.Equal(t, KindFileError, err.Kind)
}

func TestInvalidArgumentError_IsNeverRetryable(t *testing.T) {
	err := InvalidArgumentError("search_by_metadata requires at least one filter")

	assert.Equal(t, KindInvalidArgument, err.Kind)
	assert.False(t, err.Retryable)
	assert.Equal(t, SeverityFatal, err.Severity)
}

func TestIsRetryable_ChecksRetryableFlag(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "retryable CodeSearchError",
			err:      New(ErrCodeNetworkTimeout, KindBackendUnavailable, "timeout", nil),
			expected: true,
		},
		{
			name:     "non-retryable CodeSearchError",
			err:      New(ErrCodeFileNotFound, KindFileError, "not found", nil),
			expected: false,
		},
		{
			name:     "wrapped retryable error",
			err:      Wrap(ErrCodeNetworkTimeout, KindBackendUnavailable, errors.New("wrapped")),
			expected: true,
		},
		{
			name:     "standard error",
			err:      errors.New("standard error"),
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsRetryable(tt.err))
		})
	}
}

func TestIsFatal_ChecksFatalSeverity(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "invalid argument is fatal",
			err:      InvalidArgumentError("no filters"),
			expected: true,
		},
		{
			name:     "file error is not fatal",
			err:      New(ErrCodeFileNotFound, KindFileError, "not found", nil),
			expected: false,
		},
		{
			name:     "standard error",
			err:      errors.New("standard error"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsFatal(tt.err))
		})
	}
}
