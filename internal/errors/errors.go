package errors

import (
	"fmt"
)

// CodeSearchError is the structured error type threaded through the
// engine. It carries a Kind for callers to branch on (retrieval
// degrades BackendUnavailable/Timeout to a warning, propagates
// InvalidArgument as a hard failure) plus a numeric Code for logging
// and a human Suggestion.
type CodeSearchError struct {
	// Code is the unique error code (e.g., "ERR_301_FILE_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	// Kind is the error taxonomy category.
	Kind Kind

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *CodeSearchError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *CodeSearchError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code, enabling
// errors.Is to work with CodeSearchError.
func (e *CodeSearchError) Is(target error) bool {
	if t, ok := target.(*CodeSearchError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error. Returns the error
// for method chaining.
func (e *CodeSearchError) WithDetail(key, value string) *CodeSearchError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user. Returns
// the error for method chaining.
func (e *CodeSearchError) WithSuggestion(suggestion string) *CodeSearchError {
	e.Suggestion = suggestion
	return e
}

// New creates a new CodeSearchError with the given code, kind, and
// message. Severity and retryable flag are derived from the kind.
func New(code string, kind Kind, message string, cause error) *CodeSearchError {
	return &CodeSearchError{
		Code:      code,
		Message:   message,
		Kind:      kind,
		Severity:  severityForKind(kind),
		Cause:     cause,
		Retryable: isRetryableKind(kind),
	}
}

// Wrap creates a CodeSearchError from an existing error, reusing its
// message.
func Wrap(code string, kind Kind, err error) *CodeSearchError {
	if err == nil {
		return nil
	}
	return New(code, kind, err.Error(), err)
}

// BackendUnavailable wraps a connection/reachability failure against
// the embedding service or vector store.
func BackendUnavailable(message string, cause error) *CodeSearchError {
	return New(ErrCodeVectorStoreUnavailable, KindBackendUnavailable, message, cause)
}

// BackendFailure wraps a structured failure response from a reachable
// backend.
func BackendFailure(message string, cause error) *CodeSearchError {
	return New(ErrCodeQueryFailed, KindBackendError, message, cause)
}

// FileFailure wraps a file read/permission/encoding error.
func FileFailure(message string, cause error) *CodeSearchError {
	return New(ErrCodeFileNotFound, KindFileError, message, cause)
}

// ParseFailure wraps a grammar or markdown parse failure.
func ParseFailure(message string, cause error) *CodeSearchError {
	return New(ErrCodeGrammarFailed, KindParseError, message, cause)
}

// InvalidArgumentError wraps a malformed caller request. Always a
// hard failure, never degraded to a warning by retrieval callers.
func InvalidArgumentError(message string) *CodeSearchError {
	return New(ErrCodeInvalidInput, KindInvalidArgument, message, nil)
}

// TimeoutFailure wraps a deadline-exceeded error.
func TimeoutFailure(message string, cause error) *CodeSearchError {
	return New(ErrCodeSearchTimeout, KindTimeout, message, cause)
}

// IsRetryable checks if an error is retryable. Returns true if the
// error is a CodeSearchError with Retryable set.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if ce, ok := err.(*CodeSearchError); ok {
		return ce.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if ce, ok := err.(*CodeSearchError); ok {
		return ce.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a CodeSearchError. Returns
// empty string if not a CodeSearchError.
func GetCode(err error) string {
	if ce, ok := err.(*CodeSearchError); ok {
		return ce.Code
	}
	return ""
}

// GetKind extracts the Kind from a CodeSearchError. Returns empty
// string if not a CodeSearchError.
func GetKind(err error) Kind {
	if ce, ok := err.(*CodeSearchError); ok {
		return ce.Kind
	}
	return ""
}
