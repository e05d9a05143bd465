package errors

import (
	stderrors "errors"
	"fmt"
)

// JournalError is the structured error type for amanjournal.
// It carries enough context for logging and for presenting the failure to a user.
type JournalError struct {
	// Code is the unique error code (e.g., "ERR_204_SNAPSHOT_WRITE").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Network, etc.).
	Category Category

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
func (e *JournalError) Error() string {
	if e.Cause != nil && e.Cause.Error() != e.Message {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *JournalError) Unwrap() error {
	return e.Cause
}

// Is matches another JournalError by code, so errors.Is works against
// sentinel values built with New.
func (e *JournalError) Is(target error) bool {
	if t, ok := target.(*JournalError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *JournalError) WithDetail(key, value string) *JournalError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *JournalError) WithSuggestion(suggestion string) *JournalError {
	e.Suggestion = suggestion
	return e
}

// New creates a new JournalError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *JournalError {
	return &JournalError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a JournalError from an existing error.
// The error's message becomes the JournalError message.
func Wrap(code string, err error) *JournalError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *JournalError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// StorageError creates a snapshot write error. Storage failures are always
// surfaced to the caller.
func StorageError(message string, cause error) *JournalError {
	return New(ErrCodeSnapshotWrite, message, cause)
}

// ProviderError creates an embedding provider error. Provider errors are retryable.
func ProviderError(message string, cause error) *JournalError {
	return New(ErrCodeProviderUnavailable, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *JournalError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *JournalError {
	return New(ErrCodeInternal, message, cause)
}

// as finds the first JournalError in err's chain.
func as(err error) (*JournalError, bool) {
	var je *JournalError
	if stderrors.As(err, &je) {
		return je, true
	}
	return nil, false
}

// IsRetryable reports whether err, or any error it wraps, is a retryable JournalError.
func IsRetryable(err error) bool {
	if je, ok := as(err); ok {
		return je.Retryable
	}
	return false
}

// IsFatal reports whether err carries fatal severity.
func IsFatal(err error) bool {
	if je, ok := as(err); ok {
		return je.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from err's chain.
// Returns empty string if there is no JournalError.
func GetCode(err error) string {
	if je, ok := as(err); ok {
		return je.Code
	}
	return ""
}

// GetCategory extracts the category from err's chain.
func GetCategory(err error) Category {
	if je, ok := as(err); ok {
		return je.Category
	}
	return ""
}
