// Package mcp exposes a loaded journal to AI clients over the Model Context
// Protocol.
package mcp

import (
	"context"
	"errors"
	"fmt"

	jerrors "github.com/Aman-CERP/amanjournal/internal/errors"
)

// Custom MCP error codes.
const (
	// ErrCodeNotLoaded indicates no journal is loaded.
	ErrCodeNotLoaded = -32001

	// ErrCodeProviderFailed indicates the embedding provider failed.
	ErrCodeProviderFailed = -32002

	// ErrCodeTimeout indicates the request timed out or was cancelled.
	ErrCodeTimeout = -32003

	// ErrCodeEntryNotFound indicates the entry does not exist.
	ErrCodeEntryNotFound = -32004

	// Standard JSON-RPC error codes.
	ErrCodeInvalidParams = -32602
	ErrCodeInternalError = -32603
)

// MCPError is a protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// NewInvalidParamsError creates an invalid-params error.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// MapError converts an internal error to an MCPError.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	}

	var je *jerrors.JournalError
	if !errors.As(err, &je) {
		return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
	}

	message := je.Message
	if je.Suggestion != "" {
		message = fmt.Sprintf("%s. %s", je.Message, je.Suggestion)
	}

	switch je.Code {
	case jerrors.ErrCodeNotLoaded:
		return &MCPError{Code: ErrCodeNotLoaded, Message: message}
	case jerrors.ErrCodeEntryNotFound, jerrors.ErrCodeDocumentNotFound:
		return &MCPError{Code: ErrCodeEntryNotFound, Message: message}
	}

	switch je.Category {
	case jerrors.CategoryNetwork:
		return &MCPError{Code: ErrCodeProviderFailed, Message: message}
	case jerrors.CategoryValidation:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	}
}
