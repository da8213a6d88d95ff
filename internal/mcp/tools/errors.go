package tools

import (
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/seclens/edrsearch-mcp/internal/investigate"
	"github.com/seclens/edrsearch-mcp/pkg/edr"
	"github.com/seclens/edrsearch-mcp/pkg/query"
)

// Error codes for MCP tool responses.
const (
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeBackend      = "BACKEND_ERROR"
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeTimeout      = "TIMEOUT"
	ErrCodeCancelled    = "CANCELLED"
	ErrCodeConfig       = "CONFIG_ERROR"
	ErrCodeAuth         = "AUTH_ERROR"
)

// CodedError is an error with an associated error code.
type CodedError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CodedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CodedError) Unwrap() error {
	return e.Cause
}

// WrapBackendError converts an executor or facade error to a coded error.
func WrapBackendError(err error) error {
	if err == nil {
		return nil
	}

	var already *CodedError
	if errors.As(err, &already) {
		return err
	}

	coded := &CodedError{Code: ErrCodeBackend, Message: err.Error(), Cause: err}

	var apiErr *edr.APIError
	var netErr net.Error
	switch {
	case errors.Is(err, investigate.ErrMissingHost),
		errors.Is(err, investigate.ErrAmbiguousTarget),
		errors.Is(err, query.ErrEmptyTemplate),
		errors.Is(err, query.ErrConflictingScope):
		coded.Code = ErrCodeInvalidInput

	case errors.Is(err, edr.ErrConfiguration):
		coded.Code = ErrCodeConfig

	case errors.Is(err, edr.ErrAuthentication):
		coded.Code = ErrCodeAuth

	case errors.Is(err, edr.ErrNotFound):
		coded.Code = ErrCodeNotFound

	case errors.Is(err, edr.ErrPollTimeout):
		coded.Code = ErrCodeTimeout
		coded.Message = "search did not complete within the poll budget"

	case errors.Is(err, edr.ErrCancelled):
		coded.Code = ErrCodeCancelled
		coded.Message = "search was cancelled"

	case errors.As(err, &apiErr):
		if apiErr.StatusCode == 404 {
			coded.Code = ErrCodeNotFound
		}
		coded.Message = apiErr.Message

	case errors.As(err, &netErr) && netErr.Timeout():
		coded.Code = ErrCodeTimeout
		coded.Message = "request timed out"
	}

	slog.Warn("backend error",
		slog.String("code", coded.Code),
		slog.String("message", coded.Message),
	)

	return coded
}

// ErrNotFound creates a not found error.
func ErrNotFound(resource, id string) error {
	return &CodedError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// ErrInvalidInput creates an invalid input error.
func ErrInvalidInput(message string) error {
	return &CodedError{
		Code:    ErrCodeInvalidInput,
		Message: message,
	}
}
