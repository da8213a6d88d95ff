package tools

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seclens/edrsearch-mcp/internal/investigate"
	"github.com/seclens/edrsearch-mcp/pkg/edr"
)

func codeOf(t *testing.T, err error) string {
	t.Helper()
	var coded *CodedError
	require.ErrorAs(t, err, &coded)
	return coded.Code
}

func TestWrapBackendErrorCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"missing host", investigate.ErrMissingHost, ErrCodeInvalidInput},
		{"ambiguous target", investigate.ErrAmbiguousTarget, ErrCodeInvalidInput},
		{"configuration", fmt.Errorf("tenant ACME: %w", edr.ErrConfiguration), ErrCodeConfig},
		{"authentication", &edr.AuthError{StatusCode: 403, Detail: "access denied"}, ErrCodeAuth},
		{"not found", edr.ErrNotFound, ErrCodeNotFound},
		{"poll timeout", &edr.PollTimeoutError{SearchID: "s1", Attempts: 60}, ErrCodeTimeout},
		{"cancelled", fmt.Errorf("%w: context canceled", edr.ErrCancelled), ErrCodeCancelled},
		{"api 404", &edr.APIError{StatusCode: 404, Message: "unknown repository"}, ErrCodeNotFound},
		{"api 500", &edr.APIError{StatusCode: 500, Message: "internal"}, ErrCodeBackend},
		{"plain", errors.New("connection refused"), ErrCodeBackend},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, codeOf(t, WrapBackendError(tt.err)))
		})
	}
}

func TestWrapBackendErrorNil(t *testing.T) {
	assert.NoError(t, WrapBackendError(nil))
}

func TestWrapBackendErrorPassesThroughCoded(t *testing.T) {
	orig := ErrInvalidInput("activity must be one of: created, deleted")
	assert.Same(t, orig.(*CodedError), WrapBackendError(orig).(*CodedError))
}

func TestWrapBackendErrorPreservesCause(t *testing.T) {
	cause := &edr.PollTimeoutError{SearchID: "s1", Attempts: 60}
	wrapped := WrapBackendError(cause)
	assert.ErrorIs(t, wrapped, edr.ErrPollTimeout)
}

func TestErrNotFoundMessage(t *testing.T) {
	err := ErrNotFound("alert", "ldt:a:1")
	assert.Equal(t, ErrCodeNotFound, codeOf(t, err))
	assert.Contains(t, err.Error(), "alert not found: ldt:a:1")
}
