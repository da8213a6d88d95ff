package edr

import (
	"errors"
	"fmt"
)

// Sentinel errors for classifying search failures with errors.Is.
var (
	// ErrConfiguration signals missing or malformed tenant credentials.
	// Fatal to that tenant's session creation, not to the process.
	ErrConfiguration = errors.New("tenant configuration error")
	// ErrAuthentication signals that the backend rejected the credentials.
	ErrAuthentication = errors.New("authentication rejected")
	// ErrPollTimeout signals that a search exhausted its poll attempt budget
	// before the backend reported completion.
	ErrPollTimeout = errors.New("search poll budget exhausted")
	// ErrCancelled signals caller-initiated cancellation, distinct from a
	// poll timeout.
	ErrCancelled = errors.New("search cancelled")
	// ErrNotFound signals a missing resource on a lookup-by-id operation.
	ErrNotFound = errors.New("resource not found")
)

// APIError is a transport-level error from the backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend API error (status %d): %s", e.StatusCode, e.Message)
}

// AuthError wraps a rejected authentication attempt with the backend's detail.
type AuthError struct {
	StatusCode int
	Detail     string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%v (status %d): %s", ErrAuthentication, e.StatusCode, e.Detail)
}

func (e *AuthError) Unwrap() error { return ErrAuthentication }

// SubmissionError is a terminal submit-time failure (malformed query, quota,
// auth). Never retried.
type SubmissionError struct {
	StatusCode int
	Detail     string
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("search submission rejected (status %d): %s", e.StatusCode, e.Detail)
}

// JobError is a backend-side search failure, carrying the backend's error
// detail. Never retried.
type JobError struct {
	SearchID string
	Detail   string
}

func (e *JobError) Error() string {
	return fmt.Sprintf("search %s failed on the backend: %s", e.SearchID, e.Detail)
}

// PollTimeoutError reports an exhausted attempt budget. Unwraps to
// ErrPollTimeout.
type PollTimeoutError struct {
	SearchID string
	Attempts int
}

func (e *PollTimeoutError) Error() string {
	return fmt.Sprintf("%v: search %s still running after %d polls", ErrPollTimeout, e.SearchID, e.Attempts)
}

func (e *PollTimeoutError) Unwrap() error { return ErrPollTimeout }
