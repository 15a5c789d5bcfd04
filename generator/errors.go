package generator

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks missing or empty required input; nothing was attempted.
	ErrValidation = errors.New("validation failed")
	// ErrTimeout means the backend did not reply before the deadline.
	ErrTimeout = errors.New("generation backend timed out")
	// ErrBackendUnavailable means no connection to the backend could be established.
	ErrBackendUnavailable = errors.New("generation backend unavailable; make sure it is running")
	// ErrBackend means the backend was reachable but answered with a failure status.
	ErrBackend = errors.New("generation backend error")
	// ErrMalformedGeneration means the backend replied but the content failed validation.
	ErrMalformedGeneration = errors.New("malformed generation")
)

// BackendStatusError carries the status code of a failed backend reply.
type BackendStatusError struct {
	StatusCode int
	Body       string
}

func (e *BackendStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("generation backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("generation backend returned status %d: %s", e.StatusCode, e.Body)
}

// Is lets errors.Is(err, ErrBackend) match any status error.
func (e *BackendStatusError) Is(target error) bool {
	return target == ErrBackend
}
