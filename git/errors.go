package git

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated is returned before any network
	// call when no credential is held.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrInvalidInput is returned before any network
	// call when arguments fail local validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrMalformedResponse is returned when a response
	// cannot be mapped to a complete record.
	ErrMalformedResponse = errors.New(
		"malformed response",
	)
	// ErrProjectNotFound is returned when an owner/name
	// reference cannot be resolved to a backend project
	// id. No dependent request is issued.
	ErrProjectNotFound = errors.New("project not found")
	// ErrUnsupported is returned for operations a
	// backend has no endpoint for.
	ErrUnsupported = errors.New("unsupported operation")
)

// APIError is a non-2xx answer from a backend.
type APIError struct {
	StatusCode int
	Body       string
}

// Error formats the status and body the way the device
// shows them.
func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// IsNotFound reports whether err is an APIError with
// status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError

	return errors.As(err, &apiErr) &&
		apiErr.StatusCode == 404
}
