package git

import "fmt"

// IssueState filters issues and milestones.
type IssueState string

// Issue state filters.
const (
	StateOpen   IssueState = "open"
	StateClosed IssueState = "closed"
	StateAll    IssueState = "all"
)

// Valid reports whether s is a known filter.
func (s IssueState) Valid() bool {
	switch s {
	case StateOpen, StateClosed, StateAll:
		return true
	default:
		return false
	}
}

// Validate fails with ErrInvalidInput for anything but
// open, closed, all or empty, which means open.
func (s IssueState) Validate() error {
	if !s.OrOpen().Valid() {
		return fmt.Errorf(
			"state %q must be open, closed or all: %w",
			string(s), ErrInvalidInput,
		)
	}

	return nil
}

// OrOpen returns s, or StateOpen when s is empty.
func (s IssueState) OrOpen() IssueState {
	if s == "" {
		return StateOpen
	}

	return s
}

// MaxPageSize is the largest result bound accepted by
// every backend.
const MaxPageSize = 100

// DefaultPageSize is used when a caller passes a
// non-positive bound.
const DefaultPageSize = 30

// Page is one bounded slice of a list result. HasMore
// reports that the backend holds further results past
// this page; results are never truncated silently.
type Page[T any] struct {
	Items   []T
	HasMore bool
}

// ClampLimit maps a caller-supplied bound to the range
// every backend accepts.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultPageSize
	case limit > MaxPageSize:
		return MaxPageSize
	default:
		return limit
	}
}
