package git

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// MaxTitleLength bounds issue titles, in runes.
	MaxTitleLength = 256
	// MaxBodyLength bounds issue and comment bodies, in
	// bytes.
	MaxBodyLength = 65536
)

// IssueDraft holds the fields used to create or update
// an issue. Milestone is the backend milestone number;
// zero leaves it unset.
type IssueDraft struct {
	Title     string
	Body      string
	Labels    []string
	Assignees []string
	Milestone int
	// Draft is kept for callers that track it; no
	// backend issue API has drafts and all ignore it.
	Draft bool
}

// Validate checks the draft locally.
func (d IssueDraft) Validate() error {
	const errCtx = "validating issue"

	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf(
			"%s: title must be set: %w",
			errCtx, ErrInvalidInput,
		)
	}

	if n := utf8.RuneCountInString(d.Title); n > MaxTitleLength {
		return fmt.Errorf(
			"%s: title is %d characters, limit is %d: %w",
			errCtx, n, MaxTitleLength, ErrInvalidInput,
		)
	}

	if err := ValidateBody(d.Body); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if d.Milestone < 0 {
		return fmt.Errorf(
			"%s: negative milestone: %w",
			errCtx, ErrInvalidInput,
		)
	}

	return nil
}

// ValidateUpdate checks a draft used as a partial
// update: an empty title leaves the title unchanged.
func (d IssueDraft) ValidateUpdate() error {
	if d.Title == "" {
		d.Title = "unchanged"
	}

	return d.Validate()
}

// ValidateBody bounds an issue or comment body.
func ValidateBody(body string) error {
	if len(body) > MaxBodyLength {
		return fmt.Errorf(
			"body is %d bytes, limit is %d: %w",
			len(body), MaxBodyLength, ErrInvalidInput,
		)
	}

	return nil
}

// ValidateNumber rejects non-positive issue numbers.
func ValidateNumber(number int) error {
	if number <= 0 {
		return fmt.Errorf(
			"issue number must be positive: %w",
			ErrInvalidInput,
		)
	}

	return nil
}

// Validate checks a file change locally. Deletes do not
// carry content.
func (c FileChange) Validate() error {
	const errCtx = "validating file change"

	if strings.Trim(c.Path, "/") == "" {
		return fmt.Errorf(
			"%s: path must be set: %w",
			errCtx, ErrInvalidInput,
		)
	}

	if strings.TrimSpace(c.Message) == "" {
		return fmt.Errorf(
			"%s: commit message must be set: %w",
			errCtx, ErrInvalidInput,
		)
	}

	return nil
}
