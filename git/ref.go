package git

import (
	"fmt"
	"strings"
)

// RepoRef addresses a repository by owner and name.
// Owner may contain slashes for nested GitLab groups.
type RepoRef struct {
	Owner string
	Name  string
}

// ParseRepoRef splits "owner/name" on its last slash.
func ParseRepoRef(s string) (RepoRef, error) {
	const errCtx = "parsing repository reference"

	s = strings.Trim(strings.TrimSpace(s), "/")

	idx := strings.LastIndex(s, "/")
	if idx <= 0 || idx == len(s)-1 {
		return RepoRef{}, fmt.Errorf(
			"%s: %q is not owner/name: %w",
			errCtx, s, ErrInvalidInput,
		)
	}

	return RepoRef{Owner: s[:idx], Name: s[idx+1:]}, nil
}

// String returns "owner/name".
func (r RepoRef) String() string {
	return r.Owner + "/" + r.Name
}

// Validate fails with ErrInvalidInput when either part
// is empty.
func (r RepoRef) Validate() error {
	if r.Owner == "" || r.Name == "" {
		return fmt.Errorf(
			"repository owner and name must be set: %w",
			ErrInvalidInput,
		)
	}

	return nil
}
