package session

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownKind is returned for a provider kind that
// has no backend.
var ErrUnknownKind = errors.New("unknown provider kind")

// Kind names a git hosting backend.
type Kind string

// Supported backends.
const (
	GitHub Kind = "github"
	GitLab Kind = "gitlab"
	Gitee  Kind = "gitee"
)

// Kinds lists the supported backends in menu order.
func Kinds() []Kind {
	return []Kind{GitHub, GitLab, Gitee}
}

// ParseKind maps a case-insensitive name to a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}

	return k, nil
}

// Valid reports whether k has a backend.
func (k Kind) Valid() bool {
	switch k {
	case GitHub, GitLab, Gitee:
		return true
	default:
		return false
	}
}

// String returns the lower-case kind name.
func (k Kind) String() string {
	return string(k)
}

// DisplayName returns the name shown to users.
func (k Kind) DisplayName() string {
	switch k {
	case GitHub:
		return "GitHub"
	case GitLab:
		return "GitLab"
	case Gitee:
		return "Gitee"
	default:
		return string(k)
	}
}

// Key returns the settings key "<kind>.<name>".
func (k Kind) Key(name string) string {
	return string(k) + "." + name
}
