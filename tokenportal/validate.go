package tokenportal

import (
	"errors"
	"fmt"
	"strings"

	"github.com/byte4ever/gitlink/git"
)

// ErrInvalidToken is returned for a token whose shape
// matches no known format. It wraps git.ErrInvalidInput.
var ErrInvalidToken = fmt.Errorf("invalid token format: %w", git.ErrInvalidInput)

const minTokenLength = 10

type prefixRule struct {
	prefix string
	minLen int
}

var prefixRules = []prefixRule{ //nolint:gochecknoglobals // read-only table
	{prefix: "ghp_", minLen: 40},
	{prefix: "gho_", minLen: 40},
	{prefix: "ghu_", minLen: 40},
	{prefix: "ghs_", minLen: 40},
	{prefix: "ghr_", minLen: 40},
	{prefix: "github_pat_", minLen: 40},
	{prefix: "glpat-", minLen: 20},
}

// ValidateTokenFormat checks the shape of token without
// any network call. Accepted are known GitHub and GitLab
// prefixes at their minimum length, 40 hex characters
// (classic token) and 32 hex characters (Gitee).
func ValidateTokenFormat(token string) error {
	if len(token) < minTokenLength {
		return fmt.Errorf("%w: too short", ErrInvalidToken)
	}

	for _, rule := range prefixRules {
		if strings.HasPrefix(token, rule.prefix) &&
			len(token) >= rule.minLen {
			return nil
		}
	}

	if (len(token) == 40 || len(token) == 32) && isHex(token) {
		return nil
	}

	return ErrInvalidToken
}

// IsInvalidToken reports whether err came from
// ValidateTokenFormat.
func IsInvalidToken(err error) bool {
	return errors.Is(err, ErrInvalidToken)
}

func isHex(s string) bool {
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}

	return true
}
