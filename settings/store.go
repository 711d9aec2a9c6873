package settings

import (
	"errors"
	"strings"
)

// ErrNotFound is returned by Get when the key holds no
// value.
var ErrNotFound = errors.New("setting not found")

// Store is a flat string key/value store.
type Store interface {
	// Get fails with ErrNotFound when key is unset.
	Get(key string) (string, error)
	Set(key, value string) error
	// Delete removes key. Deleting a missing key is not
	// an error.
	Delete(key string) error
}

// Well-known keys. Per-provider keys are built with
// session.Kind.Key and one of the Suffix constants.
const (
	KeyProvider     = "provider"
	KeyDefaultRepo  = "default_repo"
	KeyOAuthEnabled = "oauth.enabled"

	SuffixToken        = "token"
	SuffixClientID     = "client_id"
	SuffixClientSecret = "client_secret"
	SuffixAPIURL       = "api_url"
	SuffixEnabled      = "enabled"
)

// IsSecret reports whether key holds a credential that
// belongs in the keyring rather than the YAML file.
func IsSecret(key string) bool {
	return strings.HasSuffix(key, "."+SuffixToken) ||
		strings.HasSuffix(key, "."+SuffixClientSecret)
}

// IsToken reports whether key holds a provider access
// token.
func IsToken(key string) bool {
	return strings.HasSuffix(key, "."+SuffixToken)
}

// GetOr returns the value of key, or def when it is
// unset. Other errors are returned as is.
func GetOr(s Store, key, def string) (string, error) {
	v, err := s.Get(key)
	if errors.Is(err, ErrNotFound) {
		return def, nil
	}

	return v, err
}
