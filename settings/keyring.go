package settings

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// DefaultService is the keyring service name.
const DefaultService = AppName

// KeyringStore keeps values in the OS credential store
// (Secret Service, Keychain or Credential Manager).
type KeyringStore struct {
	service string
}

// NewKeyringStore returns a keyring-backed store; empty
// service means DefaultService.
func NewKeyringStore(service string) *KeyringStore {
	if service == "" {
		service = DefaultService
	}

	return &KeyringStore{service: service}
}

// Get implements Store.
func (s *KeyringStore) Get(key string) (string, error) {
	const errCtx = "reading secret"

	v, err := keyring.Get(s.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("%s: %q: %w", errCtx, key, ErrNotFound)
	}

	if err != nil {
		return "", fmt.Errorf("%s: %q: %w", errCtx, key, err)
	}

	return v, nil
}

// Set implements Store.
func (s *KeyringStore) Set(key, value string) error {
	if err := keyring.Set(s.service, key, value); err != nil {
		return fmt.Errorf("writing secret: %q: %w", key, err)
	}

	return nil
}

// Delete implements Store.
func (s *KeyringStore) Delete(key string) error {
	err := keyring.Delete(s.service, key)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("deleting secret: %q: %w", key, err)
	}

	return nil
}

// Layered routes secret keys to Secrets and everything
// else to Plain.
type Layered struct {
	Secrets Store
	Plain   Store
	// Route selects the keys sent to Secrets. Nil means
	// IsSecret.
	Route func(key string) bool
}

func (l Layered) pick(key string) Store {
	route := l.Route
	if route == nil {
		route = IsSecret
	}

	if route(key) {
		return l.Secrets
	}

	return l.Plain
}

// Get implements Store.
func (l Layered) Get(key string) (string, error) {
	return l.pick(key).Get(key)
}

// Set implements Store.
func (l Layered) Set(key, value string) error {
	return l.pick(key).Set(key, value)
}

// Delete implements Store.
func (l Layered) Delete(key string) error {
	return l.pick(key).Delete(key)
}
