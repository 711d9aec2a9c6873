package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/byte4ever/gitlink/git"
)

// ErrNoProvider is returned when no provider has been
// selected yet.
var ErrNoProvider = errors.New("no provider selected")

// Holder owns the single active provider. Selecting a
// new one ends the previous session first.
type Holder struct {
	mu       sync.RWMutex
	kind     Kind
	provider git.Provider
}

// NewHolder returns an empty Holder.
func NewHolder() *Holder {
	return &Holder{}
}

// Select builds a provider for kind with New and makes
// it current.
func (h *Holder) Select(
	kind Kind,
	opts Options,
) (git.Provider, error) {
	const errCtx = "selecting provider"

	p, err := New(kind, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	h.Set(kind, p)

	return p, nil
}

// Set makes p the current provider for kind.
func (h *Holder) Set(kind Kind, p git.Provider) {
	h.mu.Lock()
	previous := h.provider
	h.kind = kind
	h.provider = p
	h.mu.Unlock()

	if previous != nil && previous != p {
		previous.End()
	}

	slog.Debug("provider selected", "kind", kind)
}

// Current returns the active provider or
// ErrNoProvider.
func (h *Holder) Current() (git.Provider, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.provider == nil {
		return nil, ErrNoProvider
	}

	return h.provider, nil
}

// Kind returns the kind of the active provider, or ""
// when none is selected.
func (h *Holder) Kind() Kind {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.kind
}

// Name returns the display name of the active
// provider, or "" when none is selected.
func (h *Holder) Name() string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.provider == nil {
		return ""
	}

	return h.provider.Name()
}

// Clear ends the active session and forgets the
// provider. Safe to call when empty.
func (h *Holder) Clear() {
	h.mu.Lock()
	previous := h.provider
	h.kind = ""
	h.provider = nil
	h.mu.Unlock()

	if previous != nil {
		previous.End()
	}
}
