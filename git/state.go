package git

import (
	"sync"
)

// State is the per-instance session of a provider: the
// credential, the login it resolved to, and the outcome
// of the last request. Backends embed it.
//
// The zero value is ready to use and unauthenticated.
type State struct {
	// inflight serializes requests on one instance.
	inflight sync.Mutex

	mu            sync.RWMutex
	token         string
	username      string
	authenticated bool
	lastError     string
	responseCode  int
}

// Serialize blocks until no other request runs on this
// instance and returns the release function.
//
//	defer p.Serialize()()
func (s *State) Serialize() func() {
	s.inflight.Lock()

	return s.inflight.Unlock
}

// Authenticate marks the session authenticated. An
// empty token leaves it cleared instead, so the session
// is never authenticated without a credential.
func (s *State) Authenticate(token, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token == "" {
		s.token, s.username, s.authenticated = "", "", false

		return
	}

	s.token = token
	s.username = username
	s.authenticated = true
}

// Clear drops the credential and the last outcome.
func (s *State) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	s.username = ""
	s.authenticated = false
	s.lastError = ""
	s.responseCode = 0
}

// IsAuthenticated reports whether a probed credential
// is held.
func (s *State) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.authenticated
}

// Username is the login resolved when the credential
// was probed.
func (s *State) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.username
}

// Token returns the held credential or
// ErrNotAuthenticated, which is also recorded as the
// last error.
func (s *State) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.authenticated || s.token == "" {
		s.lastError = ErrNotAuthenticated.Error()

		return "", ErrNotAuthenticated
	}

	return s.token, nil
}

// LastError is the message of the last failure.
func (s *State) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.lastError
}

// ResponseCode is the HTTP status of the last request,
// or -1 after a transport failure.
func (s *State) ResponseCode() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.responseCode
}

// Record stores the outcome of a request and returns
// err unchanged. A nil err clears the last error.
func (s *State) Record(code int, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.responseCode = code

	if err == nil {
		s.lastError = ""

		return nil
	}

	s.lastError = err.Error()

	return err
}

// Fail records a failure that happened without a
// request and returns err unchanged.
func (s *State) Fail(err error) error {
	if err == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastError = err.Error()

	return err
}
