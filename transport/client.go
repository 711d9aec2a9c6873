package transport

import (
	"net/http"
	"time"
)

const (
	// UserAgent is sent on every outbound request.
	UserAgent = "gitlink/1.0"

	// DefaultTimeout bounds every outbound request.
	DefaultTimeout = 10 * time.Second
)

// NewClient returns an *http.Client with the fixed user
// agent, request logging and the given timeout (zero
// means DefaultTimeout). The client never retries. base
// may be nil.
func NewClient(
	base http.RoundTripper,
	timeout time.Duration,
) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &http.Client{
		Timeout: timeout,
		Transport: &userAgentTransport{
			base: NewLoggingTransport(base),
		},
	}
}

type userAgentTransport struct {
	base http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(
	req *http.Request,
) (*http.Response, error) {
	if req.Header.Get("User-Agent") == UserAgent {
		return t.base.RoundTrip(req)
	}

	// RoundTrippers must not modify the caller's request.
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", UserAgent)

	return t.base.RoundTrip(clone)
}
