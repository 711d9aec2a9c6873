package transport

import (
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const redacted = "[REDACTED]"

// LoggingTransport wraps an http.RoundTripper and logs
// every request at debug level. Credential headers are
// redacted before they reach the log.
type LoggingTransport struct {
	// Base performs the actual round trip. Nil means
	// http.DefaultTransport.
	Base http.RoundTripper
	// Logger receives the entries. Nil means
	// slog.Default().
	Logger *slog.Logger
}

// NewLoggingTransport wraps base.
func NewLoggingTransport(
	base http.RoundTripper,
) *LoggingTransport {
	return &LoggingTransport{Base: base}
}

// RoundTrip executes one HTTP transaction and logs its
// method, URL, redacted headers, status and duration.
func (t *LoggingTransport) RoundTrip(
	req *http.Request,
) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	logger := t.Logger
	if logger == nil {
		logger = slog.Default()
	}

	start := time.Now()

	resp, err := base.RoundTrip(req)

	attrs := []any{
		"method", req.Method,
		"url", req.URL.Redacted(),
		"headers", RedactHeaders(req.Header),
		"duration", time.Since(start),
	}

	if err != nil {
		logger.Debug(
			"http request failed",
			append(attrs, "error", err)...,
		)

		return nil, err
	}

	logger.Debug(
		"http request",
		append(attrs, "status", resp.StatusCode)...,
	)

	return resp, nil
}

// RedactHeaders returns a flattened copy of h with the
// values of credential headers replaced.
func RedactHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))

	for name, values := range h {
		if isSensitiveHeader(name) {
			out[name] = redacted

			continue
		}

		out[name] = strings.Join(values, ", ")
	}

	return out
}

func isSensitiveHeader(name string) bool {
	switch strings.ToLower(name) {
	case "authorization",
		"private-token",
		"proxy-authorization",
		"cookie",
		"set-cookie",
		"x-api-key":
		return true
	default:
		return false
	}
}
