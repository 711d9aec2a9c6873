package oauthflow

import "errors"

// Failure codes, reported in /error?error= and in
// Error.Code.
const (
	CodeAccessDenied          = "access_denied"
	CodeNoCode                = "no_code"
	CodeInvalidState          = "invalid_state"
	CodeExchangeFailed        = "exchange_failed"
	CodeNoToken               = "no_token"
	CodeTokenValidationFailed = "token_validation_failed"
	CodePersistFailed         = "persist_failed"
)

// ErrNoToken is returned by an Exchanger when the token
// response carried no access token.
var ErrNoToken = errors.New("token response has no access token")

// ErrNotConfigured is returned by New when neither client
// credentials nor an Exchanger are given.
var ErrNotConfigured = errors.New("oauth client id not configured")

// Error ends one authorization attempt.
type Error struct {
	Code string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return "oauth: " + e.Code
	}

	return "oauth: " + e.Code + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the failure code carried by err, or ""
// when err is not an *Error.
func CodeOf(err error) string {
	var oe *Error
	if errors.As(err, &oe) {
		return oe.Code
	}

	return ""
}

var descriptions = map[string]string{ //nolint:gochecknoglobals // read-only table
	CodeAccessDenied:            "You cancelled the authorization.",
	CodeNoCode:                  "The provider did not return an authorization code.",
	CodeInvalidState:            "The authorization link expired or was already used.",
	CodeExchangeFailed:          "The authorization code could not be exchanged for a token.",
	CodeNoToken:                 "The provider returned no access token.",
	CodeTokenValidationFailed:   "The token was rejected by the provider.",
	CodePersistFailed:           "The token could not be saved on the device.",
	"invalid_request":           "Invalid request parameters.",
	"unauthorized_client":       "This device is not allowed to request authorization.",
	"unsupported_response_type": "Unsupported response type.",
	"invalid_scope":             "Invalid scope requested.",
}

// Describe returns a human description of code.
func Describe(code string) string {
	if d, ok := descriptions[code]; ok {
		return d
	}

	return "An unknown error occurred."
}
