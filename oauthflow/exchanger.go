package oauthflow

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"github.com/byte4ever/gitlink/git/simulated"
)

// Exchanger builds the authorization URL and trades a
// code for an access token.
//
// Pattern: Strategy -- the live OAuth2 client and the
// simulated one are interchangeable.
type Exchanger interface {
	AuthCodeURL(state, verifier string) string
	Exchange(ctx context.Context, code, verifier string) (string, error)
}

// OAuth2 exchanges codes against a real authorization
// server.
type OAuth2 struct {
	Config *oauth2.Config
	// HTTPClient carries the token request. Nil means
	// http.DefaultClient.
	HTTPClient *http.Client
}

// AuthCodeURL returns the provider authorize URL with an
// S256 PKCE challenge.
func (o OAuth2) AuthCodeURL(state, verifier string) string {
	return o.Config.AuthCodeURL(
		state,
		oauth2.S256ChallengeOption(verifier),
	)
}

// Exchange implements Exchanger.
func (o OAuth2) Exchange(
	ctx context.Context,
	code string,
	verifier string,
) (string, error) {
	const errCtx = "exchanging code"

	if o.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, o.HTTPClient)
	}

	tok, err := o.Config.Exchange(
		ctx, code, oauth2.VerifierOption(verifier),
	)
	if err != nil {
		// x/oauth2 reports a missing token as a plain
		// error.
		if strings.Contains(err.Error(), "missing access_token") {
			return "", fmt.Errorf("%s: %w", errCtx, ErrNoToken)
		}

		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	if tok.AccessToken == "" {
		return "", fmt.Errorf("%s: %w", errCtx, ErrNoToken)
	}

	return tok.AccessToken, nil
}

// DemoToken is the token issued by Simulated. The
// simulated backend accepts it.
const DemoToken = simulated.Token

// Simulated completes the flow without any network:
// the authorize URL points straight back at /callback
// and every code exchanges to Token.
type Simulated struct {
	// Token defaults to DemoToken.
	Token string
}

// AuthCodeURL implements Exchanger.
func (Simulated) AuthCodeURL(state, _ string) string {
	return "/callback?" + url.Values{
		"code":  {"simulated"},
		"state": {state},
	}.Encode()
}

// Exchange implements Exchanger.
func (s Simulated) Exchange(
	context.Context,
	string,
	string,
) (string, error) {
	if s.Token == "" {
		return DemoToken, nil
	}

	return s.Token, nil
}
