package oauthflow

import (
	"fmt"
	"net/netip"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/byte4ever/gitlink/session"
)

// giteeEndpoint is not shipped by x/oauth2.
var giteeEndpoint = oauth2.Endpoint{ //nolint:gochecknoglobals // constant endpoint
	AuthURL:  "https://gitee.com/oauth/authorize",
	TokenURL: "https://gitee.com/oauth/token",
}

// Endpoint returns the authorization server of kind.
func Endpoint(kind session.Kind) oauth2.Endpoint {
	switch kind {
	case session.GitHub:
		return endpoints.GitHub
	case session.GitLab:
		return endpoints.GitLab
	case session.Gitee:
		return giteeEndpoint
	default:
		return oauth2.Endpoint{}
	}
}

// Scopes returns the scopes requested for kind.
func Scopes(kind session.Kind) []string {
	switch kind {
	case session.GitHub:
		return []string{"repo", "user", "gist"}
	case session.GitLab:
		return []string{"api", "read_user"}
	case session.Gitee:
		return []string{"user_info", "projects", "issues", "notes"}
	default:
		return nil
	}
}

// SSID returns the default network name for kind.
func SSID(kind session.Kind) string {
	return fmt.Sprintf("gitlink-%s-auth", kind)
}

// RedirectURL returns the callback URL served on the
// access point.
func RedirectURL(addr netip.Addr) string {
	return "http://" + addr.String() + "/callback"
}
