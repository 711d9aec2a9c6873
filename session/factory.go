package session

import (
	"fmt"
	"net/http"

	"github.com/byte4ever/gitlink/git"
	"github.com/byte4ever/gitlink/git/gitee"
	"github.com/byte4ever/gitlink/git/github"
	"github.com/byte4ever/gitlink/git/gitlab"
	"github.com/byte4ever/gitlink/git/simulated"
)

// Options configure a provider built by New.
type Options struct {
	// APIBaseURL overrides the backend REST endpoint.
	APIBaseURL string
	// HTTPClient carries requests. Nil means the shared
	// transport client.
	HTTPClient *http.Client
	// Simulated replaces the backend with an in-memory
	// one that accepts simulated.Token. APIBaseURL and
	// HTTPClient are ignored.
	Simulated bool
}

// New builds an unauthenticated provider for kind.
//
// Pattern: Factory -- one constructor per Kind.
func New(kind Kind, opts Options) (git.Provider, error) {
	const errCtx = "creating provider"

	var (
		p   git.Provider
		err error
	)

	if opts.Simulated && kind.Valid() {
		return simulated.New(kind.DisplayName() + " (simulated)"), nil
	}

	switch kind {
	case GitHub:
		p, err = github.NewProvider(github.Config{
			BaseURL:    opts.APIBaseURL,
			HTTPClient: opts.HTTPClient,
		})
	case GitLab:
		p, err = gitlab.NewProvider(gitlab.Config{
			BaseURL:    opts.APIBaseURL,
			HTTPClient: opts.HTTPClient,
		})
	case Gitee:
		p, err = gitee.NewProvider(gitee.Config{
			BaseURL:    opts.APIBaseURL,
			HTTPClient: opts.HTTPClient,
		})
	default:
		return nil, fmt.Errorf(
			"%s: %w: %q", errCtx, ErrUnknownKind, kind,
		)
	}

	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", errCtx, kind, err)
	}

	return p, nil
}
