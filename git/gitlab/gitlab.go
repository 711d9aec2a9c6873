package gitlab

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	gl "gitlab.com/gitlab-org/api/client-go"
	"golang.org/x/time/rate"

	"github.com/byte4ever/gitlink/git"
	"github.com/byte4ever/gitlink/transport"
)

// DefaultBaseURL is the gitlab.com REST endpoint.
const DefaultBaseURL = "https://gitlab.com/api/v4/"

// Config holds the settings needed to create a GitLab
// provider. The credential is supplied later through
// Begin.
type Config struct {
	// BaseURL overrides the REST endpoint. A host
	// without /api/v4 gets it appended.
	BaseURL string
	// HTTPClient carries requests. Nil means a client
	// from transport.NewClient.
	HTTPClient *http.Client
}

var (
	_ git.Provider = (*Provider)(nil)
	_ git.Prober   = (*Provider)(nil)
)

// Provider drives GitLab.
//
// Pattern: Strategy -- implements git.Provider.
type Provider struct {
	git.State

	httpClient *http.Client

	mu       sync.RWMutex
	baseURL  string
	client   *gl.Client
	projects map[string]*gl.Project
}

// NewProvider validates cfg and returns an
// unauthenticated Provider.
func NewProvider(cfg Config) (*Provider, error) {
	const errCtx = "creating gitlab provider"

	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		raw = DefaultBaseURL
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = transport.NewClient(nil, 0)
	}

	p := &Provider{
		httpClient: hc,
		projects:   make(map[string]*gl.Project),
	}

	client, err := p.newClient(raw, "")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	p.baseURL = raw
	p.client = client

	return p, nil
}

// Name returns the backend display name.
func (*Provider) Name() string {
	return "GitLab"
}

// APIBaseURL returns the REST endpoint in use.
func (p *Provider) APIBaseURL() string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.client.BaseURL().String()
}

// SetAPIBaseURL points the provider at another GitLab
// instance. The held credential is kept and the project
// cache dropped.
func (p *Provider) SetAPIBaseURL(rawURL string) error {
	const errCtx = "setting gitlab api url"

	defer p.Serialize()()

	var token string
	if p.IsAuthenticated() {
		token, _ = p.Token()
	}

	client, err := p.newClient(rawURL, token)
	if err != nil {
		return p.Fail(fmt.Errorf("%s: %w", errCtx, err))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.baseURL = rawURL
	p.client = client
	p.projects = make(map[string]*gl.Project)

	return nil
}

// Begin stores token after probing GET /user with it.
func (p *Provider) Begin(
	ctx context.Context,
	token string,
) error {
	const errCtx = "authenticating with gitlab"

	defer p.Serialize()()

	p.reset()

	if token == "" {
		return p.Fail(fmt.Errorf(
			"%s: %w", errCtx, git.ErrNotAuthenticated,
		))
	}

	client, err := p.newClient(p.currentBaseURL(), token)
	if err != nil {
		return p.Fail(fmt.Errorf("%s: %w", errCtx, err))
	}

	login, err := p.probe(ctx, client)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	p.mu.Lock()
	p.client = client
	p.mu.Unlock()

	p.Authenticate(token, login)

	return nil
}

// Probe checks token against GET /user without
// touching the session.
func (p *Provider) Probe(
	ctx context.Context,
	token string,
) (string, error) {
	const errCtx = "probing gitlab token"

	if token == "" {
		return "", fmt.Errorf(
			"%s: %w", errCtx, git.ErrNotAuthenticated,
		)
	}

	defer p.Serialize()()

	client, err := p.newClient(p.currentBaseURL(), token)
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	login, err := p.probe(ctx, client)
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	return login, nil
}

// End drops the credential and the project cache. Safe
// to call twice.
func (p *Provider) End() {
	defer p.Serialize()()

	p.reset()
}

func (p *Provider) reset() {
	p.Clear()

	client, err := p.newClient(p.currentBaseURL(), "")

	p.mu.Lock()
	defer p.mu.Unlock()

	if err == nil {
		p.client = client
	}

	p.projects = make(map[string]*gl.Project)
}

func (p *Provider) probe(
	ctx context.Context,
	client *gl.Client,
) (string, error) {
	user, resp, err := client.Users.CurrentUser(gl.WithContext(ctx))
	if err := p.record(resp, err); err != nil {
		return "", err
	}

	if user == nil || user.Username == "" {
		return "", p.Fail(fmt.Errorf(
			"identity probe returned no username: %w",
			git.ErrMalformedResponse,
		))
	}

	return user.Username, nil
}

// session returns the authenticated client after the
// local precondition checks.
func (p *Provider) session(ref *git.RepoRef) (*gl.Client, error) {
	if _, err := p.Token(); err != nil {
		return nil, err
	}

	if ref != nil {
		if err := ref.Validate(); err != nil {
			return nil, p.Fail(err)
		}
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.client, nil
}

// resolve maps owner/name to the GitLab project. A
// lookup that fails or yields no id ends with
// git.ErrProjectNotFound so callers never send the
// dependent request.
func (p *Provider) resolve(
	ctx context.Context,
	client *gl.Client,
	ref git.RepoRef,
) (*gl.Project, error) {
	key := ref.String()

	p.mu.RLock()
	project, ok := p.projects[key]
	p.mu.RUnlock()

	if ok {
		return project, nil
	}

	project, resp, err := client.Projects.GetProject(
		key, nil, gl.WithContext(ctx),
	)
	if err := p.record(resp, err); err != nil {
		return nil, p.Fail(fmt.Errorf(
			"resolving %q: %w: %w",
			key, git.ErrProjectNotFound, err,
		))
	}

	if project == nil || project.ID == 0 {
		return nil, p.Fail(fmt.Errorf(
			"resolving %q: lookup returned no id: %w",
			key, git.ErrProjectNotFound,
		))
	}

	p.mu.Lock()
	p.projects[key] = project
	p.mu.Unlock()

	return project, nil
}

// record stores the outcome of a client call and maps
// failures to git.APIError.
func (p *Provider) record(resp *gl.Response, err error) error {
	code := -1
	if resp != nil && resp.Response != nil {
		code = resp.StatusCode
	}

	if err == nil {
		return p.Record(code, nil)
	}

	var glErr *gl.ErrorResponse
	if errors.As(err, &glErr) {
		body := strings.TrimSpace(string(glErr.Body))
		if body == "" {
			body = glErr.Message
		}

		return p.Record(code, &git.APIError{
			StatusCode: code,
			Body:       body,
		})
	}

	if code >= http.StatusOK && code < http.StatusMultipleChoices {
		return p.Record(code, fmt.Errorf(
			"decoding answer: %w: %w", git.ErrMalformedResponse, err,
		))
	}

	if code > 0 {
		return p.Record(code, &git.APIError{
			StatusCode: code,
			Body:       err.Error(),
		})
	}

	return p.Record(code, err)
}

func (p *Provider) currentBaseURL() string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.baseURL
}

func (p *Provider) newClient(
	rawURL string,
	token string,
) (*gl.Client, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}

	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf(
			"base url %q must be absolute: %w",
			rawURL, git.ErrInvalidInput,
		)
	}

	client, err := gl.NewClient(
		token,
		gl.WithBaseURL(u.String()),
		gl.WithHTTPClient(p.httpClient),
		gl.WithCustomRetryMax(0),
		gl.WithCustomLimiter(rate.NewLimiter(rate.Inf, 0)),
	)
	if err != nil {
		return nil, fmt.Errorf("creating client: %w", err)
	}

	client.UserAgent = transport.UserAgent

	return client, nil
}
