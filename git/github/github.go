package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	gh "github.com/google/go-github/v68/github"

	"github.com/byte4ever/gitlink/git"
	"github.com/byte4ever/gitlink/transport"
)

// DefaultBaseURL is the github.com REST endpoint.
const DefaultBaseURL = "https://api.github.com/"

// Config holds the settings needed to create a GitHub
// provider. The credential is supplied later through
// Begin.
type Config struct {
	// BaseURL overrides the REST endpoint. Leave empty
	// for github.com.
	BaseURL string
	// EnterpriseHost is an optional GitHub Enterprise
	// hostname (e.g. "git.corp.example.com"). Ignored
	// when BaseURL is set.
	EnterpriseHost string
	// HTTPClient carries requests. Nil means a client
	// from transport.NewClient.
	HTTPClient *http.Client
}

var (
	_ git.Provider    = (*Provider)(nil)
	_ git.GistService = (*Provider)(nil)
	_ git.Prober      = (*Provider)(nil)
)

// Provider drives GitHub.
//
// Pattern: Strategy -- implements git.Provider.
type Provider struct {
	git.State

	httpClient *http.Client

	mu      sync.RWMutex
	baseURL *url.URL
	client  *gh.Client
}

// NewProvider validates cfg and returns an
// unauthenticated Provider.
func NewProvider(cfg Config) (*Provider, error) {
	const errCtx = "creating github provider"

	raw := cfg.BaseURL
	if raw == "" && cfg.EnterpriseHost != "" {
		raw = "https://" + cfg.EnterpriseHost + "/api/v3/"
	}

	if raw == "" {
		raw = DefaultBaseURL
	}

	base, err := parseBaseURL(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = transport.NewClient(nil, 0)
	}

	p := &Provider{
		httpClient: hc,
		baseURL:    base,
	}
	p.client = p.newClient("")

	return p, nil
}

// Name returns the backend display name.
func (*Provider) Name() string {
	return "GitHub"
}

// APIBaseURL returns the REST endpoint in use.
func (p *Provider) APIBaseURL() string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.baseURL.String()
}

// SetAPIBaseURL points the provider at another GitHub
// instance. The held credential is kept.
func (p *Provider) SetAPIBaseURL(rawURL string) error {
	const errCtx = "setting github api url"

	defer p.Serialize()()

	base, err := parseBaseURL(rawURL)
	if err != nil {
		return p.Fail(fmt.Errorf("%s: %w", errCtx, err))
	}

	token, _ := p.currentToken()

	p.mu.Lock()
	p.baseURL = base
	p.mu.Unlock()

	p.setClient(p.newClient(token))

	return nil
}

// Begin stores token after probing GET /user with it.
func (p *Provider) Begin(
	ctx context.Context,
	token string,
) error {
	const errCtx = "authenticating with github"

	defer p.Serialize()()

	p.Clear()

	if token == "" {
		return p.Fail(fmt.Errorf(
			"%s: %w", errCtx, git.ErrNotAuthenticated,
		))
	}

	client := p.newClient(token)

	login, err := p.probe(ctx, client)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	p.setClient(client)
	p.Authenticate(token, login)

	return nil
}

// Probe checks token against GET /user without
// touching the session.
func (p *Provider) Probe(
	ctx context.Context,
	token string,
) (string, error) {
	const errCtx = "probing github token"

	if token == "" {
		return "", fmt.Errorf(
			"%s: %w", errCtx, git.ErrNotAuthenticated,
		)
	}

	defer p.Serialize()()

	login, err := p.probe(ctx, p.newClient(token))
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	return login, nil
}

// End drops the credential. Safe to call twice.
func (p *Provider) End() {
	defer p.Serialize()()

	p.Clear()
	p.setClient(p.newClient(""))
}

func (p *Provider) probe(
	ctx context.Context,
	client *gh.Client,
) (string, error) {
	user, resp, err := client.Users.Get(ctx, "")
	if err := p.record(resp, err); err != nil {
		return "", err
	}

	if user.GetLogin() == "" {
		return "", p.Fail(fmt.Errorf(
			"identity probe returned no login: %w",
			git.ErrMalformedResponse,
		))
	}

	return user.GetLogin(), nil
}

// session returns the authenticated client after the
// local precondition checks.
func (p *Provider) session(ref *git.RepoRef) (*gh.Client, error) {
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

func (p *Provider) currentToken() (string, bool) {
	if !p.IsAuthenticated() {
		return "", false
	}

	token, err := p.Token()

	return token, err == nil
}

func (p *Provider) setClient(client *gh.Client) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.client = client
}

func (p *Provider) newClient(token string) *gh.Client {
	p.mu.RLock()
	base := *p.baseURL
	p.mu.RUnlock()

	client := gh.NewClient(p.httpClient)
	client.UserAgent = transport.UserAgent
	client.BaseURL = &base

	if token != "" {
		client = client.WithAuthToken(token)
	}

	return client
}

// record stores the outcome of a go-github call and
// maps failures to git.APIError.
func (p *Provider) record(resp *gh.Response, err error) error {
	code := -1
	if resp != nil && resp.Response != nil {
		code = resp.StatusCode
	}

	if err == nil {
		return p.Record(code, nil)
	}

	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) {
		return p.Record(code, &git.APIError{
			StatusCode: code,
			Body:       ghErr.Message,
		})
	}

	if code > 0 {
		return p.Record(code, &git.APIError{
			StatusCode: code,
			Body:       err.Error(),
		})
	}

	return p.Record(code, err)
}

func parseBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf(
			"parsing base url: %w", err,
		)
	}

	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf(
			"base url %q must be absolute: %w",
			raw, git.ErrInvalidInput,
		)
	}

	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	return u, nil
}
