package gitee

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/byte4ever/gitlink/git"
	"github.com/byte4ever/gitlink/transport"
)

// DefaultBaseURL is the gitee.com REST endpoint.
const DefaultBaseURL = "https://gitee.com/api/v5"

// Config holds the settings needed to create a Gitee
// provider. The credential is supplied later through
// Begin.
type Config struct {
	// BaseURL overrides the REST endpoint.
	BaseURL string
	// HTTPClient carries requests. Nil means a client
	// from transport.NewClient.
	HTTPClient *http.Client
}

var (
	_ git.Provider = (*Provider)(nil)
	_ git.Prober   = (*Provider)(nil)
)

// Provider drives Gitee.
//
// Pattern: Strategy -- implements git.Provider.
type Provider struct {
	git.State

	httpClient *http.Client

	mu      sync.RWMutex
	baseURL string
}

// request is one outbound call. token overrides the
// session credential when set.
type request struct {
	method string
	path   []string
	query  url.Values
	body   any
	token  string
}

// NewProvider validates cfg and returns an
// unauthenticated Provider.
func NewProvider(cfg Config) (*Provider, error) {
	const errCtx = "creating gitee provider"

	raw := cfg.BaseURL
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

	return &Provider{
		httpClient: hc,
		baseURL:    base,
	}, nil
}

// Name returns the backend display name.
func (*Provider) Name() string {
	return "Gitee"
}

// APIBaseURL returns the REST endpoint in use.
func (p *Provider) APIBaseURL() string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.baseURL
}

// SetAPIBaseURL points the provider at another Gitee
// instance. The held credential is kept.
func (p *Provider) SetAPIBaseURL(rawURL string) error {
	const errCtx = "setting gitee api url"

	defer p.Serialize()()

	base, err := parseBaseURL(rawURL)
	if err != nil {
		return p.Fail(fmt.Errorf("%s: %w", errCtx, err))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.baseURL = base

	return nil
}

// Begin stores token after probing GET /user with it.
func (p *Provider) Begin(
	ctx context.Context,
	token string,
) error {
	const errCtx = "authenticating with gitee"

	defer p.Serialize()()

	p.Clear()

	if token == "" {
		return p.Fail(fmt.Errorf(
			"%s: %w", errCtx, git.ErrNotAuthenticated,
		))
	}

	login, err := p.probe(ctx, token)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	p.Authenticate(token, login)

	return nil
}

// Probe checks token against GET /user without
// touching the session.
func (p *Provider) Probe(
	ctx context.Context,
	token string,
) (string, error) {
	const errCtx = "probing gitee token"

	if token == "" {
		return "", fmt.Errorf(
			"%s: %w", errCtx, git.ErrNotAuthenticated,
		)
	}

	defer p.Serialize()()

	login, err := p.probe(ctx, token)
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	return login, nil
}

// End drops the credential. Safe to call twice.
func (p *Provider) End() {
	defer p.Serialize()()

	p.Clear()
}

func (p *Provider) probe(
	ctx context.Context,
	token string,
) (string, error) {
	var user geUser

	if _, err := p.do(ctx, request{
		method: http.MethodGet,
		path:   []string{"user"},
		token:  token,
	}, &user); err != nil {
		return "", err
	}

	if user.Login == "" {
		return "", p.Fail(fmt.Errorf(
			"identity probe returned no login: %w",
			git.ErrMalformedResponse,
		))
	}

	return user.Login, nil
}

// session runs the local precondition checks and
// returns the credential.
func (p *Provider) session(ref *git.RepoRef) (string, error) {
	token, err := p.Token()
	if err != nil {
		return "", err
	}

	if ref != nil {
		if err := ref.Validate(); err != nil {
			return "", p.Fail(err)
		}
	}

	return token, nil
}

// do sends req and decodes a JSON answer into out when
// out is not nil. Non-2xx answers become git.APIError
// carrying the raw body.
func (p *Provider) do(
	ctx context.Context,
	req request,
	out any,
) (http.Header, error) {
	var body io.Reader

	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return nil, p.Fail(fmt.Errorf(
				"marshal request: %w", err,
			))
		}

		body = bytes.NewReader(payload)
	}

	target := transport.BuildURL(
		p.APIBaseURL(), strings.Join(req.path, "/"), req.query,
	)

	hr, err := http.NewRequestWithContext(
		ctx, req.method, target, body,
	)
	if err != nil {
		return nil, p.Fail(fmt.Errorf(
			"build request: %w", err,
		))
	}

	hr.Header.Set("Accept", "application/json")

	if body != nil {
		hr.Header.Set(
			"Content-Type",
			"application/json; charset=utf-8",
		)
	}

	token := req.token
	if token == "" {
		token, _ = p.Token()
	}

	hr.Header.Set("Authorization", "token "+token)

	resp, err := p.httpClient.Do(hr)
	if err != nil {
		return nil, p.Record(-1, fmt.Errorf(
			"send request: %w", err,
		))
	}

	defer resp.Body.Close() //nolint:errcheck

	rb, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, p.Record(-1, fmt.Errorf(
			"read response: %w", err,
		))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Debug(
			"gitee request failed",
			"method", req.method,
			"status", resp.StatusCode,
		)

		return resp.Header, p.Record(resp.StatusCode, &git.APIError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(rb)),
		})
	}

	p.Record(resp.StatusCode, nil) //nolint:errcheck

	if out == nil {
		return resp.Header, nil
	}

	if err := json.Unmarshal(rb, out); err != nil {
		return resp.Header, p.Fail(fmt.Errorf(
			"decoding %s %s: %w: %w",
			req.method, strings.Join(req.path, "/"),
			git.ErrMalformedResponse, err,
		))
	}

	return resp.Header, nil
}

// hasMore reads the total_page header of a first page
// request and falls back to a full page.
func hasMore(header http.Header, got, limit int) bool {
	if v := header.Get("total_page"); v != "" {
		if pages, err := strconv.Atoi(v); err == nil {
			return pages > 1
		}
	}

	return got >= limit
}

// repoPath returns the repos/owner/name path segments
// followed by extra.
func repoPath(ref git.RepoRef, extra ...string) []string {
	return append(
		[]string{
			"repos",
			transport.FilePath(ref.Owner),
			transport.PathEscape(ref.Name),
		},
		extra...,
	)
}

func parseBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parsing base url: %w", err)
	}

	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf(
			"base url %q must be absolute: %w",
			raw, git.ErrInvalidInput,
		)
	}

	return strings.TrimRight(raw, "/"), nil
}

func pageQuery(limit int) url.Values {
	return url.Values{
		"page":     []string{"1"},
		"per_page": []string{strconv.Itoa(limit)},
	}
}
