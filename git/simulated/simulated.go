package simulated

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/byte4ever/gitlink/git"
)

const (
	// Token is the only credential the backend accepts.
	Token = "demo-token"
	// Login is the account Token resolves to.
	Login = "demo"
	// BaseURL is reported as the API endpoint.
	BaseURL = "simulated://local"
	// SandboxRepo is the repository every new backend
	// starts with.
	SandboxRepo = Login + "/sandbox"
)

var (
	_ git.Provider = (*Provider)(nil)
	_ git.Prober   = (*Provider)(nil)
)

// Provider is an in-memory git hosting backend. The data
// is guarded by the request serialization of State.
type Provider struct {
	git.State

	name   string
	nextID int64
	repos  map[string]*repository
}

type repository struct {
	info       git.Repository
	issues     []*issue
	labels     []git.Label
	milestones []git.Milestone
	files      map[string][]byte
}

type issue struct {
	info      git.Issue
	milestone int
	comments  []git.Comment
}

// New returns an unauthenticated backend holding the
// sandbox repository. name is reported by Name.
func New(name string) *Provider {
	if name == "" {
		name = "Simulated"
	}

	p := &Provider{
		name:  name,
		repos: map[string]*repository{},
	}

	sandbox := p.addRepository(git.RepositoryDraft{
		Name:        "sandbox",
		Description: "Simulated repository",
		AutoInit:    true,
	})

	for _, label := range []string{"bug", "enhancement"} {
		sandbox.label(label, p.id())
	}

	sandbox.milestones = append(sandbox.milestones, git.Milestone{
		ID:     p.id(),
		Number: 1,
		Title:  "v1",
		State:  string(git.StateOpen),
	})

	return p
}

// Name returns the backend display name.
func (p *Provider) Name() string {
	return p.name
}

// APIBaseURL returns BaseURL.
func (*Provider) APIBaseURL() string {
	return BaseURL
}

// SetAPIBaseURL accepts any URL and ignores it: the
// backend has no endpoint.
func (p *Provider) SetAPIBaseURL(string) error {
	defer p.Serialize()()

	return nil
}

// Begin accepts Token and nothing else.
func (p *Provider) Begin(_ context.Context, token string) error {
	const errCtx = "authenticating with simulated backend"

	defer p.Serialize()()

	p.Clear()

	if token == "" {
		return p.Fail(fmt.Errorf(
			"%s: %w", errCtx, git.ErrNotAuthenticated,
		))
	}

	login, err := p.probe(token)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	p.Authenticate(token, login)

	return nil
}

// Probe checks token without touching the session.
func (p *Provider) Probe(_ context.Context, token string) (string, error) {
	const errCtx = "probing simulated token"

	if token == "" {
		return "", fmt.Errorf(
			"%s: %w", errCtx, git.ErrNotAuthenticated,
		)
	}

	defer p.Serialize()()

	login, err := p.probe(token)
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

func (p *Provider) probe(token string) (string, error) {
	if token != Token {
		return "", p.Record(http.StatusUnauthorized, &git.APIError{
			StatusCode: http.StatusUnauthorized,
			Body:       "bad credentials",
		})
	}

	return Login, p.Record(http.StatusOK, nil)
}

// session runs the local precondition checks.
func (p *Provider) session(ref *git.RepoRef) error {
	if _, err := p.Token(); err != nil {
		return err
	}

	if ref != nil {
		if err := ref.Validate(); err != nil {
			return p.Fail(err)
		}
	}

	return nil
}

// fail records an answer with status code and returns it
// as an APIError.
func (p *Provider) fail(code int, format string, args ...any) error {
	return p.Record(code, &git.APIError{
		StatusCode: code,
		Body:       fmt.Sprintf(format, args...),
	})
}

func (p *Provider) ok() {
	_ = p.Record(http.StatusOK, nil)
}

func (p *Provider) id() int64 {
	p.nextID++

	return p.nextID
}

func repoKey(ref git.RepoRef) string {
	return strings.ToLower(ref.String())
}

func (p *Provider) repo(ref git.RepoRef) (*repository, error) {
	r, ok := p.repos[repoKey(ref)]
	if !ok {
		return nil, p.fail(
			http.StatusNotFound, "repository %s not found", ref,
		)
	}

	return r, nil
}

func (p *Provider) addRepository(draft git.RepositoryDraft) *repository {
	now := time.Now().UTC()
	full := Login + "/" + draft.Name

	r := &repository{
		info: git.Repository{
			ID:            p.id(),
			Name:          draft.Name,
			FullName:      full,
			Owner:         Login,
			Description:   draft.Description,
			HTMLURL:       BaseURL + "/" + full,
			CloneURL:      BaseURL + "/" + full + ".git",
			DefaultBranch: "main",
			Private:       draft.Private,
			UpdatedAt:     now,
		},
		files: map[string][]byte{},
	}

	if draft.AutoInit {
		r.files["README.md"] = []byte("# " + draft.Name + "\n")
	}

	p.repos[strings.ToLower(full)] = r

	return r
}

// snapshot returns the record with derived counters.
func (r *repository) snapshot() git.Repository {
	out := r.info
	out.OpenIssues = 0

	for _, is := range r.issues {
		if is.info.State == string(git.StateOpen) {
			out.OpenIssues++
		}
	}

	return out
}

// label returns the repository label called name,
// creating it when missing.
func (r *repository) label(name string, id int64) git.Label {
	for _, l := range r.labels {
		if strings.EqualFold(l.Name, name) {
			return l
		}
	}

	l := git.Label{ID: id, Name: name, Color: "ededed"}
	r.labels = append(r.labels, l)

	return l
}

// bounded cuts items to the clamped limit.
func bounded[T any](items []T, limit int) git.Page[T] {
	limit = git.ClampLimit(limit)

	if len(items) > limit {
		return git.Page[T]{Items: items[:limit], HasMore: true}
	}

	return git.Page[T]{Items: items}
}

// ListRepositories lists the repositories of Login.
func (p *Provider) ListRepositories(
	_ context.Context,
	limit int,
) (git.Page[git.Repository], error) {
	const errCtx = "listing simulated repositories"

	defer p.Serialize()()

	if err := p.session(nil); err != nil {
		return git.Page[git.Repository]{},
			fmt.Errorf("%s: %w", errCtx, err)
	}

	p.ok()

	return bounded(p.sorted(func(r *repository) bool {
		return r.info.Owner == Login
	}), limit), nil
}

// SearchRepositories matches query against repository
// names and descriptions, case-insensitively.
func (p *Provider) SearchRepositories(
	_ context.Context,
	query string,
	limit int,
) (git.Page[git.Repository], error) {
	const errCtx = "searching simulated repositories"

	defer p.Serialize()()

	if err := p.session(nil); err != nil {
		return git.Page[git.Repository]{},
			fmt.Errorf("%s: %w", errCtx, err)
	}

	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return git.Page[git.Repository]{}, p.Fail(fmt.Errorf(
			"%s: query must be set: %w", errCtx, git.ErrInvalidInput,
		))
	}

	p.ok()

	return bounded(p.sorted(func(r *repository) bool {
		return strings.Contains(strings.ToLower(r.info.FullName), query) ||
			strings.Contains(strings.ToLower(r.info.Description), query)
	}), limit), nil
}

func (p *Provider) sorted(keep func(*repository) bool) []git.Repository {
	out := make([]git.Repository, 0, len(p.repos))

	for _, r := range p.repos {
		if keep(r) {
			out = append(out, r.snapshot())
		}
	}

	slices.SortFunc(out, func(a, b git.Repository) int {
		return strings.Compare(a.FullName, b.FullName)
	})

	return out
}

// GetRepository fetches one repository.
func (p *Provider) GetRepository(
	_ context.Context,
	ref git.RepoRef,
) (git.Repository, error) {
	const errCtx = "getting simulated repository"

	defer p.Serialize()()

	if err := p.session(&ref); err != nil {
		return git.Repository{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	r, err := p.repo(ref)
	if err != nil {
		return git.Repository{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	p.ok()

	return r.snapshot(), nil
}

// CreateRepository creates a repository owned by Login.
func (p *Provider) CreateRepository(
	_ context.Context,
	draft git.RepositoryDraft,
) (git.Repository, error) {
	const errCtx = "creating simulated repository"

	defer p.Serialize()()

	if err := p.session(nil); err != nil {
		return git.Repository{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	draft.Name = strings.TrimSpace(draft.Name)
	if draft.Name == "" || strings.Contains(draft.Name, "/") {
		return git.Repository{}, p.Fail(fmt.Errorf(
			"%s: name %q is not valid: %w",
			errCtx, draft.Name, git.ErrInvalidInput,
		))
	}

	ref := git.RepoRef{Owner: Login, Name: draft.Name}
	if _, exists := p.repos[repoKey(ref)]; exists {
		return git.Repository{}, fmt.Errorf("%s: %w", errCtx, p.fail(
			http.StatusUnprocessableEntity,
			"repository %s already exists", ref,
		))
	}

	r := p.addRepository(draft)

	_ = p.Record(http.StatusCreated, nil)

	return r.snapshot(), nil
}

// DeleteRepository removes a repository.
func (p *Provider) DeleteRepository(
	_ context.Context,
	ref git.RepoRef,
) error {
	const errCtx = "deleting simulated repository"

	defer p.Serialize()()

	if err := p.session(&ref); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if _, err := p.repo(ref); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	delete(p.repos, repoKey(ref))

	_ = p.Record(http.StatusNoContent, nil)

	return nil
}

// GetUser returns Login for an empty login or Login
// itself; any other account does not exist.
func (p *Provider) GetUser(
	_ context.Context,
	login string,
) (git.User, error) {
	const errCtx = "getting simulated user"

	defer p.Serialize()()

	if err := p.session(nil); err != nil {
		return git.User{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	login = strings.TrimSpace(login)
	if login != "" && !strings.EqualFold(login, Login) {
		return git.User{}, fmt.Errorf("%s: %w", errCtx, p.fail(
			http.StatusNotFound, "user %s not found", login,
		))
	}

	p.ok()

	return p.user(), nil
}

func (p *Provider) user() git.User {
	repos := 0

	for _, r := range p.repos {
		if r.info.Owner == Login && !r.info.Private {
			repos++
		}
	}

	return git.User{
		ID:          1,
		Login:       Login,
		Name:        "Demo User",
		HTMLURL:     BaseURL + "/" + Login,
		PublicRepos: repos,
	}
}
