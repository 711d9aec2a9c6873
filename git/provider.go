package git

import "context"

// Pattern: Strategy -- swap git hosting backend without
// changing the code that drives it.

// Authenticator is the credential lifecycle of a
// provider.
type Authenticator interface {
	// Begin stores token and probes the identity
	// endpoint once. An empty token fails with
	// ErrNotAuthenticated without any network call.
	Begin(ctx context.Context, token string) error
	// IsAuthenticated reports whether Begin succeeded
	// and End has not been called since.
	IsAuthenticated() bool
	// Username is the login resolved by Begin.
	Username() string
	// End clears the credential. Safe to call twice.
	End()
}

// Diagnostics exposes details of the last failed
// request and the backend endpoint in use.
type Diagnostics interface {
	// Name is the backend display name.
	Name() string
	// LastError is the message of the last failure, or
	// empty after a success.
	LastError() string
	// ResponseCode is the HTTP status of the last
	// request, 0 before any request and -1 after a
	// transport failure.
	ResponseCode() int
	// APIBaseURL returns the REST endpoint in use.
	APIBaseURL() string
	// SetAPIBaseURL points the provider at another
	// instance of the same backend.
	SetAPIBaseURL(rawURL string) error
}

// RepositoryService covers repository operations.
type RepositoryService interface {
	ListRepositories(
		ctx context.Context,
		limit int,
	) (Page[Repository], error)
	GetRepository(
		ctx context.Context,
		ref RepoRef,
	) (Repository, error)
	CreateRepository(
		ctx context.Context,
		draft RepositoryDraft,
	) (Repository, error)
	DeleteRepository(ctx context.Context, ref RepoRef) error
	SearchRepositories(
		ctx context.Context,
		query string,
		limit int,
	) (Page[Repository], error)
}

// IssueService covers issues and their comments.
type IssueService interface {
	ListIssues(
		ctx context.Context,
		ref RepoRef,
		state IssueState,
		limit int,
	) (Page[Issue], error)
	GetIssue(
		ctx context.Context,
		ref RepoRef,
		number int,
	) (Issue, error)
	CreateIssue(
		ctx context.Context,
		ref RepoRef,
		title string,
		body string,
	) (Issue, error)
	CreateIssueEx(
		ctx context.Context,
		ref RepoRef,
		draft IssueDraft,
	) (Issue, error)
	CloseIssue(
		ctx context.Context,
		ref RepoRef,
		number int,
	) error
	ReopenIssue(
		ctx context.Context,
		ref RepoRef,
		number int,
	) error
	UpdateIssue(
		ctx context.Context,
		ref RepoRef,
		number int,
		draft IssueDraft,
	) (Issue, error)
	ListComments(
		ctx context.Context,
		ref RepoRef,
		number int,
		limit int,
	) (Page[Comment], error)
	AddComment(
		ctx context.Context,
		ref RepoRef,
		number int,
		body string,
	) (Comment, error)
	EditComment(
		ctx context.Context,
		ref RepoRef,
		number int,
		commentID int64,
		body string,
	) (Comment, error)
	DeleteComment(
		ctx context.Context,
		ref RepoRef,
		number int,
		commentID int64,
	) error
}

// TriageService covers labels, assignees and
// milestones.
type TriageService interface {
	ListLabels(
		ctx context.Context,
		ref RepoRef,
	) ([]Label, error)
	AddLabel(
		ctx context.Context,
		ref RepoRef,
		number int,
		label string,
	) error
	RemoveLabel(
		ctx context.Context,
		ref RepoRef,
		number int,
		label string,
	) error
	ListAssignees(
		ctx context.Context,
		ref RepoRef,
	) ([]User, error)
	AddAssignee(
		ctx context.Context,
		ref RepoRef,
		number int,
		login string,
	) error
	RemoveAssignee(
		ctx context.Context,
		ref RepoRef,
		number int,
		login string,
	) error
	ListMilestones(
		ctx context.Context,
		ref RepoRef,
		state IssueState,
	) ([]Milestone, error)
	SetMilestone(
		ctx context.Context,
		ref RepoRef,
		number int,
		milestone int,
	) error
	ClearMilestone(
		ctx context.Context,
		ref RepoRef,
		number int,
	) error
}

// FileService covers repository file contents. Content
// crosses this interface as plain bytes; transport
// encoding is the backend's business.
type FileService interface {
	GetFile(
		ctx context.Context,
		ref RepoRef,
		path string,
		gitRef string,
	) (File, error)
	CreateFile(
		ctx context.Context,
		ref RepoRef,
		change FileChange,
	) error
	UpdateFile(
		ctx context.Context,
		ref RepoRef,
		change FileChange,
	) error
	DeleteFile(
		ctx context.Context,
		ref RepoRef,
		change FileChange,
	) error
}

// UserService covers user lookups. An empty login means
// the authenticated user.
type UserService interface {
	GetUser(ctx context.Context, login string) (User, error)
}

// Provider is the full contract of a git hosting
// backend. Callers must not issue a second call on the
// same instance before the first returns; the
// implementations serialize to enforce it.
type Provider interface {
	Authenticator
	Diagnostics
	RepositoryService
	IssueService
	TriageService
	FileService
	UserService
}

// GistService is implemented by backends that host
// gists. Discover it with a type assertion.
type GistService interface {
	CreateGist(
		ctx context.Context,
		draft GistDraft,
	) (string, error)
	DeleteGist(ctx context.Context, id string) error
}

// Prober checks a token against a backend identity
// endpoint and returns the login it belongs to.
type Prober interface {
	Probe(ctx context.Context, token string) (string, error)
}

// ProberFunc adapts a plain function to the Prober
// interface.
type ProberFunc func(
	ctx context.Context,
	token string,
) (string, error)

// Probe delegates to the wrapped function. An empty
// token is rejected before the function runs.
func (f ProberFunc) Probe(
	ctx context.Context,
	token string,
) (string, error) {
	if token == "" {
		return "", ErrNotAuthenticated
	}

	return f(ctx, token)
}
