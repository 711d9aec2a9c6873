package git

import "time"

// Repository is a backend-agnostic repository record.
type Repository struct {
	ID            int64
	Name          string
	FullName      string
	Owner         string
	Description   string
	HTMLURL       string
	CloneURL      string
	SSHURL        string
	DefaultBranch string
	Language      string
	Private       bool
	Stars         int
	Forks         int
	OpenIssues    int
	UpdatedAt     time.Time
}

// Ref returns the owner/name reference of r.
func (r Repository) Ref() RepoRef {
	if ref, err := ParseRepoRef(r.FullName); err == nil {
		return ref
	}

	return RepoRef{Owner: r.Owner, Name: r.Name}
}

// RepositoryDraft holds the fields used to create a
// repository for the authenticated user.
type RepositoryDraft struct {
	Name        string
	Description string
	Private     bool
	// AutoInit creates an initial commit with a README.
	AutoInit bool
}

// Issue is a backend-agnostic issue record. Number is
// the per-repository number users see (the GitLab iid).
type Issue struct {
	ID            int64
	Number        int
	Title         string
	Body          string
	State         string
	Author        string
	HTMLURL       string
	Labels        []string
	Assignees     []string
	Milestone     string
	Comments      int
	IsPullRequest bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Comment is an issue comment (a GitLab note).
type Comment struct {
	ID        int64
	Body      string
	Author    string
	HTMLURL   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Label is a repository label.
type Label struct {
	ID          int64
	Name        string
	Color       string
	Description string
}

// Milestone is a repository milestone. Number is the
// value SetMilestone expects for the same backend.
type Milestone struct {
	ID          int64
	Number      int
	Title       string
	Description string
	State       string
	DueOn       time.Time
}

// User is a backend-agnostic account record.
type User struct {
	ID          int64
	Login       string
	Name        string
	Email       string
	Bio         string
	Location    string
	AvatarURL   string
	HTMLURL     string
	PublicRepos int
	Followers   int
	Following   int
}

// File is a repository file with decoded content. SHA
// is the git blob id on every backend.
type File struct {
	Path    string
	Name    string
	SHA     string
	Size    int
	Content []byte
	HTMLURL string
}

// FileChange describes a file create, update or delete.
// SHA is the blob id of the version being replaced;
// backends that do not need it ignore it.
type FileChange struct {
	Path    string
	Content []byte
	Message string
	Branch  string
	SHA     string
}

// GistDraft holds the fields used to create a
// single-file gist.
type GistDraft struct {
	Description string
	Filename    string
	Content     string
	Public      bool
}
