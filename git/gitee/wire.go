package gitee

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	json "github.com/goccy/go-json"

	"github.com/byte4ever/gitlink/git"
)

// number accepts a JSON number or a numeric string.
// Gitee sends both depending on the endpoint.
type number int

func (n *number) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*n = 0

		return nil
	}

	v, err := strconv.Atoi(string(data))
	if err != nil {
		return fmt.Errorf(
			"number %q is not an integer: %w",
			data, git.ErrMalformedResponse,
		)
	}

	*n = number(v)

	return nil
}

type geUser struct {
	ID          int64  `json:"id"`
	Login       string `json:"login"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Bio         string `json:"bio"`
	AvatarURL   string `json:"avatar_url"`
	HTMLURL     string `json:"html_url"`
	PublicRepos int    `json:"public_repos"`
	Followers   int    `json:"followers"`
	Following   int    `json:"following"`
}

type geNamespace struct {
	Path string `json:"path"`
}

type geRepo struct {
	ID              int64       `json:"id"`
	Name            string      `json:"name"`
	FullName        string      `json:"full_name"`
	Owner           geUser      `json:"owner"`
	Namespace       geNamespace `json:"namespace"`
	Description     string      `json:"description"`
	HTMLURL         string      `json:"html_url"`
	SSHURL          string      `json:"ssh_url"`
	CloneURL        string      `json:"clone_url"`
	DefaultBranch   string      `json:"default_branch"`
	Language        string      `json:"language"`
	Private         bool        `json:"private"`
	StargazersCount int         `json:"stargazers_count"`
	ForksCount      int         `json:"forks_count"`
	OpenIssuesCount int         `json:"open_issues_count"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

type geLabel struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Color       string `json:"color"`
	Description string `json:"description"`
}

type geMilestone struct {
	ID          int64     `json:"id"`
	Number      number    `json:"number"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	State       string    `json:"state"`
	DueOn       string    `json:"due_on"`
}

type geIssue struct {
	ID          int64           `json:"id"`
	Number      number          `json:"number"`
	Title       string          `json:"title"`
	Body        string          `json:"body"`
	State       string          `json:"state"`
	User        geUser          `json:"user"`
	HTMLURL     string          `json:"html_url"`
	Labels      []geLabel       `json:"labels"`
	Assignee    *geUser         `json:"assignee"`
	Assignees   []geUser        `json:"assignees"`
	Milestone   *geMilestone    `json:"milestone"`
	Comments    int             `json:"comments"`
	PullRequest json.RawMessage `json:"pull_request"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type geComment struct {
	ID        int64     `json:"id"`
	Body      string    `json:"body"`
	User      geUser    `json:"user"`
	HTMLURL   string    `json:"html_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type geContent struct {
	Type     string `json:"type"`
	Encoding string `json:"encoding"`
	Size     int    `json:"size"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	Content  string `json:"content"`
	SHA      string `json:"sha"`
	HTMLURL  string `json:"html_url"`
}

type geSearch struct {
	TotalCount int      `json:"total_count"`
	Items      []geRepo `json:"items"`
}

type repoBody struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Private     bool   `json:"private"`
	AutoInit    bool   `json:"auto_init"`
}

type issueBody struct {
	Title     string  `json:"title,omitempty"`
	Body      string  `json:"body,omitempty"`
	State     string  `json:"state,omitempty"`
	Labels    *string `json:"labels,omitempty"`
	Assignee  *string `json:"assignee,omitempty"`
	Milestone *int    `json:"milestone,omitempty"`
}

type commentBody struct {
	Body string `json:"body"`
}

type contentBody struct {
	Content string `json:"content,omitempty"`
	Message string `json:"message"`
	Branch  string `json:"branch,omitempty"`
	SHA     string `json:"sha,omitempty"`
}

func malformed(what string) error {
	return fmt.Errorf(
		"%s without id: %w", what, git.ErrMalformedResponse,
	)
}

func (r geRepo) toRepository() (git.Repository, error) {
	if r.ID == 0 || r.Name == "" {
		return git.Repository{}, malformed("repository")
	}

	owner := r.Owner.Login
	if owner == "" {
		owner = r.Namespace.Path
	}

	return git.Repository{
		ID:            r.ID,
		Name:          r.Name,
		FullName:      r.FullName,
		Owner:         owner,
		Description:   r.Description,
		HTMLURL:       r.HTMLURL,
		CloneURL:      r.CloneURL,
		SSHURL:        r.SSHURL,
		DefaultBranch: r.DefaultBranch,
		Language:      r.Language,
		Private:       r.Private,
		Stars:         r.StargazersCount,
		Forks:         r.ForksCount,
		OpenIssues:    r.OpenIssuesCount,
		UpdatedAt:     r.UpdatedAt,
	}, nil
}

func (u geUser) toUser() (git.User, error) {
	if u.Login == "" {
		return git.User{}, malformed("user")
	}

	return git.User{
		ID:          u.ID,
		Login:       u.Login,
		Name:        u.Name,
		Email:       u.Email,
		Bio:         u.Bio,
		AvatarURL:   u.AvatarURL,
		HTMLURL:     u.HTMLURL,
		PublicRepos: u.PublicRepos,
		Followers:   u.Followers,
		Following:   u.Following,
	}, nil
}

// assigneeLogins merges the single assignee field with
// the assignees list, without duplicates.
func (i geIssue) assigneeLogins() []string {
	logins := make([]string, 0, len(i.Assignees)+1)
	seen := make(map[string]bool, len(i.Assignees)+1)

	add := func(u geUser) {
		if u.Login == "" || seen[u.Login] {
			return
		}

		seen[u.Login] = true
		logins = append(logins, u.Login)
	}

	if i.Assignee != nil {
		add(*i.Assignee)
	}

	for _, u := range i.Assignees {
		add(u)
	}

	return logins
}

func (i geIssue) toIssue() (git.Issue, error) {
	if i.Number == 0 {
		return git.Issue{}, malformed("issue")
	}

	labels := make([]string, 0, len(i.Labels))
	for _, l := range i.Labels {
		labels = append(labels, l.Name)
	}

	var milestone string
	if i.Milestone != nil {
		milestone = i.Milestone.Title
	}

	pr := len(i.PullRequest) > 0 &&
		string(i.PullRequest) != "null"

	return git.Issue{
		ID:            i.ID,
		Number:        int(i.Number),
		Title:         i.Title,
		Body:          i.Body,
		State:         i.State,
		Author:        i.User.Login,
		HTMLURL:       i.HTMLURL,
		Labels:        labels,
		Assignees:     i.assigneeLogins(),
		Milestone:     milestone,
		Comments:      i.Comments,
		IsPullRequest: pr,
		CreatedAt:     i.CreatedAt,
		UpdatedAt:     i.UpdatedAt,
	}, nil
}

func (c geComment) toComment() (git.Comment, error) {
	if c.ID == 0 {
		return git.Comment{}, malformed("comment")
	}

	return git.Comment{
		ID:        c.ID,
		Body:      c.Body,
		Author:    c.User.Login,
		HTMLURL:   c.HTMLURL,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}, nil
}

func (l geLabel) toLabel() (git.Label, error) {
	if l.Name == "" {
		return git.Label{}, malformed("label")
	}

	return git.Label{
		ID:          l.ID,
		Name:        l.Name,
		Color:       l.Color,
		Description: l.Description,
	}, nil
}

func (m geMilestone) toMilestone() (git.Milestone, error) {
	if m.Number == 0 {
		return git.Milestone{}, malformed("milestone")
	}

	due, err := parseDue(m.DueOn)
	if err != nil {
		return git.Milestone{}, err
	}

	return git.Milestone{
		ID:          m.ID,
		Number:      int(m.Number),
		Title:       m.Title,
		Description: m.Description,
		State:       m.State,
		DueOn:       due,
	}, nil
}

// parseDue accepts a date or a full timestamp.
func parseDue(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}

	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf(
		"milestone due date %q: %w", s, git.ErrMalformedResponse,
	)
}

func mapAll[In any, Out any](
	in []In,
	conv func(In) (Out, error),
) ([]Out, error) {
	out := make([]Out, 0, len(in))

	for _, v := range in {
		o, err := conv(v)
		if err != nil {
			return nil, err
		}

		out = append(out, o)
	}

	return out, nil
}
