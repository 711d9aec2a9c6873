package gitlab

import (
	"fmt"
	"strings"
	"time"

	gl "gitlab.com/gitlab-org/api/client-go"

	"github.com/byte4ever/gitlink/git"
)

// The client-go types are the single wire mapping for
// this backend; these functions lift them into the
// normalized records.

func malformed(what string) error {
	return fmt.Errorf(
		"%s without id: %w", what, git.ErrMalformedResponse,
	)
}

func timeOf(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}

	return *t
}

func toRepository(p *gl.Project) (git.Repository, error) {
	if p == nil || p.ID == 0 || p.Name == "" {
		return git.Repository{}, malformed("project")
	}

	var owner string
	if p.Namespace != nil {
		owner = p.Namespace.FullPath
	}

	if owner == "" {
		if ref, err := git.ParseRepoRef(p.PathWithNamespace); err == nil {
			owner = ref.Owner
		}
	}

	return git.Repository{
		ID:            p.ID,
		Name:          p.Name,
		FullName:      p.PathWithNamespace,
		Owner:         owner,
		Description:   p.Description,
		HTMLURL:       p.WebURL,
		CloneURL:      p.HTTPURLToRepo,
		SSHURL:        p.SSHURLToRepo,
		DefaultBranch: p.DefaultBranch,
		Private:       p.Visibility == gl.PrivateVisibility,
		Stars:         int(p.StarCount),
		Forks:         int(p.ForksCount),
		OpenIssues:    int(p.OpenIssuesCount),
		UpdatedAt:     timeOf(p.LastActivityAt),
	}, nil
}

func toUser(u *gl.User) (git.User, error) {
	if u == nil || u.ID == 0 || u.Username == "" {
		return git.User{}, malformed("user")
	}

	email := u.Email
	if email == "" {
		email = u.PublicEmail
	}

	return git.User{
		ID:        u.ID,
		Login:     u.Username,
		Name:      u.Name,
		Email:     email,
		Bio:       u.Bio,
		Location:  u.Location,
		AvatarURL: u.AvatarURL,
		HTMLURL:   u.WebURL,
	}, nil
}

func toMember(m *gl.ProjectMember) (git.User, error) {
	if m == nil || m.ID == 0 || m.Username == "" {
		return git.User{}, malformed("member")
	}

	return git.User{
		ID:        m.ID,
		Login:     m.Username,
		Name:      m.Name,
		Email:     m.Email,
		AvatarURL: m.AvatarURL,
		HTMLURL:   m.WebURL,
	}, nil
}

func toIssue(i *gl.Issue) (git.Issue, error) {
	if i == nil || i.IID == 0 {
		return git.Issue{}, malformed("issue")
	}

	assignees := make([]string, 0, len(i.Assignees))
	for _, a := range i.Assignees {
		if a != nil {
			assignees = append(assignees, a.Username)
		}
	}

	labels := []string(i.Labels)
	if labels == nil {
		labels = []string{}
	}

	var author, milestone string

	if i.Author != nil {
		author = i.Author.Username
	}

	if i.Milestone != nil {
		milestone = i.Milestone.Title
	}

	return git.Issue{
		ID:        i.ID,
		Number:    int(i.IID),
		Title:     i.Title,
		Body:      i.Description,
		State:     fromIssueState(i.State),
		Author:    author,
		HTMLURL:   i.WebURL,
		Labels:    labels,
		Assignees: assignees,
		Milestone: milestone,
		Comments:  int(i.UserNotesCount),
		CreatedAt: timeOf(i.CreatedAt),
		UpdatedAt: timeOf(i.UpdatedAt),
	}, nil
}

func toComment(n *gl.Note) (git.Comment, error) {
	if n == nil || n.ID == 0 {
		return git.Comment{}, malformed("note")
	}

	return git.Comment{
		ID:        n.ID,
		Body:      n.Body,
		Author:    n.Author.Username,
		CreatedAt: timeOf(n.CreatedAt),
		UpdatedAt: timeOf(n.UpdatedAt),
	}, nil
}

func toLabel(l *gl.Label) (git.Label, error) {
	if l == nil || l.Name == "" {
		return git.Label{}, malformed("label")
	}

	return git.Label{
		ID:          l.ID,
		Name:        l.Name,
		Color:       strings.TrimPrefix(l.Color, "#"),
		Description: l.Description,
	}, nil
}

// toMilestone sets Number to the global id, which is
// what milestone_id expects on issue updates.
func toMilestone(m *gl.Milestone) (git.Milestone, error) {
	if m == nil || m.ID == 0 {
		return git.Milestone{}, malformed("milestone")
	}

	var due time.Time
	if m.DueDate != nil {
		due = time.Time(*m.DueDate)
	}

	return git.Milestone{
		ID:          m.ID,
		Number:      int(m.ID),
		Title:       m.Title,
		Description: m.Description,
		State:       m.State,
		DueOn:       due,
	}, nil
}

// toIssueState maps the normalized filter to the
// GitLab one; "all" is expressed by omitting it.
func toIssueState(s git.IssueState) *string {
	switch s.OrOpen() {
	case git.StateOpen:
		return gl.Ptr("opened")
	case git.StateClosed:
		return gl.Ptr("closed")
	default:
		return nil
	}
}

func fromIssueState(s string) string {
	if s == "opened" {
		return string(git.StateOpen)
	}

	return s
}

// toMilestoneState maps the normalized filter to the
// GitLab milestone one.
func toMilestoneState(s git.IssueState) *string {
	switch s.OrOpen() {
	case git.StateOpen:
		return gl.Ptr("active")
	case git.StateClosed:
		return gl.Ptr("closed")
	default:
		return nil
	}
}

// listOptions asks for one page of up to limit items.
func listOptions(limit int) gl.ListOptions {
	return gl.ListOptions{PerPage: int64(git.ClampLimit(limit))}
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
