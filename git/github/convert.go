package github

import (
	"fmt"

	gh "github.com/google/go-github/v68/github"

	"github.com/byte4ever/gitlink/git"
)

// The go-github types are the single wire mapping for
// this backend; these functions lift them into the
// normalized records.

func malformed(what string) error {
	return fmt.Errorf(
		"%s without id: %w", what, git.ErrMalformedResponse,
	)
}

func toRepository(r *gh.Repository) (git.Repository, error) {
	if r == nil || r.GetID() == 0 || r.GetName() == "" {
		return git.Repository{}, malformed("repository")
	}

	return git.Repository{
		ID:            r.GetID(),
		Name:          r.GetName(),
		FullName:      r.GetFullName(),
		Owner:         r.GetOwner().GetLogin(),
		Description:   r.GetDescription(),
		HTMLURL:       r.GetHTMLURL(),
		CloneURL:      r.GetCloneURL(),
		SSHURL:        r.GetSSHURL(),
		DefaultBranch: r.GetDefaultBranch(),
		Language:      r.GetLanguage(),
		Private:       r.GetPrivate(),
		Stars:         r.GetStargazersCount(),
		Forks:         r.GetForksCount(),
		OpenIssues:    r.GetOpenIssuesCount(),
		UpdatedAt:     r.GetUpdatedAt().Time,
	}, nil
}


func toIssue(i *gh.Issue) (git.Issue, error) {
	if i == nil || i.GetNumber() == 0 {
		return git.Issue{}, malformed("issue")
	}

	labels := make([]string, 0, len(i.Labels))
	for _, l := range i.Labels {
		labels = append(labels, l.GetName())
	}

	assignees := make([]string, 0, len(i.Assignees))
	for _, a := range i.Assignees {
		assignees = append(assignees, a.GetLogin())
	}

	return git.Issue{
		ID:            i.GetID(),
		Number:        i.GetNumber(),
		Title:         i.GetTitle(),
		Body:          i.GetBody(),
		State:         i.GetState(),
		Author:        i.GetUser().GetLogin(),
		HTMLURL:       i.GetHTMLURL(),
		Labels:        labels,
		Assignees:     assignees,
		Milestone:     i.GetMilestone().GetTitle(),
		Comments:      i.GetComments(),
		IsPullRequest: i.IsPullRequest(),
		CreatedAt:     i.GetCreatedAt().Time,
		UpdatedAt:     i.GetUpdatedAt().Time,
	}, nil
}

func toComment(c *gh.IssueComment) (git.Comment, error) {
	if c == nil || c.GetID() == 0 {
		return git.Comment{}, malformed("comment")
	}

	return git.Comment{
		ID:        c.GetID(),
		Body:      c.GetBody(),
		Author:    c.GetUser().GetLogin(),
		HTMLURL:   c.GetHTMLURL(),
		CreatedAt: c.GetCreatedAt().Time,
		UpdatedAt: c.GetUpdatedAt().Time,
	}, nil
}

func toLabel(l *gh.Label) (git.Label, error) {
	if l == nil || l.GetName() == "" {
		return git.Label{}, malformed("label")
	}

	return git.Label{
		ID:          l.GetID(),
		Name:        l.GetName(),
		Color:       l.GetColor(),
		Description: l.GetDescription(),
	}, nil
}

func toMilestone(m *gh.Milestone) (git.Milestone, error) {
	if m == nil || m.GetNumber() == 0 {
		return git.Milestone{}, malformed("milestone")
	}

	return git.Milestone{
		ID:          m.GetID(),
		Number:      m.GetNumber(),
		Title:       m.GetTitle(),
		Description: m.GetDescription(),
		State:       m.GetState(),
		DueOn:       m.GetDueOn().Time,
	}, nil
}

func toUser(u *gh.User) (git.User, error) {
	if u == nil || u.GetLogin() == "" {
		return git.User{}, malformed("user")
	}

	return git.User{
		ID:          u.GetID(),
		Login:       u.GetLogin(),
		Name:        u.GetName(),
		Email:       u.GetEmail(),
		Bio:         u.GetBio(),
		Location:    u.GetLocation(),
		AvatarURL:   u.GetAvatarURL(),
		HTMLURL:     u.GetHTMLURL(),
		PublicRepos: u.GetPublicRepos(),
		Followers:   u.GetFollowers(),
		Following:   u.GetFollowing(),
	}, nil
}

// mapAll applies conv to every element and fails on the
// first malformed one, so callers never see a partial
// list.
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
