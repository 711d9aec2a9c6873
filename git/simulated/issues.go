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

// issueSession checks the credential, ref and number and
// returns the repository and issue.
func (p *Provider) issueSession(
	ref git.RepoRef,
	number int,
) (*repository, *issue, error) {
	if err := p.session(&ref); err != nil {
		return nil, nil, err
	}

	if err := git.ValidateNumber(number); err != nil {
		return nil, nil, p.Fail(err)
	}

	r, err := p.repo(ref)
	if err != nil {
		return nil, nil, err
	}

	for _, is := range r.issues {
		if is.info.Number == number {
			return r, is, nil
		}
	}

	return nil, nil, p.fail(
		http.StatusNotFound, "issue %s#%d not found", ref, number,
	)
}

func (r *repository) snapshotIssue(is *issue) git.Issue {
	out := is.info
	out.Labels = slices.Clone(is.info.Labels)
	out.Assignees = slices.Clone(is.info.Assignees)
	out.Comments = len(is.comments)
	out.Milestone = ""

	for _, m := range r.milestones {
		if m.Number == is.milestone {
			out.Milestone = m.Title
		}
	}

	return out
}

// ListIssues lists issues filtered by state, newest
// first.
func (p *Provider) ListIssues(
	_ context.Context,
	ref git.RepoRef,
	state git.IssueState,
	limit int,
) (git.Page[git.Issue], error) {
	const errCtx = "listing simulated issues"

	defer p.Serialize()()

	if err := p.session(&ref); err != nil {
		return git.Page[git.Issue]{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := state.Validate(); err != nil {
		return git.Page[git.Issue]{},
			p.Fail(fmt.Errorf("%s: %w", errCtx, err))
	}

	r, err := p.repo(ref)
	if err != nil {
		return git.Page[git.Issue]{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	state = state.OrOpen()

	var out []git.Issue

	for i := len(r.issues) - 1; i >= 0; i-- {
		is := r.issues[i]
		if state == git.StateAll || is.info.State == string(state) {
			out = append(out, r.snapshotIssue(is))
		}
	}

	p.ok()

	return bounded(out, limit), nil
}

// GetIssue fetches one issue by number.
func (p *Provider) GetIssue(
	_ context.Context,
	ref git.RepoRef,
	number int,
) (git.Issue, error) {
	const errCtx = "getting simulated issue"

	defer p.Serialize()()

	r, is, err := p.issueSession(ref, number)
	if err != nil {
		return git.Issue{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	p.ok()

	return r.snapshotIssue(is), nil
}

// CreateIssue opens an issue with a title and body.
func (p *Provider) CreateIssue(
	ctx context.Context,
	ref git.RepoRef,
	title string,
	body string,
) (git.Issue, error) {
	return p.CreateIssueEx(ctx, ref, git.IssueDraft{
		Title: title,
		Body:  body,
	})
}

// CreateIssueEx opens an issue from a draft. Unknown
// labels are created on the fly.
func (p *Provider) CreateIssueEx(
	_ context.Context,
	ref git.RepoRef,
	draft git.IssueDraft,
) (git.Issue, error) {
	const errCtx = "creating simulated issue"

	defer p.Serialize()()

	if err := p.session(&ref); err != nil {
		return git.Issue{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := draft.Validate(); err != nil {
		return git.Issue{}, p.Fail(fmt.Errorf("%s: %w", errCtx, err))
	}

	r, err := p.repo(ref)
	if err != nil {
		return git.Issue{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	if draft.Milestone > 0 && !r.hasMilestone(draft.Milestone) {
		return git.Issue{}, fmt.Errorf("%s: %w", errCtx, p.fail(
			http.StatusNotFound, "milestone %d not found", draft.Milestone,
		))
	}

	now := time.Now().UTC()
	number := len(r.issues) + 1

	is := &issue{
		info: git.Issue{
			ID:        p.id(),
			Number:    number,
			Title:     draft.Title,
			Body:      draft.Body,
			State:     string(git.StateOpen),
			Author:    Login,
			HTMLURL:   fmt.Sprintf("%s/issues/%d", r.info.HTMLURL, number),
			Assignees: slices.Clone(draft.Assignees),
			CreatedAt: now,
			UpdatedAt: now,
		},
		milestone: draft.Milestone,
	}

	for _, name := range draft.Labels {
		is.info.Labels = append(is.info.Labels, r.label(name, p.id()).Name)
	}

	r.issues = append(r.issues, is)

	_ = p.Record(http.StatusCreated, nil)

	return r.snapshotIssue(is), nil
}

// CloseIssue closes an issue.
func (p *Provider) CloseIssue(
	_ context.Context,
	ref git.RepoRef,
	number int,
) error {
	return p.setState(ref, number, git.StateClosed, "closing simulated issue")
}

// ReopenIssue reopens an issue.
func (p *Provider) ReopenIssue(
	_ context.Context,
	ref git.RepoRef,
	number int,
) error {
	return p.setState(ref, number, git.StateOpen, "reopening simulated issue")
}

func (p *Provider) setState(
	ref git.RepoRef,
	number int,
	state git.IssueState,
	errCtx string,
) error {
	defer p.Serialize()()

	_, is, err := p.issueSession(ref, number)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	is.info.State = string(state)
	is.info.UpdatedAt = time.Now().UTC()

	p.ok()

	return nil
}

// UpdateIssue applies the set fields of draft. Nil
// label and assignee lists are left unchanged.
func (p *Provider) UpdateIssue(
	_ context.Context,
	ref git.RepoRef,
	number int,
	draft git.IssueDraft,
) (git.Issue, error) {
	const errCtx = "updating simulated issue"

	defer p.Serialize()()

	if err := p.session(&ref); err != nil {
		return git.Issue{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := draft.ValidateUpdate(); err != nil {
		return git.Issue{}, p.Fail(fmt.Errorf("%s: %w", errCtx, err))
	}

	r, is, err := p.issueSession(ref, number)
	if err != nil {
		return git.Issue{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	if draft.Milestone > 0 && !r.hasMilestone(draft.Milestone) {
		return git.Issue{}, fmt.Errorf("%s: %w", errCtx, p.fail(
			http.StatusNotFound, "milestone %d not found", draft.Milestone,
		))
	}

	if draft.Title != "" {
		is.info.Title = draft.Title
	}

	if draft.Body != "" {
		is.info.Body = draft.Body
	}

	if draft.Labels != nil {
		is.info.Labels = is.info.Labels[:0]

		for _, name := range draft.Labels {
			is.info.Labels = append(is.info.Labels, r.label(name, p.id()).Name)
		}
	}

	if draft.Assignees != nil {
		is.info.Assignees = slices.Clone(draft.Assignees)
	}

	if draft.Milestone > 0 {
		is.milestone = draft.Milestone
	}

	is.info.UpdatedAt = time.Now().UTC()

	p.ok()

	return r.snapshotIssue(is), nil
}

// ListComments lists issue comments, oldest first.
func (p *Provider) ListComments(
	_ context.Context,
	ref git.RepoRef,
	number int,
	limit int,
) (git.Page[git.Comment], error) {
	const errCtx = "listing simulated comments"

	defer p.Serialize()()

	_, is, err := p.issueSession(ref, number)
	if err != nil {
		return git.Page[git.Comment]{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	p.ok()

	return bounded(slices.Clone(is.comments), limit), nil
}

// AddComment comments on an issue.
func (p *Provider) AddComment(
	_ context.Context,
	ref git.RepoRef,
	number int,
	body string,
) (git.Comment, error) {
	const errCtx = "adding simulated comment"

	defer p.Serialize()()

	if err := validateComment(body); err != nil {
		return git.Comment{}, p.Fail(fmt.Errorf("%s: %w", errCtx, err))
	}

	_, is, err := p.issueSession(ref, number)
	if err != nil {
		return git.Comment{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	now := time.Now().UTC()
	id := p.id()

	c := git.Comment{
		ID:        id,
		Body:      body,
		Author:    Login,
		HTMLURL:   fmt.Sprintf("%s#comment-%d", is.info.HTMLURL, id),
		CreatedAt: now,
		UpdatedAt: now,
	}

	is.comments = append(is.comments, c)

	_ = p.Record(http.StatusCreated, nil)

	return c, nil
}

// EditComment replaces a comment body.
func (p *Provider) EditComment(
	_ context.Context,
	ref git.RepoRef,
	number int,
	commentID int64,
	body string,
) (git.Comment, error) {
	const errCtx = "editing simulated comment"

	defer p.Serialize()()

	if err := validateComment(body); err != nil {
		return git.Comment{}, p.Fail(fmt.Errorf("%s: %w", errCtx, err))
	}

	_, is, err := p.issueSession(ref, number)
	if err != nil {
		return git.Comment{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	i, err := p.comment(is, commentID)
	if err != nil {
		return git.Comment{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	is.comments[i].Body = body
	is.comments[i].UpdatedAt = time.Now().UTC()

	p.ok()

	return is.comments[i], nil
}

// DeleteComment removes a comment.
func (p *Provider) DeleteComment(
	_ context.Context,
	ref git.RepoRef,
	number int,
	commentID int64,
) error {
	const errCtx = "deleting simulated comment"

	defer p.Serialize()()

	_, is, err := p.issueSession(ref, number)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	i, err := p.comment(is, commentID)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	is.comments = slices.Delete(is.comments, i, i+1)

	_ = p.Record(http.StatusNoContent, nil)

	return nil
}

func (p *Provider) comment(is *issue, id int64) (int, error) {
	i := slices.IndexFunc(is.comments, func(c git.Comment) bool {
		return c.ID == id
	})
	if i < 0 {
		return 0, p.fail(http.StatusNotFound, "comment %d not found", id)
	}

	return i, nil
}

func validateComment(body string) error {
	if strings.TrimSpace(body) == "" {
		return fmt.Errorf("comment body must be set: %w", git.ErrInvalidInput)
	}

	return git.ValidateBody(body)
}
