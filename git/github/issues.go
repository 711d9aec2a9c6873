package github

import (
	"context"
	"fmt"

	gh "github.com/google/go-github/v68/github"

	"github.com/byte4ever/gitlink/git"
)

// ListIssues lists issues filtered by state. Pull
// requests are included and flagged.
func (p *Provider) ListIssues(
	ctx context.Context,
	ref git.RepoRef,
	state git.IssueState,
	limit int,
) (git.Page[git.Issue], error) {
	const errCtx = "listing github issues"

	defer p.Serialize()()

	client, err := p.session(&ref)
	if err != nil {
		return git.Page[git.Issue]{},
			fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := state.Validate(); err != nil {
		return git.Page[git.Issue]{},
			p.Fail(fmt.Errorf("%s: %w", errCtx, err))
	}

	issues, resp, err := client.Issues.ListByRepo(
		ctx, ref.Owner, ref.Name,
		&gh.IssueListByRepoOptions{
			State: string(state.OrOpen()),
			ListOptions: gh.ListOptions{
				PerPage: git.ClampLimit(limit),
			},
		},
	)
	if err := p.record(resp, err); err != nil {
		return git.Page[git.Issue]{},
			fmt.Errorf("%s: %w", errCtx, err)
	}

	items, err := mapAll(issues, toIssue)
	if err != nil {
		return git.Page[git.Issue]{},
			p.Fail(fmt.Errorf("%s: %w", errCtx, err))
	}

	return git.Page[git.Issue]{
		Items:   items,
		HasMore: resp.NextPage != 0,
	}, nil
}

// GetIssue fetches one issue by number.
func (p *Provider) GetIssue(
	ctx context.Context,
	ref git.RepoRef,
	number int,
) (git.Issue, error) {
	const errCtx = "getting github issue"

	defer p.Serialize()()

	client, err := p.issueSession(&ref, number)
	if err != nil {
		return git.Issue{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	issue, resp, err := client.Issues.Get(
		ctx, ref.Owner, ref.Name, number,
	)

	return p.issueResult(errCtx, issue, resp, err)
}

// CreateIssue opens an issue with a title and body.
func (p *Provider) CreateIssue(
	ctx context.Context,
	ref git.RepoRef,
	title string,
	body string,
) (git.Issue, error) {
	return p.CreateIssueEx(
		ctx, ref, git.IssueDraft{Title: title, Body: body},
	)
}

// CreateIssueEx opens an issue with labels, assignees
// and milestone. The draft is validated before any
// request.
func (p *Provider) CreateIssueEx(
	ctx context.Context,
	ref git.RepoRef,
	draft git.IssueDraft,
) (git.Issue, error) {
	const errCtx = "creating github issue"

	defer p.Serialize()()

	client, err := p.session(&ref)
	if err != nil {
		return git.Issue{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := draft.Validate(); err != nil {
		return git.Issue{},
			p.Fail(fmt.Errorf("%s: %w", errCtx, err))
	}

	issue, resp, err := client.Issues.Create(
		ctx, ref.Owner, ref.Name, issueRequest(draft),
	)

	return p.issueResult(errCtx, issue, resp, err)
}

// CloseIssue sets the issue state to closed.
func (p *Provider) CloseIssue(
	ctx context.Context,
	ref git.RepoRef,
	number int,
) error {
	return p.setIssueState(ctx, ref, number, "closed")
}

// ReopenIssue sets the issue state to open.
func (p *Provider) ReopenIssue(
	ctx context.Context,
	ref git.RepoRef,
	number int,
) error {
	return p.setIssueState(ctx, ref, number, "open")
}

// UpdateIssue edits the non-empty fields of draft.
func (p *Provider) UpdateIssue(
	ctx context.Context,
	ref git.RepoRef,
	number int,
	draft git.IssueDraft,
) (git.Issue, error) {
	const errCtx = "updating github issue"

	defer p.Serialize()()

	client, err := p.issueSession(&ref, number)
	if err != nil {
		return git.Issue{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := draft.ValidateUpdate(); err != nil {
		return git.Issue{},
			p.Fail(fmt.Errorf("%s: %w", errCtx, err))
	}

	issue, resp, err := client.Issues.Edit(
		ctx, ref.Owner, ref.Name, number,
		issueRequest(draft),
	)

	return p.issueResult(errCtx, issue, resp, err)
}

// ListComments lists the comments of an issue.
func (p *Provider) ListComments(
	ctx context.Context,
	ref git.RepoRef,
	number int,
	limit int,
) (git.Page[git.Comment], error) {
	const errCtx = "listing github issue comments"

	defer p.Serialize()()

	client, err := p.issueSession(&ref, number)
	if err != nil {
		return git.Page[git.Comment]{},
			fmt.Errorf("%s: %w", errCtx, err)
	}

	comments, resp, err := client.Issues.ListComments(
		ctx, ref.Owner, ref.Name, number,
		&gh.IssueListCommentsOptions{
			ListOptions: gh.ListOptions{
				PerPage: git.ClampLimit(limit),
			},
		},
	)
	if err := p.record(resp, err); err != nil {
		return git.Page[git.Comment]{},
			fmt.Errorf("%s: %w", errCtx, err)
	}

	items, err := mapAll(comments, toComment)
	if err != nil {
		return git.Page[git.Comment]{},
			p.Fail(fmt.Errorf("%s: %w", errCtx, err))
	}

	return git.Page[git.Comment]{
		Items:   items,
		HasMore: resp.NextPage != 0,
	}, nil
}

// AddComment comments on an issue.
func (p *Provider) AddComment(
	ctx context.Context,
	ref git.RepoRef,
	number int,
	body string,
) (git.Comment, error) {
	const errCtx = "adding github issue comment"

	defer p.Serialize()()

	client, err := p.commentSession(&ref, number, body)
	if err != nil {
		return git.Comment{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	comment, resp, err := client.Issues.CreateComment(
		ctx, ref.Owner, ref.Name, number,
		&gh.IssueComment{Body: gh.Ptr(body)},
	)

	return p.commentResult(errCtx, comment, resp, err)
}

// EditComment replaces the body of a comment. GitHub
// addresses comments by id alone; number is only
// validated.
func (p *Provider) EditComment(
	ctx context.Context,
	ref git.RepoRef,
	number int,
	commentID int64,
	body string,
) (git.Comment, error) {
	const errCtx = "editing github issue comment"

	defer p.Serialize()()

	client, err := p.commentSession(&ref, number, body)
	if err != nil {
		return git.Comment{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	comment, resp, err := client.Issues.EditComment(
		ctx, ref.Owner, ref.Name, commentID,
		&gh.IssueComment{Body: gh.Ptr(body)},
	)

	return p.commentResult(errCtx, comment, resp, err)
}

// DeleteComment deletes a comment.
func (p *Provider) DeleteComment(
	ctx context.Context,
	ref git.RepoRef,
	number int,
	commentID int64,
) error {
	const errCtx = "deleting github issue comment"

	defer p.Serialize()()

	client, err := p.issueSession(&ref, number)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	resp, err := client.Issues.DeleteComment(
		ctx, ref.Owner, ref.Name, commentID,
	)
	if err := p.record(resp, err); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

func (p *Provider) setIssueState(
	ctx context.Context,
	ref git.RepoRef,
	number int,
	state string,
) error {
	errCtx := "setting github issue " + state

	defer p.Serialize()()

	client, err := p.issueSession(&ref, number)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	_, resp, err := client.Issues.Edit(
		ctx, ref.Owner, ref.Name, number,
		&gh.IssueRequest{State: gh.Ptr(state)},
	)
	if err := p.record(resp, err); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

func (p *Provider) issueSession(
	ref *git.RepoRef,
	number int,
) (*gh.Client, error) {
	client, err := p.session(ref)
	if err != nil {
		return nil, err
	}

	if err := git.ValidateNumber(number); err != nil {
		return nil, p.Fail(err)
	}

	return client, nil
}

func (p *Provider) commentSession(
	ref *git.RepoRef,
	number int,
	body string,
) (*gh.Client, error) {
	client, err := p.issueSession(ref, number)
	if err != nil {
		return nil, err
	}

	if err := git.ValidateBody(body); err != nil {
		return nil, p.Fail(err)
	}

	return client, nil
}

func (p *Provider) issueResult(
	errCtx string,
	issue *gh.Issue,
	resp *gh.Response,
	err error,
) (git.Issue, error) {
	if err := p.record(resp, err); err != nil {
		return git.Issue{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	out, err := toIssue(issue)
	if err != nil {
		return git.Issue{},
			p.Fail(fmt.Errorf("%s: %w", errCtx, err))
	}

	return out, nil
}

func (p *Provider) commentResult(
	errCtx string,
	comment *gh.IssueComment,
	resp *gh.Response,
	err error,
) (git.Comment, error) {
	if err := p.record(resp, err); err != nil {
		return git.Comment{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	out, err := toComment(comment)
	if err != nil {
		return git.Comment{},
			p.Fail(fmt.Errorf("%s: %w", errCtx, err))
	}

	return out, nil
}

// issueRequest maps the non-empty fields of draft.
func issueRequest(draft git.IssueDraft) *gh.IssueRequest {
	req := &gh.IssueRequest{}

	if draft.Title != "" {
		req.Title = gh.Ptr(draft.Title)
	}

	if draft.Body != "" {
		req.Body = gh.Ptr(draft.Body)
	}

	if len(draft.Labels) > 0 {
		req.Labels = &draft.Labels
	}

	if len(draft.Assignees) > 0 {
		req.Assignees = &draft.Assignees
	}

	if draft.Milestone > 0 {
		req.Milestone = gh.Ptr(draft.Milestone)
	}

	return req
}
