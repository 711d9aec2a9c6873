package gitee

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/byte4ever/gitlink/git"
)

// ListIssues lists repository issues filtered by state.
func (p *Provider) ListIssues(
	ctx context.Context,
	ref git.RepoRef,
	state git.IssueState,
	limit int,
) (git.Page[git.Issue], error) {
	const errCtx = "listing gitee issues"

	defer p.Serialize()()

	if _, err := p.session(&ref); err != nil {
		return git.Page[git.Issue]{},
			fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := state.Validate(); err != nil {
		return git.Page[git.Issue]{},
			p.Fail(fmt.Errorf("%s: %w", errCtx, err))
	}

	limit = git.ClampLimit(limit)

	query := pageQuery(limit)
	query.Set("state", string(state.OrOpen()))

	var issues []geIssue

	header, err := p.do(ctx, request{
		method: http.MethodGet,
		path:   repoPath(ref, "issues"),
		query:  query,
	}, &issues)
	if err != nil {
		return git.Page[git.Issue]{},
			fmt.Errorf("%s: %w", errCtx, err)
	}

	items, err := mapAll(issues, geIssue.toIssue)
	if err != nil {
		return git.Page[git.Issue]{},
			p.Fail(fmt.Errorf("%s: %w", errCtx, err))
	}

	return git.Page[git.Issue]{
		Items:   items,
		HasMore: hasMore(header, len(issues), limit),
	}, nil
}

// GetIssue fetches one issue by number.
func (p *Provider) GetIssue(
	ctx context.Context,
	ref git.RepoRef,
	number int,
) (git.Issue, error) {
	const errCtx = "getting gitee issue"

	defer p.Serialize()()

	if err := p.issueSession(&ref, number); err != nil {
		return git.Issue{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	return p.issueCall(ctx, errCtx, request{
		method: http.MethodGet,
		path:   issuePath(ref, number),
	})
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

// CreateIssueEx opens an issue with labels, assignee
// and milestone. Gitee issues carry one assignee; the
// first login of the draft is used.
func (p *Provider) CreateIssueEx(
	ctx context.Context,
	ref git.RepoRef,
	draft git.IssueDraft,
) (git.Issue, error) {
	const errCtx = "creating gitee issue"

	defer p.Serialize()()

	if _, err := p.session(&ref); err != nil {
		return git.Issue{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := draft.Validate(); err != nil {
		return git.Issue{},
			p.Fail(fmt.Errorf("%s: %w", errCtx, err))
	}

	return p.issueCall(ctx, errCtx, request{
		method: http.MethodPost,
		path:   repoPath(ref, "issues"),
		body:   issueBodyOf(draft),
	})
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
	const errCtx = "updating gitee issue"

	defer p.Serialize()()

	if err := p.issueSession(&ref, number); err != nil {
		return git.Issue{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := draft.ValidateUpdate(); err != nil {
		return git.Issue{},
			p.Fail(fmt.Errorf("%s: %w", errCtx, err))
	}

	body := issueBodyOf(draft)

	return p.issueCall(ctx, errCtx, request{
		method: http.MethodPatch,
		path:   issuePath(ref, number),
		body:   body,
	})
}

// ListComments lists the comments of an issue.
func (p *Provider) ListComments(
	ctx context.Context,
	ref git.RepoRef,
	number int,
	limit int,
) (git.Page[git.Comment], error) {
	const errCtx = "listing gitee issue comments"

	defer p.Serialize()()

	if err := p.issueSession(&ref, number); err != nil {
		return git.Page[git.Comment]{},
			fmt.Errorf("%s: %w", errCtx, err)
	}

	limit = git.ClampLimit(limit)

	var comments []geComment

	header, err := p.do(ctx, request{
		method: http.MethodGet,
		path:   issuePath(ref, number, "comments"),
		query:  pageQuery(limit),
	}, &comments)
	if err != nil {
		return git.Page[git.Comment]{},
			fmt.Errorf("%s: %w", errCtx, err)
	}

	items, err := mapAll(comments, geComment.toComment)
	if err != nil {
		return git.Page[git.Comment]{},
			p.Fail(fmt.Errorf("%s: %w", errCtx, err))
	}

	return git.Page[git.Comment]{
		Items:   items,
		HasMore: hasMore(header, len(comments), limit),
	}, nil
}

// AddComment comments on an issue.
func (p *Provider) AddComment(
	ctx context.Context,
	ref git.RepoRef,
	number int,
	body string,
) (git.Comment, error) {
	const errCtx = "adding gitee issue comment"

	defer p.Serialize()()

	if err := p.commentSession(&ref, number, body); err != nil {
		return git.Comment{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	return p.commentCall(ctx, errCtx, request{
		method: http.MethodPost,
		path:   issuePath(ref, number, "comments"),
		body:   &commentBody{Body: body},
	})
}

// EditComment replaces the body of a comment. Gitee
// addresses comments by id alone; number is only
// validated.
func (p *Provider) EditComment(
	ctx context.Context,
	ref git.RepoRef,
	number int,
	commentID int64,
	body string,
) (git.Comment, error) {
	const errCtx = "editing gitee issue comment"

	defer p.Serialize()()

	if err := p.commentSession(&ref, number, body); err != nil {
		return git.Comment{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	return p.commentCall(ctx, errCtx, request{
		method: http.MethodPatch,
		path:   commentPath(ref, commentID),
		body:   &commentBody{Body: body},
	})
}

// DeleteComment deletes a comment.
func (p *Provider) DeleteComment(
	ctx context.Context,
	ref git.RepoRef,
	number int,
	commentID int64,
) error {
	const errCtx = "deleting gitee issue comment"

	defer p.Serialize()()

	if err := p.issueSession(&ref, number); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if _, err := p.do(ctx, request{
		method: http.MethodDelete,
		path:   commentPath(ref, commentID),
	}, nil); err != nil {
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
	errCtx := "setting gitee issue " + state

	defer p.Serialize()()

	if err := p.issueSession(&ref, number); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if _, err := p.do(ctx, request{
		method: http.MethodPatch,
		path:   issuePath(ref, number),
		body:   &issueBody{State: state},
	}, nil); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

func (p *Provider) issueSession(
	ref *git.RepoRef,
	number int,
) error {
	if _, err := p.session(ref); err != nil {
		return err
	}

	if err := git.ValidateNumber(number); err != nil {
		return p.Fail(err)
	}

	return nil
}

func (p *Provider) commentSession(
	ref *git.RepoRef,
	number int,
	body string,
) error {
	if err := p.issueSession(ref, number); err != nil {
		return err
	}

	if strings.TrimSpace(body) == "" {
		return p.Fail(fmt.Errorf(
			"comment body must be set: %w", git.ErrInvalidInput,
		))
	}

	if err := git.ValidateBody(body); err != nil {
		return p.Fail(err)
	}

	return nil
}

func (p *Provider) issueCall(
	ctx context.Context,
	errCtx string,
	req request,
) (git.Issue, error) {
	var issue geIssue

	if _, err := p.do(ctx, req, &issue); err != nil {
		return git.Issue{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	out, err := issue.toIssue()
	if err != nil {
		return git.Issue{},
			p.Fail(fmt.Errorf("%s: %w", errCtx, err))
	}

	return out, nil
}

func (p *Provider) commentCall(
	ctx context.Context,
	errCtx string,
	req request,
) (git.Comment, error) {
	var comment geComment

	if _, err := p.do(ctx, req, &comment); err != nil {
		return git.Comment{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	out, err := comment.toComment()
	if err != nil {
		return git.Comment{},
			p.Fail(fmt.Errorf("%s: %w", errCtx, err))
	}

	return out, nil
}

// issueBodyOf maps the non-empty fields of draft.
func issueBodyOf(draft git.IssueDraft) *issueBody {
	body := &issueBody{
		Title: draft.Title,
		Body:  draft.Body,
	}

	if len(draft.Labels) > 0 {
		labels := strings.Join(draft.Labels, ",")
		body.Labels = &labels
	}

	if len(draft.Assignees) > 0 {
		body.Assignee = &draft.Assignees[0]
	}

	if draft.Milestone > 0 {
		body.Milestone = &draft.Milestone
	}

	return body
}

func issuePath(
	ref git.RepoRef,
	number int,
	extra ...string,
) []string {
	return repoPath(
		ref,
		append([]string{"issues", strconv.Itoa(number)}, extra...)...,
	)
}

func commentPath(ref git.RepoRef, commentID int64) []string {
	return repoPath(
		ref, "issues", "comments",
		strconv.FormatInt(commentID, 10),
	)
}
