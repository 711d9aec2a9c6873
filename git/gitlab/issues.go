package gitlab

import (
	"context"
	"fmt"
	"strings"

	gl "gitlab.com/gitlab-org/api/client-go"

	"github.com/byte4ever/gitlink/git"
)

// ListIssues lists project issues filtered by state.
func (p *Provider) ListIssues(
	ctx context.Context,
	ref git.RepoRef,
	state git.IssueState,
	limit int,
) (git.Page[git.Issue], error) {
	const errCtx = "listing gitlab issues"

	defer p.Serialize()()

	if _, err := p.session(&ref); err != nil {
		return git.Page[git.Issue]{},
			fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := state.Validate(); err != nil {
		return git.Page[git.Issue]{},
			p.Fail(fmt.Errorf("%s: %w", errCtx, err))
	}

	client, project, err := p.projectSession(ctx, ref)
	if err != nil {
		return git.Page[git.Issue]{},
			fmt.Errorf("%s: %w", errCtx, err)
	}

	issues, resp, err := client.Issues.ListProjectIssues(
		project.ID,
		&gl.ListProjectIssuesOptions{
			ListOptions: listOptions(limit),
			State:       toIssueState(state),
		},
		gl.WithContext(ctx),
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

// GetIssue fetches one issue by iid.
func (p *Provider) GetIssue(
	ctx context.Context,
	ref git.RepoRef,
	number int,
) (git.Issue, error) {
	const errCtx = "getting gitlab issue"

	defer p.Serialize()()

	client, project, err := p.issueSession(ctx, ref, number)
	if err != nil {
		return git.Issue{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	issue, resp, err := client.Issues.GetIssue(
		project.ID, int64(number), gl.WithContext(ctx),
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
// and milestone. Assignee logins are resolved to user
// ids first.
func (p *Provider) CreateIssueEx(
	ctx context.Context,
	ref git.RepoRef,
	draft git.IssueDraft,
) (git.Issue, error) {
	const errCtx = "creating gitlab issue"

	defer p.Serialize()()

	client, err := p.session(&ref)
	if err != nil {
		return git.Issue{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := draft.Validate(); err != nil {
		return git.Issue{},
			p.Fail(fmt.Errorf("%s: %w", errCtx, err))
	}

	project, err := p.resolve(ctx, client, ref)
	if err != nil {
		return git.Issue{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	fields, err := p.issueFields(ctx, client, draft)
	if err != nil {
		return git.Issue{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	issue, resp, err := client.Issues.CreateIssue(
		project.ID,
		&gl.CreateIssueOptions{
			Title:       fields.title,
			Description: fields.description,
			Labels:      fields.labels,
			AssigneeIDs: fields.assignees,
			MilestoneID: fields.milestone,
		},
		gl.WithContext(ctx),
	)

	return p.issueResult(errCtx, issue, resp, err)
}

// CloseIssue closes an issue.
func (p *Provider) CloseIssue(
	ctx context.Context,
	ref git.RepoRef,
	number int,
) error {
	return p.setIssueState(ctx, ref, number, "close")
}

// ReopenIssue reopens an issue.
func (p *Provider) ReopenIssue(
	ctx context.Context,
	ref git.RepoRef,
	number int,
) error {
	return p.setIssueState(ctx, ref, number, "reopen")
}

// UpdateIssue edits the non-empty fields of draft.
func (p *Provider) UpdateIssue(
	ctx context.Context,
	ref git.RepoRef,
	number int,
	draft git.IssueDraft,
) (git.Issue, error) {
	const errCtx = "updating gitlab issue"

	defer p.Serialize()()

	if _, err := p.session(&ref); err != nil {
		return git.Issue{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := draft.ValidateUpdate(); err != nil {
		return git.Issue{},
			p.Fail(fmt.Errorf("%s: %w", errCtx, err))
	}

	client, project, err := p.issueSession(ctx, ref, number)
	if err != nil {
		return git.Issue{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	fields, err := p.issueFields(ctx, client, draft)
	if err != nil {
		return git.Issue{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	issue, resp, err := client.Issues.UpdateIssue(
		project.ID, int64(number),
		&gl.UpdateIssueOptions{
			Title:       fields.title,
			Description: fields.description,
			Labels:      fields.labels,
			AssigneeIDs: fields.assignees,
			MilestoneID: fields.milestone,
		},
		gl.WithContext(ctx),
	)

	return p.issueResult(errCtx, issue, resp, err)
}

// ListComments lists the user notes of an issue.
// System notes are dropped.
func (p *Provider) ListComments(
	ctx context.Context,
	ref git.RepoRef,
	number int,
	limit int,
) (git.Page[git.Comment], error) {
	const errCtx = "listing gitlab issue notes"

	defer p.Serialize()()

	client, project, err := p.issueSession(ctx, ref, number)
	if err != nil {
		return git.Page[git.Comment]{},
			fmt.Errorf("%s: %w", errCtx, err)
	}

	notes, resp, err := client.Notes.ListIssueNotes(
		project.ID, int64(number),
		&gl.ListIssueNotesOptions{ListOptions: listOptions(limit)},
		gl.WithContext(ctx),
	)
	if err := p.record(resp, err); err != nil {
		return git.Page[git.Comment]{},
			fmt.Errorf("%s: %w", errCtx, err)
	}

	items := make([]git.Comment, 0, len(notes))

	for _, note := range notes {
		if note != nil && note.System {
			continue
		}

		comment, err := toComment(note)
		if err != nil {
			return git.Page[git.Comment]{},
				p.Fail(fmt.Errorf("%s: %w", errCtx, err))
		}

		items = append(items, comment)
	}

	return git.Page[git.Comment]{
		Items:   items,
		HasMore: resp.NextPage != 0,
	}, nil
}

// AddComment adds a note to an issue.
func (p *Provider) AddComment(
	ctx context.Context,
	ref git.RepoRef,
	number int,
	body string,
) (git.Comment, error) {
	const errCtx = "adding gitlab issue note"

	defer p.Serialize()()

	client, project, err := p.noteSession(ctx, ref, number, body)
	if err != nil {
		return git.Comment{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	note, resp, err := client.Notes.CreateIssueNote(
		project.ID, int64(number),
		&gl.CreateIssueNoteOptions{Body: gl.Ptr(body)},
		gl.WithContext(ctx),
	)

	return p.noteResult(errCtx, note, resp, err)
}

// EditComment replaces the body of a note.
func (p *Provider) EditComment(
	ctx context.Context,
	ref git.RepoRef,
	number int,
	commentID int64,
	body string,
) (git.Comment, error) {
	const errCtx = "editing gitlab issue note"

	defer p.Serialize()()

	client, project, err := p.noteSession(ctx, ref, number, body)
	if err != nil {
		return git.Comment{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	note, resp, err := client.Notes.UpdateIssueNote(
		project.ID, int64(number), commentID,
		&gl.UpdateIssueNoteOptions{Body: gl.Ptr(body)},
		gl.WithContext(ctx),
	)

	return p.noteResult(errCtx, note, resp, err)
}

// DeleteComment deletes a note.
func (p *Provider) DeleteComment(
	ctx context.Context,
	ref git.RepoRef,
	number int,
	commentID int64,
) error {
	const errCtx = "deleting gitlab issue note"

	defer p.Serialize()()

	client, project, err := p.issueSession(ctx, ref, number)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	resp, err := client.Notes.DeleteIssueNote(
		project.ID, int64(number), commentID, gl.WithContext(ctx),
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
	event string,
) error {
	errCtx := "sending gitlab issue " + event

	defer p.Serialize()()

	client, project, err := p.issueSession(ctx, ref, number)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	_, resp, err := client.Issues.UpdateIssue(
		project.ID, int64(number),
		&gl.UpdateIssueOptions{StateEvent: gl.Ptr(event)},
		gl.WithContext(ctx),
	)
	if err := p.record(resp, err); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// projectSession checks the session and resolves the
// project of ref.
func (p *Provider) projectSession(
	ctx context.Context,
	ref git.RepoRef,
) (*gl.Client, *gl.Project, error) {
	client, err := p.session(&ref)
	if err != nil {
		return nil, nil, err
	}

	project, err := p.resolve(ctx, client, ref)
	if err != nil {
		return nil, nil, err
	}

	return client, project, nil
}

func (p *Provider) issueSession(
	ctx context.Context,
	ref git.RepoRef,
	number int,
) (*gl.Client, *gl.Project, error) {
	if _, err := p.session(&ref); err != nil {
		return nil, nil, err
	}

	if err := git.ValidateNumber(number); err != nil {
		return nil, nil, p.Fail(err)
	}

	return p.projectSession(ctx, ref)
}

func (p *Provider) noteSession(
	ctx context.Context,
	ref git.RepoRef,
	number int,
	body string,
) (*gl.Client, *gl.Project, error) {
	if _, err := p.session(&ref); err != nil {
		return nil, nil, err
	}

	if strings.TrimSpace(body) == "" {
		return nil, nil, p.Fail(fmt.Errorf(
			"note body must be set: %w", git.ErrInvalidInput,
		))
	}

	if err := git.ValidateBody(body); err != nil {
		return nil, nil, p.Fail(err)
	}

	return p.issueSession(ctx, ref, number)
}

// issueResult records the outcome of an issue call and
// lifts the answer.
func (p *Provider) issueResult(
	errCtx string,
	issue *gl.Issue,
	resp *gl.Response,
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

func (p *Provider) noteResult(
	errCtx string,
	note *gl.Note,
	resp *gl.Response,
	err error,
) (git.Comment, error) {
	if err := p.record(resp, err); err != nil {
		return git.Comment{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	out, err := toComment(note)
	if err != nil {
		return git.Comment{},
			p.Fail(fmt.Errorf("%s: %w", errCtx, err))
	}

	return out, nil
}

// issueFields holds the draft fields shared by issue
// creation and update. Nil means not sent.
type issueFields struct {
	title       *string
	description *string
	labels      *gl.LabelOptions
	assignees   *[]int64
	milestone   *int64
}

// issueFields maps the non-empty fields of draft.
// Assignee logins become user ids.
func (p *Provider) issueFields(
	ctx context.Context,
	client *gl.Client,
	draft git.IssueDraft,
) (issueFields, error) {
	var fields issueFields

	if draft.Title != "" {
		fields.title = gl.Ptr(draft.Title)
	}

	if draft.Body != "" {
		fields.description = gl.Ptr(draft.Body)
	}

	if len(draft.Labels) > 0 {
		labels := gl.LabelOptions(draft.Labels)
		fields.labels = &labels
	}

	if len(draft.Assignees) > 0 {
		ids := make([]int64, 0, len(draft.Assignees))

		for _, login := range draft.Assignees {
			user, err := p.lookupUser(ctx, client, login)
			if err != nil {
				return issueFields{}, err
			}

			ids = append(ids, user.ID)
		}

		fields.assignees = &ids
	}

	if draft.Milestone > 0 {
		fields.milestone = gl.Ptr(int64(draft.Milestone))
	}

	return fields, nil
}
