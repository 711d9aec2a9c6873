package gitee

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/byte4ever/gitlink/git"
	"github.com/byte4ever/gitlink/transport"
)

// ListLabels lists the labels of a repository.
func (p *Provider) ListLabels(
	ctx context.Context,
	ref git.RepoRef,
) ([]git.Label, error) {
	const errCtx = "listing gitee labels"

	defer p.Serialize()()

	if _, err := p.session(&ref); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	var labels []geLabel

	if _, err := p.do(ctx, request{
		method: http.MethodGet,
		path:   repoPath(ref, "labels"),
		query:  pageQuery(git.MaxPageSize),
	}, &labels); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	out, err := mapAll(labels, geLabel.toLabel)
	if err != nil {
		return nil, p.Fail(fmt.Errorf("%s: %w", errCtx, err))
	}

	return out, nil
}

// AddLabel attaches a label to an issue.
func (p *Provider) AddLabel(
	ctx context.Context,
	ref git.RepoRef,
	number int,
	label string,
) error {
	const errCtx = "adding gitee issue label"

	defer p.Serialize()()

	if err := p.triageSession(&ref, number, label); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if _, err := p.do(ctx, request{
		method: http.MethodPost,
		path:   issuePath(ref, number, "labels"),
		body:   []string{label},
	}, nil); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// RemoveLabel detaches a label from an issue.
func (p *Provider) RemoveLabel(
	ctx context.Context,
	ref git.RepoRef,
	number int,
	label string,
) error {
	const errCtx = "removing gitee issue label"

	defer p.Serialize()()

	if err := p.triageSession(&ref, number, label); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if _, err := p.do(ctx, request{
		method: http.MethodDelete,
		path: issuePath(
			ref, number, "labels", transport.PathEscape(label),
		),
	}, nil); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// ListAssignees lists the repository collaborators.
func (p *Provider) ListAssignees(
	ctx context.Context,
	ref git.RepoRef,
) ([]git.User, error) {
	const errCtx = "listing gitee assignees"

	defer p.Serialize()()

	if _, err := p.session(&ref); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	var users []geUser

	if _, err := p.do(ctx, request{
		method: http.MethodGet,
		path:   repoPath(ref, "collaborators"),
		query:  pageQuery(git.MaxPageSize),
	}, &users); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	out, err := mapAll(users, geUser.toUser)
	if err != nil {
		return nil, p.Fail(fmt.Errorf("%s: %w", errCtx, err))
	}

	return out, nil
}

// AddAssignee makes login the issue assignee. Gitee
// issues carry one assignee, so the previous one is
// replaced.
func (p *Provider) AddAssignee(
	ctx context.Context,
	ref git.RepoRef,
	number int,
	login string,
) error {
	const errCtx = "adding gitee issue assignee"

	defer p.Serialize()()

	if err := p.triageSession(&ref, number, login); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if _, err := p.do(ctx, request{
		method: http.MethodPatch,
		path:   issuePath(ref, number),
		body:   &issueBody{Assignee: &login},
	}, nil); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// RemoveAssignee clears the issue assignee when it is
// login. Any other assignee is left in place and no
// update is sent.
func (p *Provider) RemoveAssignee(
	ctx context.Context,
	ref git.RepoRef,
	number int,
	login string,
) error {
	const errCtx = "removing gitee issue assignee"

	defer p.Serialize()()

	if err := p.triageSession(&ref, number, login); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	var issue geIssue

	if _, err := p.do(ctx, request{
		method: http.MethodGet,
		path:   issuePath(ref, number),
	}, &issue); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	assigned := false

	for _, current := range issue.assigneeLogins() {
		if strings.EqualFold(current, login) {
			assigned = true
		}
	}

	if !assigned {
		return nil
	}

	var none string

	if _, err := p.do(ctx, request{
		method: http.MethodPatch,
		path:   issuePath(ref, number),
		body:   &issueBody{Assignee: &none},
	}, nil); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// ListMilestones lists repository milestones filtered
// by state.
func (p *Provider) ListMilestones(
	ctx context.Context,
	ref git.RepoRef,
	state git.IssueState,
) ([]git.Milestone, error) {
	const errCtx = "listing gitee milestones"

	defer p.Serialize()()

	if _, err := p.session(&ref); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := state.Validate(); err != nil {
		return nil, p.Fail(fmt.Errorf("%s: %w", errCtx, err))
	}

	query := pageQuery(git.MaxPageSize)
	query.Set("state", string(state.OrOpen()))

	var milestones []geMilestone

	if _, err := p.do(ctx, request{
		method: http.MethodGet,
		path:   repoPath(ref, "milestones"),
		query:  query,
	}, &milestones); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	out, err := mapAll(milestones, geMilestone.toMilestone)
	if err != nil {
		return nil, p.Fail(fmt.Errorf("%s: %w", errCtx, err))
	}

	return out, nil
}

// SetMilestone sets the issue milestone by number.
func (p *Provider) SetMilestone(
	ctx context.Context,
	ref git.RepoRef,
	number int,
	milestone int,
) error {
	const errCtx = "setting gitee issue milestone"

	defer p.Serialize()()

	if err := p.issueSession(&ref, number); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if milestone <= 0 {
		return p.Fail(fmt.Errorf(
			"%s: milestone must be positive: %w",
			errCtx, git.ErrInvalidInput,
		))
	}

	return p.patchMilestone(ctx, ref, number, milestone, errCtx)
}

// ClearMilestone unsets the issue milestone.
func (p *Provider) ClearMilestone(
	ctx context.Context,
	ref git.RepoRef,
	number int,
) error {
	const errCtx = "clearing gitee issue milestone"

	defer p.Serialize()()

	if err := p.issueSession(&ref, number); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return p.patchMilestone(ctx, ref, number, 0, errCtx)
}

func (p *Provider) patchMilestone(
	ctx context.Context,
	ref git.RepoRef,
	number int,
	milestone int,
	errCtx string,
) error {
	if _, err := p.do(ctx, request{
		method: http.MethodPatch,
		path:   issuePath(ref, number),
		body:   &issueBody{Milestone: &milestone},
	}, nil); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

func (p *Provider) triageSession(
	ref *git.RepoRef,
	number int,
	value string,
) error {
	if err := p.issueSession(ref, number); err != nil {
		return err
	}

	if strings.TrimSpace(value) == "" {
		return p.Fail(fmt.Errorf(
			"value must be set: %w", git.ErrInvalidInput,
		))
	}

	return nil
}
