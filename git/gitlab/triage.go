package gitlab

import (
	"context"
	"fmt"
	"slices"
	"strings"

	gl "gitlab.com/gitlab-org/api/client-go"

	"github.com/byte4ever/gitlink/git"
)

// ListLabels lists the labels of a project.
func (p *Provider) ListLabels(
	ctx context.Context,
	ref git.RepoRef,
) ([]git.Label, error) {
	const errCtx = "listing gitlab labels"

	defer p.Serialize()()

	client, project, err := p.projectSession(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	labels, resp, err := client.Labels.ListLabels(
		project.ID,
		&gl.ListLabelsOptions{ListOptions: listOptions(git.MaxPageSize)},
		gl.WithContext(ctx),
	)
	if err := p.record(resp, err); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	out, err := mapAll(labels, toLabel)
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
	const errCtx = "adding gitlab issue label"

	return p.editIssue(
		ctx, ref, number, label, errCtx,
		&gl.UpdateIssueOptions{AddLabels: &gl.LabelOptions{label}},
	)
}

// RemoveLabel detaches a label from an issue.
func (p *Provider) RemoveLabel(
	ctx context.Context,
	ref git.RepoRef,
	number int,
	label string,
) error {
	const errCtx = "removing gitlab issue label"

	return p.editIssue(
		ctx, ref, number, label, errCtx,
		&gl.UpdateIssueOptions{RemoveLabels: &gl.LabelOptions{label}},
	)
}

// ListAssignees lists the project members, inherited
// ones included.
func (p *Provider) ListAssignees(
	ctx context.Context,
	ref git.RepoRef,
) ([]git.User, error) {
	const errCtx = "listing gitlab project members"

	defer p.Serialize()()

	client, project, err := p.projectSession(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	members, resp, err := client.ProjectMembers.ListAllProjectMembers(
		project.ID,
		&gl.ListProjectMembersOptions{
			ListOptions: listOptions(git.MaxPageSize),
		},
		gl.WithContext(ctx),
	)
	if err := p.record(resp, err); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	out, err := mapAll(members, toMember)
	if err != nil {
		return nil, p.Fail(fmt.Errorf("%s: %w", errCtx, err))
	}

	return out, nil
}

// AddAssignee adds a user to the issue assignees.
func (p *Provider) AddAssignee(
	ctx context.Context,
	ref git.RepoRef,
	number int,
	login string,
) error {
	const errCtx = "adding gitlab issue assignee"

	return p.changeAssignees(
		ctx, ref, number, login, errCtx,
		func(ids []int64, id int64) []int64 {
			if slices.Contains(ids, id) {
				return ids
			}

			return append(ids, id)
		},
	)
}

// RemoveAssignee removes a user from the issue
// assignees.
func (p *Provider) RemoveAssignee(
	ctx context.Context,
	ref git.RepoRef,
	number int,
	login string,
) error {
	const errCtx = "removing gitlab issue assignee"

	return p.changeAssignees(
		ctx, ref, number, login, errCtx,
		func(ids []int64, id int64) []int64 {
			return slices.DeleteFunc(ids, func(v int64) bool {
				return v == id
			})
		},
	)
}

// ListMilestones lists project milestones filtered by
// state. Milestone.Number carries the global id.
func (p *Provider) ListMilestones(
	ctx context.Context,
	ref git.RepoRef,
	state git.IssueState,
) ([]git.Milestone, error) {
	const errCtx = "listing gitlab milestones"

	defer p.Serialize()()

	if _, err := p.session(&ref); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := state.Validate(); err != nil {
		return nil, p.Fail(fmt.Errorf("%s: %w", errCtx, err))
	}

	client, project, err := p.projectSession(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	milestones, resp, err := client.Milestones.ListMilestones(
		project.ID,
		&gl.ListMilestonesOptions{
			ListOptions: listOptions(git.MaxPageSize),
			State:       toMilestoneState(state),
		},
		gl.WithContext(ctx),
	)
	if err := p.record(resp, err); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	out, err := mapAll(milestones, toMilestone)
	if err != nil {
		return nil, p.Fail(fmt.Errorf("%s: %w", errCtx, err))
	}

	return out, nil
}

// SetMilestone sets the issue milestone by global id.
func (p *Provider) SetMilestone(
	ctx context.Context,
	ref git.RepoRef,
	number int,
	milestone int,
) error {
	const errCtx = "setting gitlab issue milestone"

	if milestone <= 0 {
		return p.Fail(fmt.Errorf(
			"%s: milestone must be positive: %w",
			errCtx, git.ErrInvalidInput,
		))
	}

	return p.editIssue(
		ctx, ref, number, "milestone", errCtx,
		&gl.UpdateIssueOptions{MilestoneID: gl.Ptr(int64(milestone))},
	)
}

// ClearMilestone unsets the issue milestone.
func (p *Provider) ClearMilestone(
	ctx context.Context,
	ref git.RepoRef,
	number int,
) error {
	const errCtx = "clearing gitlab issue milestone"

	return p.editIssue(
		ctx, ref, number, "milestone", errCtx,
		&gl.UpdateIssueOptions{ResetMilestoneID: true},
	)
}

// editIssue sends a partial issue update. value is the
// label, login or marker the update is about and must
// not be blank.
func (p *Provider) editIssue(
	ctx context.Context,
	ref git.RepoRef,
	number int,
	value string,
	errCtx string,
	opt *gl.UpdateIssueOptions,
) error {
	defer p.Serialize()()

	client, project, err := p.triageSession(ctx, ref, number, value)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	_, resp, err := client.Issues.UpdateIssue(
		project.ID, int64(number), opt, gl.WithContext(ctx),
	)
	if err := p.record(resp, err); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// changeAssignees reads the current assignees, applies
// edit and writes the resulting id list back.
func (p *Provider) changeAssignees(
	ctx context.Context,
	ref git.RepoRef,
	number int,
	login string,
	errCtx string,
	edit func(ids []int64, id int64) []int64,
) error {
	defer p.Serialize()()

	client, project, err := p.triageSession(ctx, ref, number, login)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	user, err := p.lookupUser(ctx, client, login)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	issue, resp, err := client.Issues.GetIssue(
		project.ID, int64(number), gl.WithContext(ctx),
	)
	if err := p.record(resp, err); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if issue == nil {
		return p.Fail(fmt.Errorf("%s: %w", errCtx, malformed("issue")))
	}

	ids := make([]int64, 0, len(issue.Assignees)+1)
	for _, a := range issue.Assignees {
		if a != nil {
			ids = append(ids, a.ID)
		}
	}

	ids = edit(ids, user.ID)

	_, resp, err = client.Issues.UpdateIssue(
		project.ID, int64(number),
		&gl.UpdateIssueOptions{AssigneeIDs: &ids},
		gl.WithContext(ctx),
	)
	if err := p.record(resp, err); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

func (p *Provider) triageSession(
	ctx context.Context,
	ref git.RepoRef,
	number int,
	value string,
) (*gl.Client, *gl.Project, error) {
	if _, err := p.session(&ref); err != nil {
		return nil, nil, err
	}

	if strings.TrimSpace(value) == "" {
		return nil, nil, p.Fail(fmt.Errorf(
			"value must be set: %w", git.ErrInvalidInput,
		))
	}

	return p.issueSession(ctx, ref, number)
}
