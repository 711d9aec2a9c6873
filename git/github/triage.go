package github

import (
	"context"
	"fmt"
	"strings"

	gh "github.com/google/go-github/v68/github"

	"github.com/byte4ever/gitlink/git"
)

// ListLabels lists the labels of a repository.
func (p *Provider) ListLabels(
	ctx context.Context,
	ref git.RepoRef,
) ([]git.Label, error) {
	const errCtx = "listing github labels"

	defer p.Serialize()()

	client, err := p.session(&ref)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	labels, resp, err := client.Issues.ListLabels(
		ctx, ref.Owner, ref.Name,
		&gh.ListOptions{PerPage: git.MaxPageSize},
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
	const errCtx = "adding github issue label"

	defer p.Serialize()()

	client, err := p.triageSession(&ref, number, label)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	_, resp, err := client.Issues.AddLabelsToIssue(
		ctx, ref.Owner, ref.Name, number, []string{label},
	)
	if err := p.record(resp, err); err != nil {
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
	const errCtx = "removing github issue label"

	defer p.Serialize()()

	client, err := p.triageSession(&ref, number, label)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	resp, err := client.Issues.RemoveLabelForIssue(
		ctx, ref.Owner, ref.Name, number, label,
	)
	if err := p.record(resp, err); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// ListAssignees lists the users issues can be assigned
// to.
func (p *Provider) ListAssignees(
	ctx context.Context,
	ref git.RepoRef,
) ([]git.User, error) {
	const errCtx = "listing github assignees"

	defer p.Serialize()()

	client, err := p.session(&ref)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	users, resp, err := client.Issues.ListAssignees(
		ctx, ref.Owner, ref.Name,
		&gh.ListOptions{PerPage: git.MaxPageSize},
	)
	if err := p.record(resp, err); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	out, err := mapAll(users, toUser)
	if err != nil {
		return nil, p.Fail(fmt.Errorf("%s: %w", errCtx, err))
	}

	return out, nil
}

// AddAssignee assigns a user to an issue.
func (p *Provider) AddAssignee(
	ctx context.Context,
	ref git.RepoRef,
	number int,
	login string,
) error {
	const errCtx = "adding github issue assignee"

	defer p.Serialize()()

	client, err := p.triageSession(&ref, number, login)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	_, resp, err := client.Issues.AddAssignees(
		ctx, ref.Owner, ref.Name, number, []string{login},
	)
	if err := p.record(resp, err); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// RemoveAssignee unassigns a user from an issue.
func (p *Provider) RemoveAssignee(
	ctx context.Context,
	ref git.RepoRef,
	number int,
	login string,
) error {
	const errCtx = "removing github issue assignee"

	defer p.Serialize()()

	client, err := p.triageSession(&ref, number, login)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	_, resp, err := client.Issues.RemoveAssignees(
		ctx, ref.Owner, ref.Name, number, []string{login},
	)
	if err := p.record(resp, err); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// ListMilestones lists milestones filtered by state.
func (p *Provider) ListMilestones(
	ctx context.Context,
	ref git.RepoRef,
	state git.IssueState,
) ([]git.Milestone, error) {
	const errCtx = "listing github milestones"

	defer p.Serialize()()

	client, err := p.session(&ref)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := state.Validate(); err != nil {
		return nil, p.Fail(fmt.Errorf("%s: %w", errCtx, err))
	}

	milestones, resp, err := client.Issues.ListMilestones(
		ctx, ref.Owner, ref.Name,
		&gh.MilestoneListOptions{
			State: string(state.OrOpen()),
			ListOptions: gh.ListOptions{
				PerPage: git.MaxPageSize,
			},
		},
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

// SetMilestone attaches milestone (its number) to an
// issue.
func (p *Provider) SetMilestone(
	ctx context.Context,
	ref git.RepoRef,
	number int,
	milestone int,
) error {
	const errCtx = "setting github issue milestone"

	defer p.Serialize()()

	client, err := p.issueSession(&ref, number)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if milestone <= 0 {
		return p.Fail(fmt.Errorf(
			"%s: milestone must be positive: %w",
			errCtx, git.ErrInvalidInput,
		))
	}

	_, resp, err := client.Issues.Edit(
		ctx, ref.Owner, ref.Name, number,
		&gh.IssueRequest{Milestone: gh.Ptr(milestone)},
	)
	if err := p.record(resp, err); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// ClearMilestone detaches the milestone of an issue.
func (p *Provider) ClearMilestone(
	ctx context.Context,
	ref git.RepoRef,
	number int,
) error {
	const errCtx = "clearing github issue milestone"

	defer p.Serialize()()

	client, err := p.issueSession(&ref, number)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	_, resp, err := client.Issues.RemoveMilestone(
		ctx, ref.Owner, ref.Name, number,
	)
	if err := p.record(resp, err); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

func (p *Provider) triageSession(
	ref *git.RepoRef,
	number int,
	name string,
) (*gh.Client, error) {
	client, err := p.issueSession(ref, number)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(name) == "" {
		return nil, p.Fail(fmt.Errorf(
			"name must be set: %w", git.ErrInvalidInput,
		))
	}

	return client, nil
}
