package simulated

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/byte4ever/gitlink/git"
)

func (r *repository) hasMilestone(number int) bool {
	return slices.ContainsFunc(r.milestones, func(m git.Milestone) bool {
		return m.Number == number
	})
}

// triageSession is issueSession plus a non-empty name.
func (p *Provider) triageSession(
	ref git.RepoRef,
	number int,
	name string,
) (*repository, *issue, error) {
	r, is, err := p.issueSession(ref, number)
	if err != nil {
		return nil, nil, err
	}

	if strings.TrimSpace(name) == "" {
		return nil, nil, p.Fail(fmt.Errorf(
			"name must be set: %w", git.ErrInvalidInput,
		))
	}

	return r, is, nil
}

// ListLabels lists repository labels.
func (p *Provider) ListLabels(
	_ context.Context,
	ref git.RepoRef,
) ([]git.Label, error) {
	const errCtx = "listing simulated labels"

	defer p.Serialize()()

	if err := p.session(&ref); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	r, err := p.repo(ref)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	p.ok()

	return slices.Clone(r.labels), nil
}

// AddLabel attaches a label, creating it when the
// repository does not have it yet.
func (p *Provider) AddLabel(
	_ context.Context,
	ref git.RepoRef,
	number int,
	label string,
) error {
	const errCtx = "adding simulated label"

	defer p.Serialize()()

	r, is, err := p.triageSession(ref, number, label)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	name := r.label(label, p.id()).Name
	if !slices.Contains(is.info.Labels, name) {
		is.info.Labels = append(is.info.Labels, name)
	}

	p.ok()

	return nil
}

// RemoveLabel detaches a label. A label the issue does
// not carry is a 404.
func (p *Provider) RemoveLabel(
	_ context.Context,
	ref git.RepoRef,
	number int,
	label string,
) error {
	const errCtx = "removing simulated label"

	defer p.Serialize()()

	_, is, err := p.triageSession(ref, number, label)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	i := slices.IndexFunc(is.info.Labels, func(l string) bool {
		return strings.EqualFold(l, label)
	})
	if i < 0 {
		return fmt.Errorf("%s: %w", errCtx, p.fail(
			http.StatusNotFound, "label %s not on issue", label,
		))
	}

	is.info.Labels = slices.Delete(is.info.Labels, i, i+1)

	p.ok()

	return nil
}

// ListAssignees returns Login, the only assignable
// account.
func (p *Provider) ListAssignees(
	_ context.Context,
	ref git.RepoRef,
) ([]git.User, error) {
	const errCtx = "listing simulated assignees"

	defer p.Serialize()()

	if err := p.session(&ref); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	if _, err := p.repo(ref); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	p.ok()

	return []git.User{p.user()}, nil
}

// AddAssignee assigns login to an issue.
func (p *Provider) AddAssignee(
	_ context.Context,
	ref git.RepoRef,
	number int,
	login string,
) error {
	const errCtx = "adding simulated assignee"

	defer p.Serialize()()

	_, is, err := p.triageSession(ref, number, login)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if !strings.EqualFold(login, Login) {
		return fmt.Errorf("%s: %w", errCtx, p.fail(
			http.StatusNotFound, "user %s not found", login,
		))
	}

	if !slices.Contains(is.info.Assignees, Login) {
		is.info.Assignees = append(is.info.Assignees, Login)
	}

	p.ok()

	return nil
}

// RemoveAssignee unassigns login. Removing someone who
// is not assigned succeeds.
func (p *Provider) RemoveAssignee(
	_ context.Context,
	ref git.RepoRef,
	number int,
	login string,
) error {
	const errCtx = "removing simulated assignee"

	defer p.Serialize()()

	_, is, err := p.triageSession(ref, number, login)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	is.info.Assignees = slices.DeleteFunc(is.info.Assignees, func(a string) bool {
		return strings.EqualFold(a, login)
	})

	p.ok()

	return nil
}

// ListMilestones lists milestones filtered by state.
func (p *Provider) ListMilestones(
	_ context.Context,
	ref git.RepoRef,
	state git.IssueState,
) ([]git.Milestone, error) {
	const errCtx = "listing simulated milestones"

	defer p.Serialize()()

	if err := p.session(&ref); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := state.Validate(); err != nil {
		return nil, p.Fail(fmt.Errorf("%s: %w", errCtx, err))
	}

	r, err := p.repo(ref)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	state = state.OrOpen()

	var out []git.Milestone

	for _, m := range r.milestones {
		if state == git.StateAll || m.State == string(state) {
			out = append(out, m)
		}
	}

	p.ok()

	return out, nil
}

// SetMilestone attaches the milestone numbered
// milestone.
func (p *Provider) SetMilestone(
	_ context.Context,
	ref git.RepoRef,
	number int,
	milestone int,
) error {
	const errCtx = "setting simulated milestone"

	defer p.Serialize()()

	r, is, err := p.issueSession(ref, number)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if milestone <= 0 {
		return p.Fail(fmt.Errorf(
			"%s: milestone must be positive: %w",
			errCtx, git.ErrInvalidInput,
		))
	}

	if !r.hasMilestone(milestone) {
		return fmt.Errorf("%s: %w", errCtx, p.fail(
			http.StatusNotFound, "milestone %d not found", milestone,
		))
	}

	is.milestone = milestone

	p.ok()

	return nil
}

// ClearMilestone detaches any milestone.
func (p *Provider) ClearMilestone(
	_ context.Context,
	ref git.RepoRef,
	number int,
) error {
	const errCtx = "clearing simulated milestone"

	defer p.Serialize()()

	_, is, err := p.issueSession(ref, number)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	is.milestone = 0

	p.ok()

	return nil
}
