package gitlab

import (
	"context"
	"fmt"
	"strings"

	gl "gitlab.com/gitlab-org/api/client-go"

	"github.com/byte4ever/gitlink/git"
)

// ListRepositories lists the projects the user is a
// member of, most recently active first.
func (p *Provider) ListRepositories(
	ctx context.Context,
	limit int,
) (git.Page[git.Repository], error) {
	const errCtx = "listing gitlab projects"

	defer p.Serialize()()

	return p.listProjects(ctx, errCtx, &gl.ListProjectsOptions{
		ListOptions: listOptions(limit),
		Membership:  gl.Ptr(true),
		OrderBy:     gl.Ptr("last_activity_at"),
	})
}

// GetRepository resolves a project by owner/name.
func (p *Provider) GetRepository(
	ctx context.Context,
	ref git.RepoRef,
) (git.Repository, error) {
	const errCtx = "getting gitlab project"

	defer p.Serialize()()

	client, err := p.session(&ref)
	if err != nil {
		return git.Repository{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	project, err := p.resolve(ctx, client, ref)
	if err != nil {
		return git.Repository{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	out, err := toRepository(project)
	if err != nil {
		return git.Repository{},
			p.Fail(fmt.Errorf("%s: %w", errCtx, err))
	}

	return out, nil
}

// CreateRepository creates a project in the user
// namespace.
func (p *Provider) CreateRepository(
	ctx context.Context,
	draft git.RepositoryDraft,
) (git.Repository, error) {
	const errCtx = "creating gitlab project"

	defer p.Serialize()()

	client, err := p.session(nil)
	if err != nil {
		return git.Repository{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	if strings.TrimSpace(draft.Name) == "" {
		return git.Repository{}, p.Fail(fmt.Errorf(
			"%s: name must be set: %w",
			errCtx, git.ErrInvalidInput,
		))
	}

	visibility := gl.PublicVisibility
	if draft.Private {
		visibility = gl.PrivateVisibility
	}

	opt := &gl.CreateProjectOptions{
		Name:                 gl.Ptr(draft.Name),
		Visibility:           gl.Ptr(visibility),
		InitializeWithReadme: gl.Ptr(draft.AutoInit),
	}

	if draft.Description != "" {
		opt.Description = gl.Ptr(draft.Description)
	}

	project, resp, err := client.Projects.CreateProject(
		opt, gl.WithContext(ctx),
	)
	if err := p.record(resp, err); err != nil {
		return git.Repository{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	out, err := toRepository(project)
	if err != nil {
		return git.Repository{},
			p.Fail(fmt.Errorf("%s: %w", errCtx, err))
	}

	return out, nil
}

// DeleteRepository deletes a project.
func (p *Provider) DeleteRepository(
	ctx context.Context,
	ref git.RepoRef,
) error {
	const errCtx = "deleting gitlab project"

	defer p.Serialize()()

	client, err := p.session(&ref)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	project, err := p.resolve(ctx, client, ref)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	resp, err := client.Projects.DeleteProject(
		project.ID, nil, gl.WithContext(ctx),
	)
	if err := p.record(resp, err); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	p.mu.Lock()
	delete(p.projects, ref.String())
	p.mu.Unlock()

	return nil
}

// SearchRepositories searches projects visible to the
// user.
func (p *Provider) SearchRepositories(
	ctx context.Context,
	query string,
	limit int,
) (git.Page[git.Repository], error) {
	const errCtx = "searching gitlab projects"

	defer p.Serialize()()

	if strings.TrimSpace(query) == "" {
		return git.Page[git.Repository]{}, p.Fail(fmt.Errorf(
			"%s: query must be set: %w",
			errCtx, git.ErrInvalidInput,
		))
	}

	return p.listProjects(ctx, errCtx, &gl.ListProjectsOptions{
		ListOptions: listOptions(limit),
		Search:      gl.Ptr(query),
		OrderBy:     gl.Ptr("last_activity_at"),
	})
}

func (p *Provider) listProjects(
	ctx context.Context,
	errCtx string,
	opt *gl.ListProjectsOptions,
) (git.Page[git.Repository], error) {
	client, err := p.session(nil)
	if err != nil {
		return git.Page[git.Repository]{},
			fmt.Errorf("%s: %w", errCtx, err)
	}

	projects, resp, err := client.Projects.ListProjects(
		opt, gl.WithContext(ctx),
	)
	if err := p.record(resp, err); err != nil {
		return git.Page[git.Repository]{},
			fmt.Errorf("%s: %w", errCtx, err)
	}

	items, err := mapAll(projects, toRepository)
	if err != nil {
		return git.Page[git.Repository]{},
			p.Fail(fmt.Errorf("%s: %w", errCtx, err))
	}

	return git.Page[git.Repository]{
		Items:   items,
		HasMore: resp.NextPage != 0,
	}, nil
}
