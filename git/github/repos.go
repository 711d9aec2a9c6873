package github

import (
	"context"
	"fmt"
	"strings"

	gh "github.com/google/go-github/v68/github"

	"github.com/byte4ever/gitlink/git"
)

// ListRepositories lists repositories of the
// authenticated user, most recently updated first.
func (p *Provider) ListRepositories(
	ctx context.Context,
	limit int,
) (git.Page[git.Repository], error) {
	const errCtx = "listing github repositories"

	defer p.Serialize()()

	client, err := p.session(nil)
	if err != nil {
		return git.Page[git.Repository]{},
			fmt.Errorf("%s: %w", errCtx, err)
	}

	repos, resp, err := client.Repositories.ListByAuthenticatedUser(
		ctx,
		&gh.RepositoryListByAuthenticatedUserOptions{
			Sort: "updated",
			ListOptions: gh.ListOptions{
				PerPage: git.ClampLimit(limit),
			},
		},
	)
	if err := p.record(resp, err); err != nil {
		return git.Page[git.Repository]{},
			fmt.Errorf("%s: %w", errCtx, err)
	}

	items, err := mapAll(repos, toRepository)
	if err != nil {
		return git.Page[git.Repository]{},
			p.Fail(fmt.Errorf("%s: %w", errCtx, err))
	}

	return git.Page[git.Repository]{
		Items:   items,
		HasMore: resp.NextPage != 0,
	}, nil
}

// GetRepository fetches one repository.
func (p *Provider) GetRepository(
	ctx context.Context,
	ref git.RepoRef,
) (git.Repository, error) {
	const errCtx = "getting github repository"

	defer p.Serialize()()

	client, err := p.session(&ref)
	if err != nil {
		return git.Repository{},
			fmt.Errorf("%s: %w", errCtx, err)
	}

	repo, resp, err := client.Repositories.Get(
		ctx, ref.Owner, ref.Name,
	)
	if err := p.record(resp, err); err != nil {
		return git.Repository{},
			fmt.Errorf("%s: %w", errCtx, err)
	}

	out, err := toRepository(repo)
	if err != nil {
		return git.Repository{},
			p.Fail(fmt.Errorf("%s: %w", errCtx, err))
	}

	return out, nil
}

// CreateRepository creates a repository owned by the
// authenticated user.
func (p *Provider) CreateRepository(
	ctx context.Context,
	draft git.RepositoryDraft,
) (git.Repository, error) {
	const errCtx = "creating github repository"

	defer p.Serialize()()

	client, err := p.session(nil)
	if err != nil {
		return git.Repository{},
			fmt.Errorf("%s: %w", errCtx, err)
	}

	if strings.TrimSpace(draft.Name) == "" {
		return git.Repository{}, p.Fail(fmt.Errorf(
			"%s: name must be set: %w",
			errCtx, git.ErrInvalidInput,
		))
	}

	repo, resp, err := client.Repositories.Create(
		ctx, "", &gh.Repository{
			Name:        gh.Ptr(draft.Name),
			Description: gh.Ptr(draft.Description),
			Private:     gh.Ptr(draft.Private),
			AutoInit:    gh.Ptr(draft.AutoInit),
		},
	)
	if err := p.record(resp, err); err != nil {
		return git.Repository{},
			fmt.Errorf("%s: %w", errCtx, err)
	}

	out, err := toRepository(repo)
	if err != nil {
		return git.Repository{},
			p.Fail(fmt.Errorf("%s: %w", errCtx, err))
	}

	return out, nil
}

// DeleteRepository deletes a repository.
func (p *Provider) DeleteRepository(
	ctx context.Context,
	ref git.RepoRef,
) error {
	const errCtx = "deleting github repository"

	defer p.Serialize()()

	client, err := p.session(&ref)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	resp, err := client.Repositories.Delete(
		ctx, ref.Owner, ref.Name,
	)
	if err := p.record(resp, err); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// SearchRepositories runs a repository search. HasMore
// is set when the total count exceeds the page.
func (p *Provider) SearchRepositories(
	ctx context.Context,
	query string,
	limit int,
) (git.Page[git.Repository], error) {
	const errCtx = "searching github repositories"

	defer p.Serialize()()

	client, err := p.session(nil)
	if err != nil {
		return git.Page[git.Repository]{},
			fmt.Errorf("%s: %w", errCtx, err)
	}

	if strings.TrimSpace(query) == "" {
		return git.Page[git.Repository]{}, p.Fail(fmt.Errorf(
			"%s: query must be set: %w",
			errCtx, git.ErrInvalidInput,
		))
	}

	res, resp, err := client.Search.Repositories(
		ctx, query, &gh.SearchOptions{
			ListOptions: gh.ListOptions{
				PerPage: git.ClampLimit(limit),
			},
		},
	)
	if err := p.record(resp, err); err != nil {
		return git.Page[git.Repository]{},
			fmt.Errorf("%s: %w", errCtx, err)
	}

	items, err := mapAll(res.Repositories, toRepository)
	if err != nil {
		return git.Page[git.Repository]{},
			p.Fail(fmt.Errorf("%s: %w", errCtx, err))
	}

	return git.Page[git.Repository]{
		Items: items,
		HasMore: res.GetTotal() > len(items) ||
			resp.NextPage != 0,
	}, nil
}
