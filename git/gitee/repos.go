package gitee

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/byte4ever/gitlink/git"
)

// ListRepositories lists the user repositories, most
// recently updated first.
func (p *Provider) ListRepositories(
	ctx context.Context,
	limit int,
) (git.Page[git.Repository], error) {
	const errCtx = "listing gitee repositories"

	defer p.Serialize()()

	if _, err := p.session(nil); err != nil {
		return git.Page[git.Repository]{},
			fmt.Errorf("%s: %w", errCtx, err)
	}

	limit = git.ClampLimit(limit)

	query := pageQuery(limit)
	query.Set("sort", "updated")

	var repos []geRepo

	header, err := p.do(ctx, request{
		method: http.MethodGet,
		path:   []string{"user", "repos"},
		query:  query,
	}, &repos)
	if err != nil {
		return git.Page[git.Repository]{},
			fmt.Errorf("%s: %w", errCtx, err)
	}

	items, err := mapAll(repos, geRepo.toRepository)
	if err != nil {
		return git.Page[git.Repository]{},
			p.Fail(fmt.Errorf("%s: %w", errCtx, err))
	}

	return git.Page[git.Repository]{
		Items:   items,
		HasMore: hasMore(header, len(repos), limit),
	}, nil
}

// GetRepository fetches one repository.
func (p *Provider) GetRepository(
	ctx context.Context,
	ref git.RepoRef,
) (git.Repository, error) {
	const errCtx = "getting gitee repository"

	defer p.Serialize()()

	if _, err := p.session(&ref); err != nil {
		return git.Repository{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	var repo geRepo

	if _, err := p.do(ctx, request{
		method: http.MethodGet,
		path:   repoPath(ref),
	}, &repo); err != nil {
		return git.Repository{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	out, err := repo.toRepository()
	if err != nil {
		return git.Repository{},
			p.Fail(fmt.Errorf("%s: %w", errCtx, err))
	}

	return out, nil
}

// CreateRepository creates a repository for the user.
func (p *Provider) CreateRepository(
	ctx context.Context,
	draft git.RepositoryDraft,
) (git.Repository, error) {
	const errCtx = "creating gitee repository"

	defer p.Serialize()()

	if _, err := p.session(nil); err != nil {
		return git.Repository{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	if strings.TrimSpace(draft.Name) == "" {
		return git.Repository{}, p.Fail(fmt.Errorf(
			"%s: name must be set: %w",
			errCtx, git.ErrInvalidInput,
		))
	}

	var repo geRepo

	if _, err := p.do(ctx, request{
		method: http.MethodPost,
		path:   []string{"user", "repos"},
		body: &repoBody{
			Name:        draft.Name,
			Description: draft.Description,
			Private:     draft.Private,
			AutoInit:    draft.AutoInit,
		},
	}, &repo); err != nil {
		return git.Repository{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	out, err := repo.toRepository()
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
	const errCtx = "deleting gitee repository"

	defer p.Serialize()()

	if _, err := p.session(&ref); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if _, err := p.do(ctx, request{
		method: http.MethodDelete,
		path:   repoPath(ref),
	}, nil); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// SearchRepositories searches public repositories.
// Gitee answers either a bare array or a GitHub-style
// object with items; both are accepted.
func (p *Provider) SearchRepositories(
	ctx context.Context,
	query string,
	limit int,
) (git.Page[git.Repository], error) {
	const errCtx = "searching gitee repositories"

	defer p.Serialize()()

	if _, err := p.session(nil); err != nil {
		return git.Page[git.Repository]{},
			fmt.Errorf("%s: %w", errCtx, err)
	}

	if strings.TrimSpace(query) == "" {
		return git.Page[git.Repository]{}, p.Fail(fmt.Errorf(
			"%s: query must be set: %w",
			errCtx, git.ErrInvalidInput,
		))
	}

	limit = git.ClampLimit(limit)

	q := pageQuery(limit)
	q.Set("q", query)

	var raw json.RawMessage

	header, err := p.do(ctx, request{
		method: http.MethodGet,
		path:   []string{"search", "repositories"},
		query:  q,
	}, &raw)
	if err != nil {
		return git.Page[git.Repository]{},
			fmt.Errorf("%s: %w", errCtx, err)
	}

	result, err := decodeSearch(raw)
	if err != nil {
		return git.Page[git.Repository]{},
			p.Fail(fmt.Errorf("%s: %w", errCtx, err))
	}

	items, err := mapAll(result.Items, geRepo.toRepository)
	if err != nil {
		return git.Page[git.Repository]{},
			p.Fail(fmt.Errorf("%s: %w", errCtx, err))
	}

	more := hasMore(header, len(items), limit)
	if result.TotalCount > 0 {
		more = result.TotalCount > len(items)
	}

	return git.Page[git.Repository]{
		Items:   items,
		HasMore: more,
	}, nil
}

func decodeSearch(raw json.RawMessage) (geSearch, error) {
	var result geSearch

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &result.Items); err != nil {
			return geSearch{}, fmt.Errorf(
				"%w: %w", git.ErrMalformedResponse, err,
			)
		}

		return result, nil
	}

	if err := json.Unmarshal(trimmed, &result); err != nil {
		return geSearch{}, fmt.Errorf(
			"%w: %w", git.ErrMalformedResponse, err,
		)
	}

	return result, nil
}

