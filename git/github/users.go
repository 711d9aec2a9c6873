package github

import (
	"context"
	"fmt"
	"strings"

	gh "github.com/google/go-github/v68/github"

	"github.com/byte4ever/gitlink/git"
)

// GetUser fetches a user profile; an empty login means
// the authenticated user.
func (p *Provider) GetUser(
	ctx context.Context,
	login string,
) (git.User, error) {
	const errCtx = "getting github user"

	defer p.Serialize()()

	client, err := p.session(nil)
	if err != nil {
		return git.User{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	user, resp, err := client.Users.Get(ctx, login)
	if err := p.record(resp, err); err != nil {
		return git.User{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	out, err := toUser(user)
	if err != nil {
		return git.User{},
			p.Fail(fmt.Errorf("%s: %w", errCtx, err))
	}

	return out, nil
}

// CreateGist creates a single-file gist and returns its
// id.
func (p *Provider) CreateGist(
	ctx context.Context,
	draft git.GistDraft,
) (string, error) {
	const errCtx = "creating github gist"

	defer p.Serialize()()

	client, err := p.session(nil)
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	if strings.TrimSpace(draft.Filename) == "" {
		return "", p.Fail(fmt.Errorf(
			"%s: filename must be set: %w",
			errCtx, git.ErrInvalidInput,
		))
	}

	gist, resp, err := client.Gists.Create(ctx, &gh.Gist{
		Description: gh.Ptr(draft.Description),
		Public:      gh.Ptr(draft.Public),
		Files: map[gh.GistFilename]gh.GistFile{
			gh.GistFilename(draft.Filename): {
				Content: gh.Ptr(draft.Content),
			},
		},
	})
	if err := p.record(resp, err); err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	if gist.GetID() == "" {
		return "", p.Fail(fmt.Errorf(
			"%s: %w", errCtx, malformed("gist"),
		))
	}

	return gist.GetID(), nil
}

// DeleteGist deletes a gist.
func (p *Provider) DeleteGist(
	ctx context.Context,
	id string,
) error {
	const errCtx = "deleting github gist"

	defer p.Serialize()()

	client, err := p.session(nil)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if id == "" {
		return p.Fail(fmt.Errorf(
			"%s: id must be set: %w",
			errCtx, git.ErrInvalidInput,
		))
	}

	resp, err := client.Gists.Delete(ctx, id)
	if err := p.record(resp, err); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}
