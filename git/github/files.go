package github

import (
	"context"
	"fmt"

	gh "github.com/google/go-github/v68/github"

	"github.com/byte4ever/gitlink/git"
	"github.com/byte4ever/gitlink/transport"
)

// GetFile fetches a file at gitRef (empty means the
// default branch) and decodes its content.
func (p *Provider) GetFile(
	ctx context.Context,
	ref git.RepoRef,
	path string,
	gitRef string,
) (git.File, error) {
	const errCtx = "getting github file"

	defer p.Serialize()()

	client, err := p.fileSession(&ref, path)
	if err != nil {
		return git.File{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	return p.getFile(ctx, client, ref, path, gitRef, errCtx)
}

// CreateFile commits a new file. go-github marshals the
// []byte content as standard base64.
func (p *Provider) CreateFile(
	ctx context.Context,
	ref git.RepoRef,
	change git.FileChange,
) error {
	const errCtx = "creating github file"

	defer p.Serialize()()

	client, err := p.changeSession(&ref, change)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	_, resp, err := client.Repositories.CreateFile(
		ctx, ref.Owner, ref.Name, change.Path,
		fileOptions(change, ""),
	)
	if err := p.record(resp, err); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// UpdateFile commits new content for an existing file.
// When change.SHA is empty the current blob id is looked
// up on the target branch first.
func (p *Provider) UpdateFile(
	ctx context.Context,
	ref git.RepoRef,
	change git.FileChange,
) error {
	const errCtx = "updating github file"

	defer p.Serialize()()

	client, err := p.changeSession(&ref, change)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	sha, err := p.blobSHA(ctx, client, ref, change)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	_, resp, err := client.Repositories.UpdateFile(
		ctx, ref.Owner, ref.Name, change.Path,
		fileOptions(change, sha),
	)
	if err := p.record(resp, err); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// DeleteFile removes a file. When change.SHA is empty
// the current blob id is looked up first.
func (p *Provider) DeleteFile(
	ctx context.Context,
	ref git.RepoRef,
	change git.FileChange,
) error {
	const errCtx = "deleting github file"

	defer p.Serialize()()

	client, err := p.changeSession(&ref, change)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	sha, err := p.blobSHA(ctx, client, ref, change)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	opts := fileOptions(change, sha)
	opts.Content = nil

	_, resp, err := client.Repositories.DeleteFile(
		ctx, ref.Owner, ref.Name, change.Path, opts,
	)
	if err := p.record(resp, err); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

func (p *Provider) getFile(
	ctx context.Context,
	client *gh.Client,
	ref git.RepoRef,
	path string,
	gitRef string,
	errCtx string,
) (git.File, error) {
	var opts *gh.RepositoryContentGetOptions
	if gitRef != "" {
		opts = &gh.RepositoryContentGetOptions{Ref: gitRef}
	}

	file, _, resp, err := client.Repositories.GetContents(
		ctx, ref.Owner, ref.Name, path, opts,
	)
	if err := p.record(resp, err); err != nil {
		return git.File{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	if file == nil {
		return git.File{}, p.Fail(fmt.Errorf(
			"%s: %q is a directory: %w",
			errCtx, path, git.ErrInvalidInput,
		))
	}

	content, err := decodeContent(file)
	if err != nil {
		return git.File{},
			p.Fail(fmt.Errorf("%s: %w", errCtx, err))
	}

	return git.File{
		Path:    file.GetPath(),
		Name:    file.GetName(),
		SHA:     file.GetSHA(),
		Size:    file.GetSize(),
		Content: content,
		HTMLURL: file.GetHTMLURL(),
	}, nil
}

func (p *Provider) blobSHA(
	ctx context.Context,
	client *gh.Client,
	ref git.RepoRef,
	change git.FileChange,
) (string, error) {
	if change.SHA != "" {
		return change.SHA, nil
	}

	current, err := p.getFile(
		ctx, client, ref, change.Path, change.Branch,
		"resolving blob id",
	)
	if err != nil {
		return "", err
	}

	return current.SHA, nil
}

func (p *Provider) fileSession(
	ref *git.RepoRef,
	path string,
) (*gh.Client, error) {
	return p.changeSession(ref, git.FileChange{
		Path: path, Message: "read",
	})
}

func (p *Provider) changeSession(
	ref *git.RepoRef,
	change git.FileChange,
) (*gh.Client, error) {
	client, err := p.session(ref)
	if err != nil {
		return nil, err
	}

	if err := change.Validate(); err != nil {
		return nil, p.Fail(err)
	}

	return client, nil
}

func fileOptions(
	change git.FileChange,
	sha string,
) *gh.RepositoryContentFileOptions {
	opts := &gh.RepositoryContentFileOptions{
		Message: gh.Ptr(change.Message),
		Content: change.Content,
	}

	if opts.Content == nil {
		opts.Content = []byte{}
	}

	if change.Branch != "" {
		opts.Branch = gh.Ptr(change.Branch)
	}

	if sha != "" {
		opts.SHA = gh.Ptr(sha)
	}

	return opts
}

func decodeContent(file *gh.RepositoryContent) ([]byte, error) {
	switch file.GetEncoding() {
	case "base64":
		if file.Content == nil {
			return nil, fmt.Errorf(
				"base64 content is null: %w",
				git.ErrMalformedResponse,
			)
		}

		return transport.DecodeContent(*file.Content)
	case "":
		if file.Content == nil {
			return []byte{}, nil
		}

		return []byte(*file.Content), nil
	default:
		return nil, fmt.Errorf(
			"content encoding %q: %w",
			file.GetEncoding(), git.ErrUnsupported,
		)
	}
}
