package simulated

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"slices"
	"strings"

	"github.com/byte4ever/gitlink/digester"
	"github.com/byte4ever/gitlink/git"
)

// fileSession checks the credential and change and
// resolves the repository and branch. Only the default
// branch exists.
func (p *Provider) fileSession(
	ref git.RepoRef,
	change git.FileChange,
) (*repository, string, error) {
	if err := p.session(&ref); err != nil {
		return nil, "", err
	}

	if err := change.Validate(); err != nil {
		return nil, "", p.Fail(err)
	}

	r, err := p.repo(ref)
	if err != nil {
		return nil, "", err
	}

	if change.Branch != "" && change.Branch != r.info.DefaultBranch {
		return nil, "", p.fail(
			http.StatusNotFound, "branch %s not found", change.Branch,
		)
	}

	return r, strings.Trim(change.Path, "/"), nil
}

// GetFile returns a file of the default branch.
func (p *Provider) GetFile(
	_ context.Context,
	ref git.RepoRef,
	filePath string,
	gitRef string,
) (git.File, error) {
	const errCtx = "getting simulated file"

	defer p.Serialize()()

	r, name, err := p.fileSession(ref, git.FileChange{
		Path: filePath, Message: "read", Branch: gitRef,
	})
	if err != nil {
		return git.File{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	content, ok := r.files[name]
	if !ok {
		return git.File{}, fmt.Errorf("%s: %w", errCtx, p.fail(
			http.StatusNotFound, "file %s not found", name,
		))
	}

	p.ok()

	return git.File{
		Path:    name,
		Name:    path.Base(name),
		SHA:     digester.BlobID(content),
		Size:    len(content),
		Content: slices.Clone(content),
		HTMLURL: r.info.HTMLURL + "/blob/" + r.info.DefaultBranch + "/" + name,
	}, nil
}

// CreateFile adds a file. An existing path is a 422.
func (p *Provider) CreateFile(
	_ context.Context,
	ref git.RepoRef,
	change git.FileChange,
) error {
	const errCtx = "creating simulated file"

	defer p.Serialize()()

	r, name, err := p.fileSession(ref, change)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if _, exists := r.files[name]; exists {
		return fmt.Errorf("%s: %w", errCtx, p.fail(
			http.StatusUnprocessableEntity, "file %s already exists", name,
		))
	}

	r.files[name] = slices.Clone(change.Content)

	_ = p.Record(http.StatusCreated, nil)

	return nil
}

// UpdateFile replaces file content. A set SHA must match
// the current blob id.
func (p *Provider) UpdateFile(
	_ context.Context,
	ref git.RepoRef,
	change git.FileChange,
) error {
	const errCtx = "updating simulated file"

	defer p.Serialize()()

	r, name, err := p.existing(ref, change)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	r.files[name] = slices.Clone(change.Content)

	p.ok()

	return nil
}

// DeleteFile removes a file. A set SHA must match the
// current blob id.
func (p *Provider) DeleteFile(
	_ context.Context,
	ref git.RepoRef,
	change git.FileChange,
) error {
	const errCtx = "deleting simulated file"

	defer p.Serialize()()

	r, name, err := p.existing(ref, change)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	delete(r.files, name)

	p.ok()

	return nil
}

func (p *Provider) existing(
	ref git.RepoRef,
	change git.FileChange,
) (*repository, string, error) {
	r, name, err := p.fileSession(ref, change)
	if err != nil {
		return nil, "", err
	}

	content, ok := r.files[name]
	if !ok {
		return nil, "", p.fail(
			http.StatusNotFound, "file %s not found", name,
		)
	}

	if change.SHA != "" && !digester.Matches(content, change.SHA) {
		return nil, "", p.fail(
			http.StatusConflict, "%s does not match %s", change.SHA, name,
		)
	}

	return r, name, nil
}
