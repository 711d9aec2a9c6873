package gitlab

import (
	"context"
	"fmt"
	"path"
	"strings"

	gl "gitlab.com/gitlab-org/api/client-go"

	"github.com/byte4ever/gitlink/git"
	"github.com/byte4ever/gitlink/transport"
)

// GetFile fetches a file at gitRef (empty means the
// project default branch) and decodes its content.
func (p *Provider) GetFile(
	ctx context.Context,
	ref git.RepoRef,
	filePath string,
	gitRef string,
) (git.File, error) {
	const errCtx = "getting gitlab file"

	defer p.Serialize()()

	client, project, err := p.fileSession(
		ctx, ref, git.FileChange{Path: filePath, Message: "read"},
	)
	if err != nil {
		return git.File{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	if gitRef == "" {
		gitRef = branchOf(project, "")
	}

	file, resp, err := client.RepositoryFiles.GetFile(
		project.ID, cleanPath(filePath),
		&gl.GetFileOptions{Ref: gl.Ptr(gitRef)},
		gl.WithContext(ctx),
	)
	if err := p.record(resp, err); err != nil {
		return git.File{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	if file == nil {
		return git.File{},
			p.Fail(fmt.Errorf("%s: %w", errCtx, malformed("file")))
	}

	content, err := decodeContent(file)
	if err != nil {
		return git.File{},
			p.Fail(fmt.Errorf("%s: %w", errCtx, err))
	}

	name := file.FileName
	if name == "" {
		name = path.Base(file.FilePath)
	}

	return git.File{
		Path:    file.FilePath,
		Name:    name,
		SHA:     file.BlobID,
		Size:    int(file.Size),
		Content: content,
		HTMLURL: strings.TrimSuffix(project.WebURL, "/") +
			"/-/blob/" + gitRef + "/" + file.FilePath,
	}, nil
}

// CreateFile commits a new file. Content travels base64
// encoded.
func (p *Provider) CreateFile(
	ctx context.Context,
	ref git.RepoRef,
	change git.FileChange,
) error {
	const errCtx = "creating gitlab file"

	return p.writeFile(ctx, ref, change, errCtx, createFile)
}

// UpdateFile commits new content for an existing file.
// change.SHA is not needed by GitLab and is ignored.
func (p *Provider) UpdateFile(
	ctx context.Context,
	ref git.RepoRef,
	change git.FileChange,
) error {
	const errCtx = "updating gitlab file"

	return p.writeFile(ctx, ref, change, errCtx, updateFile)
}

// DeleteFile removes a file.
func (p *Provider) DeleteFile(
	ctx context.Context,
	ref git.RepoRef,
	change git.FileChange,
) error {
	const errCtx = "deleting gitlab file"

	defer p.Serialize()()

	client, project, err := p.fileSession(ctx, ref, change)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	resp, err := client.RepositoryFiles.DeleteFile(
		project.ID, cleanPath(change.Path),
		&gl.DeleteFileOptions{
			Branch:        gl.Ptr(branchOf(project, change.Branch)),
			CommitMessage: gl.Ptr(change.Message),
		},
		gl.WithContext(ctx),
	)
	if err := p.record(resp, err); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// fileWrite sends one encoded commit of a file.
type fileWrite func(
	ctx context.Context,
	client *gl.Client,
	project *gl.Project,
	filePath string,
	branch string,
	content string,
	message string,
) (*gl.Response, error)

func createFile(
	ctx context.Context,
	client *gl.Client,
	project *gl.Project,
	filePath, branch, content, message string,
) (*gl.Response, error) {
	_, resp, err := client.RepositoryFiles.CreateFile(
		project.ID, filePath,
		&gl.CreateFileOptions{
			Branch:        gl.Ptr(branch),
			Encoding:      gl.Ptr("base64"),
			Content:       gl.Ptr(content),
			CommitMessage: gl.Ptr(message),
		},
		gl.WithContext(ctx),
	)

	return resp, err
}

func updateFile(
	ctx context.Context,
	client *gl.Client,
	project *gl.Project,
	filePath, branch, content, message string,
) (*gl.Response, error) {
	_, resp, err := client.RepositoryFiles.UpdateFile(
		project.ID, filePath,
		&gl.UpdateFileOptions{
			Branch:        gl.Ptr(branch),
			Encoding:      gl.Ptr("base64"),
			Content:       gl.Ptr(content),
			CommitMessage: gl.Ptr(message),
		},
		gl.WithContext(ctx),
	)

	return resp, err
}

func (p *Provider) writeFile(
	ctx context.Context,
	ref git.RepoRef,
	change git.FileChange,
	errCtx string,
	write fileWrite,
) error {
	defer p.Serialize()()

	client, project, err := p.fileSession(ctx, ref, change)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	resp, err := write(
		ctx, client, project,
		cleanPath(change.Path),
		branchOf(project, change.Branch),
		transport.EncodeContent(change.Content),
		change.Message,
	)
	if err := p.record(resp, err); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

func (p *Provider) fileSession(
	ctx context.Context,
	ref git.RepoRef,
	change git.FileChange,
) (*gl.Client, *gl.Project, error) {
	if _, err := p.session(&ref); err != nil {
		return nil, nil, err
	}

	if err := change.Validate(); err != nil {
		return nil, nil, p.Fail(err)
	}

	return p.projectSession(ctx, ref)
}

// cleanPath drops leading and trailing slashes; the
// client escapes the rest as one path segment.
func cleanPath(filePath string) string {
	return strings.Trim(filePath, "/")
}

// branchOf returns branch, else the project default
// branch, else HEAD.
func branchOf(project *gl.Project, branch string) string {
	switch {
	case branch != "":
		return branch
	case project.DefaultBranch != "":
		return project.DefaultBranch
	default:
		return "HEAD"
	}
}

func decodeContent(file *gl.File) ([]byte, error) {
	switch file.Encoding {
	case "base64":
		return transport.DecodeContent(file.Content)
	case "", "text":
		return []byte(file.Content), nil
	default:
		return nil, fmt.Errorf(
			"content encoding %q: %w",
			file.Encoding, git.ErrUnsupported,
		)
	}
}
