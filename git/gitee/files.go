package gitee

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"

	json "github.com/goccy/go-json"

	"github.com/byte4ever/gitlink/git"
	"github.com/byte4ever/gitlink/transport"
)

// GetFile fetches a file at gitRef (empty means the
// default branch) and decodes its base64 content.
func (p *Provider) GetFile(
	ctx context.Context,
	ref git.RepoRef,
	path string,
	gitRef string,
) (git.File, error) {
	const errCtx = "getting gitee file"

	defer p.Serialize()()

	if err := p.changeSession(&ref, git.FileChange{
		Path: path, Message: "read",
	}); err != nil {
		return git.File{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	file, err := p.getFile(ctx, ref, path, gitRef)
	if err != nil {
		return git.File{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	return file, nil
}

// CreateFile commits a new file with base64 content.
func (p *Provider) CreateFile(
	ctx context.Context,
	ref git.RepoRef,
	change git.FileChange,
) error {
	const errCtx = "creating gitee file"

	defer p.Serialize()()

	if err := p.changeSession(&ref, change); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if _, err := p.do(ctx, request{
		method: http.MethodPost,
		path:   contentsPath(ref, change.Path),
		body: &contentBody{
			Content: transport.EncodeContent(change.Content),
			Message: change.Message,
			Branch:  change.Branch,
		},
	}, nil); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// UpdateFile commits new content for an existing file.
// When change.SHA is empty the current blob id is
// looked up first.
func (p *Provider) UpdateFile(
	ctx context.Context,
	ref git.RepoRef,
	change git.FileChange,
) error {
	const errCtx = "updating gitee file"

	defer p.Serialize()()

	if err := p.changeSession(&ref, change); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	sha, err := p.blobSHA(ctx, ref, change)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if _, err := p.do(ctx, request{
		method: http.MethodPut,
		path:   contentsPath(ref, change.Path),
		body: &contentBody{
			Content: transport.EncodeContent(change.Content),
			Message: change.Message,
			Branch:  change.Branch,
			SHA:     sha,
		},
	}, nil); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// DeleteFile removes a file. The parameters travel in
// the query string.
func (p *Provider) DeleteFile(
	ctx context.Context,
	ref git.RepoRef,
	change git.FileChange,
) error {
	const errCtx = "deleting gitee file"

	defer p.Serialize()()

	if err := p.changeSession(&ref, change); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	sha, err := p.blobSHA(ctx, ref, change)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	query := url.Values{}
	query.Set("sha", sha)
	query.Set("message", change.Message)

	if change.Branch != "" {
		query.Set("branch", change.Branch)
	}

	if _, err := p.do(ctx, request{
		method: http.MethodDelete,
		path:   contentsPath(ref, change.Path),
		query:  query,
	}, nil); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

func (p *Provider) getFile(
	ctx context.Context,
	ref git.RepoRef,
	path string,
	gitRef string,
) (git.File, error) {
	var query url.Values
	if gitRef != "" {
		query = url.Values{"ref": []string{gitRef}}
	}

	var raw json.RawMessage

	if _, err := p.do(ctx, request{
		method: http.MethodGet,
		path:   contentsPath(ref, path),
		query:  query,
	}, &raw); err != nil {
		return git.File{}, err
	}

	// A missing file answers with an empty array and a
	// directory with an array of entries.
	if string(bytes.TrimSpace(raw)) == "[]" {
		return git.File{}, p.Record(http.StatusNotFound, &git.APIError{
			StatusCode: http.StatusNotFound,
			Body:       "file not found: " + path,
		})
	}

	var content geContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return git.File{}, p.Fail(fmt.Errorf(
			"%q is not a file: %w", path, git.ErrInvalidInput,
		))
	}

	if content.Type != "" && content.Type != "file" {
		return git.File{}, p.Fail(fmt.Errorf(
			"%q is a %s: %w", path, content.Type, git.ErrInvalidInput,
		))
	}

	if content.SHA == "" {
		return git.File{}, p.Fail(fmt.Errorf(
			"file without sha: %w", git.ErrMalformedResponse,
		))
	}

	decoded, err := decodeContent(content)
	if err != nil {
		return git.File{}, p.Fail(err)
	}

	return git.File{
		Path:    content.Path,
		Name:    content.Name,
		SHA:     content.SHA,
		Size:    content.Size,
		Content: decoded,
		HTMLURL: content.HTMLURL,
	}, nil
}

func (p *Provider) blobSHA(
	ctx context.Context,
	ref git.RepoRef,
	change git.FileChange,
) (string, error) {
	if change.SHA != "" {
		return change.SHA, nil
	}

	current, err := p.getFile(ctx, ref, change.Path, change.Branch)
	if err != nil {
		return "", fmt.Errorf("resolving blob id: %w", err)
	}

	return current.SHA, nil
}

func (p *Provider) changeSession(
	ref *git.RepoRef,
	change git.FileChange,
) error {
	if _, err := p.session(ref); err != nil {
		return err
	}

	if err := change.Validate(); err != nil {
		return p.Fail(err)
	}

	return nil
}

func contentsPath(ref git.RepoRef, path string) []string {
	return repoPath(ref, "contents", transport.FilePath(path))
}

func decodeContent(content geContent) ([]byte, error) {
	switch content.Encoding {
	case "base64":
		return transport.DecodeContent(content.Content)
	case "":
		return []byte(content.Content), nil
	default:
		return nil, fmt.Errorf(
			"content encoding %q: %w",
			content.Encoding, git.ErrUnsupported,
		)
	}
}
