package device

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/byte4ever/gitlink/commitmsg"
	"github.com/byte4ever/gitlink/digester"
	"github.com/byte4ever/gitlink/git"
)

// PushRequest describes a local file to publish.
type PushRequest struct {
	Repo      git.RepoRef
	LocalPath string
	// RemotePath defaults to the local file name.
	RemotePath string
	Branch     string
	// Message is a commitmsg template; empty means the
	// default for the operation.
	Message string
}

// PushAction tells what PushFile did.
type PushAction string

const (
	PushCreated   PushAction = "created"
	PushUpdated   PushAction = "updated"
	PushUnchanged PushAction = "unchanged"
)

// PushResult reports the outcome of PushFile.
type PushResult struct {
	Action PushAction
	Path   string
	// BlobID is the id of the pushed content.
	BlobID string
}

// PushFile uploads a local file. Nothing is committed
// when the remote blob id already matches the local
// content.
func (c *Controller) PushFile(
	ctx context.Context,
	req PushRequest,
) (PushResult, error) {
	const errCtx = "pushing file"

	content, err := os.ReadFile(req.LocalPath)
	if err != nil {
		return PushResult{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	remote := req.RemotePath
	if remote == "" {
		remote = filepath.Base(req.LocalPath)
	}

	remote = path.Clean(filepath.ToSlash(remote))

	p, err := c.Connect(ctx)
	if err != nil {
		return PushResult{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	result := PushResult{
		Path:   remote,
		BlobID: digester.BlobID(content),
	}

	existing, err := p.GetFile(ctx, req.Repo, remote, req.Branch)

	op := commitmsg.OpUpdate

	switch {
	case git.IsNotFound(err):
		op = commitmsg.OpCreate
	case err != nil:
		return PushResult{}, fmt.Errorf("%s: %w", errCtx, err)
	case digester.Matches(content, existing.SHA):
		slog.Info("remote file unchanged", "path", remote, "blob", result.BlobID)

		result.Action = PushUnchanged

		return result, nil
	}

	msg, err := commitmsg.Generate(op, remote, c.deviceName, req.Message)
	if err != nil {
		return PushResult{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	change := git.FileChange{
		Path:    remote,
		Content: content,
		Message: msg,
		Branch:  req.Branch,
		SHA:     existing.SHA,
	}

	if op == commitmsg.OpCreate {
		err = p.CreateFile(ctx, req.Repo, change)
		result.Action = PushCreated
	} else {
		err = p.UpdateFile(ctx, req.Repo, change)
		result.Action = PushUpdated
	}

	if err != nil {
		return PushResult{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	slog.Info(
		"file pushed",
		"repo", req.Repo.String(),
		"path", remote,
		"action", result.Action,
	)

	return result, nil
}
