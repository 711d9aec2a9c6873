package gitlab

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	gl "gitlab.com/gitlab-org/api/client-go"

	"github.com/byte4ever/gitlink/git"
)

// GetUser fetches a user by username, or the
// authenticated user when login is empty.
func (p *Provider) GetUser(
	ctx context.Context,
	login string,
) (git.User, error) {
	const errCtx = "getting gitlab user"

	defer p.Serialize()()

	client, err := p.session(nil)
	if err != nil {
		return git.User{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	var user *gl.User

	if strings.TrimSpace(login) == "" {
		var resp *gl.Response

		user, resp, err = client.Users.CurrentUser(gl.WithContext(ctx))
		err = p.record(resp, err)
	} else {
		user, err = p.lookupUser(ctx, client, login)
	}

	if err != nil {
		return git.User{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	out, err := toUser(user)
	if err != nil {
		return git.User{},
			p.Fail(fmt.Errorf("%s: %w", errCtx, err))
	}

	return out, nil
}

// lookupUser resolves a username through GET
// /users?username=. An empty match is a 404.
func (p *Provider) lookupUser(
	ctx context.Context,
	client *gl.Client,
	login string,
) (*gl.User, error) {
	users, resp, err := client.Users.ListUsers(
		&gl.ListUsersOptions{Username: gl.Ptr(login)},
		gl.WithContext(ctx),
	)
	if err := p.record(resp, err); err != nil {
		return nil, err
	}

	if len(users) == 0 || users[0] == nil || users[0].ID == 0 {
		return nil, p.Fail(&git.APIError{
			StatusCode: http.StatusNotFound,
			Body:       fmt.Sprintf("user %q not found", login),
		})
	}

	return users[0], nil
}
