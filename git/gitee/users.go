package gitee

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/byte4ever/gitlink/git"
	"github.com/byte4ever/gitlink/transport"
)

// GetUser fetches a user by login, or the
// authenticated user when login is empty.
func (p *Provider) GetUser(
	ctx context.Context,
	login string,
) (git.User, error) {
	const errCtx = "getting gitee user"

	defer p.Serialize()()

	if _, err := p.session(nil); err != nil {
		return git.User{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	path := []string{"user"}
	if login = strings.TrimSpace(login); login != "" {
		path = []string{"users", transport.PathEscape(login)}
	}

	var user geUser

	if _, err := p.do(ctx, request{
		method: http.MethodGet,
		path:   path,
	}, &user); err != nil {
		return git.User{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	out, err := user.toUser()
	if err != nil {
		return git.User{},
			p.Fail(fmt.Errorf("%s: %w", errCtx, err))
	}

	return out, nil
}
