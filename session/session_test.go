package session_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/gitlink/git/gitee"
	"github.com/byte4ever/gitlink/git/github"
	"github.com/byte4ever/gitlink/git/gitlab"
	"github.com/byte4ever/gitlink/git/simulated"
	"github.com/byte4ever/gitlink/session"
)

func TestParseKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    session.Kind
		wantErr bool
	}{
		{name: "github", in: "github", want: session.GitHub},
		{name: "mixed case", in: " GitLab ", want: session.GitLab},
		{name: "gitee", in: "gitee", want: session.Gitee},
		{name: "unknown", in: "bitbucket", wantErr: true},
		{name: "empty", in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := session.ParseKind(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, session.ErrUnknownKind)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKind_Key(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "gitee.token", session.Gitee.Key("token"))
	assert.Equal(t, "GitLab", session.GitLab.DisplayName())
}

func TestNew_backends(t *testing.T) {
	t.Parallel()

	p, err := session.New(session.GitHub, session.Options{})
	require.NoError(t, err)
	assert.IsType(t, &github.Provider{}, p)

	p, err = session.New(session.GitLab, session.Options{})
	require.NoError(t, err)
	assert.IsType(t, &gitlab.Provider{}, p)

	p, err = session.New(session.Gitee, session.Options{
		APIBaseURL: "https://gitee.example/api/v5",
	})
	require.NoError(t, err)
	assert.IsType(t, &gitee.Provider{}, p)
	assert.Equal(t, "https://gitee.example/api/v5", p.APIBaseURL())
}

func TestNew_simulated(t *testing.T) {
	t.Parallel()

	p, err := session.New(session.GitLab, session.Options{
		APIBaseURL: "http://127.0.0.1:1/",
		Simulated:  true,
	})
	require.NoError(t, err)
	assert.IsType(t, &simulated.Provider{}, p)
	assert.Equal(t, "GitLab (simulated)", p.Name())

	require.NoError(t, p.Begin(context.Background(), simulated.Token))
	assert.Equal(t, simulated.Login, p.Username())

	_, err = session.New("svn", session.Options{Simulated: true})
	require.ErrorIs(t, err, session.ErrUnknownKind)
}

func TestNew_unknown_kind(t *testing.T) {
	t.Parallel()

	_, err := session.New("svn", session.Options{})
	require.ErrorIs(t, err, session.ErrUnknownKind)
}

func TestNew_bad_base_url(t *testing.T) {
	t.Parallel()

	_, err := session.New(session.GitHub, session.Options{
		APIBaseURL: "not a url",
	})
	require.Error(t, err)
}

func TestHolder(t *testing.T) {
	t.Parallel()

	h := session.NewHolder()

	_, err := h.Current()
	require.ErrorIs(t, err, session.ErrNoProvider)
	assert.Empty(t, h.Name())

	first, err := h.Select(session.GitHub, session.Options{})
	require.NoError(t, err)
	assert.Equal(t, "GitHub", h.Name())
	assert.Equal(t, session.GitHub, h.Kind())

	second, err := h.Select(session.Gitee, session.Options{})
	require.NoError(t, err)
	assert.NotSame(t, first, second)

	current, err := h.Current()
	require.NoError(t, err)
	assert.Same(t, second, current)

	h.Clear()
	h.Clear()

	_, err = h.Current()
	require.ErrorIs(t, err, session.ErrNoProvider)
	assert.Empty(t, h.Kind())
}
