package git_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/gitlink/git"
)

func TestProberFunc_Probe_passes_token(t *testing.T) {
	t.Parallel()

	var gotToken string

	fn := git.ProberFunc(
		func(
			_ context.Context,
			token string,
		) (string, error) {
			gotToken = token

			return "octocat", nil
		},
	)

	login, err := fn.Probe(context.Background(), "tok")

	require.NoError(t, err)
	assert.Equal(t, "tok", gotToken)
	assert.Equal(t, "octocat", login)
}

func TestProberFunc_Probe_empty_token(t *testing.T) {
	t.Parallel()

	called := false

	fn := git.ProberFunc(
		func(
			_ context.Context,
			_ string,
		) (string, error) {
			called = true

			return "", nil
		},
	)

	_, err := fn.Probe(context.Background(), "")

	require.ErrorIs(t, err, git.ErrNotAuthenticated)
	assert.False(t, called)
}

func TestProberFunc_Probe_propagates_error(t *testing.T) {
	t.Parallel()

	errBoom := errors.New("boom")

	fn := git.ProberFunc(
		func(
			_ context.Context,
			_ string,
		) (string, error) {
			return "", errBoom
		},
	)

	_, err := fn.Probe(context.Background(), "tok")

	assert.ErrorIs(t, err, errBoom)
}
