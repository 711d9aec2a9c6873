package git_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/gitlink/git"
)

func TestState_zero_value(t *testing.T) {
	t.Parallel()

	var st git.State

	assert.False(t, st.IsAuthenticated())
	assert.Empty(t, st.Username())
	assert.Zero(t, st.ResponseCode())

	_, err := st.Token()
	require.ErrorIs(t, err, git.ErrNotAuthenticated)
	assert.Equal(t, "not authenticated", st.LastError())
}

func TestState_Authenticate_empty_token(t *testing.T) {
	t.Parallel()

	var st git.State

	st.Authenticate("", "octocat")

	assert.False(t, st.IsAuthenticated())
	assert.Empty(t, st.Username())
}

func TestState_Authenticate_and_Clear(t *testing.T) {
	t.Parallel()

	var st git.State

	st.Authenticate("tok", "octocat")

	tok, err := st.Token()
	require.NoError(t, err)
	assert.Equal(t, "tok", tok)
	assert.True(t, st.IsAuthenticated())
	assert.Equal(t, "octocat", st.Username())

	st.Clear()
	st.Clear()

	assert.False(t, st.IsAuthenticated())
	assert.Empty(t, st.Username())
}

func TestState_Record(t *testing.T) {
	t.Parallel()

	var st git.State

	err := st.Record(404, &git.APIError{
		StatusCode: 404,
		Body:       `{"message":"Not Found"}`,
	})

	require.Error(t, err)
	assert.Equal(t, 404, st.ResponseCode())
	assert.Equal(
		t, `HTTP 404: {"message":"Not Found"}`,
		st.LastError(),
	)
	assert.True(t, git.IsNotFound(err))

	require.NoError(t, st.Record(200, nil))
	assert.Equal(t, 200, st.ResponseCode())
	assert.Empty(t, st.LastError())
}

func TestState_Fail_keeps_code(t *testing.T) {
	t.Parallel()

	var st git.State

	_ = st.Record(-1, errors.New("dial tcp: refused"))
	err := st.Fail(git.ErrInvalidInput)

	assert.ErrorIs(t, err, git.ErrInvalidInput)
	assert.Equal(t, -1, st.ResponseCode())
	assert.Equal(t, "invalid input", st.LastError())
	assert.NoError(t, st.Fail(nil))
}

func TestState_Serialize(t *testing.T) {
	t.Parallel()

	var (
		st      git.State
		mu      sync.Mutex
		running int
		peak    int
		wg      sync.WaitGroup
	)

	for range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()
			defer st.Serialize()()

			mu.Lock()
			running++
			peak = max(peak, running)
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			running--
			mu.Unlock()
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, peak)
}
