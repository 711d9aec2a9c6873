package simulated_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/gitlink/digester"
	"github.com/byte4ever/gitlink/git"
	"github.com/byte4ever/gitlink/git/simulated"
)

var sandbox = git.RepoRef{Owner: simulated.Login, Name: "sandbox"}

func authed(t *testing.T) *simulated.Provider {
	t.Helper()

	pv := simulated.New("")
	require.NoError(t, pv.Begin(context.Background(), simulated.Token))

	return pv
}

func requireStatus(t *testing.T, err error, code int) {
	t.Helper()

	var apiErr *git.APIError

	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, code, apiErr.StatusCode)
}

func TestProvider_Begin(t *testing.T) {
	t.Parallel()

	pv := simulated.New("GitHub (simulated)")
	ctx := context.Background()

	require.ErrorIs(t, pv.Begin(ctx, ""), git.ErrNotAuthenticated)

	requireStatus(t, pv.Begin(ctx, "wrong"), http.StatusUnauthorized)
	assert.False(t, pv.IsAuthenticated())
	assert.Equal(t, http.StatusUnauthorized, pv.ResponseCode())

	require.NoError(t, pv.Begin(ctx, simulated.Token))
	assert.True(t, pv.IsAuthenticated())
	assert.Equal(t, simulated.Login, pv.Username())
	assert.Equal(t, "GitHub (simulated)", pv.Name())
	assert.Equal(t, simulated.BaseURL, pv.APIBaseURL())

	pv.End()
	pv.End()
	assert.False(t, pv.IsAuthenticated())
}

func TestProvider_Probe_does_not_authenticate(t *testing.T) {
	t.Parallel()

	pv := simulated.New("")

	login, err := pv.Probe(context.Background(), simulated.Token)
	require.NoError(t, err)
	assert.Equal(t, simulated.Login, login)
	assert.False(t, pv.IsAuthenticated())

	_, err = pv.Probe(context.Background(), "wrong")
	requireStatus(t, err, http.StatusUnauthorized)
}

func TestProvider_requires_authentication(t *testing.T) {
	t.Parallel()

	pv := simulated.New("")
	ctx := context.Background()

	_, err := pv.ListRepositories(ctx, 10)
	require.ErrorIs(t, err, git.ErrNotAuthenticated)

	_, err = pv.GetIssue(ctx, sandbox, 1)
	require.ErrorIs(t, err, git.ErrNotAuthenticated)

	err = pv.CreateFile(ctx, sandbox, git.FileChange{Path: "a", Message: "m"})
	require.ErrorIs(t, err, git.ErrNotAuthenticated)
}

func TestProvider_repositories(t *testing.T) {
	t.Parallel()

	pv := authed(t)
	ctx := context.Background()

	created, err := pv.CreateRepository(ctx, git.RepositoryDraft{
		Name: "notes", Description: "Field notes",
	})
	require.NoError(t, err)
	assert.Equal(t, "demo/notes", created.FullName)
	assert.Equal(t, http.StatusCreated, pv.ResponseCode())

	_, err = pv.CreateRepository(ctx, git.RepositoryDraft{Name: "notes"})
	requireStatus(t, err, http.StatusUnprocessableEntity)

	page, err := pv.ListRepositories(ctx, 1)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "demo/notes", page.Items[0].FullName)
	assert.True(t, page.HasMore)

	found, err := pv.SearchRepositories(ctx, "FIELD", 10)
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	assert.Equal(t, "notes", found.Items[0].Name)

	_, err = pv.SearchRepositories(ctx, " ", 10)
	require.ErrorIs(t, err, git.ErrInvalidInput)

	require.NoError(t, pv.DeleteRepository(ctx, created.Ref()))

	_, err = pv.GetRepository(ctx, created.Ref())
	assert.True(t, git.IsNotFound(err))
	assert.Equal(t, http.StatusNotFound, pv.ResponseCode())
}

func TestProvider_issue_lifecycle(t *testing.T) {
	t.Parallel()

	pv := authed(t)
	ctx := context.Background()

	is, err := pv.CreateIssueEx(ctx, sandbox, git.IssueDraft{
		Title:     "Broken",
		Labels:    []string{"BUG", "triage"},
		Assignees: []string{simulated.Login},
		Milestone: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, is.Number)
	assert.Equal(t, []string{"bug", "triage"}, is.Labels)
	assert.Equal(t, "v1", is.Milestone)

	labels, err := pv.ListLabels(ctx, sandbox)
	require.NoError(t, err)
	assert.Len(t, labels, 3)

	require.NoError(t, pv.CloseIssue(ctx, sandbox, 1))

	open, err := pv.ListIssues(ctx, sandbox, "", 10)
	require.NoError(t, err)
	assert.Empty(t, open.Items)

	all, err := pv.ListIssues(ctx, sandbox, git.StateAll, 10)
	require.NoError(t, err)
	require.Len(t, all.Items, 1)
	assert.Equal(t, "closed", all.Items[0].State)

	require.NoError(t, pv.ReopenIssue(ctx, sandbox, 1))

	updated, err := pv.UpdateIssue(ctx, sandbox, 1, git.IssueDraft{
		Body: "Steps", Labels: []string{},
	})
	require.NoError(t, err)
	assert.Equal(t, "Broken", updated.Title)
	assert.Equal(t, "Steps", updated.Body)
	assert.Empty(t, updated.Labels)

	_, err = pv.GetIssue(ctx, sandbox, 2)
	assert.True(t, git.IsNotFound(err))

	_, err = pv.GetIssue(ctx, sandbox, 0)
	require.ErrorIs(t, err, git.ErrInvalidInput)
}

func TestProvider_comments(t *testing.T) {
	t.Parallel()

	pv := authed(t)
	ctx := context.Background()

	_, err := pv.CreateIssue(ctx, sandbox, "Question", "")
	require.NoError(t, err)

	c, err := pv.AddComment(ctx, sandbox, 1, "first")
	require.NoError(t, err)
	assert.Equal(t, simulated.Login, c.Author)

	_, err = pv.AddComment(ctx, sandbox, 1, "  ")
	require.ErrorIs(t, err, git.ErrInvalidInput)

	edited, err := pv.EditComment(ctx, sandbox, 1, c.ID, "second")
	require.NoError(t, err)
	assert.Equal(t, "second", edited.Body)

	page, err := pv.ListComments(ctx, sandbox, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	is, err := pv.GetIssue(ctx, sandbox, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, is.Comments)

	require.NoError(t, pv.DeleteComment(ctx, sandbox, 1, c.ID))

	err = pv.DeleteComment(ctx, sandbox, 1, c.ID)
	assert.True(t, git.IsNotFound(err))
}

func TestProvider_triage(t *testing.T) {
	t.Parallel()

	pv := authed(t)
	ctx := context.Background()

	_, err := pv.CreateIssue(ctx, sandbox, "Triage me", "")
	require.NoError(t, err)

	require.NoError(t, pv.AddLabel(ctx, sandbox, 1, "enhancement"))
	require.NoError(t, pv.AddLabel(ctx, sandbox, 1, "enhancement"))
	require.NoError(t, pv.RemoveLabel(ctx, sandbox, 1, "Enhancement"))

	err = pv.RemoveLabel(ctx, sandbox, 1, "enhancement")
	assert.True(t, git.IsNotFound(err))

	err = pv.AddLabel(ctx, sandbox, 1, " ")
	require.ErrorIs(t, err, git.ErrInvalidInput)

	require.NoError(t, pv.AddAssignee(ctx, sandbox, 1, simulated.Login))

	err = pv.AddAssignee(ctx, sandbox, 1, "someone")
	assert.True(t, git.IsNotFound(err))

	require.NoError(t, pv.RemoveAssignee(ctx, sandbox, 1, "someone"))

	assignees, err := pv.ListAssignees(ctx, sandbox)
	require.NoError(t, err)
	require.Len(t, assignees, 1)
	assert.Equal(t, simulated.Login, assignees[0].Login)

	require.NoError(t, pv.SetMilestone(ctx, sandbox, 1, 1))

	is, err := pv.GetIssue(ctx, sandbox, 1)
	require.NoError(t, err)
	assert.Equal(t, "v1", is.Milestone)
	assert.Equal(t, []string{simulated.Login}, is.Assignees)

	err = pv.SetMilestone(ctx, sandbox, 1, 9)
	assert.True(t, git.IsNotFound(err))

	require.NoError(t, pv.ClearMilestone(ctx, sandbox, 1))

	is, err = pv.GetIssue(ctx, sandbox, 1)
	require.NoError(t, err)
	assert.Empty(t, is.Milestone)

	milestones, err := pv.ListMilestones(ctx, sandbox, git.StateClosed)
	require.NoError(t, err)
	assert.Empty(t, milestones)
}

func TestProvider_state_filter_rejected(t *testing.T) {
	t.Parallel()

	pv := authed(t)
	ctx := context.Background()

	_, err := pv.ListIssues(ctx, sandbox, "opened", 10)
	require.ErrorIs(t, err, git.ErrInvalidInput)
	assert.Contains(t, pv.LastError(), `"opened"`)

	_, err = pv.ListMilestones(ctx, sandbox, "active")
	require.ErrorIs(t, err, git.ErrInvalidInput)
}

func TestProvider_files(t *testing.T) {
	t.Parallel()

	pv := authed(t)
	ctx := context.Background()

	readme, err := pv.GetFile(ctx, sandbox, "/README.md", "")
	require.NoError(t, err)
	assert.Equal(t, "# sandbox\n", string(readme.Content))
	assert.Equal(t, digester.BlobID(readme.Content), readme.SHA)

	change := git.FileChange{
		Path: "notes.md", Content: []byte("hello\n"), Message: "add notes",
	}
	require.NoError(t, pv.CreateFile(ctx, sandbox, change))

	err = pv.CreateFile(ctx, sandbox, change)
	requireStatus(t, err, http.StatusUnprocessableEntity)

	change.Content = []byte("bye\n")
	change.SHA = "0000000000000000000000000000000000000000"
	requireStatus(t, pv.UpdateFile(ctx, sandbox, change), http.StatusConflict)

	change.SHA = "ce013625030ba8dba906f756967f9e9ca394464a"
	require.NoError(t, pv.UpdateFile(ctx, sandbox, change))

	got, err := pv.GetFile(ctx, sandbox, "notes.md", "main")
	require.NoError(t, err)
	assert.Equal(t, "bye\n", string(got.Content))

	_, err = pv.GetFile(ctx, sandbox, "notes.md", "dev")
	assert.True(t, git.IsNotFound(err))

	require.NoError(t, pv.DeleteFile(ctx, sandbox, git.FileChange{
		Path: "notes.md", Message: "drop notes",
	}))

	_, err = pv.GetFile(ctx, sandbox, "notes.md", "")
	assert.True(t, git.IsNotFound(err))

	err = pv.CreateFile(ctx, sandbox, git.FileChange{Path: "x"})
	require.ErrorIs(t, err, git.ErrInvalidInput)
}

func TestProvider_GetUser(t *testing.T) {
	t.Parallel()

	pv := authed(t)
	ctx := context.Background()

	me, err := pv.GetUser(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, simulated.Login, me.Login)
	assert.Equal(t, 1, me.PublicRepos)

	_, err = pv.GetUser(ctx, "octocat")
	assert.True(t, git.IsNotFound(err))
}
