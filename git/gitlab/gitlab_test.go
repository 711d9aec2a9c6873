package gitlab_test

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/gitlink/git"
	glprov "github.com/byte4ever/gitlink/git/gitlab"
)

var repo = git.RepoRef{Owner: "octo", Name: "hello"}

const (
	userPath    = "GET /api/v4/user"
	projectPath = "GET /api/v4/projects/octo%2Fhello"
	projectJSON = `{"id":42,"name":"hello",` +
		`"path_with_namespace":"octo/hello",` +
		`"namespace":{"full_path":"octo"},` +
		`"default_branch":"trunk",` +
		`"web_url":"https://gitlab.example/octo/hello"}`
)

// fakeGitLab routes on method and escaped path, so
// url-encoded project paths stay distinguishable.
type fakeGitLab struct {
	*httptest.Server

	mu     sync.Mutex
	hits   []string
	token  string
	agent  string
	body   map[string][]byte
	query  map[string]url.Values
	routes map[string]http.HandlerFunc
}

func newFakeGitLab(
	t *testing.T,
	routes map[string]http.HandlerFunc,
) *fakeGitLab {
	t.Helper()

	fk := &fakeGitLab{
		body:   map[string][]byte{},
		query:  map[string]url.Values{},
		routes: map[string]http.HandlerFunc{},
	}

	fk.routes[userPath] = func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("PRIVATE-TOKEN") != "tok" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(
				w, `{"message":"401 Unauthorized"}`,
			)

			return
		}

		_, _ = io.WriteString(
			w, `{"id":7,"username":"tanuki"}`,
		)
	}

	for key, h := range routes {
		fk.routes[key] = h
	}

	fk.Server = httptest.NewServer(
		http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				key := r.Method + " " + r.URL.EscapedPath()
				b, _ := io.ReadAll(r.Body)

				fk.mu.Lock()
				fk.hits = append(fk.hits, key)
				fk.token = r.Header.Get("PRIVATE-TOKEN")
				fk.agent = r.Header.Get("User-Agent")
				fk.body[key] = b
				fk.query[key] = r.URL.Query()
				h, ok := fk.routes[key]
				fk.mu.Unlock()

				if !ok {
					w.WriteHeader(http.StatusNotFound)
					_, _ = io.WriteString(
						w, `{"message":"404 Not Found"}`,
					)

					return
				}

				w.Header().Set("Content-Type", "application/json")
				h(w, r)
			},
		),
	)
	t.Cleanup(fk.Close)

	return fk
}

func (fk *fakeGitLab) Hits() []string {
	fk.mu.Lock()
	defer fk.mu.Unlock()

	return append([]string(nil), fk.hits...)
}

func (fk *fakeGitLab) Count(key string) int {
	fk.mu.Lock()
	defer fk.mu.Unlock()

	var n int

	for _, hit := range fk.hits {
		if hit == key {
			n++
		}
	}

	return n
}

func (fk *fakeGitLab) Body(key string) []byte {
	fk.mu.Lock()
	defer fk.mu.Unlock()

	return fk.body[key]
}

func (fk *fakeGitLab) Query(key string) url.Values {
	fk.mu.Lock()
	defer fk.mu.Unlock()

	return fk.query[key]
}

func newProvider(
	t *testing.T,
	fk *fakeGitLab,
) *glprov.Provider {
	t.Helper()

	pv, err := glprov.NewProvider(glprov.Config{
		BaseURL: fk.URL,
	})
	require.NoError(t, err)

	return pv
}

func authed(
	t *testing.T,
	routes map[string]http.HandlerFunc,
) (*glprov.Provider, *fakeGitLab) {
	t.Helper()

	fk := newFakeGitLab(t, routes)
	pv := newProvider(t, fk)

	require.NoError(t, pv.Begin(context.Background(), "tok"))

	return pv, fk
}

func jsonHandler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func withProject(
	routes map[string]http.HandlerFunc,
) map[string]http.HandlerFunc {
	routes[projectPath] = jsonHandler(http.StatusOK, projectJSON)

	return routes
}

func TestNewProvider_defaults(t *testing.T) {
	t.Parallel()

	pv, err := glprov.NewProvider(glprov.Config{})
	require.NoError(t, err)

	assert.Equal(t, "GitLab", pv.Name())
	assert.Equal(t, glprov.DefaultBaseURL, pv.APIBaseURL())
	assert.False(t, pv.IsAuthenticated())
}

func TestNewProvider_appends_api_path(t *testing.T) {
	t.Parallel()

	pv, err := glprov.NewProvider(glprov.Config{
		BaseURL: "https://gitlab.corp.example",
	})
	require.NoError(t, err)

	assert.Equal(
		t,
		"https://gitlab.corp.example/api/v4/",
		pv.APIBaseURL(),
	)
}

func TestNewProvider_relative_base_url(t *testing.T) {
	t.Parallel()

	_, err := glprov.NewProvider(glprov.Config{
		BaseURL: "gitlab/api",
	})
	require.ErrorIs(t, err, git.ErrInvalidInput)
}

func TestProvider_Begin_empty_token(t *testing.T) {
	t.Parallel()

	fk := newFakeGitLab(t, nil)
	pv := newProvider(t, fk)

	err := pv.Begin(context.Background(), "")
	require.ErrorIs(t, err, git.ErrNotAuthenticated)

	assert.False(t, pv.IsAuthenticated())
	assert.Empty(t, fk.Hits())
}

func TestProvider_Begin_success(t *testing.T) {
	t.Parallel()

	pv, fk := authed(t, nil)

	assert.True(t, pv.IsAuthenticated())
	assert.Equal(t, "tanuki", pv.Username())
	assert.Equal(t, []string{userPath}, fk.Hits())
	assert.Equal(t, http.StatusOK, pv.ResponseCode())

	fk.mu.Lock()
	defer fk.mu.Unlock()

	assert.Equal(t, "tok", fk.token)
	assert.Equal(t, "gitlink/1.0", fk.agent)
}

func TestProvider_Begin_bad_credentials(t *testing.T) {
	t.Parallel()

	fk := newFakeGitLab(t, nil)
	pv := newProvider(t, fk)

	err := pv.Begin(context.Background(), "nope")

	var apiErr *git.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.False(t, pv.IsAuthenticated())
	assert.Equal(t, http.StatusUnauthorized, pv.ResponseCode())
	assert.Contains(t, pv.LastError(), "HTTP 401")
}

func TestProvider_requires_authentication(t *testing.T) {
	t.Parallel()

	fk := newFakeGitLab(t, withProject(
		map[string]http.HandlerFunc{},
	))
	pv := newProvider(t, fk)

	_, err := pv.ListIssues(
		context.Background(), repo, git.StateOpen, 10,
	)
	require.ErrorIs(t, err, git.ErrNotAuthenticated)

	assert.Empty(t, fk.Hits())
	assert.Equal(t, git.ErrNotAuthenticated.Error(), pv.LastError())
}

func TestProvider_lookup_without_id(t *testing.T) {
	t.Parallel()

	pv, fk := authed(t, map[string]http.HandlerFunc{
		projectPath: jsonHandler(
			http.StatusOK, `{"name":"hello"}`,
		),
	})

	_, err := pv.ListIssues(
		context.Background(), repo, git.StateOpen, 10,
	)
	require.ErrorIs(t, err, git.ErrProjectNotFound)

	assert.Equal(t, []string{userPath, projectPath}, fk.Hits())
	assert.Contains(t, pv.LastError(), "no id")
}

func TestProvider_lookup_not_found(t *testing.T) {
	t.Parallel()

	pv, fk := authed(t, nil)

	err := pv.CloseIssue(context.Background(), repo, 3)
	require.ErrorIs(t, err, git.ErrProjectNotFound)

	assert.True(t, git.IsNotFound(err))
	assert.Equal(t, []string{userPath, projectPath}, fk.Hits())
}

func TestProvider_ListIssues(t *testing.T) {
	t.Parallel()

	const issuesPath = "GET /api/v4/projects/42/issues"

	pv, fk := authed(t, withProject(map[string]http.HandlerFunc{
		issuesPath: func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("X-Next-Page", "2")
			_, _ = io.WriteString(w, `[{
				"id":900,"iid":3,"title":"bug","state":"opened",
				"author":{"id":7,"username":"tanuki"},
				"labels":["p1"],
				"assignees":[{"id":8,"username":"fox"}],
				"milestone":{"id":5,"title":"v1"}
			}]`)
		},
	}))

	page, err := pv.ListIssues(
		context.Background(), repo, git.StateOpen, 1,
	)
	require.NoError(t, err)

	require.Len(t, page.Items, 1)
	assert.True(t, page.HasMore)

	issue := page.Items[0]
	assert.Equal(t, 3, issue.Number)
	assert.Equal(t, "open", issue.State)
	assert.Equal(t, "tanuki", issue.Author)
	assert.Equal(t, []string{"fox"}, issue.Assignees)
	assert.Equal(t, "v1", issue.Milestone)

	q := fk.Query(issuesPath)
	assert.Equal(t, "opened", q.Get("state"))
	assert.Equal(t, "1", q.Get("per_page"))

	_, err = pv.ListIssues(
		context.Background(), repo, git.StateAll, 1,
	)
	require.NoError(t, err)

	assert.False(t, fk.Query(issuesPath).Has("state"))
	assert.Equal(t, 1, fk.Count(projectPath), "project id is cached")
}

func TestProvider_End_drops_project_cache(t *testing.T) {
	t.Parallel()

	pv, fk := authed(t, withProject(map[string]http.HandlerFunc{
		"GET /api/v4/projects/42/labels": jsonHandler(
			http.StatusOK, `[{"id":1,"name":"bug","color":"#d73a4a"}]`,
		),
	}))

	labels, err := pv.ListLabels(context.Background(), repo)
	require.NoError(t, err)
	require.Len(t, labels, 1)
	assert.Equal(t, "d73a4a", labels[0].Color)

	pv.End()
	pv.End()
	assert.False(t, pv.IsAuthenticated())

	require.NoError(t, pv.Begin(context.Background(), "tok"))

	_, err = pv.ListLabels(context.Background(), repo)
	require.NoError(t, err)

	assert.Equal(t, 2, fk.Count(projectPath))
}

func TestProvider_ListComments_drops_system_notes(t *testing.T) {
	t.Parallel()

	pv, _ := authed(t, withProject(map[string]http.HandlerFunc{
		"GET /api/v4/projects/42/issues/3/notes": jsonHandler(
			http.StatusOK, `[
				{"id":1,"body":"changed the description","system":true},
				{"id":2,"body":"looks good","author":{"username":"fox"}}
			]`,
		),
	}))

	page, err := pv.ListComments(context.Background(), repo, 3, 10)
	require.NoError(t, err)

	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(2), page.Items[0].ID)
	assert.Equal(t, "fox", page.Items[0].Author)
	assert.False(t, page.HasMore)
}

func TestProvider_CreateIssueEx_payload(t *testing.T) {
	t.Parallel()

	const createPath = "POST /api/v4/projects/42/issues"

	pv, fk := authed(t, withProject(map[string]http.HandlerFunc{
		"GET /api/v4/users": jsonHandler(
			http.StatusOK, `[{"id":8,"username":"fox"}]`,
		),
		createPath: jsonHandler(
			http.StatusCreated,
			`{"id":901,"iid":4,"title":"crash","state":"opened"}`,
		),
	}))

	issue, err := pv.CreateIssueEx(
		context.Background(), repo, git.IssueDraft{
			Title:     "crash",
			Body:      "stack trace",
			Labels:    []string{"bug", "p1"},
			Assignees: []string{"fox"},
			Milestone: 5,
		},
	)
	require.NoError(t, err)
	assert.Equal(t, 4, issue.Number)

	var sent map[string]any
	require.NoError(t, json.Unmarshal(fk.Body(createPath), &sent))

	assert.Equal(t, "crash", sent["title"])
	assert.Equal(t, "stack trace", sent["description"])
	assert.Equal(t, "bug,p1", sent["labels"])
	assert.Equal(t, []any{float64(8)}, sent["assignee_ids"])
	assert.Equal(t, float64(5), sent["milestone_id"])
	assert.Equal(t, "fox", fk.Query("GET /api/v4/users").Get("username"))
}

func TestProvider_CreateIssueEx_title_too_long(t *testing.T) {
	t.Parallel()

	pv, fk := authed(t, withProject(map[string]http.HandlerFunc{}))

	title := make([]rune, 300)
	for i := range title {
		title[i] = 'x'
	}

	_, err := pv.CreateIssueEx(
		context.Background(), repo,
		git.IssueDraft{Title: string(title)},
	)
	require.ErrorIs(t, err, git.ErrInvalidInput)

	assert.Equal(t, []string{userPath}, fk.Hits())
	assert.Contains(t, pv.LastError(), "title is 300 characters")
}

func TestProvider_CloseIssue(t *testing.T) {
	t.Parallel()

	const issuePath = "PUT /api/v4/projects/42/issues/3"

	pv, fk := authed(t, withProject(map[string]http.HandlerFunc{
		issuePath: jsonHandler(
			http.StatusOK, `{"id":900,"iid":3,"state":"closed"}`,
		),
	}))

	require.NoError(t, pv.CloseIssue(context.Background(), repo, 3))

	assert.JSONEq(
		t, `{"state_event":"close"}`, string(fk.Body(issuePath)),
	)
}

func TestProvider_AddAssignee_keeps_existing(t *testing.T) {
	t.Parallel()

	const issuePath = "/api/v4/projects/42/issues/3"

	pv, fk := authed(t, withProject(map[string]http.HandlerFunc{
		"GET /api/v4/users": jsonHandler(
			http.StatusOK, `[{"id":8,"username":"fox"}]`,
		),
		"GET " + issuePath: jsonHandler(
			http.StatusOK,
			`{"id":900,"iid":3,"assignees":[{"id":7,"username":"tanuki"}]}`,
		),
		"PUT " + issuePath: jsonHandler(
			http.StatusOK, `{"id":900,"iid":3}`,
		),
	}))

	require.NoError(t, pv.AddAssignee(
		context.Background(), repo, 3, "fox",
	))

	assert.JSONEq(
		t, `{"assignee_ids":[7,8]}`,
		string(fk.Body("PUT "+issuePath)),
	)
}

func TestProvider_ClearMilestone(t *testing.T) {
	t.Parallel()

	const issuePath = "PUT /api/v4/projects/42/issues/3"

	pv, fk := authed(t, withProject(map[string]http.HandlerFunc{
		issuePath: jsonHandler(http.StatusOK, `{"id":900,"iid":3}`),
	}))

	require.NoError(t, pv.ClearMilestone(
		context.Background(), repo, 3,
	))

	assert.JSONEq(
		t, `{"milestone_id":null}`, string(fk.Body(issuePath)),
	)
}

func TestProvider_GetFile_decodes(t *testing.T) {
	t.Parallel()

	const filePath = "GET /api/v4/projects/42/repository/files/docs%2Fa%2Emd"

	content := base64.StdEncoding.EncodeToString([]byte("# hi\n"))

	pv, fk := authed(t, withProject(map[string]http.HandlerFunc{
		filePath: jsonHandler(http.StatusOK, `{
			"file_name":"a.md","file_path":"docs/a.md","size":5,
			"encoding":"base64","content":"`+content+`",
			"blob_id":"abc123"
		}`),
	}))

	file, err := pv.GetFile(
		context.Background(), repo, "docs/a.md", "",
	)
	require.NoError(t, err)

	assert.Equal(t, []byte("# hi\n"), file.Content)
	assert.Equal(t, "abc123", file.SHA)
	assert.Equal(t, "a.md", file.Name)
	assert.Equal(t, "trunk", fk.Query(filePath).Get("ref"))
	assert.Equal(
		t,
		"https://gitlab.example/octo/hello/-/blob/trunk/docs/a.md",
		file.HTMLURL,
	)
}

func TestProvider_CreateFile_base64_on_wire(t *testing.T) {
	t.Parallel()

	const filePath = "POST /api/v4/projects/42/repository/files/notes%2Ftodo%2Etxt"

	pv, fk := authed(t, withProject(map[string]http.HandlerFunc{
		filePath: jsonHandler(
			http.StatusCreated,
			`{"file_path":"notes/todo.txt","branch":"trunk"}`,
		),
	}))

	require.NoError(t, pv.CreateFile(
		context.Background(), repo, git.FileChange{
			Path:    "notes/todo.txt",
			Content: []byte("buy milk"),
			Message: "add todo",
		},
	))

	var sent map[string]any
	require.NoError(t, json.Unmarshal(fk.Body(filePath), &sent))

	assert.Equal(t, "base64", sent["encoding"])
	assert.Equal(t, "trunk", sent["branch"])
	assert.Equal(t, "add todo", sent["commit_message"])
	assert.Equal(
		t,
		base64.StdEncoding.EncodeToString([]byte("buy milk")),
		sent["content"],
	)
}

func TestProvider_DeleteFile_query(t *testing.T) {
	t.Parallel()

	const filePath = "DELETE /api/v4/projects/42/repository/files/a%2Etxt"

	pv, fk := authed(t, withProject(map[string]http.HandlerFunc{
		filePath: func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		},
	}))

	require.NoError(t, pv.DeleteFile(
		context.Background(), repo, git.FileChange{
			Path: "a.txt", Message: "drop", Branch: "dev",
		},
	))

	q := fk.Query(filePath)
	assert.Equal(t, "dev", q.Get("branch"))
	assert.Equal(t, "drop", q.Get("commit_message"))
	assert.Equal(t, http.StatusNoContent, pv.ResponseCode())
}

func TestProvider_GetUser_unknown_login(t *testing.T) {
	t.Parallel()

	pv, _ := authed(t, map[string]http.HandlerFunc{
		"GET /api/v4/users": jsonHandler(http.StatusOK, `[]`),
	})

	_, err := pv.GetUser(context.Background(), "ghost")
	require.Error(t, err)

	assert.True(t, git.IsNotFound(err))
}

func TestProvider_Probe_does_not_authenticate(t *testing.T) {
	t.Parallel()

	fk := newFakeGitLab(t, nil)
	pv := newProvider(t, fk)

	login, err := pv.Probe(context.Background(), "tok")
	require.NoError(t, err)

	assert.Equal(t, "tanuki", login)
	assert.False(t, pv.IsAuthenticated())
}

func TestProvider_unknown_state_filter_sends_nothing(t *testing.T) {
	t.Parallel()

	pv, fk := authed(t, withProject(map[string]http.HandlerFunc{}))
	before := fk.Hits()

	_, err := pv.ListIssues(
		context.Background(), repo, "opened", 10,
	)
	require.ErrorIs(t, err, git.ErrInvalidInput)
	assert.Contains(t, pv.LastError(), `"opened"`)

	_, err = pv.ListMilestones(context.Background(), repo, "active")
	require.ErrorIs(t, err, git.ErrInvalidInput)

	assert.Equal(t, before, fk.Hits())
}

func TestProvider_ListMilestones(t *testing.T) {
	t.Parallel()

	const milestonesPath = "GET /api/v4/projects/42/milestones"

	pv, fk := authed(t, withProject(map[string]http.HandlerFunc{
		milestonesPath: jsonHandler(http.StatusOK, `[{
			"id":17,"iid":2,"title":"v2","state":"active",
			"due_date":"2026-03-01"
		}]`),
	}))

	milestones, err := pv.ListMilestones(
		context.Background(), repo, git.StateOpen,
	)
	require.NoError(t, err)

	require.Len(t, milestones, 1)
	assert.Equal(t, 17, milestones[0].Number)
	assert.Equal(t, 2026, milestones[0].DueOn.Year())
	assert.Equal(t, "active", fk.Query(milestonesPath).Get("state"))
}

func TestProvider_malformed_answer(t *testing.T) {
	t.Parallel()

	pv, _ := authed(t, withProject(map[string]http.HandlerFunc{
		"GET /api/v4/projects/42/issues/3": jsonHandler(
			http.StatusOK, `{"iid":`,
		),
	}))

	_, err := pv.GetIssue(context.Background(), repo, 3)
	require.ErrorIs(t, err, git.ErrMalformedResponse)
}
