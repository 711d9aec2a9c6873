package device_test

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/gitlink/captive"
	"github.com/byte4ever/gitlink/device"
	"github.com/byte4ever/gitlink/digester"
	"github.com/byte4ever/gitlink/git"
	"github.com/byte4ever/gitlink/git/simulated"
	"github.com/byte4ever/gitlink/oauthflow"
	"github.com/byte4ever/gitlink/session"
	"github.com/byte4ever/gitlink/settings"
)

const (
	token    = "0123456789abcdef0123456789abcdef"
	filePath = "/api/v5/repos/octo/hello/contents/notes.md"
)

var repo = git.RepoRef{Owner: "octo", Name: "hello"}

type fakeGitee struct {
	*httptest.Server

	mu     sync.Mutex
	hits   []string
	bodies map[string]map[string]any
	remote string
}

func newFakeGitee(t *testing.T) *fakeGitee {
	t.Helper()

	fk := &fakeGitee{bodies: map[string]map[string]any{}}

	fk.Server = httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			key := r.Method + " " + r.URL.Path

			var body map[string]any

			by, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(by, &body)

			fk.mu.Lock()
			fk.hits = append(fk.hits, key)
			fk.bodies[key] = body
			remote := fk.remote
			fk.mu.Unlock()

			w.Header().Set("Content-Type", "application/json")

			if r.Header.Get("Authorization") != "token "+token {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = io.WriteString(w, `{"message":"401 Unauthorized"}`)

				return
			}

			switch key {
			case "GET /api/v5/user":
				_, _ = io.WriteString(w, `{"id":3,"login":"mayun","name":"Ma"}`)
			case "GET " + filePath:
				if remote == "" {
					_, _ = io.WriteString(w, `[]`)

					return
				}

				_, _ = io.WriteString(w, `{"type":"file","encoding":"base64",`+
					`"name":"notes.md","path":"notes.md","content":"`+
					base64.StdEncoding.EncodeToString([]byte(remote))+
					`","sha":"`+digester.BlobID([]byte(remote))+`"}`)
			case "POST " + filePath, "PUT " + filePath:
				w.WriteHeader(http.StatusCreated)
				_, _ = io.WriteString(w, `{}`)
			default:
				w.WriteHeader(http.StatusNotFound)
				_, _ = io.WriteString(w, `{"message":"Not Found"}`)
			}
		},
	))
	t.Cleanup(fk.Close)

	return fk
}

func (fk *fakeGitee) Hits() []string {
	fk.mu.Lock()
	defer fk.mu.Unlock()

	return append([]string(nil), fk.hits...)
}

func (fk *fakeGitee) Body(key string) map[string]any {
	fk.mu.Lock()
	defer fk.mu.Unlock()

	return fk.bodies[key]
}

func newController(t *testing.T, fk *fakeGitee) (*device.Controller, settings.Store) {
	t.Helper()

	store := settings.NewFileStore(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, store.Set("gitee.api_url", fk.URL+"/api/v5"))

	c := device.New(device.Config{
		Env: settings.Env{
			APAddress:      "10.42.0.1",
			HTTPAddr:       "127.0.0.1:0",
			RequestTimeout: 5 * time.Second,
		},
		Store:       store,
		AccessPoint: captive.NoAccessPoint{},
		DeviceName:  "bench-01",
	})

	return c, store
}

func TestController_Kind_default(t *testing.T) {
	t.Parallel()

	c, store := newController(t, newFakeGitee(t))

	kind, err := c.Kind()
	require.NoError(t, err)
	assert.Equal(t, session.GitHub, kind)

	require.NoError(t, store.Set(settings.KeyProvider, "bogus"))

	_, err = c.Kind()
	require.ErrorIs(t, err, session.ErrUnknownKind)
}

func TestAuthenticateToken_empty(t *testing.T) {
	t.Parallel()

	fk := newFakeGitee(t)
	c, _ := newController(t, fk)

	_, err := c.AuthenticateToken(context.Background(), session.Gitee, "  ")

	require.ErrorIs(t, err, git.ErrNotAuthenticated)
	assert.Empty(t, fk.Hits())
}

func TestAuthenticateToken_persists(t *testing.T) {
	t.Parallel()

	fk := newFakeGitee(t)
	c, store := newController(t, fk)

	login, err := c.AuthenticateToken(context.Background(), session.Gitee, token)
	require.NoError(t, err)
	assert.Equal(t, "mayun", login)

	p, err := c.Holder().Current()
	require.NoError(t, err)
	assert.True(t, p.IsAuthenticated())
	assert.Equal(t, "Gitee", c.Holder().Name())

	for key, want := range map[string]string{
		"provider":      "gitee",
		"gitee.token":   token,
		"gitee.enabled": "true",
	} {
		got, err := store.Get(key)
		require.NoError(t, err, key)
		assert.Equal(t, want, got, key)
	}
}

func TestAuthenticateToken_rejected(t *testing.T) {
	t.Parallel()

	fk := newFakeGitee(t)
	c, store := newController(t, fk)

	_, err := c.AuthenticateToken(context.Background(), session.Gitee, "wrong-token")

	require.Error(t, err)

	_, err = store.Get("gitee.token")
	require.ErrorIs(t, err, settings.ErrNotFound)
}

func TestConnect_restores_saved_token(t *testing.T) {
	t.Parallel()

	fk := newFakeGitee(t)
	c, store := newController(t, fk)

	_, err := c.Connect(context.Background())
	require.ErrorIs(t, err, git.ErrNotAuthenticated)

	require.NoError(t, store.Set("provider", "gitee"))
	require.NoError(t, store.Set("gitee.token", token))

	u, err := c.TestConnection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "mayun", u.Login)

	_, err = c.Connect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"GET /api/v5/user",
		"GET /api/v5/user",
	}, fk.Hits())
}

func TestDisconnect(t *testing.T) {
	t.Parallel()

	fk := newFakeGitee(t)
	c, store := newController(t, fk)

	_, err := c.AuthenticateToken(context.Background(), session.Gitee, token)
	require.NoError(t, err)

	require.NoError(t, c.Disconnect())

	_, err = c.Holder().Current()
	require.ErrorIs(t, err, session.ErrNoProvider)

	_, err = store.Get("gitee.token")
	require.ErrorIs(t, err, settings.ErrNotFound)

	enabled, err := store.Get("gitee.enabled")
	require.NoError(t, err)
	assert.Equal(t, "false", enabled)
}

func writeLocal(t *testing.T, content string) string {
	t.Helper()

	pa := filepath.Join(t.TempDir(), "notes.md")
	require.NoError(t, os.WriteFile(pa, []byte(content), 0o600))

	return pa
}

func authed(t *testing.T, remote string) (*device.Controller, *fakeGitee) {
	t.Helper()

	fk := newFakeGitee(t)
	fk.remote = remote

	c, _ := newController(t, fk)

	_, err := c.AuthenticateToken(context.Background(), session.Gitee, token)
	require.NoError(t, err)

	return c, fk
}

func TestPushFile_unchanged_skips_commit(t *testing.T) {
	t.Parallel()

	c, fk := authed(t, "hello\n")

	res, err := c.PushFile(context.Background(), device.PushRequest{
		Repo:      repo,
		LocalPath: writeLocal(t, "hello\n"),
	})
	require.NoError(t, err)

	assert.Equal(t, device.PushUnchanged, res.Action)
	assert.Equal(t, "ce013625030ba8dba906f756967f9e9ca394464a", res.BlobID)
	assert.NotContains(t, fk.Hits(), "PUT "+filePath)
	assert.NotContains(t, fk.Hits(), "POST "+filePath)
}

func TestPushFile_updates_changed_content(t *testing.T) {
	t.Parallel()

	c, fk := authed(t, "old\n")

	res, err := c.PushFile(context.Background(), device.PushRequest{
		Repo:      repo,
		LocalPath: writeLocal(t, "new\n"),
	})
	require.NoError(t, err)

	assert.Equal(t, device.PushUpdated, res.Action)

	body := fk.Body("PUT " + filePath)
	assert.Equal(t, digester.BlobID([]byte("old\n")), body["sha"])
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("new\n")), body["content"])
	assert.Equal(t, "Update notes.md\n\nPushed-By: bench-01\n", body["message"])
}

func TestPushFile_creates_missing(t *testing.T) {
	t.Parallel()

	c, fk := authed(t, "")

	res, err := c.PushFile(context.Background(), device.PushRequest{
		Repo:       repo,
		LocalPath:  writeLocal(t, "fresh\n"),
		RemotePath: "./notes.md",
		Message:    "{{op}} {{path}}",
	})
	require.NoError(t, err)

	assert.Equal(t, device.PushCreated, res.Action)
	assert.Equal(t, "notes.md", res.Path)
	assert.Equal(
		t,
		"create notes.md\n\nPushed-By: bench-01\n",
		fk.Body("POST "+filePath)["message"],
	)
}

func TestPushFile_missing_local(t *testing.T) {
	t.Parallel()

	c, fk := authed(t, "")
	before := len(fk.Hits())

	_, err := c.PushFile(context.Background(), device.PushRequest{
		Repo:      repo,
		LocalPath: filepath.Join(t.TempDir(), "absent"),
	})

	require.Error(t, err)
	assert.Len(t, fk.Hits(), before)
}

type fakePortal struct {
	ch       chan captive.Outcome
	startErr error
	started  atomic.Int32
	stopped  atomic.Int32
}

func newFakePortal() *fakePortal {
	return &fakePortal{ch: make(chan captive.Outcome, 1)}
}

func (f *fakePortal) Start(context.Context) error {
	f.started.Add(1)

	return f.startErr
}

func (f *fakePortal) Stop() error {
	f.stopped.Add(1)

	return nil
}

func (f *fakePortal) Outcome() <-chan captive.Outcome {
	return f.ch
}

func TestAwait_outcome(t *testing.T) {
	t.Parallel()

	c, _ := newController(t, newFakeGitee(t))
	fp := newFakePortal()
	fp.ch <- captive.Outcome{Token: "tok"}

	got, err := c.Await(context.Background(), fp, nil)

	require.NoError(t, err)
	assert.Equal(t, "tok", got)
	assert.Equal(t, int32(1), fp.stopped.Load())
}

func TestAwait_error_outcome(t *testing.T) {
	t.Parallel()

	c, _ := newController(t, newFakeGitee(t))
	fp := newFakePortal()
	boom := errors.New("denied")
	fp.ch <- captive.Outcome{Err: boom}

	_, err := c.Await(context.Background(), fp, nil)

	require.ErrorIs(t, err, boom)
	assert.Equal(t, int32(1), fp.stopped.Load())
}

func TestAwait_cancel_stops_portal(t *testing.T) {
	t.Parallel()

	c, _ := newController(t, newFakeGitee(t))
	fp := newFakePortal()

	var polls atomic.Int32

	_, err := c.Await(context.Background(), fp, func() bool {
		return polls.Add(1) >= 3
	})

	require.ErrorIs(t, err, device.ErrCancelled)
	assert.Equal(t, int32(3), polls.Load())
	assert.Equal(t, int32(1), fp.stopped.Load())
}

func TestAwait_context_cancel(t *testing.T) {
	t.Parallel()

	c, _ := newController(t, newFakeGitee(t))
	fp := newFakePortal()

	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()

	_, err := c.Await(ctx, fp, nil)

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), fp.stopped.Load())
}

func TestAwait_start_failure(t *testing.T) {
	t.Parallel()

	c, _ := newController(t, newFakeGitee(t))
	fp := newFakePortal()
	fp.startErr = errors.New("no radio")

	_, err := c.Await(context.Background(), fp, nil)

	require.Error(t, err)
	assert.Zero(t, fp.stopped.Load())
}

func TestKeyCanceller(t *testing.T) {
	t.Parallel()

	pr, pw := io.Pipe()
	t.Cleanup(func() { _ = pw.Close() })

	cancelled := device.KeyCanceller(pr)
	assert.False(t, cancelled())

	go func() { _, _ = pw.Write([]byte("\n")) }()

	assert.Eventually(t, cancelled, time.Second, 10*time.Millisecond)
}

func TestAuthenticatePortal_token_portal(t *testing.T) {
	t.Parallel()

	fk := newFakeGitee(t)
	c, store := newController(t, fk)

	tp := c.TokenPortal(session.Gitee)

	go func() {
		for !tp.Active() {
			time.Sleep(10 * time.Millisecond)
		}

		_, _ = http.PostForm(
			"http://"+tp.HTTPAddr()+"/setup",
			url.Values{"token": {token}},
		)
	}()

	login, err := c.AuthenticatePortal(context.Background(), session.Gitee, tp, nil)
	require.NoError(t, err)

	assert.Equal(t, "mayun", login)
	assert.False(t, tp.Active())

	saved, err := store.Get("gitee.token")
	require.NoError(t, err)
	assert.Equal(t, token, saved)
}

func TestOAuthFlow_requires_client_id(t *testing.T) {
	t.Parallel()

	c, _ := newController(t, newFakeGitee(t))

	_, err := c.OAuthFlow(session.Gitee)

	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "client id"))
}

func TestQRPortal_without_client_offers_token_entry(t *testing.T) {
	t.Parallel()

	c, _ := newController(t, newFakeGitee(t))

	qp, err := c.QRPortal(session.Gitee)
	require.NoError(t, err)

	assert.False(t, qp.Status().OAuth)
	assert.Equal(t, "gitlink-auth-gite", qp.SSID())
}

func TestDefaultRepo(t *testing.T) {
	t.Parallel()

	c, store := newController(t, newFakeGitee(t))

	_, err := c.DefaultRepo()
	require.ErrorIs(t, err, settings.ErrNotFound)

	require.NoError(t, store.Set(settings.KeyDefaultRepo, "octo/hello"))

	got, err := c.DefaultRepo()
	require.NoError(t, err)
	assert.Equal(t, repo, got)
}

func TestAuthenticatePortal_simulated_oauth_without_backend(t *testing.T) {
	t.Parallel()

	store := settings.NewFileStore(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, store.Set("github.api_url", "http://127.0.0.1:1/"))
	require.NoError(t, store.Set("github.token", "ghp_real"))

	c := device.New(device.Config{
		Env: settings.Env{
			APAddress:      "10.42.0.1",
			HTTPAddr:       "127.0.0.1:0",
			RequestTimeout: time.Second,
			OAuthSimulate:  true,
		},
		Store:       store,
		AccessPoint: captive.NoAccessPoint{},
	})

	flow, err := c.OAuthFlow(session.GitHub)
	require.NoError(t, err)

	landed := make(chan string, 1)

	go func() {
		for flow.State() != oauthflow.Active {
			time.Sleep(10 * time.Millisecond)
		}

		client := &http.Client{
			CheckRedirect: func(req *http.Request, _ []*http.Request) error {
				if req.URL.Path == "/success" || req.URL.Path == "/error" {
					landed <- req.URL.Path

					return http.ErrUseLastResponse
				}

				return nil
			},
		}

		resp, err := client.Get("http://" + flow.HTTPAddr() + "/start")
		if err == nil {
			_ = resp.Body.Close()
		}
	}()

	login, err := c.AuthenticatePortal(context.Background(), session.GitHub, flow, nil)
	require.NoError(t, err)

	assert.Equal(t, simulated.Login, login)
	assert.Equal(t, "/success", <-landed)
	assert.False(t, flow.Active())

	u, err := c.TestConnection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, simulated.Login, u.Login)

	saved, err := store.Get("github.token")
	require.NoError(t, err)
	assert.Equal(t, "ghp_real", saved)

	held, err := c.Store().Get("github.token")
	require.NoError(t, err)
	assert.Equal(t, simulated.Token, held)
}
