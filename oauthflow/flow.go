package oauthflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/byte4ever/gitlink/captive"
	"github.com/byte4ever/gitlink/git"
	"github.com/byte4ever/gitlink/session"
	"github.com/byte4ever/gitlink/settings"
	"github.com/byte4ever/gitlink/templating"
)

// Config describes one OAuth flow.
type Config struct {
	Kind         session.Kind
	ClientID     string
	ClientSecret string
	// RedirectURL defaults to RedirectURL(Portal.Address).
	RedirectURL string
	// Scopes default to Scopes(Kind).
	Scopes []string
	// Endpoint defaults to Endpoint(Kind).
	Endpoint oauth2.Endpoint
	// Exchanger overrides the live OAuth2 client, for
	// instance with Simulated.
	Exchanger Exchanger
	// HTTPClient carries the token request.
	HTTPClient *http.Client
	// Prober validates the new token. Nil skips the
	// check and the persistence.
	Prober git.Prober
	// Store receives the probed token under
	// "<kind>.token". Nil skips persistence.
	Store  settings.Store
	Engine *templating.Engine
	// Portal.Handler is replaced by the flow routes. An
	// empty SSID defaults to SSID(Kind).
	Portal captive.Config
}

// Flow is the OAuth engine and the portal serving it.
type Flow struct {
	*captive.Portal

	kind      session.Kind
	exchanger Exchanger
	prober    git.Prober
	store     settings.Store
	engine    *templating.Engine
	handler   http.Handler

	mu       sync.Mutex
	state    State
	nonce    string
	verifier string
	token    string
	login    string
}

// New returns an idle flow.
func New(cfg Config) (*Flow, error) {
	const errCtx = "creating oauth flow"

	if !cfg.Kind.Valid() {
		return nil, fmt.Errorf(
			"%s: %w: %q", errCtx, session.ErrUnknownKind, cfg.Kind,
		)
	}

	ex := cfg.Exchanger
	if ex == nil {
		if cfg.ClientID == "" {
			return nil, fmt.Errorf("%s: %w", errCtx, ErrNotConfigured)
		}

		ex = OAuth2{
			Config:     oauth2Config(cfg),
			HTTPClient: cfg.HTTPClient,
		}
	}

	if cfg.Engine == nil {
		cfg.Engine = &templating.Engine{}
	}

	if cfg.Portal.SSID == "" {
		cfg.Portal.SSID = SSID(cfg.Kind)
	}

	f := &Flow{
		kind:      cfg.Kind,
		exchanger: ex,
		prober:    cfg.Prober,
		store:     cfg.Store,
		engine:    cfg.Engine,
	}

	f.handler = f.routes()
	cfg.Portal.Handler = f.handler
	cfg.Portal.OnStop = chain(cfg.Portal.OnStop, f.discard)
	f.Portal = captive.New(cfg.Portal)

	return f, nil
}

func oauth2Config(cfg Config) *oauth2.Config {
	oc := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     cfg.Endpoint,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       cfg.Scopes,
	}

	if oc.Endpoint.AuthURL == "" {
		oc.Endpoint = Endpoint(cfg.Kind)
	}

	if oc.RedirectURL == "" && cfg.Portal.Address.IsValid() {
		oc.RedirectURL = RedirectURL(cfg.Portal.Address)
	}

	if len(oc.Scopes) == 0 {
		oc.Scopes = Scopes(cfg.Kind)
	}

	return oc
}

// Start brings up the portal and makes the flow active.
func (f *Flow) Start(ctx context.Context) error {
	if err := f.Portal.Start(ctx); err != nil {
		return fmt.Errorf("starting oauth flow: %w", err)
	}

	f.mu.Lock()
	f.reset(Active)
	f.mu.Unlock()

	slog.Info("oauth flow started", "kind", f.kind, "ssid", f.SSID())

	return nil
}

// Stop tears down the portal and discards any nonce,
// verifier and token. Safe to call twice.
func (f *Flow) Stop() error {
	f.mu.Lock()
	f.reset(Idle)
	f.mu.Unlock()

	return f.Portal.Stop()
}

// discard drops the attempt when the portal goes down,
// including when another portal takes the radio.
func (f *Flow) discard() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.reset(Idle)
}

func chain(first, then func()) func() {
	if first == nil {
		return then
	}

	return func() {
		first()
		then()
	}
}

func (f *Flow) reset(s State) {
	f.state = s
	f.nonce = ""
	f.verifier = ""
	f.token = ""
	f.login = ""
}

// State returns the flow state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.state
}

// Handler returns the flow routes.
func (f *Flow) Handler() http.Handler {
	return f.handler
}

// Begin mints a fresh nonce and verifier, invalidating
// any earlier one, and returns the authorize URL.
func (f *Flow) Begin() string {
	nonce := uuid.NewString()
	verifier := oauth2.GenerateVerifier()

	f.mu.Lock()
	f.nonce = nonce
	f.verifier = verifier
	f.state = AwaitingCallback
	f.mu.Unlock()

	return f.exchanger.AuthCodeURL(nonce, verifier)
}

// Callback handles the provider redirect. It returns the
// token, or an *Error; either way the portal session is
// completed with the result.
func (f *Flow) Callback(ctx context.Context, q url.Values) (string, error) {
	if e := q.Get("error"); e != "" {
		return "", f.fail(e, nil)
	}

	code := q.Get("code")
	if code == "" {
		return "", f.fail(CodeNoCode, nil)
	}

	f.mu.Lock()

	if f.nonce == "" || q.Get("state") != f.nonce {
		f.mu.Unlock()

		return "", f.fail(CodeInvalidState, nil)
	}

	verifier := f.verifier
	f.nonce = ""
	f.verifier = ""
	f.state = Exchanging
	f.mu.Unlock()

	token, err := f.exchanger.Exchange(ctx, code, verifier)

	switch {
	case errors.Is(err, ErrNoToken):
		return "", f.fail(CodeNoToken, err)
	case err != nil:
		return "", f.fail(CodeExchangeFailed, err)
	case token == "":
		return "", f.fail(CodeNoToken, nil)
	}

	var login string

	// Only a probed token is saved.
	if f.prober != nil {
		login, err = f.prober.Probe(ctx, token)
		if err != nil {
			return "", f.fail(CodeTokenValidationFailed, err)
		}

		if f.store != nil {
			if err := f.store.Set(
				f.kind.Key(settings.SuffixToken), token,
			); err != nil {
				return "", f.fail(CodePersistFailed, err)
			}
		}
	}

	f.mu.Lock()
	f.state = Authenticated
	f.token = token
	f.login = login
	f.mu.Unlock()

	slog.Info("oauth flow authenticated", "kind", f.kind, "login", login)

	f.Complete(captive.Outcome{Token: token})

	return token, nil
}

func (f *Flow) fail(code string, cause error) error {
	f.mu.Lock()
	f.state = Failed
	f.nonce = ""
	f.verifier = ""
	f.mu.Unlock()

	err := &Error{Code: code, Err: cause}

	slog.Info("oauth flow failed", "kind", f.kind, "error", err)

	f.Complete(captive.Outcome{Err: err})

	return err
}

// Status is the /status document.
type Status struct {
	Active   bool   `json:"active"`
	HasToken bool   `json:"has_token"`
	State    string `json:"state"`
}

// Status reports the flow state.
func (f *Flow) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()

	return Status{
		Active:   f.Active(),
		HasToken: f.token != "",
		State:    f.state.String(),
	}
}

func (f *Flow) routes() http.Handler {
	mux := captive.NewMux()

	instructions := func(w http.ResponseWriter, _ *http.Request) {
		f.engine.Respond(w, http.StatusOK, templating.PageOAuthStart, templating.Vars{
			"title":     "Sign in with " + f.kind.DisplayName(),
			"provider":  f.kind.DisplayName(),
			"start_url": "/start",
		})
	}

	mux.HandleFunc("GET /{$}", instructions)
	mux.HandleFunc("GET /auth", instructions)
	mux.HandleFunc("GET /start", f.ServeStart)
	mux.HandleFunc("GET /callback", f.ServeCallback)
	mux.HandleFunc("GET /success", f.ServeSuccess)
	mux.HandleFunc("GET /error", f.ServeError)
	mux.HandleFunc("GET /status", func(w http.ResponseWriter, _ *http.Request) {
		captive.WriteJSON(w, f.Status())
	})

	return mux
}

// ServeStart redirects to the authorize URL.
func (f *Flow) ServeStart(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, f.Begin(), http.StatusFound)
}

// ServeCallback runs Callback and redirects to /success
// or /error.
func (f *Flow) ServeCallback(w http.ResponseWriter, r *http.Request) {
	if _, err := f.Callback(r.Context(), r.URL.Query()); err != nil {
		http.Redirect(
			w, r,
			"/error?"+url.Values{"error": {CodeOf(err)}}.Encode(),
			http.StatusFound,
		)

		return
	}

	http.Redirect(w, r, "/success", http.StatusFound)
}

// ServeSuccess renders the success page.
func (f *Flow) ServeSuccess(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	login := f.login
	f.mu.Unlock()

	msg := f.kind.DisplayName() + " is connected."
	if login != "" {
		msg = f.kind.DisplayName() + " is connected as " + login + "."
	}

	f.engine.Respond(w, http.StatusOK, templating.PageSuccess, templating.Vars{
		"title":   "Authorized",
		"message": msg,
	})
}

// ServeError renders the error page for ?error=.
func (f *Flow) ServeError(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("error")

	f.engine.Respond(w, http.StatusOK, templating.PageError, templating.Vars{
		"title":       "Authorization failed",
		"description": Describe(code),
		"code":        code,
		"retry_url":   "/auth",
	})
}
