package qrportal

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"net/url"
	"strconv"
	"time"

	"github.com/byte4ever/gitlink/captive"
	"github.com/byte4ever/gitlink/oauthflow"
	"github.com/byte4ever/gitlink/session"
	"github.com/byte4ever/gitlink/templating"
	"github.com/byte4ever/gitlink/tokenportal"
)

// LinkTTL bounds the age of a scanned link.
const LinkTTL = 10 * time.Minute

// clockSkew tolerates a timestamp slightly in the
// future.
const clockSkew = time.Minute

// Payload returns the URL encoded in the QR code.
func Payload(addr netip.Addr, kind session.Kind, now time.Time) string {
	return "http://" + addr.String() + startPath(kind, now)
}

func startPath(kind session.Kind, now time.Time) string {
	return "/start-oauth?" + url.Values{
		"provider":  {kind.String()},
		"timestamp": {strconv.FormatInt(now.UnixMilli(), 10)},
	}.Encode()
}

// SSID returns "gitlink-auth-" followed by the first
// four letters of kind.
func SSID(kind session.Kind) string {
	k := kind.String()
	if len(k) > 4 {
		k = k[:4]
	}

	return "gitlink-auth-" + k
}

// Config describes a QR portal.
type Config struct {
	Kind session.Kind
	// Flow runs OAuth when client credentials are
	// configured. Its own portal is never started.
	Flow *oauthflow.Flow
	// Simulate completes /start-oauth at once with
	// oauthflow.DemoToken.
	Simulate bool
	Renderer QRRenderer
	Engine   *templating.Engine
	// TTL defaults to LinkTTL.
	TTL time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
	// Portal.Handler is replaced by the portal routes.
	// An empty SSID defaults to SSID(Kind).
	Portal captive.Config
}

// Portal serves the QR landing page.
type Portal struct {
	*captive.Portal

	cfg      Config
	receiver *tokenportal.Receiver
	handler  http.Handler
}

// New returns a stopped portal.
func New(cfg Config) *Portal {
	if cfg.Engine == nil {
		cfg.Engine = &templating.Engine{}
	}

	if cfg.TTL <= 0 {
		cfg.TTL = LinkTTL
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	if cfg.Portal.SSID == "" {
		cfg.Portal.SSID = SSID(cfg.Kind)
	}

	p := &Portal{cfg: cfg}

	p.handler = p.routes()
	cfg.Portal.Handler = p.handler

	if cfg.Flow != nil {
		cfg.Portal.OnStop = p.stopFlow
	}

	p.Portal = captive.New(cfg.Portal)

	p.receiver = &tokenportal.Receiver{
		Kind:     cfg.Kind,
		Engine:   cfg.Engine,
		Portal:   p.Portal,
		FormPage: templating.PageQRLanding,
		FormVars: p.landingVars,
	}

	return p
}

// Handler returns the portal routes.
func (p *Portal) Handler() http.Handler {
	return p.handler
}

// Payload returns the link for the current time.
func (p *Portal) Payload() string {
	return Payload(p.Address(), p.cfg.Kind, p.cfg.Now())
}

// Start brings up the portal and draws the QR code.
func (p *Portal) Start(ctx context.Context) error {
	if err := p.Portal.Start(ctx); err != nil {
		return fmt.Errorf("starting qr portal: %w", err)
	}

	payload := p.Payload()

	slog.Info("qr portal started", "ssid", p.SSID(), "payload", payload)

	if p.cfg.Renderer != nil {
		p.cfg.Renderer.Render(payload)
	}

	return nil
}

// Stop tears down the portal and any OAuth attempt.
func (p *Portal) Stop() error {
	if !p.Active() {
		p.stopFlow()
	}

	return p.Portal.Stop()
}

// stopFlow discards the OAuth attempt. It also runs when
// another portal takes the radio.
func (p *Portal) stopFlow() {
	if p.cfg.Flow == nil {
		return
	}

	if err := p.cfg.Flow.Stop(); err != nil {
		slog.Warn("stopping oauth flow", "error", err)
	}
}

// Status is the /status document.
type Status struct {
	PortalActive      bool   `json:"portal_active"`
	TokenSet          bool   `json:"token_set"`
	AccessPointActive bool   `json:"access_point_active"`
	SSID              string `json:"ssid"`
	OAuth             bool   `json:"oauth"`
}

// Status reports the portal state.
func (p *Portal) Status() Status {
	return Status{
		PortalActive:      p.Active(),
		TokenSet:          p.TokenReceived(),
		AccessPointActive: p.APActive(),
		SSID:              p.SSID(),
		OAuth:             p.cfg.Flow != nil || p.cfg.Simulate,
	}
}

func (p *Portal) routes() http.Handler {
	mux := captive.NewMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		p.receiver.RenderForm(w, http.StatusOK, "")
	})
	mux.HandleFunc("GET /start-oauth", p.serveStart)
	mux.HandleFunc("POST /submit-token", func(w http.ResponseWriter, r *http.Request) {
		p.receiver.ServeHTTP(w, r)
	})
	mux.HandleFunc("GET /callback", p.serveCallback)
	mux.HandleFunc("GET /success", func(w http.ResponseWriter, _ *http.Request) {
		p.cfg.Engine.Respond(w, http.StatusOK, templating.PageSuccess, templating.Vars{
			"title":   "Connected",
			"message": p.cfg.Kind.DisplayName() + " is connected.",
		})
	})
	mux.HandleFunc("GET /error", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("error")

		p.cfg.Engine.Respond(w, http.StatusOK, templating.PageError, templating.Vars{
			"title":       "Authorization failed",
			"description": oauthflow.Describe(code),
			"code":        code,
			"retry_url":   "/",
		})
	})
	mux.HandleFunc("GET /status", func(w http.ResponseWriter, _ *http.Request) {
		captive.WriteJSON(w, p.Status())
	})

	return mux
}

func (p *Portal) serveStart(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if q.Get("provider") != p.cfg.Kind.String() {
		p.receiver.RenderForm(w, http.StatusBadRequest, "This link is for another provider.")

		return
	}

	if !p.fresh(q.Get("timestamp")) {
		p.receiver.RenderForm(w, http.StatusBadRequest, "This link has expired. Scan the code again.")

		return
	}

	switch {
	case p.cfg.Simulate:
		p.Complete(captive.Outcome{Token: oauthflow.DemoToken})
		http.Redirect(w, r, "/success", http.StatusFound)
	case p.cfg.Flow != nil:
		http.Redirect(w, r, p.cfg.Flow.Begin(), http.StatusFound)
	default:
		p.receiver.RenderForm(
			w,
			http.StatusOK,
			"Sign-in is not configured on this device. Paste a token instead.",
		)
	}
}

func (p *Portal) serveCallback(w http.ResponseWriter, r *http.Request) {
	if p.cfg.Flow == nil {
		http.Redirect(w, r, "/", http.StatusFound)

		return
	}

	token, err := p.cfg.Flow.Callback(r.Context(), r.URL.Query())
	if err != nil {
		p.Complete(captive.Outcome{Err: err})
		http.Redirect(
			w, r,
			"/error?"+url.Values{"error": {oauthflow.CodeOf(err)}}.Encode(),
			http.StatusFound,
		)

		return
	}

	p.Complete(captive.Outcome{Token: token})
	http.Redirect(w, r, "/success", http.StatusFound)
}

func (p *Portal) fresh(raw string) bool {
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false
	}

	age := p.cfg.Now().Sub(time.UnixMilli(ms))

	return age <= p.cfg.TTL && age >= -clockSkew
}

func (p *Portal) landingVars() templating.Vars {
	start := ""
	if p.cfg.Flow != nil || p.cfg.Simulate {
		start = startPath(p.cfg.Kind, p.cfg.Now())
	}

	return templating.Vars{
		"title":     "Connect " + p.cfg.Kind.DisplayName(),
		"provider":  p.cfg.Kind.DisplayName(),
		"start_url": start,
	}
}
