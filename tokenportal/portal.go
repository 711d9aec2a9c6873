package tokenportal

import (
	"fmt"
	"net/http"

	"github.com/byte4ever/gitlink/captive"
	"github.com/byte4ever/gitlink/session"
	"github.com/byte4ever/gitlink/templating"
)

// SSID returns the default network name for kind.
func SSID(kind session.Kind) string {
	return fmt.Sprintf("gitlink-%s-setup", kind)
}

// Config describes a token portal. Portal.Handler is
// replaced by the portal routes.
type Config struct {
	Kind   session.Kind
	Engine *templating.Engine
	Portal captive.Config
}

// Portal is a captive portal that collects a pasted
// token.
type Portal struct {
	*captive.Portal

	kind     session.Kind
	engine   *templating.Engine
	receiver *Receiver
	handler  http.Handler
}

// New returns a stopped portal. An empty SSID defaults
// to SSID(kind).
func New(cfg Config) *Portal {
	if cfg.Engine == nil {
		cfg.Engine = &templating.Engine{}
	}

	if cfg.Portal.SSID == "" {
		cfg.Portal.SSID = SSID(cfg.Kind)
	}

	p := &Portal{
		kind:   cfg.Kind,
		engine: cfg.Engine,
	}

	p.handler = p.routes()
	cfg.Portal.Handler = p.handler
	p.Portal = captive.New(cfg.Portal)

	p.receiver = &Receiver{
		Kind:     cfg.Kind,
		Engine:   cfg.Engine,
		Portal:   p.Portal,
		FormPage: templating.PageTokenForm,
		FormVars: p.formVars,
	}

	return p
}

// Handler returns the portal routes.
func (p *Portal) Handler() http.Handler {
	return p.handler
}

// Status is the /status document.
type Status struct {
	PortalActive      bool   `json:"portal_active"`
	TokenSet          bool   `json:"token_set"`
	AccessPointActive bool   `json:"access_point_active"`
	SSID              string `json:"ssid"`
}

// Status reports the portal state.
func (p *Portal) Status() Status {
	return Status{
		PortalActive:      p.Active(),
		TokenSet:          p.TokenReceived(),
		AccessPointActive: p.APActive(),
		SSID:              p.SSID(),
	}
}

func (p *Portal) routes() http.Handler {
	mux := captive.NewMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		p.receiver.RenderForm(w, http.StatusOK, "")
	})

	submit := func(w http.ResponseWriter, r *http.Request) {
		p.receiver.ServeHTTP(w, r)
	}

	mux.HandleFunc("POST /setup", submit)
	mux.HandleFunc("POST /submit-token", submit)

	mux.HandleFunc("GET /success", func(w http.ResponseWriter, _ *http.Request) {
		p.engine.Respond(w, http.StatusOK, templating.PageSuccess, templating.Vars{
			"title":   "Token saved",
			"message": p.kind.DisplayName() + " token received.",
		})
	})

	mux.HandleFunc("GET /error", func(w http.ResponseWriter, r *http.Request) {
		p.engine.Respond(w, http.StatusOK, templating.PageError, templating.Vars{
			"title":       "Error",
			"description": "The token could not be saved.",
			"code":        r.URL.Query().Get("error"),
			"retry_url":   "/",
		})
	})

	mux.HandleFunc("GET /status", func(w http.ResponseWriter, _ *http.Request) {
		captive.WriteJSON(w, p.Status())
	})

	return mux
}

func (p *Portal) formVars() templating.Vars {
	return templating.Vars{
		"title":    p.kind.DisplayName() + " token setup",
		"provider": p.kind.DisplayName(),
		"action":   "/setup",
		"ssid":     p.SSID(),
	}
}
