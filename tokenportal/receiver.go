package tokenportal

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/byte4ever/gitlink/captive"
	"github.com/byte4ever/gitlink/session"
	"github.com/byte4ever/gitlink/templating"
)

// Receiver accepts a pasted token posted in the "token"
// form field. Portals that offer manual entry mount it
// on their submit routes.
type Receiver struct {
	Kind   session.Kind
	Engine *templating.Engine
	Portal *captive.Portal
	// FormPage is rendered again, with "error" set, when
	// the token is rejected.
	FormPage string
	// FormVars returns the other variables of FormPage.
	FormVars func() templating.Vars
}

// ServeHTTP validates the token and completes the portal
// session. An empty field sends the client back to "/".
func (rc *Receiver) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.PostFormValue("token"))
	if token == "" {
		http.Redirect(w, r, "/", http.StatusFound)

		return
	}

	if err := ValidateTokenFormat(token); err != nil {
		slog.Info("token rejected", "kind", rc.Kind, "error", err)

		rc.RenderForm(
			w,
			http.StatusBadRequest,
			"Invalid "+rc.Kind.DisplayName()+
				" token format. Check the token and try again.",
		)

		return
	}

	if !rc.Portal.Complete(captive.Outcome{Token: token}) {
		slog.Warn("token ignored, session already complete", "kind", rc.Kind)
	}

	http.Redirect(w, r, "/success", http.StatusFound)
}

// RenderForm renders FormPage with an optional error
// message.
func (rc *Receiver) RenderForm(
	w http.ResponseWriter,
	status int,
	errMsg string,
) {
	vars := templating.Vars{}

	if rc.FormVars != nil {
		vars = rc.FormVars()
	}

	vars["error"] = errMsg

	rc.Engine.Respond(w, status, rc.FormPage, vars)
}
