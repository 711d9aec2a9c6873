package templating

import (
	"bytes"
	"log/slog"
	"net/http"
)

// Respond renders page and writes it with status. A
// render failure answers 500 instead.
func (en *Engine) Respond(
	w http.ResponseWriter,
	status int,
	page string,
	vars Vars,
) {
	var buf bytes.Buffer

	if err := en.Render(&buf, page, vars); err != nil {
		slog.Error("rendering page", "page", page, "error", err)
		http.Error(
			w,
			http.StatusText(http.StatusInternalServerError),
			http.StatusInternalServerError,
		)

		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)

	_, _ = buf.WriteTo(w)
}
