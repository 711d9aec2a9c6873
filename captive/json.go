package captive

import (
	"log/slog"
	"net/http"

	json "github.com/goccy/go-json"
)

// WriteJSON answers 200 with v encoded as JSON.
func WriteJSON(w http.ResponseWriter, v any) {
	by, err := json.Marshal(v)
	if err != nil {
		slog.Error("encoding status", "error", err)
		http.Error(
			w,
			http.StatusText(http.StatusInternalServerError),
			http.StatusInternalServerError,
		)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")

	_, _ = w.Write(by)
}
