package captive

import "net/http"

// ProbePaths are the connectivity-check URLs that
// Android, Apple, Windows and Firefox request after
// joining a network.
var ProbePaths = []string{ //nolint:gochecknoglobals // read-only table
	"/generate_204",
	"/gen_204",
	"/hotspot-detect.html",
	"/library/test/success.html",
	"/ncsi.txt",
	"/connecttest.txt",
	"/redirect",
	"/fwlink",
	"/canonical.html",
	"/success.txt",
}

// NewMux returns a mux where every probe path and every
// unregistered path redirects to "/". Callers must
// register "GET /{$}" themselves.
func NewMux() *http.ServeMux {
	mux := http.NewServeMux()

	for _, p := range ProbePaths {
		mux.HandleFunc(p, redirectIndex)
	}

	mux.HandleFunc("/", redirectIndex)

	return mux
}

func redirectIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusFound)
}
