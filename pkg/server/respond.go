package server

import (
	"encoding/json"
	"net/http"

	"github.com/ripixel/fitpulse/pkg/infrastructure/sentry"
)

// respondJSON writes v with the given status.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// respondRaw writes an already-serialized JSON body (cached responses).
func respondRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// respondError returns a generic JSON error body. Internal detail goes to
// the log and Sentry, never to the caller.
func (a *App) respondError(w http.ResponseWriter, r *http.Request, status int, publicMsg string, err error) {
	a.log.Error("request failed", "path", r.URL.Path, "status", status, "error", err)
	if status >= 500 {
		sentry.CaptureException(err, map[string]any{"path": r.URL.Path})
	}
	respondJSON(w, status, map[string]string{"error": publicMsg})
}
