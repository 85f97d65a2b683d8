package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ripixel/fitpulse/pkg/infrastructure/sentry"
)

// requestLogger logs one line per request with method, path, and duration.
func (a *App) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		a.log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// recoverPanics converts a handler panic into a 500 error body. Endpoints
// never crash the process.
func (a *App) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				err, ok := rec.(error)
				if !ok {
					err = fmt.Errorf("panic: %v", rec)
				}
				a.log.Error("handler panicked", "path", r.URL.Path, "error", err)
				sentry.CaptureException(err, map[string]any{"path": r.URL.Path})
				respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
