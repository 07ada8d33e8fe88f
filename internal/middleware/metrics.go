package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/journal/journal/internal/metrics"
)

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Metrics returns a middleware that records Prometheus metrics.
func Metrics() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newResponseWriter(w)

			metrics.ActiveConnections.Inc()
			defer metrics.ActiveConnections.Dec()

			next.ServeHTTP(rw, r)

			duration := time.Since(start)
			path := normalizePath(r.URL.Path)
			metrics.RecordRequest(r.Method, path, rw.statusCode, duration)
		})
	}
}

// normalizePath collapses identifier segments so metric labels stay bounded.
func normalizePath(path string) string {
	switch path {
	case "/health", "/ready", "/metrics",
		"/api/v1/ids", "/api/v1/users", "/api/v1/entries":
		return path
	}

	rest, ok := strings.CutPrefix(path, "/api/v1/")
	if !ok {
		return "/other"
	}
	parts := strings.Split(rest, "/")
	switch {
	case len(parts) == 2 && parts[1] != "" && parts[0] == "ids":
		return "/api/v1/ids/{id}"
	case len(parts) == 2 && parts[1] != "" && parts[0] == "entries":
		return "/api/v1/entries/{id}"
	case len(parts) == 2 && parts[1] != "" && parts[0] == "users":
		return "/api/v1/users/{id}"
	case len(parts) == 3 && parts[1] != "" && parts[0] == "users" && parts[2] == "entries":
		return "/api/v1/users/{id}/entries"
	default:
		return "/other"
	}
}
