package middleware

import (
	"net/http"
	"time"

	"github.com/journal/journal/pkg/logger"
)

// Logging stores a request-scoped logger carrying request_id in the context
// and writes one access log line per request: debug level, or warn for 5xx.
// It must run after RequestID.
func Logging(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newResponseWriter(w)

			reqLog := log.With("request_id", GetRequestID(r.Context()))
			next.ServeHTTP(rw, r.WithContext(logger.NewContext(r.Context(), reqLog)))

			fields := []interface{}{
				"method", r.Method,
				"path", r.URL.Path,
				"status", rw.statusCode,
				"duration_ms", time.Since(start).Milliseconds(),
			}
			if rw.statusCode >= http.StatusInternalServerError {
				reqLog.Warn("request failed", fields...)
				return
			}
			reqLog.Debug("request handled", fields...)
		})
	}
}

// Recover turns a handler panic into a 500 response and an error log line.
func Recover(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					log.Error("panic in handler",
						"panic", rec,
						"path", r.URL.Path,
						"request_id", GetRequestID(r.Context()),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_, _ = w.Write([]byte(`{"error":"internal server error","code":"INTERNAL_ERROR"}` + "\n"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
