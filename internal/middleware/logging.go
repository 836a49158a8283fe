package middleware

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
)

// loggingResponseWriter wraps http.ResponseWriter to capture status code
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newLoggingResponseWriter(w http.ResponseWriter) *loggingResponseWriter {
	return &loggingResponseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

// Logging logs HTTP request and response information. The popup polls
// health and status every few seconds, so those paths log at debug.
func Logging(logger arbor.ILogger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			lrw := newLoggingResponseWriter(w)

			next(lrw, r)

			duration := time.Since(start)

			if isPollingPath(r.URL.Path) {
				logger.Debug().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Str("remote_addr", r.RemoteAddr).
					Int("status", lrw.statusCode).
					Dur("duration", duration).
					Msg("HTTP request")
				return
			}

			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote_addr", r.RemoteAddr).
				Int("status", lrw.statusCode).
				Dur("duration", duration).
				Msg("HTTP request")
		}
	}
}

func isPollingPath(path string) bool {
	switch path {
	case "/health", "/status":
		return true
	}
	return false
}
