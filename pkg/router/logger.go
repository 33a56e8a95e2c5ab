package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// RequestLogger logs each request with slog. Credential-bearing headers are
// never logged; bodies are never logged at all since login and verification
// payloads contain passwords and factors.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		slog.Info("Request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"remote", r.RemoteAddr,
			"authorization", redactHeader(r.Header.Get("Authorization")),
		)
	})
}

// redactHeader reports only whether a credential header was present
func redactHeader(value string) string {
	if value == "" {
		return ""
	}
	return "[redacted]"
}
