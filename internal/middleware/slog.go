package middleware

import (
	"log/slog"
	"net/http"
	"slices"
	"time"
)

// responseMeter records what the downstream handler sent. status starts at
// 200 so handlers that only call Write are reported correctly.
type responseMeter struct {
	http.ResponseWriter
	status  int
	written int
	wrote   bool
}

func (m *responseMeter) WriteHeader(code int) {
	if !m.wrote {
		m.status = code
		m.wrote = true
	}
	m.ResponseWriter.WriteHeader(code)
}

func (m *responseMeter) Write(b []byte) (int, error) {
	m.wrote = true
	n, err := m.ResponseWriter.Write(b)
	m.written += n
	return n, err
}

// levelFor picks the log level for a response status.
func levelFor(status int) slog.Level {
	if status >= http.StatusInternalServerError {
		return slog.LevelError
	}
	if status >= http.StatusBadRequest {
		return slog.LevelWarn
	}
	return slog.LevelInfo
}

// SkipPaths returns a skip function for RequestLogger matching exact paths.
func SkipPaths(paths ...string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		return slices.Contains(paths, r.URL.Path)
	}
}

// RequestLogger logs one slog entry per request once next has returned.
// Failed captures and exports show up at warn or error level. Requests
// matched by skip go straight to next.
func RequestLogger(logger *slog.Logger, skip func(*http.Request) bool, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if skip != nil && skip(r) {
			next.ServeHTTP(w, r)
			return
		}

		meter := &responseMeter{ResponseWriter: w, status: http.StatusOK}
		began := time.Now()
		next.ServeHTTP(meter, r)
		elapsed := time.Since(began)

		logger.LogAttrs(r.Context(), levelFor(meter.status), "request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", meter.status),
			slog.Int("bytes", meter.written),
			slog.Duration("duration", elapsed),
			slog.String("remote_addr", r.RemoteAddr),
		)
	})
}
