package middleware_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tphummel/logsheet/internal/middleware"
)

// serveLogged sends one request through RequestLogger and returns whatever
// the logger wrote.
func serveLogged(skip func(*http.Request) bool, method, path string, next http.HandlerFunc) *bytes.Buffer {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := middleware.RequestLogger(logger, skip, next)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(method, path, nil))
	return &buf
}

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not valid JSON: %v\noutput: %s", err, buf.String())
	}
	return entry
}

func status(code int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(code) }
}

func TestRequestLogger_Fields(t *testing.T) {
	buf := serveLogged(nil, http.MethodGet, "/api/v1/readings", status(http.StatusOK))
	entry := decodeEntry(t, buf)

	for _, key := range []string{"method", "path", "status", "bytes", "duration", "remote_addr"} {
		if _, ok := entry[key]; !ok {
			t.Errorf("log entry missing key %q", key)
		}
	}
	if entry["method"] != http.MethodGet {
		t.Errorf("method: got %v", entry["method"])
	}
	if entry["path"] != "/api/v1/readings" {
		t.Errorf("path: got %v", entry["path"])
	}
}

func TestRequestLogger_StatusAndLevel(t *testing.T) {
	tests := []struct {
		name   string
		next   http.HandlerFunc
		status int
		level  string
	}{
		{"ok", status(http.StatusOK), http.StatusOK, "INFO"},
		{"implicit ok", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("hello")) }, http.StatusOK, "INFO"},
		{"not found", status(http.StatusNotFound), http.StatusNotFound, "WARN"},
		{"bad request", status(http.StatusBadRequest), http.StatusBadRequest, "WARN"},
		{"storage failure", status(http.StatusInternalServerError), http.StatusInternalServerError, "ERROR"},
		{"export failure", status(http.StatusBadGateway), http.StatusBadGateway, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := decodeEntry(t, serveLogged(nil, http.MethodPost, "/api/v1/readings", tt.next))
			if int(entry["status"].(float64)) != tt.status {
				t.Errorf("status: got %v, want %d", entry["status"], tt.status)
			}
			if entry["level"] != tt.level {
				t.Errorf("level: got %v, want %s", entry["level"], tt.level)
			}
		})
	}
}

func TestRequestLogger_CountsBytes(t *testing.T) {
	buf := serveLogged(nil, http.MethodGet, "/api/v1/reports/Pumps/2024-01-05/csv", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("id,uid\n"))
		w.Write([]byte("r1,A1\n"))
	})

	entry := decodeEntry(t, buf)
	if int(entry["bytes"].(float64)) != 13 {
		t.Errorf("bytes: got %v, want 13", entry["bytes"])
	}
}

func TestRequestLogger_Skip(t *testing.T) {
	skip := middleware.SkipPaths("/healthz")

	if buf := serveLogged(skip, http.MethodGet, "/healthz", status(http.StatusOK)); buf.Len() > 0 {
		t.Errorf("expected no log output for healthcheck, got: %s", buf.String())
	}
	if buf := serveLogged(skip, http.MethodGet, "/api/v1/groups", status(http.StatusOK)); buf.Len() == 0 {
		t.Error("expected log output for non-skipped path")
	}
	if buf := serveLogged(nil, http.MethodGet, "/healthz", status(http.StatusOK)); buf.Len() == 0 {
		t.Error("nil skip should log every request")
	}
}

func TestSkipPaths(t *testing.T) {
	skip := middleware.SkipPaths("/healthz", "/metrics")
	for path, want := range map[string]bool{"/healthz": true, "/metrics": true, "/api/v1/groups": false, "/healthz/": false} {
		if got := skip(httptest.NewRequest(http.MethodGet, path, nil)); got != want {
			t.Errorf("SkipPaths(%q): got %v, want %v", path, got, want)
		}
	}
}
