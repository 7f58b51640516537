package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/tphummel/logsheet/internal/directory"
	"github.com/tphummel/logsheet/internal/models"
	"github.com/tphummel/logsheet/internal/readings"
	"github.com/tphummel/logsheet/internal/registry"
	"github.com/tphummel/logsheet/internal/report"
)

const maxBodyBytes = 64 * 1024

// Pinger reports whether the backing database is reachable.
type Pinger interface {
	Ping() error
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	DB        Pinger
	Directory *directory.Directory
	Registry  *registry.Registry
	Readings  *readings.Store
	Reports   *report.Generator
	Exporter  *report.Exporter
	// Location is the zone calendar days are evaluated in.
	Location *time.Location
	Now      func() time.Time
	Version  string
	Commit   string
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *Handler) location() *time.Location {
	if h.Location != nil {
		return h.Location
	}
	return time.Local
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeFailure maps a store or report error onto a response. msg is used for
// failures that should not leak internals to the client.
func writeFailure(w http.ResponseWriter, err error, msg string) {
	var fields models.FieldErrors
	var verr *models.ValidationError
	switch {
	case errors.As(err, &fields):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "validation failed", "fields": fields})
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  verr.Message,
			"fields": map[string]string{verr.Field: verr.Message},
		})
	case errors.Is(err, models.ErrExport):
		writeError(w, http.StatusBadGateway, msg)
	case errors.Is(err, models.ErrResourceUnavailable):
		writeError(w, http.StatusServiceUnavailable, msg)
	default:
		writeError(w, http.StatusInternalServerError, msg)
	}
}

// decodeBody decodes a size-limited JSON request body into v. It writes the
// error response itself and reports whether decoding succeeded.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

// Health handles GET /healthz. No auth required.
// Returns 503 if the database is unreachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.DB.Ping(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": h.Version,
		"commit":  h.Commit,
	})
}
