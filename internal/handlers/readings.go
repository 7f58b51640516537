package handlers

import (
	"net/http"
	"time"

	"github.com/tphummel/logsheet/internal/models"
	"github.com/tphummel/logsheet/internal/query"
)

// CreateReading handles POST /api/v1/readings, the capture form submission.
func (h *Handler) CreateReading(w http.ResponseWriter, r *http.Request) {
	var in models.CaptureInput
	if !decodeBody(w, r, &in) {
		return
	}
	if err := in.Validate(); err != nil {
		writeFailure(w, err, "invalid reading")
		return
	}

	reading, err := h.Readings.Add(r.Context(), in.Reading(h.now()))
	if err != nil {
		writeFailure(w, err, "failed to record reading")
		return
	}
	writeJSON(w, http.StatusCreated, reading)
}

// ListReadings handles GET /api/v1/readings with optional ?uid=, ?group= and
// ?date= filters. group requires date.
func (h *Handler) ListReadings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	uid, group, date := q.Get("uid"), q.Get("group"), q.Get("date")

	var day query.Day
	if date != "" {
		var err error
		if day, err = query.ParseDay(date); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	loc := h.location()

	var out []models.Reading
	switch {
	case group != "":
		if date == "" {
			writeError(w, http.StatusBadRequest, "date is required when filtering by group")
			return
		}
		if h.Directory.Equipment(group) == nil {
			writeError(w, http.StatusNotFound, "group not found")
			return
		}
		out = query.FilterByGroupAndDate(h.Readings.All(), h.Directory, group, day, loc)
	case uid != "" && date != "":
		out = query.FilterByEquipmentAndDate(h.Readings.All(), uid, day, loc)
	case uid != "":
		out = h.Readings.ForEquipment(uid)
	case date != "":
		out = []models.Reading{}
		for _, rd := range h.Readings.All() {
			if day.Contains(rd.CreatedAt, loc) {
				out = append(out, rd)
			}
		}
	default:
		out = h.Readings.All()
	}
	writeJSON(w, http.StatusOK, out)
}

// DeleteReading handles DELETE /api/v1/readings/{id}. Deleting an unknown id
// succeeds without effect.
func (h *Handler) DeleteReading(w http.ResponseWriter, r *http.Request) {
	if err := h.Readings.RemoveByID(r.Context(), r.PathValue("id")); err != nil {
		writeFailure(w, err, "failed to delete reading")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteReadingByKey handles DELETE /api/v1/readings?uid=&created_at=, the
// compound-key deletion. created_at must match the stored instant exactly.
func (h *Handler) DeleteReadingByKey(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	uid := q.Get("uid")
	if uid == "" || q.Get("created_at") == "" {
		writeError(w, http.StatusBadRequest, "uid and created_at are required")
		return
	}
	createdAt, err := time.Parse(time.RFC3339Nano, q.Get("created_at"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "created_at must be an RFC 3339 timestamp")
		return
	}

	if err := h.Readings.Remove(r.Context(), uid, createdAt); err != nil {
		writeFailure(w, err, "failed to delete reading")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
