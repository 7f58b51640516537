package handlers

import (
	"mime"
	"net/http"
	"strconv"

	"github.com/tphummel/logsheet/internal/models"
	"github.com/tphummel/logsheet/internal/query"
	"github.com/tphummel/logsheet/internal/report"
)

// sheetFor resolves the {group} and {date} path values and builds the log
// sheet. It writes the error response itself when ok is false.
func (h *Handler) sheetFor(w http.ResponseWriter, r *http.Request) (sheet query.Sheet, filtered []models.Reading, ok bool) {
	group := r.PathValue("group")
	equipment := h.Directory.Equipment(group)
	if equipment == nil {
		writeError(w, http.StatusNotFound, "group not found")
		return query.Sheet{}, nil, false
	}
	day, err := query.ParseDay(r.PathValue("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return query.Sheet{}, nil, false
	}

	loc := h.location()
	filtered = query.FilterByGroupAndDate(h.Readings.All(), h.Directory, group, day, loc)
	return query.BuildSheet(filtered, equipment, group, day, loc), filtered, true
}

func parseFormat(w http.ResponseWriter, r *http.Request) (report.Format, bool) {
	format := report.Format(r.PathValue("format"))
	if !report.ValidFormats[format] {
		writeError(w, http.StatusBadRequest, "invalid format")
		return "", false
	}
	return format, true
}

// GetSheet handles GET /api/v1/sheets/{group}/{date}.
func (h *Handler) GetSheet(w http.ResponseWriter, r *http.Request) {
	sheet, _, ok := h.sheetFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sheet)
}

// GetReport handles GET /api/v1/reports/{group}/{date}/{format} and streams
// the rendered report as an attachment.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	format, ok := parseFormat(w, r)
	if !ok {
		return
	}
	sheet, filtered, ok := h.sheetFor(w, r)
	if !ok {
		return
	}

	art, err := h.Reports.Render(r.Context(), format, sheet, filtered)
	if err != nil {
		writeFailure(w, err, "failed to render report")
		return
	}
	day, _ := query.ParseDay(sheet.Day)
	name := report.FileName(sheet.Group, day, art.Ext)

	w.Header().Set("Content-Type", art.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(art.Body)))
	w.WriteHeader(http.StatusOK)
	w.Write(art.Body)
}

// CreateExport handles POST /api/v1/exports/{group}/{date}/{format} and
// writes the report into the export directory.
func (h *Handler) CreateExport(w http.ResponseWriter, r *http.Request) {
	format, ok := parseFormat(w, r)
	if !ok {
		return
	}
	sheet, filtered, ok := h.sheetFor(w, r)
	if !ok {
		return
	}

	path, err := h.Exporter.Export(r.Context(), format, sheet, filtered)
	if err != nil {
		writeFailure(w, err, "failed to export report")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"path":     path,
		"readings": len(filtered),
	})
}
