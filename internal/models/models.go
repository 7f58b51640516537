package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Equipment is a physical machine identified by its scanned code.
type Equipment struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Reading is one timestamped inspection record for a piece of equipment.
// UID is a lookup reference to an Equipment ID; readings are never owned by
// the equipment they point at.
type Reading struct {
	ID                     string    `json:"id,omitempty"`
	UID                    string    `json:"uid"`
	InletPressure          float64   `json:"inletPressure"`
	OutletPressure         float64   `json:"outletPressure"`
	DiffPressureIndication float64   `json:"diffPressureIndication"`
	OilLevel               string    `json:"oilLevel"`
	OilPressureStatus      string    `json:"oilPressureStatus,omitempty"`
	NewOptionStatus        string    `json:"newOptionStatus,omitempty"`
	Comment                string    `json:"comment,omitempty"`
	CreatedAt              time.Time `json:"created_at"`
}

// Oil pressure status values.
const (
	OilPressureLow  = "Low"
	OilPressureGood = "Good"
)

// Running status values recorded on the capture form.
const (
	StatusOn       = "on"
	StatusOff      = "off"
	StatusIsolated = "isolated"
)

// ValidOilPressureStatuses is the set of allowed oilPressureStatus values.
var ValidOilPressureStatuses = map[string]bool{
	OilPressureLow:  true,
	OilPressureGood: true,
}

// ValidNewOptionStatuses is the set of allowed newOptionStatus values.
var ValidNewOptionStatuses = map[string]bool{
	StatusOn:       true,
	StatusOff:      true,
	StatusIsolated: true,
}

var (
	// ErrStorage marks a failed read or write of a persisted document.
	ErrStorage = errors.New("storage error")
	// ErrExport marks a failed report write or move.
	ErrExport = errors.New("export error")
	// ErrResourceUnavailable marks a media source that cannot be accessed.
	ErrResourceUnavailable = errors.New("resource unavailable")
)

// ValidationError reports a missing or rejected form field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// FieldErrors collects one ValidationError per field, the way the capture
// form shows one caption under each input.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, fe[f]))
	}
	return strings.Join(parts, "; ")
}

// CaptureInput is the capture form as submitted. Pressures are pointers so a
// missing field can be told apart from an explicit zero.
type CaptureInput struct {
	UID                    string   `json:"uid"`
	InletPressure          *float64 `json:"inletPressure"`
	OutletPressure         *float64 `json:"outletPressure"`
	DiffPressureIndication *float64 `json:"diffPressureIndication"`
	OilLevel               string   `json:"oilLevel"`
	OilPressureStatus      string   `json:"oilPressureStatus"`
	NewOptionStatus        string   `json:"newOptionStatus"`
	Comment                string   `json:"comment"`
}

// Validate checks the required capture fields and returns FieldErrors when
// any are missing or out of range.
func (in CaptureInput) Validate() error {
	errs := FieldErrors{}
	if strings.TrimSpace(in.UID) == "" {
		errs["uid"] = "Equipment ID is required."
	}
	if in.InletPressure == nil {
		errs["inletPressure"] = "Inlet Pressure is required."
	}
	if in.OutletPressure == nil {
		errs["outletPressure"] = "Outlet Pressure is required."
	}
	if in.DiffPressureIndication == nil {
		errs["diffPressureIndication"] = "Diff Pressure Indication is required."
	}
	if strings.TrimSpace(in.OilLevel) == "" {
		errs["oilLevel"] = "Oil Level image is required."
	}
	if in.OilPressureStatus != "" && !ValidOilPressureStatuses[in.OilPressureStatus] {
		errs["oilPressureStatus"] = "Oil Pressure Status must be Low or Good."
	}
	if in.NewOptionStatus != "" && !ValidNewOptionStatuses[in.NewOptionStatus] {
		errs["newOptionStatus"] = "Status must be on, off or isolated."
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Reading converts a validated form into a Reading stamped with now. The
// form defaults (Good, on) apply when the statuses were left unset.
func (in CaptureInput) Reading(now time.Time) Reading {
	r := Reading{
		UID:               strings.TrimSpace(in.UID),
		OilLevel:          in.OilLevel,
		OilPressureStatus: in.OilPressureStatus,
		NewOptionStatus:   in.NewOptionStatus,
		Comment:           in.Comment,
		CreatedAt:         now,
	}
	if in.InletPressure != nil {
		r.InletPressure = *in.InletPressure
	}
	if in.OutletPressure != nil {
		r.OutletPressure = *in.OutletPressure
	}
	if in.DiffPressureIndication != nil {
		r.DiffPressureIndication = *in.DiffPressureIndication
	}
	if r.OilPressureStatus == "" {
		r.OilPressureStatus = OilPressureGood
	}
	if r.NewOptionStatus == "" {
		r.NewOptionStatus = StatusOn
	}
	return r
}
