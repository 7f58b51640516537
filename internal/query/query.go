// Package query derives the views the browsing and reporting screens need
// from the full readings collection: group and calendar-day filtering, and
// the equipment-by-time log sheet.
package query

import (
	"fmt"
	"slices"
	"time"

	"github.com/tphummel/logsheet/internal/models"
)

// DayLayout is the wire format of a Day.
const DayLayout = "2006-01-02"

// Day is a calendar day independent of any time zone.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDay parses a YYYY-MM-DD string.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(DayLayout, s)
	if err != nil {
		return Day{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return DayOf(t, time.UTC), nil
}

// DayOf returns the calendar day t falls on in loc.
func DayOf(t time.Time, loc *time.Location) Day {
	y, m, d := t.In(loc).Date()
	return Day{Year: y, Month: m, Day: d}
}

func (d Day) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Bounds returns the half-open interval [start, end) covering d in loc.
func (d Day) Bounds(loc *time.Location) (start, end time.Time) {
	start = time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
	end = time.Date(d.Year, d.Month, d.Day+1, 0, 0, 0, 0, loc)
	return start, end
}

// Contains reports whether t falls on d in loc.
func (d Day) Contains(t time.Time, loc *time.Location) bool {
	start, end := d.Bounds(loc)
	return !t.Before(start) && t.Before(end)
}

// Membership resolves which group lists an equipment id.
type Membership interface {
	GroupOf(id string) (string, bool)
}

// GroupMembership returns the group owning id, if any.
func GroupMembership(m Membership, id string) (string, bool) {
	return m.GroupOf(id)
}

// FilterByGroupAndDate returns the readings whose equipment belongs to group
// and whose created_at falls on day in loc. Insertion order is kept.
func FilterByGroupAndDate(all []models.Reading, m Membership, group string, day Day, loc *time.Location) []models.Reading {
	out := []models.Reading{}
	for _, r := range all {
		g, ok := m.GroupOf(r.UID)
		if !ok || g != group {
			continue
		}
		if day.Contains(r.CreatedAt, loc) {
			out = append(out, r)
		}
	}
	return out
}

// FilterByEquipmentAndDate returns the readings for uid on day in loc.
func FilterByEquipmentAndDate(all []models.Reading, uid string, day Day, loc *time.Location) []models.Reading {
	out := []models.Reading{}
	for _, r := range all {
		if r.UID == uid && day.Contains(r.CreatedAt, loc) {
			out = append(out, r)
		}
	}
	return out
}

// Sheet is the log-sheet table for one group and day: one row per
// equipment, one column per distinct reading time.
type Sheet struct {
	Group    string         `json:"group"`
	Day      string         `json:"date"`
	Location *time.Location `json:"-"`
	Columns  []time.Time    `json:"columns"`
	Rows     []SheetRow     `json:"rows"`
}

// SheetRow holds the cells of one equipment. A nil cell means no reading at
// that column's time.
type SheetRow struct {
	Equipment models.Equipment  `json:"equipment"`
	Cells     []*models.Reading `json:"cells"`
}

// BuildSheet lays filtered readings out against the ordered equipment list.
// Readings for equipment missing from the list are ignored.
func BuildSheet(filtered []models.Reading, equipment []models.Equipment, group string, day Day, loc *time.Location) Sheet {
	var columns []time.Time
	for _, r := range filtered {
		if !slices.ContainsFunc(columns, r.CreatedAt.Equal) {
			columns = append(columns, r.CreatedAt)
		}
	}
	slices.SortFunc(columns, func(a, b time.Time) int { return a.Compare(b) })

	sheet := Sheet{
		Group:    group,
		Day:      day.String(),
		Location: loc,
		Columns:  columns,
		Rows:     make([]SheetRow, 0, len(equipment)),
	}
	for _, e := range equipment {
		row := SheetRow{Equipment: e, Cells: make([]*models.Reading, len(columns))}
		for i := range filtered {
			r := &filtered[i]
			if r.UID != e.ID {
				continue
			}
			col := slices.IndexFunc(columns, r.CreatedAt.Equal)
			if row.Cells[col] == nil {
				row.Cells[col] = r
			}
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet
}

// Readings returns every reading placed in the sheet, row by row.
func (s Sheet) Readings() []models.Reading {
	var out []models.Reading
	for _, row := range s.Rows {
		for _, c := range row.Cells {
			if c != nil {
				out = append(out, *c)
			}
		}
	}
	return out
}
