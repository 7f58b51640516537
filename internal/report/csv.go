package report

import (
	"encoding/csv"
	"io"
	"time"

	"github.com/tphummel/logsheet/internal/models"
)

// FlatSchemaVersion identifies the column layout of FlatSchema.
const FlatSchemaVersion = 1

// FlatSchema is the fixed column order of flat exports. The oil level image
// reference is deliberately absent.
var FlatSchema = []string{
	"id",
	"uid",
	"inletPressure",
	"outletPressure",
	"diffPressureIndication",
	"oilPressureStatus",
	"newOptionStatus",
	"comment",
	"created_at",
}

func flatRow(r models.Reading, loc *time.Location) []string {
	created := r.CreatedAt
	if loc != nil {
		created = created.In(loc)
	}
	return []string{
		r.ID,
		r.UID,
		formatFloat(r.InletPressure),
		formatFloat(r.OutletPressure),
		formatFloat(r.DiffPressureIndication),
		r.OilPressureStatus,
		r.NewOptionStatus,
		r.Comment,
		created.Format(time.RFC3339),
	}
}

// ExportFlat writes one CSV row per reading under the FlatSchema header.
// Absent optional fields become empty cells so columns stay aligned. An
// empty input produces a header-only document.
func ExportFlat(w io.Writer, readings []models.Reading, loc *time.Location) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(FlatSchema); err != nil {
		return err
	}
	for _, r := range readings {
		if err := cw.Write(flatRow(r, loc)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
