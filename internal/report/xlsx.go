package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tphummel/logsheet/internal/models"
	"github.com/tphummel/logsheet/internal/query"
	"github.com/xuri/excelize/v2"
)

const (
	readingsSheet = "Readings"
	logSheet      = "Log Sheet"
)

// ExportWorkbook writes an XLSX workbook with two sheets: the flat readings
// under FlatSchema, and the equipment-by-time log sheet.
func ExportWorkbook(w io.Writer, sheet query.Sheet, readings []models.Reading) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", readingsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	if err := writeReadingsSheet(f, readings, sheet.Location, headerStyle); err != nil {
		return err
	}
	if _, err := f.NewSheet(logSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	if err := writeLogSheet(f, sheet, headerStyle); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	return f.Write(w)
}

func writeReadingsSheet(f *excelize.File, readings []models.Reading, loc *time.Location, headerStyle int) error {
	if err := writeHeader(f, readingsSheet, FlatSchema, headerStyle); err != nil {
		return err
	}
	for i, r := range readings {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := flatRow(r, loc)
		row := make([]any, len(values))
		for j, v := range values {
			row[j] = v
		}
		// keep the pressures numeric in the spreadsheet
		row[2], row[3], row[4] = r.InletPressure, r.OutletPressure, r.DiffPressureIndication
		if err := f.SetSheetRow(readingsSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := f.SetColWidth(readingsSheet, "A", "A", 38); err != nil {
		return err
	}
	return f.SetColWidth(readingsSheet, "B", "I", 20)
}

func writeLogSheet(f *excelize.File, sheet query.Sheet, headerStyle int) error {
	loc := sheet.Location
	if loc == nil {
		loc = time.Local
	}
	header := []string{"Equipment"}
	for _, c := range sheet.Columns {
		header = append(header, c.In(loc).Format("15:04"))
	}
	if err := writeHeader(f, logSheet, header, headerStyle); err != nil {
		return err
	}

	for i, row := range sheet.Rows {
		values := []any{row.Equipment.Name}
		for _, r := range row.Cells {
			values = append(values, cellSummary(r))
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(logSheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	return f.SetColWidth(logSheet, "A", "A", 20)
}

func writeHeader(f *excelize.File, sheetName string, header []string, style int) error {
	for col, title := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, title); err != nil {
			return fmt.Errorf("set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, style); err != nil {
			return fmt.Errorf("set header style: %w", err)
		}
	}
	return nil
}

func cellSummary(r *models.Reading) string {
	if r == nil {
		return "no reading"
	}
	parts := []string{
		"In " + formatFloat(r.InletPressure),
		"Out " + formatFloat(r.OutletPressure),
		"Diff " + formatFloat(r.DiffPressureIndication) + "%",
	}
	if r.OilPressureStatus != "" {
		parts = append(parts, "Oil "+r.OilPressureStatus)
	}
	if r.NewOptionStatus != "" {
		parts = append(parts, r.NewOptionStatus)
	}
	return strings.Join(parts, " / ")
}
