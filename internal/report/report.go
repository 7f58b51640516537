// Package report turns a log sheet into the artifacts operators share: a
// printable document, a flat CSV and an XLSX workbook.
package report

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/tphummel/logsheet/internal/models"
	"github.com/tphummel/logsheet/internal/query"
)

// Format names an export artifact type.
type Format string

const (
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ValidFormats is the set of formats Render accepts.
var ValidFormats = map[Format]bool{
	FormatHTML: true,
	FormatPDF:  true,
	FormatCSV:  true,
	FormatXLSX: true,
}

var contentTypes = map[Format]string{
	FormatHTML: "text/html; charset=utf-8",
	FormatPDF:  "application/pdf",
	FormatCSV:  "text/csv; charset=utf-8",
	FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// FilePrefix starts every exported file name.
const FilePrefix = "Log-sheet-report-design_"

// FileName returns the artifact name for group and day with extension ext.
func FileName(group string, day query.Day, ext string) string {
	return fmt.Sprintf("%s%s(%s).%s", FilePrefix, group, day, ext)
}

// PDFConverter turns printable HTML into a PDF document.
type PDFConverter interface {
	Convert(ctx context.Context, html []byte) ([]byte, error)
}

// Generator renders reports. Resolver and PDF are optional.
type Generator struct {
	Resolver ImageResolver
	PDF      PDFConverter
	Workers  int
	Logger   *slog.Logger
}

// Artifact is a rendered report ready to stream or write.
type Artifact struct {
	Format      Format
	ContentType string
	Ext         string
	Body        []byte
}

// Render produces the artifact for format. A PDF request without a
// configured converter falls back to the printable HTML.
func (g *Generator) Render(ctx context.Context, format Format, sheet query.Sheet, filtered []models.Reading) (Artifact, error) {
	var (
		buf bytes.Buffer
		err error
	)
	switch format {
	case FormatHTML, FormatPDF:
		var html []byte
		html, err = g.RenderPrintable(ctx, sheet, sheet.Group)
		if err != nil {
			return Artifact{}, err
		}
		if format == FormatPDF && g.PDF != nil {
			pdf, err := g.PDF.Convert(ctx, html)
			if err != nil {
				return Artifact{}, fmt.Errorf("%w: convert to pdf: %v", models.ErrExport, err)
			}
			return newArtifact(FormatPDF, pdf), nil
		}
		return newArtifact(FormatHTML, html), nil
	case FormatCSV:
		err = ExportFlat(&buf, filtered, sheet.Location)
	case FormatXLSX:
		err = ExportWorkbook(&buf, sheet, filtered)
	default:
		return Artifact{}, fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return Artifact{}, err
	}
	return newArtifact(format, buf.Bytes()), nil
}

func newArtifact(format Format, body []byte) Artifact {
	return Artifact{
		Format:      format,
		ContentType: contentTypes[format],
		Ext:         string(format),
		Body:        body,
	}
}

func (g *Generator) logger() *slog.Logger {
	if g.Logger == nil {
		return slog.Default()
	}
	return g.Logger
}
