package report

import (
	"bytes"
	"context"
	"html/template"
	"strconv"
	"time"

	"github.com/tphummel/logsheet/internal/query"
)

var printableTmpl = template.Must(template.New("printable").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Log sheet: {{.Label}} ({{.Day}})</title>
  <style>
    body { font-family: Helvetica, Arial, sans-serif; font-size: 11px; }
    table { border-collapse: collapse; width: 100%; }
    th, td { border: 1px solid #000; padding: 4px; vertical-align: top; text-align: center; }
    img { max-width: 120px; max-height: 120px; }
    .missing { color: #888; }
  </style>
</head>
<body>
  <h1>{{.Label}}</h1>
  <h2>{{.Day}}</h2>
  <table>
    <thead>
      <tr>
        <th>Equipment</th>
        {{- range .Columns}}
        <th>{{.}}</th>
        {{- end}}
      </tr>
    </thead>
    <tbody>
      {{- range .Rows}}
      <tr>
        <td>{{.Name}}<br><small>{{.ID}}</small></td>
        {{- range .Cells}}
        {{- if .Present}}
        <td>
          <div>Inlet: {{.Inlet}}</div>
          <div>Outlet: {{.Outlet}}</div>
          <div>Diff: {{.Diff}}%</div>
          {{- if .OilPressure}}<div>Oil pressure: {{.OilPressure}}</div>{{end}}
          {{- if .Status}}<div>Status: {{.Status}}</div>{{end}}
          {{- if .Comment}}<div>{{.Comment}}</div>{{end}}
          {{- if .Image}}
          <img src="{{.Image}}" alt="oil level">
          {{- else}}
          <div class="missing">image not found</div>
          {{- end}}
        </td>
        {{- else}}
        <td class="missing">no reading</td>
        {{- end}}
        {{- end}}
      </tr>
      {{- end}}
    </tbody>
  </table>
</body>
</html>
`))

type printableView struct {
	Label   string
	Day     string
	Columns []string
	Rows    []printableRow
}

type printableRow struct {
	ID    string
	Name  string
	Cells []printableCell
}

type printableCell struct {
	Present     bool
	Inlet       string
	Outlet      string
	Diff        string
	OilPressure string
	Status      string
	Comment     string
	Image       template.URL
}

// RenderPrintable renders sheet as a standalone HTML document with the oil
// level images embedded. Images that cannot be resolved are shown as
// "image not found" instead of failing the report. An unreadable media root
// fails the whole report with models.ErrResourceUnavailable.
func (g *Generator) RenderPrintable(ctx context.Context, sheet query.Sheet, label string) ([]byte, error) {
	loc := sheet.Location
	if loc == nil {
		loc = time.Local
	}

	var images map[string]template.URL
	if g.Resolver != nil {
		var refs []string
		for _, r := range sheet.Readings() {
			if r.OilLevel != "" {
				refs = append(refs, r.OilLevel)
			}
		}
		if rc, ok := g.Resolver.(RootChecker); ok && len(refs) > 0 {
			if err := rc.Check(ctx); err != nil {
				g.logger().Error("media root unavailable", "error", err)
				return nil, err
			}
		}
		images = embedImages(ctx, g.Resolver, refs, g.Workers, g.logger())
	}

	view := printableView{Label: label, Day: sheet.Day}
	for _, c := range sheet.Columns {
		view.Columns = append(view.Columns, c.In(loc).Format("15:04"))
	}
	for _, row := range sheet.Rows {
		pr := printableRow{ID: row.Equipment.ID, Name: row.Equipment.Name}
		for _, r := range row.Cells {
			if r == nil {
				pr.Cells = append(pr.Cells, printableCell{})
				continue
			}
			pr.Cells = append(pr.Cells, printableCell{
				Present:     true,
				Inlet:       formatFloat(r.InletPressure),
				Outlet:      formatFloat(r.OutletPressure),
				Diff:        formatFloat(r.DiffPressureIndication),
				OilPressure: r.OilPressureStatus,
				Status:      r.NewOptionStatus,
				Comment:     r.Comment,
				Image:       images[r.OilLevel],
			})
		}
		view.Rows = append(view.Rows, pr)
	}

	var buf bytes.Buffer
	if err := printableTmpl.Execute(&buf, view); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
