package report

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tphummel/logsheet/internal/models"
	"github.com/tphummel/logsheet/internal/query"
)

// Exporter writes rendered reports into Dir.
type Exporter struct {
	Dir       string
	Generator *Generator
	Logger    *slog.Logger
	// Observe, when set, is called once per export with its outcome.
	Observe func(format Format, err error)
}

// Export renders the report for sheet and writes it to Dir under FileName.
// It returns the path of the written file. Failures are wrapped with
// models.ErrExport and are not retried.
func (e *Exporter) Export(ctx context.Context, format Format, sheet query.Sheet, filtered []models.Reading) (path string, err error) {
	defer func() {
		if e.Observe != nil {
			e.Observe(format, err)
		}
	}()

	art, err := e.Generator.Render(ctx, format, sheet, filtered)
	if err != nil {
		return "", err
	}
	day, err := query.ParseDay(sheet.Day)
	if err != nil {
		return "", err
	}

	path = filepath.Join(e.Dir, FileName(sheet.Group, day, art.Ext))
	if err := writeFileAtomic(path, art.Body); err != nil {
		e.logger().Error("export report", "path", path, "error", err)
		return "", fmt.Errorf("%w: %v", models.ErrExport, err)
	}
	e.logger().Info("report exported", "path", path, "format", string(art.Format), "bytes", len(art.Body))
	return path, nil
}

// writeFileAtomic writes data to a temp file beside path and renames it into
// place. The temp file is removed if any step fails.
func writeFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".logsheet-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (e *Exporter) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}
