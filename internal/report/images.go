package report

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/tphummel/logsheet/internal/models"
	"golang.org/x/sync/errgroup"
)

// ImageResolver loads the bytes behind a reading's image reference.
type ImageResolver interface {
	Resolve(ctx context.Context, ref string) ([]byte, error)
}

// RootChecker is implemented by resolvers backed by a media store that can
// be unavailable as a whole. A failed Check fails the report instead of
// degrading every image to "image not found".
type RootChecker interface {
	Check(ctx context.Context) error
}

// FileResolver resolves file:// URIs and plain paths confined to Root.
// Relative paths are taken relative to Root. References that land outside
// Root, directly or through a symlink, are refused.
type FileResolver struct {
	Root string
}

// Resolve reads the referenced file.
func (f FileResolver) Resolve(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := strings.TrimPrefix(ref, "file://")
	if path == "" {
		return nil, fmt.Errorf("%w: empty image reference", models.ErrResourceUnavailable)
	}
	root, err := filepath.Abs(f.Root)
	if err != nil {
		return nil, fmt.Errorf("%w: media root: %v", models.ErrResourceUnavailable, err)
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	path = filepath.Clean(path)
	if !within(root, path) {
		return nil, fmt.Errorf("%w: %q is outside the media root", models.ErrResourceUnavailable, ref)
	}

	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, fmt.Errorf("%w: media root: %v", models.ErrResourceUnavailable, err)
	}
	realPath, err := filepath.EvalSymlinks(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrResourceUnavailable, err)
	}
	if !within(realRoot, realPath) {
		return nil, fmt.Errorf("%w: %q is outside the media root", models.ErrResourceUnavailable, ref)
	}

	data, err := os.ReadFile(realPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrResourceUnavailable, err)
	}
	return data, nil
}

// Check reports whether Root is a readable directory.
func (f FileResolver) Check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir, err := os.Open(f.Root)
	if err != nil {
		return fmt.Errorf("%w: media root: %v", models.ErrResourceUnavailable, err)
	}
	defer dir.Close()
	if _, err := dir.Readdirnames(1); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: media root: %v", models.ErrResourceUnavailable, err)
	}
	return nil
}

// within reports whether path is root or lies beneath it. Both must be
// absolute and clean.
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || filepath.IsAbs(rel) {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// embedImages converts every distinct reference into a data URI. At most
// workers conversions run at once. A reference that fails to resolve is left
// out of the result; the others are unaffected.
func embedImages(ctx context.Context, resolver ImageResolver, refs []string, workers int, logger *slog.Logger) map[string]template.URL {
	var distinct []string
	seen := map[string]bool{}
	for _, ref := range refs {
		if ref == "" || seen[ref] {
			continue
		}
		seen[ref] = true
		distinct = append(distinct, ref)
	}

	if workers < 1 {
		workers = 1
	}
	uris := make([]template.URL, len(distinct))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, ref := range distinct {
		g.Go(func() error {
			data, err := resolver.Resolve(ctx, ref)
			if err != nil {
				logger.Warn("image not found", "ref", ref, "error", err)
				return nil
			}
			uris[i] = dataURI(data)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]template.URL, len(distinct))
	for i, ref := range distinct {
		if uris[i] != "" {
			out[ref] = uris[i]
		}
	}
	return out
}

func dataURI(data []byte) template.URL {
	mime := http.DetectContentType(data)
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return template.URL("data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data))
}
