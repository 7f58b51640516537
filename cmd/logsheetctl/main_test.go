package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tphummel/logsheet/internal/client"
	"github.com/tphummel/logsheet/internal/db"
	"github.com/tphummel/logsheet/internal/directory"
	"github.com/tphummel/logsheet/internal/handlers"
	"github.com/tphummel/logsheet/internal/middleware"
	"github.com/tphummel/logsheet/internal/models"
	"github.com/tphummel/logsheet/internal/query"
	"github.com/tphummel/logsheet/internal/readings"
	"github.com/tphummel/logsheet/internal/registry"
	"github.com/tphummel/logsheet/internal/report"
)

const token = "ctl-token"

type testServer struct {
	client    *client.Client
	readings  *readings.Store
	exportDir string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	d, err := db.New(":memory:")
	if err != nil {
		t.Fatalf("db.New: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gen := &report.Generator{Logger: logger}
	exportDir := t.TempDir()
	store := readings.Open(ctx, d, logger)

	h := &handlers.Handler{
		DB:        d,
		Directory: directory.Default(),
		Registry:  registry.Open(ctx, d, logger),
		Readings:  store,
		Reports:   gen,
		Exporter:  &report.Exporter{Dir: exportDir, Generator: gen, Logger: logger},
		Location:  time.UTC,
	}
	auth := func(f http.HandlerFunc) http.Handler { return middleware.Auth(token, f) }

	mux := http.NewServeMux()
	mux.Handle("GET /api/v1/groups", auth(h.ListGroups))
	mux.Handle("GET /api/v1/groups/{group}", auth(h.GetGroup))
	mux.Handle("GET /api/v1/equipment/{id}", auth(h.GetEquipment))
	mux.Handle("GET /api/v1/registry", auth(h.ListRegistry))
	mux.Handle("PUT /api/v1/registry/{id}", auth(h.PutRegistry))
	mux.Handle("DELETE /api/v1/registry/{id}", auth(h.DeleteRegistry))
	mux.Handle("GET /api/v1/readings", auth(h.ListReadings))
	mux.Handle("DELETE /api/v1/readings/{id}", auth(h.DeleteReading))
	mux.Handle("GET /api/v1/reports/{group}/{date}/{format}", auth(h.GetReport))
	mux.Handle("POST /api/v1/exports/{group}/{date}/{format}", auth(h.CreateExport))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &testServer{client: client.New(srv.URL, token), readings: store, exportDir: exportDir}
}

func (s *testServer) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), s.client, args, &out)
	return out.String(), err
}

func mustDay(t *testing.T, s string) query.Day {
	t.Helper()
	day, err := query.ParseDay(s)
	if err != nil {
		t.Fatalf("ParseDay(%q): %v", s, err)
	}
	return day
}

func TestRun_Usage(t *testing.T) {
	s := newTestServer(t)

	for _, args := range [][]string{nil, {"bogus"}, {"register", "A1"}, {"export", "-date", "2024-01-05"}} {
		if _, err := s.run(t, args...); !errors.Is(err, errUsage) {
			t.Errorf("%v: got %v, want usage error", args, err)
		}
	}
}

func TestRun_Groups(t *testing.T) {
	s := newTestServer(t)

	out, err := s.run(t, "groups")
	if err != nil {
		t.Fatalf("groups: %v", err)
	}
	if lines := strings.Split(strings.TrimSpace(out), "\n"); len(lines) != 4 {
		t.Errorf("groups: got %d lines, want 4\n%s", len(lines), out)
	}

	out, err = s.run(t, "group", "C.O. FORWARDING PUMP M")
	if err != nil {
		t.Fatalf("group: %v", err)
	}
	if !strings.HasPrefix(out, "0000 0046 0042\t5600A\n") {
		t.Errorf("group output: got %q", out)
	}
}

func TestRun_RegistryRoundTrip(t *testing.T) {
	s := newTestServer(t)

	if _, err := s.run(t, "register", "A1", "Pump-1"); err != nil {
		t.Fatalf("register: %v", err)
	}
	out, err := s.run(t, "equipment", "A1")
	if err != nil {
		t.Fatalf("equipment: %v", err)
	}
	if !strings.Contains(out, `"name": "Pump-1"`) {
		t.Errorf("equipment output: got %s", out)
	}

	_, err = s.run(t, "register", "B2", "Pump-1")
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest {
		t.Errorf("duplicate name: got %v, want 400", err)
	}

	if _, err := s.run(t, "unregister", "A1"); err != nil {
		t.Fatalf("unregister: %v", err)
	}
	if _, err := s.run(t, "equipment", "A1"); err == nil {
		t.Error("equipment after unregister should fail")
	}
}

func TestRun_ReadingsAndExport(t *testing.T) {
	s := newTestServer(t)
	r, err := s.readings.Add(context.Background(), models.Reading{
		UID:       "0000 0046 0042",
		OilLevel:  "oil.jpg",
		CreatedAt: time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	out, err := s.run(t, "readings", "-group", "C.O. FORWARDING PUMP M", "-date", "2024-01-05")
	if err != nil {
		t.Fatalf("readings: %v", err)
	}
	if !strings.Contains(out, r.ID) {
		t.Errorf("readings output should include %s\n%s", r.ID, out)
	}

	out, err = s.run(t, "export", "-group", "C.O. FORWARDING PUMP M", "-date", "2024-01-05")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.HasPrefix(out, s.exportDir) || !strings.Contains(out, "(1 readings)") {
		t.Errorf("export output: got %q", out)
	}

	dest := t.TempDir()
	out, err = s.run(t, "export", "-group", "C.O. FORWARDING PUMP M", "-date", "2024-01-05", "-format", "html", "-o", dest)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	want := filepath.Join(dest, report.FileName("C.O. FORWARDING PUMP M", mustDay(t, "2024-01-05"), "html"))
	if strings.TrimSpace(out) != want {
		t.Errorf("download path: got %q, want %q", out, want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("downloaded file: %v", err)
	}

	if _, err := s.run(t, "delete-reading", r.ID); err != nil {
		t.Fatalf("delete-reading: %v", err)
	}
	if n := len(s.readings.All()); n != 0 {
		t.Errorf("readings after delete: got %d, want 0", n)
	}
}

// reportServer answers every report download with the given
// Content-Disposition.
func reportServer(t *testing.T, disposition string) *client.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", disposition)
		w.Write([]byte("id,uid\n"))
	}))
	t.Cleanup(srv.Close)
	return client.New(srv.URL, token)
}

func TestRun_ExportDownloadStaysInDirectory(t *testing.T) {
	base := t.TempDir()
	dest := filepath.Join(base, "out")
	if err := os.Mkdir(dest, 0o755); err != nil {
		t.Fatal(err)
	}
	c := reportServer(t, `attachment; filename="../../escaped.csv"`)

	var out bytes.Buffer
	err := run(context.Background(), c, []string{"export", "-group", "G", "-date", "2024-01-05", "-o", dest}, &out)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	want := filepath.Join(dest, "escaped.csv")
	if strings.TrimSpace(out.String()) != want {
		t.Errorf("download path: got %q, want %q", out.String(), want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("downloaded file: %v", err)
	}
	if _, err := os.Stat(filepath.Join(base, "escaped.csv")); !os.IsNotExist(err) {
		t.Errorf("file written outside -o directory: %v", err)
	}
}

func TestRun_ExportDownloadWithoutName(t *testing.T) {
	dest := t.TempDir()
	c := reportServer(t, `attachment; filename=".."`)

	err := run(context.Background(), c, []string{"export", "-group", "G", "-date", "2024-01-05", "-o", dest}, io.Discard)
	if err == nil {
		t.Fatal("expected an error when the server gives no usable name")
	}

	// an explicit file path does not need the server's name
	file := filepath.Join(dest, "report.csv")
	if err := run(context.Background(), c, []string{"export", "-group", "G", "-date", "2024-01-05", "-o", file}, io.Discard); err != nil {
		t.Fatalf("download to file: %v", err)
	}
	if _, err := os.Stat(file); err != nil {
		t.Errorf("downloaded file: %v", err)
	}
}
