package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tphummel/logsheet/internal/config"
	"github.com/tphummel/logsheet/internal/db"
	"github.com/tphummel/logsheet/internal/directory"
	"github.com/tphummel/logsheet/internal/handlers"
	"github.com/tphummel/logsheet/internal/metrics"
	"github.com/tphummel/logsheet/internal/middleware"
	"github.com/tphummel/logsheet/internal/readings"
	"github.com/tphummel/logsheet/internal/registry"
	"github.com/tphummel/logsheet/internal/report"
)

// version and commit are injected at build time via -ldflags.
var (
	version = "dev"
	commit  = "none"
)

// newMux registers every route. Routes other than health, metrics and docs
// require the bearer token.
func newMux(h *handlers.Handler, token string, gatherer prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()

	route := func(pattern string, f http.HandlerFunc) {
		mux.Handle(pattern, metrics.Middleware(pattern, middleware.Auth(token, f)))
	}

	// Health check, metrics and API docs: no auth
	mux.Handle("GET /healthz", metrics.Middleware("GET /healthz", http.HandlerFunc(h.Health)))
	mux.Handle("GET /metrics", metrics.Handler(gatherer))
	mux.HandleFunc("GET /openapi.yaml", handlers.OpenAPISpec)
	mux.HandleFunc("GET /docs", handlers.Docs)

	// Equipment
	route("GET /api/v1/groups", h.ListGroups)
	route("GET /api/v1/groups/{group}", h.GetGroup)
	route("GET /api/v1/equipment/{id}", h.GetEquipment)
	route("GET /api/v1/registry", h.ListRegistry)
	route("PUT /api/v1/registry/{id}", h.PutRegistry)
	route("DELETE /api/v1/registry/{id}", h.DeleteRegistry)

	// Readings
	route("POST /api/v1/readings", h.CreateReading)
	route("GET /api/v1/readings", h.ListReadings)
	route("DELETE /api/v1/readings", h.DeleteReadingByKey)
	route("DELETE /api/v1/readings/{id}", h.DeleteReading)

	// Sheets and reports
	route("GET /api/v1/sheets/{group}/{date}", h.GetSheet)
	route("GET /api/v1/reports/{group}/{date}/{format}", h.GetReport)
	route("POST /api/v1/exports/{group}/{date}/{format}", h.CreateExport)

	return mux
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	database, err := db.New(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	dir := directory.Default()
	reg := registry.Open(ctx, database, logger)
	store := readings.Open(ctx, database, logger)

	media := report.FileResolver{Root: cfg.MediaRoot}
	if err := media.Check(ctx); err != nil {
		logger.Warn("media root not readable, reports with images will fail", "root", cfg.MediaRoot, "error", err)
	}
	gen := &report.Generator{
		Resolver: media,
		Workers:  cfg.ImageWorkers,
		Logger:   logger,
	}
	exporter := &report.Exporter{
		Dir:       cfg.ExportDir,
		Generator: gen,
		Logger:    logger,
		Observe: func(format report.Format, err error) {
			metrics.ObserveExport(string(format), err)
		},
	}

	promReg := prometheus.NewRegistry()
	metrics.Register(promReg, store, dir, reg)

	h := &handlers.Handler{
		DB:        database,
		Directory: dir,
		Registry:  reg,
		Readings:  store,
		Reports:   gen,
		Exporter:  exporter,
		Location:  cfg.Location,
		Version:   version,
		Commit:    commit,
	}
	mux := newMux(h, cfg.Token, promReg)
	handler := middleware.RequestLogger(logger, middleware.SkipPaths("/healthz", "/metrics"), mux)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("listening",
			"addr", cfg.Addr(),
			"version", version,
			"readings", len(store.All()),
			"registry", reg.Len(),
			"timezone", cfg.Location.String(),
		)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	if err := database.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}
	logger.Info("server stopped")
}
