// Package main is the entry point for the Travel Journal server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/handlers"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/pkordes/travel-journal/internal/config"
	"github.com/pkordes/travel-journal/internal/handler"
	"github.com/pkordes/travel-journal/internal/mapview"
	"github.com/pkordes/travel-journal/internal/mapview/scene"
	"github.com/pkordes/travel-journal/internal/metrics"
	"github.com/pkordes/travel-journal/internal/middleware"
	"github.com/pkordes/travel-journal/internal/repo"
	"github.com/pkordes/travel-journal/internal/service"
	"github.com/pkordes/travel-journal/internal/shell"
	"github.com/pkordes/travel-journal/internal/storage"
)

func main() {
	// --- Config -----------------------------------------------------------
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		// Use plain stderr before the logger is configured.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// --- Metrics ----------------------------------------------------------
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// --- Storage ----------------------------------------------------------
	// A backend that cannot be opened is not fatal: the adapter stays
	// unmounted and the journal runs on its in-memory collection.
	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	backend, err := openBackend(startCtx, cfg.Store)
	cancelStart()
	if err != nil {
		slog.Error("storage unavailable, records will not persist", "driver", cfg.Store.Driver, "error", err)
		backend = nil
	}
	adapter := storage.NewAdapter(backend, logger, m)
	if backend != nil {
		if err := adapter.Mount(context.Background()); err != nil {
			slog.Error("storage mount failed, records will not persist", "error", err)
		} else {
			slog.Info("storage mounted", "driver", cfg.Store.Driver)
		}
	}

	// --- Shell ------------------------------------------------------------
	records := service.NewRecordService(repo.NewRecordRepo(adapter, cfg.Store.Key), logger, m)
	sh := shell.New(records, shell.Options{
		Map: mapview.Options{
			Center:      &mapview.LatLng{Lat: cfg.Map.CenterLat, Lng: cfg.Map.CenterLng},
			Zoom:        cfg.Map.Zoom,
			MaxAttempts: cfg.Map.MaxAttempts,
			Interval:    cfg.Map.Interval,
		},
	}, logger, m)
	sh.Mount(context.Background())

	mapCtx, cancelMap := context.WithCancel(context.Background())
	go func() {
		loader := scene.NewLoader(scene.Config{
			TileURL:     cfg.Map.TileURL,
			Attribution: cfg.Map.Attribution,
			CheckTiles:  cfg.Map.CheckTiles,
			Client:      &http.Client{Timeout: 5 * time.Second},
		})
		if err := sh.StartMap(mapCtx, loader); err != nil {
			slog.Error("map unavailable", "error", err)
			return
		}
		slog.Info("map ready")
	}()

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Logger → Recoverer.
	// RequestID generates a unique trace ID per request.
	// RealIP sets r.RemoteAddr from X-Forwarded-For / X-Real-IP (safe behind a proxy).
	// SlogLogger writes one structured JSON log line per request.
	// Recoverer catches panics and returns HTTP 500 instead of crashing.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewMetrics(m))
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))

	srvHandlers := handler.NewServer(sh, sh, service.NewExportService(sh), logger)
	srvHandlers.Routes(r)
	r.Handle("/metrics", m.Handler())

	// --- HTTP Server ------------------------------------------------------
	// Explicit timeouts prevent slowloris and resource exhaustion attacks.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handlers.CompressHandler(r),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown: wait for OS signal, then give in-flight requests
	// up to 15 seconds to complete before forcefully closing.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	cancelMap()
	sh.Close()
	if err := adapter.Close(); err != nil {
		slog.Error("storage close error", "error", err)
	}
	slog.Info("server stopped")
}

// openBackend opens the storage backend selected by cfg.Driver.
func openBackend(ctx context.Context, cfg config.StoreConfig) (storage.Backend, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return storage.OpenSQLite(ctx, cfg.SQLitePath)
	case config.DriverPostgres:
		return storage.OpenPostgres(ctx, cfg.DatabaseURL)
	case config.DriverS3:
		return storage.OpenS3(ctx, storage.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			Prefix:    cfg.S3Prefix,
			PathStyle: cfg.S3PathStyle,
		})
	case config.DriverMemory:
		return storage.NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
