package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rpattn/paneltrack/internal/config"
	"github.com/rpattn/paneltrack/internal/db"
	"github.com/rpattn/paneltrack/internal/panelimport"
	"github.com/rpattn/paneltrack/internal/repository"
	"github.com/rpattn/paneltrack/internal/server"

	"github.com/spf13/pflag"
)

func main() {
	configDir := pflag.String("config", ".", "directory containing config.yaml")
	pflag.Parse()

	cfg, err := config.Load(*configDir)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Setup database connection
	conn, err := db.NewConnection(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	if err := db.RunMigrations(cfg.Database, logger); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Create repositories
	panelRepo := repository.NewPanelRepository(conn.Pool)
	userRepo := repository.NewUserRepository(conn.Pool)
	historyRepo := repository.NewPanelHistoryRepository(conn.Pool)
	importLogRepo := repository.NewImportLogRepository(conn.Pool)

	importer := panelimport.NewService(panelRepo, userRepo, historyRepo, importLogRepo, panelimport.Options{
		DefaultActor:      cfg.Import.DefaultActor,
		ProgressEvery:     cfg.Import.ProgressEvery,
		UpdateConcurrency: cfg.Import.UpdateConcurrency,
		MaxRows:           cfg.Import.MaxRows,
		MaxFileBytes:      cfg.Import.MaxFileBytes,
	}, logger)

	router := server.NewRouter(server.Deps{
		Panels:       panelRepo,
		History:      historyRepo,
		ImportLogs:   importLogRepo,
		Importer:     importer,
		DB:           conn.Pool,
		CORSOrigins:  cfg.Server.CORSOrigins,
		MaxFileBytes: cfg.Import.MaxFileBytes,
		Logger:       logger,
	})

	// Imports stream for as long as the file takes, so no write timeout.
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server started", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	logger.Info("server exited")
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
