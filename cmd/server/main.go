package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/bcnelson/dyndns/internal/api"
	"github.com/bcnelson/dyndns/internal/config"
	"github.com/bcnelson/dyndns/internal/notify"
	"github.com/bcnelson/dyndns/internal/provider"
	"github.com/bcnelson/dyndns/internal/service"
	"github.com/bcnelson/dyndns/internal/storage/sql"
	log "github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	setupLogging(cfg.Log)

	// Create data directory if needed (for SQLite)
	if cfg.Database.Driver == "sqlite3" {
		dir := filepath.Dir(strings.TrimPrefix(cfg.Database.DSN, "file:"))
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create data directory: %v", err)
		}
	}

	// Initialize storage
	store, err := sql.New(cfg.Database.Driver, cfg.Database.DSN, cfg.Database.QueryTimeout)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	// Initialize the DNS provider gateway
	ctx := context.Background()
	gateway, err := provider.New(ctx, cfg.Provider, log.WithField("component", "provider"))
	if err != nil {
		log.Fatalf("Failed to initialize %s provider: %v", cfg.Provider.Type, err)
	}
	log.Infof("Using %s provider for zone %q", cfg.Provider.Type, cfg.Provider.Zone)

	notifier := notify.New(cfg.Notify, log.WithField("component", "notify"))
	reconciler := service.NewReconciler(store, gateway, notifier, log.WithField("component", "reconciler"))

	// Stale host sweep
	if cfg.Sweep.Schedule != "" {
		sweeper := service.NewSweeper(store, cfg.Sweep.StaleAfter, log.WithField("component", "sweeper"))
		if err := sweeper.Start(cfg.Sweep.Schedule); err != nil {
			log.Fatalf("Failed to start sweeper: %v", err)
		}
		defer sweeper.Stop()
	}

	// Create router
	router := api.NewRouter(store, reconciler, cfg.Server.TrustProxyHeaders, log.WithField("component", "http"))

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Infof("Starting dyndns on http://%s", cfg.Server.Addr())

	// Start server in goroutine
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
		return
	}

	// Let pending operator alerts go out
	reconciler.Wait()

	log.Info("Server stopped")
}

func setupLogging(cfg config.LogConfig) {
	if cfg.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		log.Warnf("Unknown log level %q, using info", cfg.Level)
		level = log.InfoLevel
	}
	log.SetLevel(level)
}
