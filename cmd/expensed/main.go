package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/apisak-w/pwa-expense-manager/internal/auth"
	"github.com/apisak-w/pwa-expense-manager/internal/config"
	"github.com/apisak-w/pwa-expense-manager/internal/data/restapi"
	"github.com/apisak-w/pwa-expense-manager/internal/data/sheets"
	"github.com/apisak-w/pwa-expense-manager/internal/data/sqlite"
	"github.com/apisak-w/pwa-expense-manager/internal/domain/ledger"
	"github.com/apisak-w/pwa-expense-manager/internal/httpapi"
	"github.com/apisak-w/pwa-expense-manager/internal/logger"
	"github.com/apisak-w/pwa-expense-manager/internal/platform/persistence"
	"github.com/apisak-w/pwa-expense-manager/internal/syncer"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("expensed")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize the local database
	db, err := persistence.NewSQLiteDB(appCtx, log, &cfg.SQLite)
	if err != nil {
		log.Error("Failed to initialize sqlite", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	store := sqlite.NewTransactionRepository(log, db)
	queue := sqlite.NewOutboxRepository(log, db)
	metadata := sqlite.NewMetadataRepository(log, db)

	// Wire the remote backend selected by configuration
	var (
		strategy   syncer.Strategy
		ledgerRepo ledger.Repository
		online     <-chan struct{}
		source     auth.Source
	)
	switch cfg.Sync.Backend {
	case config.BackendSheets:
		googleSource := auth.NewGoogleSource(log, &cfg.Google)
		sheetsRepo := sheets.NewLedgerRepository(log, &cfg.Google, googleSource)
		source = googleSource
		online = googleSource.Online()
		ledgerRepo = sheetsRepo
		strategy = syncer.NewLedgerStrategy(sheetsRepo)
	case config.BackendAPI:
		source = &auth.StaticSource{Token: cfg.RemoteAPI.Token}
		strategy = syncer.NewAPIStrategy(restapi.NewClient(log, &cfg.RemoteAPI, source))
	default:
		log.Error("Unknown sync backend", "backend", cfg.Sync.Backend)
		os.Exit(1)
	}

	// Initialize the sync engine
	coordinator := syncer.NewCoordinator(
		log, store, queue, metadata,
		ledgerRepo, strategy, source, cfg.Sync.TombstoneRetention,
	)

	scheduler, err := syncer.NewScheduler(log, coordinator, metadata, online, cfg.Sync.DrainPoolSize)
	if err != nil {
		log.Error("Failed to initialize sync scheduler", "error", err)
		os.Exit(1)
	}
	scheduler.Start(appCtx)

	service := syncer.NewService(log, db, store, queue, metadata, coordinator, scheduler)

	// Drain anything left over from the previous run
	scheduler.Kick()

	// Initialize REST server
	server := httpapi.NewServer(log, cfg, service)
	log.Info("REST server initialized", "backend", cfg.Sync.Backend)

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context, stopping the scheduler loop
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	db.Close()

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
