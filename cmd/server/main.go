package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/rpattn/rosterflow/internal/config"
	"github.com/rpattn/rosterflow/internal/db"
	"github.com/rpattn/rosterflow/internal/exporter"
	"github.com/rpattn/rosterflow/internal/importer"
	"github.com/rpattn/rosterflow/internal/middleware"
	"github.com/rpattn/rosterflow/internal/repository"
	"github.com/rpattn/rosterflow/internal/spreadsheet"
)

func main() {
	// Create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Load configuration
	cfg, err := config.Load(os.Getenv("RF_CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup database connection
	conn, err := db.NewConnection(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close()

	// Run migrations
	if err := db.RunMigrations(cfg.Database, "./migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Create repositories
	writers := repository.NewPgBulkWriters(conn.Pool)
	logs := repository.NewImportLogRepository(conn.Pool)
	invalidator := repository.NewViewInvalidator(log)
	invalidator.Subscribe(func(view string) {
		log.Infof("[invalidate] clients should refetch view %s", view)
	})

	// Create import service
	service := importer.NewService(writers, logs, invalidator,
		importer.WithBatchSize(cfg.Import.BatchSize),
		importer.WithSpreadsheetReader(spreadsheet.Fallback{Secondary: spreadsheet.ExcelizeReader{}}),
		importer.WithLogger(log),
	)

	// Setup CORS
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})

	importHandler := middleware.LoggingMiddleware(log, importer.NewHTTPHandler(service, logs, cfg.Import.MaxUploadSize))
	exportHandler := middleware.LoggingMiddleware(log, exporter.NewHTTPHandler(log))

	mux := http.NewServeMux()
	mux.Handle("/imports", corsHandler.Handler(importHandler))
	mux.Handle("/imports/", corsHandler.Handler(importHandler))
	mux.Handle("/exports", corsHandler.Handler(exportHandler))

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Infof("Starting import server on %s", cfg.Server.Addr)
		log.Infof("Import endpoint available at http://localhost%s/imports", cfg.Server.Addr)
		log.Infof("Export endpoint available at http://localhost%s/exports", cfg.Server.Addr)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited")
}
