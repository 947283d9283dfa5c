/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the DTR engine server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load TOML config (flags win over file, file wins over defaults)
  3. Initialize SQLite store and CDO ledger
  4. Wire the reconciler to the store's sources
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  TOML config file (optional; missing file uses defaults)
  -port    HTTP server port (overrides config)
  -db      SQLite database path (overrides config)
           Use ":memory:" for an in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/dtr.db"

  # Run with config file
  ./server -config=dtr.toml

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: TOML configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hrsuite/dtr-engine/api"
	"github.com/hrsuite/dtr-engine/cdo"
	"github.com/hrsuite/dtr-engine/config"
	"github.com/hrsuite/dtr-engine/dtr"
	"github.com/hrsuite/dtr-engine/store/sqlite"
)

func main() {
	configPath := flag.String("config", "", "TOML config file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	ledger := cdo.NewLedger(store)

	reconciler := dtr.NewReconciler(store.Sources(ledger))
	reconciler.Credit.GraceMinutes = cfg.Engine.GraceMinutes

	handler := api.NewHandler(reconciler, ledger, store)
	handler.DefaultWeekendRemark = cfg.Engine.IncludeWeekendRemark

	router := api.NewRouter(handler, cfg.Server.AllowedOrigins)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on http://%s", cfg.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownGraceSeconds)*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
