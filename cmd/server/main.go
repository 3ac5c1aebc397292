/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the commission reconciliation server. Handles
  configuration, dependency wiring, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and parse command-line flags
  2. Open the SQLite record store
  3. Load invoice repository and settlement ledger (corrupt records
     are dropped and logged here)
  4. Configure HTTP router
  5. Start server with graceful shutdown

CONFIGURATION:
  -port    HTTP server port        (env PORT, default 8080)
  -db      SQLite database path    (env DATABASE_PATH, default commissions.db)
           Use ":memory:" for an in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Record store implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/provizie/commission-engine/api"
	"github.com/provizie/commission-engine/engine"
	"github.com/provizie/commission-engine/store/sqlite"
)

func main() {
	// .env is optional; real env vars win over it.
	_ = godotenv.Load()

	port := flag.Int("port", envInt("PORT", 8080), "HTTP server port")
	dbPath := flag.String("db", envStr("DATABASE_PATH", "commissions.db"), "SQLite database path")
	flag.Parse()

	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatal("failed to open record store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	invoices, err := engine.NewInvoiceRepository(ctx, store, log)
	if err != nil {
		log.Fatal("failed to load invoice repository", zap.Error(err))
	}
	settlements, err := engine.NewSettlementLedger(ctx, store, log)
	if err != nil {
		log.Fatal("failed to load settlement ledger", zap.Error(err))
	}
	prefs := engine.NewPreferences(store, log)

	handler := api.NewHandler(invoices, settlements, prefs, log)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting",
			zap.Int("port", *port),
			zap.String("db", *dbPath))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal("forced shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
