/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the fuel ledger server. Handles configuration,
  dependency injection, background loading, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load config (defaults → .env → FUEL_* env), then apply flags
  2. Initialize logger and metrics
  3. Open the record store (SQLite, or in-memory with -db=memory)
  4. Optionally seed an empty store with a demo scenario
  5. Start the feed refresher (barrier opens once every collection loads)
  6. Start HTTP server

COMMAND-LINE FLAGS:
  -port      HTTP server port (FUEL_PORT, default 8080)
  -db        SQLite database path (FUEL_DB_PATH, default fuel.db)
             ":memory:" for in-memory SQLite, "memory" for the plain
             in-memory store
  -log       Log level (FUEL_LOG_LEVEL, default info)
  -dev       Console logging (FUEL_LOG_DEVELOPMENT)
  -scenario  Demo scenario for an empty store (FUEL_SCENARIO)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests (FUEL_SHUTDOWN_GRACE, default 30s)
  3. Stop the refresher
  4. Close database connection

EXAMPLES:
  ./server -db="./data/fuel.db"
  ./server -db=memory -scenario=credit-book -dev

SEE ALSO:
  - config/config.go: Environment configuration
  - api/server.go: Router configuration
  - feed/refresher.go: Background loading
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pumpline/fuel-ledger/api"
	"github.com/pumpline/fuel-ledger/config"
	"github.com/pumpline/fuel-ledger/feed"
	"github.com/pumpline/fuel-ledger/ledger"
	"github.com/pumpline/fuel-ledger/ledger/store"
	"github.com/pumpline/fuel-ledger/metrics"
	"github.com/pumpline/fuel-ledger/pkg/logger"
	"github.com/pumpline/fuel-ledger/scenarios"
	"github.com/pumpline/fuel-ledger/store/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Flags
	flag.IntVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, `SQLite database path, or "memory"`)
	flag.StringVar(&cfg.LogLevel, "log", cfg.LogLevel, "log level")
	flag.BoolVar(&cfg.LogDevelopment, "dev", cfg.LogDevelopment, "console logging")
	flag.StringVar(&cfg.Scenario, "scenario", cfg.Scenario, "demo scenario for an empty store")
	flag.Parse()
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Development: cfg.LogDevelopment})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	metrics.Init()

	// Initialize store
	var recordStore ledger.Store
	if cfg.UseMemoryStore() {
		recordStore = store.NewMemory()
		log.Infow("using in-memory record store")
	} else {
		db, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("initialize database: %w", err)
		}
		defer db.Close()
		recordStore = db
		log.Infow("using sqlite record store", "path", cfg.DBPath)
	}

	if cfg.Scenario != "" {
		if err := seed(context.Background(), recordStore, cfg.Scenario, log); err != nil {
			return err
		}
	}

	// Feed + background load
	f := feed.New(log)
	refresher := feed.NewRefresher(f, recordStore, cfg.RetryInterval, log)
	refresher.Start()
	defer refresher.Stop()

	handler := api.NewHandler(recordStore, f, log)
	handler.RetryInterval = cfg.RetryInterval
	defer handler.Close()
	router := api.NewRouter(handler, api.RouterOptions{CORSOrigins: cfg.CORSOrigins, Logger: log})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Infow("shutting down", "signal", sig.String())
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Infow("server stopped")
	return nil
}

// seed applies a scenario only when the store holds no parties or sales.
func seed(ctx context.Context, s ledger.Store, id string, log *logger.Logger) error {
	customers, err := s.ListCustomers(ctx)
	if err != nil {
		return fmt.Errorf("inspect store: %w", err)
	}
	sales, err := s.ListSales(ctx)
	if err != nil {
		return fmt.Errorf("inspect store: %w", err)
	}
	if len(customers) > 0 || len(sales) > 0 {
		log.Infow("store not empty, skipping scenario", "scenario", id)
		return nil
	}

	sc, err := scenarios.Get(id)
	if err != nil {
		return err
	}
	if err := sc.Apply(ctx, s); err != nil {
		return fmt.Errorf("apply scenario %s: %w", id, err)
	}
	log.Infow("scenario seeded", "scenario", id, "records", sc.RecordCount())
	return nil
}
