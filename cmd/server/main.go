/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the task economy server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (defaults, YAML file, environment, flags)
  2. Open the store (sqlite, postgres or memory)
  3. Load the economy policy
  4. Wire the narrative client, feedback dispatcher and odds quoter
  5. Start the settlement scheduler
  6. Start the HTTP server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  YAML config file (optional)
  -port    HTTP server port (overrides config)
  -driver  sqlite | postgres | memory (overrides config)
  -db      SQLite database path (overrides config)
           Use ":memory:" for an in-memory SQLite database
  -policy  Policy file, .json or .yaml (overrides config)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the scheduler and the feedback worker
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/economy.db"

  # Run against PostgreSQL
  DB_HOST=localhost DB_USER=economy DB_NAME=economy ./server -driver=postgres

  # Run with narrative feedback enabled
  NARRATIVE_URL=http://localhost:9000 NARRATIVE_API_KEY=... ./server

SEE ALSO:
  - config/config.go: Configuration keys and environment variables
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go, store/postgres/postgres.go: Database backends
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/task-economy/api"
	"github.com/warp/task-economy/config"
	"github.com/warp/task-economy/factory"
	"github.com/warp/task-economy/generic"
	"github.com/warp/task-economy/generic/store"
	"github.com/warp/task-economy/mission"
	"github.com/warp/task-economy/narrative"
	"github.com/warp/task-economy/store/postgres"
	"github.com/warp/task-economy/store/sqlite"
)

// backend is what the server needs from a store.
type backend interface {
	generic.TxRepository
	api.Resetter
}

func main() {
	// Flags
	configPath := flag.String("config", "", "YAML config file")
	port := flag.String("port", "", "HTTP server port")
	driver := flag.String("driver", "", "Store driver: sqlite, postgres or memory")
	dbPath := flag.String("db", "", "SQLite database path")
	policyPath := flag.String("policy", "", "Economy policy file (.json or .yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	override(&cfg.Port, *port)
	override(&cfg.Driver, *driver)
	override(&cfg.DBPath, *dbPath)
	override(&cfg.PolicyFile, *policyPath)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// Initialize store
	repo, closeStore, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer closeStore()

	// Policy
	policy := mission.DefaultPolicy()
	if cfg.PolicyFile != "" {
		policy, err = factory.NewPolicyFactory().LoadPolicyFile(cfg.PolicyFile)
		if err != nil {
			log.Fatalf("Failed to load policy: %v", err)
		}
		log.Printf("Loaded policy from %s", cfg.PolicyFile)
	}

	svc := mission.NewService(repo, policy, generic.SystemClock{}, logger)

	// Narrative service: feedback is only queued when a service is configured.
	client := narrative.NewClient(cfg.NarrativeURL, cfg.NarrativeAPIKey, cfg.NarrativeTimeout)
	var dispatcher *narrative.Dispatcher
	if client.Enabled() {
		dispatcher = narrative.NewDispatcher(svc, client, logger, 0)
		svc.Publisher = dispatcher
		dispatcher.Start()
		log.Printf("Narrative service enabled at %s", client.BaseURL)
	} else {
		log.Println("Narrative service not configured, odds use the fallback multiplier")
	}
	quoter := narrative.NewOddsQuoter(client, policy.Odds, logger)

	// Settlement sweep
	scheduler := api.NewSettlementScheduler(svc)
	scheduler.CheckInterval = cfg.SettlementInterval
	scheduler.Start()

	handler := api.NewHandler(svc, quoter, repo)
	router := api.NewRouter(handler, cfg.AllowedOrigins)

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%s (driver=%s)", cfg.Port, cfg.Driver)
		log.Printf("API available at http://localhost:%s/api", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	scheduler.Stop()
	if dispatcher != nil {
		dispatcher.Stop()
	}

	log.Println("Server stopped")
}

func override(dst *string, flagValue string) {
	if flagValue != "" {
		*dst = flagValue
	}
}

func openStore(cfg *config.Config) (backend, func(), error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		s, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	case config.DriverPostgres:
		s, err := postgres.Connect(cfg.ConnString())
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	case config.DriverMemory:
		return store.NewTxMemory(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown driver %q", cfg.Driver)
	}
}
