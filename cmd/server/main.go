/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the RIIDE ride and token engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize SQLite store
  3. Load the ledger projection from the store
  4. Load the reward policy (file or launch default)
  5. Wire the lifecycle service, websocket feed, and HTTP router
  6. Start the drift checker and the server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080)
  -db      SQLite database path (default: riide.db)
           Use ":memory:" for an in-memory database
  -policy  Reward policy JSON file (default: built-in flat policy,
           2.5 RIIDE per ride + 1.8 EVEE per EV ride)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the drift checker, close the database
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/riide.db"

  # Run with a custom reward policy
  ./server -policy="./config/per_km.json"

SEE ALSO:
  - api/server.go: Router configuration
  - factory/policy.go: Policy file format
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/riide/ride-engine/api"
	"github.com/riide/ride-engine/factory"
	"github.com/riide/ride-engine/ledger"
	"github.com/riide/ride-engine/ride"
	"github.com/riide/ride-engine/routing"
	"github.com/riide/ride-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "riide.db", "SQLite database path")
	policyPath := flag.String("policy", "", "Reward policy JSON file (empty = launch default)")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Ledger over the same store; replay into the projection
	tokens := ledger.New(store)
	if err := tokens.Load(context.Background()); err != nil {
		log.Fatalf("Failed to load ledger: %v", err)
	}

	// Reward policy
	var policy ride.RewardPolicy
	if *policyPath != "" {
		policy, err = factory.ParsePolicyFile(*policyPath)
		if err != nil {
			log.Fatalf("Failed to load reward policy: %v", err)
		}
		log.Printf("Loaded reward policy from %s", *policyPath)
	}

	// Websocket feed and lifecycle service
	feed := api.NewFeed()
	service := ride.NewService(store, store, store, tokens, policy, feed)

	// HTTP layer
	estimator := routing.NewStandardEstimator()
	handler := api.NewHandler(service, tokens, estimator, store, store, store)
	router := api.NewRouter(handler, feed)

	// Background projection verification
	checker := api.NewDriftChecker(tokens, store)
	checker.Start()
	defer checker.Stop()

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🚗 Server starting on http://localhost:%d", *port)
		log.Printf("📊 API available at http://localhost:%d/api", *port)
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
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
