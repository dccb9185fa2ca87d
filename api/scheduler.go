/*
scheduler.go - Automated projection drift checker

PURPOSE:
  Periodically replays every account's ledger and compares the result
  against the cached balance projection. The projection is derived state;
  the append-only ledger is the source of truth, and this loop is the
  alarm that fires if they ever disagree.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Checks one account at a time under the ledger's own locking
  - Drift is logged loudly and counted; it is never "repaired" silently,
    a drifted projection means a bug that needs a human

CONFIGURATION:
  - CheckInterval: How often to check (default: 15 minutes)
  - Enabled: Whether the checker is active (default: true)

USAGE:
  checker := NewDriftChecker(tokens, accounts)
  checker.Start()
  // ... later
  checker.Stop()

SEE ALSO:
  - handlers.go: Reconcile endpoint (manual check)
  - ledger/ledger.go: Reconcile implementation
*/
package api

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/riide/ride-engine/ledger"
	"github.com/riide/ride-engine/ride"
)

// DriftChecker verifies the balance projection against the ledger on a
// schedule.
type DriftChecker struct {
	Tokens        *ledger.Ledger
	Accounts      ride.AccountDirectory
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewDriftChecker creates a new checker.
func NewDriftChecker(tokens *ledger.Ledger, accounts ride.AccountDirectory) *DriftChecker {
	return &DriftChecker{
		Tokens:        tokens,
		Accounts:      accounts,
		CheckInterval: 15 * time.Minute,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the checker.
func (dc *DriftChecker) Start() {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	if !dc.Enabled {
		log.Println("[DriftChecker] Disabled, not starting")
		return
	}

	dc.ticker = time.NewTicker(dc.CheckInterval)
	dc.wg.Add(1)

	go dc.run()

	log.Printf("[DriftChecker] Started with check interval: %v", dc.CheckInterval)
}

// Stop stops the checker.
func (dc *DriftChecker) Stop() {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	if dc.ticker != nil {
		dc.ticker.Stop()
		close(dc.stop)
		dc.wg.Wait()
		log.Println("[DriftChecker] Stopped")
	}
}

func (dc *DriftChecker) run() {
	defer dc.wg.Done()

	// Run immediately on start
	dc.checkAll()

	for {
		select {
		case <-dc.ticker.C:
			dc.checkAll()
		case <-dc.stop:
			return
		}
	}
}

func (dc *DriftChecker) checkAll() {
	ctx := context.Background()

	accounts, err := dc.Accounts.Accounts(ctx)
	if err != nil {
		log.Printf("[DriftChecker] Error listing accounts: %v", err)
		return
	}

	checked := 0
	drifted := 0

	for _, a := range accounts {
		err := dc.Tokens.Reconcile(ctx, a.ID)
		switch {
		case err == nil:
			checked++
		case errors.Is(err, ledger.ErrProjectionDrift):
			drifted++
			log.Printf("[DriftChecker] DRIFT on account %s: %v", a.ID, err)
		default:
			log.Printf("[DriftChecker] Error checking %s: %v", a.ID, err)
		}
	}

	if drifted > 0 {
		log.Printf("[DriftChecker] Completed: %d ok, %d DRIFTED", checked, drifted)
	}
}

// RunNow triggers an immediate check (for testing/admin).
func (dc *DriftChecker) RunNow() {
	dc.checkAll()
}
