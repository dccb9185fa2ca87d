/*
store.go - Typed repository interfaces per entity

PURPOSE:
  Defines the persistence contract the lifecycle controller consumes.
  One typed repository per entity with explicit methods - deliberately
  NOT a generic chained query builder; every access path the domain needs
  is a named method.

ATOMIC COMPLETION:
  Complete() persists the status change and the reward entries as one
  unit: either both land or neither does. SQLite implements it with a
  single database transaction; the memory store does it under one lock.

IMPLEMENTATIONS:
  - store/sqlite: Production store (rides, accounts, vehicles, ledger)
  - store/memory: In-memory store for tests and dev

SEE ALSO:
  - lifecycle.go: The only consumer of RideRepository writes
*/
package ride

import (
	"context"

	"github.com/riide/ride-engine/ledger"
)

// =============================================================================
// RIDE REPOSITORY
// =============================================================================

// RideRepository stores ride records keyed by id, retrievable per rider
// in stable insertion order.
type RideRepository interface {
	Insert(ctx context.Context, r Ride) error

	// Get returns NotFoundError for unknown ids.
	Get(ctx context.Context, id RideID) (Ride, error)

	// Update replaces a ride record. The caller (lifecycle controller)
	// serializes updates per ride; expected must be the status the ride
	// currently holds, and stores reject the write if it is not
	// (compare-and-swap against lost updates from other processes).
	Update(ctx context.Context, r Ride, expected Status) error

	// ByRider returns all of a rider's rides in insertion order.
	ByRider(ctx context.Context, riderID ledger.AccountID) ([]Ride, error)

	// Complete atomically persists the completed ride and appends its
	// reward entries. expected works as in Update.
	Complete(ctx context.Context, r Ride, entries []ledger.Entry) error
}

// =============================================================================
// DIRECTORIES - Read-only collaborators
// =============================================================================

// AccountDirectory resolves accounts. Balances on the returned record are
// the store's materialized cache, not the live projection.
type AccountDirectory interface {
	Account(ctx context.Context, id ledger.AccountID) (Account, error)
	Accounts(ctx context.Context) ([]Account, error)
}

// VehicleDirectory resolves vehicles. The fleet is owned by driver-side
// tooling; this core only reads it.
type VehicleDirectory interface {
	Vehicle(ctx context.Context, id VehicleID) (Vehicle, error)
	Active(ctx context.Context) ([]Vehicle, error)
}
