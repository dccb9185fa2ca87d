/*
Package memory provides an in-memory implementation of every storage
interface: ride.RideRepository, ride.AccountDirectory,
ride.VehicleDirectory, and ledger.Store.

Used for tests and for -db=none dev runs. A single mutex covers all
state, which makes the atomic completion contract trivial: the status
change and the reward entries are written under one critical section.
*/
package memory

import (
	"context"
	"sync"

	"github.com/riide/ride-engine/ledger"
	"github.com/riide/ride-engine/ride"
)

type Store struct {
	mu sync.RWMutex

	rides     map[ride.RideID]ride.Ride
	rideOrder []ride.RideID

	accounts     map[ledger.AccountID]ride.Account
	accountOrder []ledger.AccountID

	vehicles     map[ride.VehicleID]ride.Vehicle
	vehicleOrder []ride.VehicleID

	entries   []ledger.Entry
	byAccount map[ledger.AccountID][]int
}

func New() *Store {
	return &Store{
		rides:     make(map[ride.RideID]ride.Ride),
		accounts:  make(map[ledger.AccountID]ride.Account),
		vehicles:  make(map[ride.VehicleID]ride.Vehicle),
		byAccount: make(map[ledger.AccountID][]int),
	}
}

// =============================================================================
// RIDE REPOSITORY (ride.RideRepository)
// =============================================================================

func (s *Store) Insert(_ context.Context, r ride.Ride) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rides[r.ID]; !exists {
		s.rideOrder = append(s.rideOrder, r.ID)
	}
	s.rides[r.ID] = r
	return nil
}

func (s *Store) Get(_ context.Context, id ride.RideID) (ride.Ride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rides[id]
	if !ok {
		return ride.Ride{}, &ride.NotFoundError{Kind: "ride", ID: string(id)}
	}
	return r, nil
}

func (s *Store) Update(_ context.Context, r ride.Ride, expected ride.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateLocked(r, expected)
}

func (s *Store) updateLocked(r ride.Ride, expected ride.Status) error {
	current, ok := s.rides[r.ID]
	if !ok {
		return &ride.NotFoundError{Kind: "ride", ID: string(r.ID)}
	}
	if current.Status != expected {
		return &ride.TransitionError{RideID: r.ID, From: current.Status, Op: "update"}
	}
	s.rides[r.ID] = r
	return nil
}

func (s *Store) ByRider(_ context.Context, riderID ledger.AccountID) ([]ride.Ride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ride.Ride
	for _, id := range s.rideOrder {
		if r := s.rides[id]; r.RiderID == riderID {
			out = append(out, r)
		}
	}
	return out, nil
}

// Complete writes the completed ride and its reward entries under one
// lock: both land or neither does.
func (s *Store) Complete(_ context.Context, r ride.Ride, entries []ledger.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.updateLocked(r, ride.StatusInProgress); err != nil {
		return err
	}
	for _, e := range entries {
		s.appendLocked(e)
	}
	return nil
}

// =============================================================================
// ACCOUNT DIRECTORY (ride.AccountDirectory)
// =============================================================================

func (s *Store) Account(_ context.Context, id ledger.AccountID) (ride.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return ride.Account{}, &ride.NotFoundError{Kind: "account", ID: string(id)}
	}
	return a, nil
}

func (s *Store) Accounts(_ context.Context) ([]ride.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ride.Account, 0, len(s.accountOrder))
	for _, id := range s.accountOrder {
		out = append(out, s.accounts[id])
	}
	return out, nil
}

// PutAccount seeds or replaces an account record.
func (s *Store) PutAccount(a ride.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[a.ID]; !exists {
		s.accountOrder = append(s.accountOrder, a.ID)
	}
	s.accounts[a.ID] = a
}

// SaveAccount is PutAccount under the scenario Seeder contract.
func (s *Store) SaveAccount(_ context.Context, a ride.Account) error {
	s.PutAccount(a)
	return nil
}

// =============================================================================
// VEHICLE DIRECTORY (ride.VehicleDirectory)
// =============================================================================

func (s *Store) Vehicle(_ context.Context, id ride.VehicleID) (ride.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vehicles[id]
	if !ok {
		return ride.Vehicle{}, &ride.NotFoundError{Kind: "vehicle", ID: string(id)}
	}
	return v, nil
}

func (s *Store) Active(_ context.Context) ([]ride.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ride.Vehicle
	for _, id := range s.vehicleOrder {
		if v := s.vehicles[id]; v.Active {
			out = append(out, v)
		}
	}
	return out, nil
}

// PutVehicle seeds or replaces a vehicle record.
func (s *Store) PutVehicle(v ride.Vehicle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.vehicles[v.ID]; !exists {
		s.vehicleOrder = append(s.vehicleOrder, v.ID)
	}
	s.vehicles[v.ID] = v
}

// SaveVehicle is PutVehicle under the scenario Seeder contract.
func (s *Store) SaveVehicle(_ context.Context, v ride.Vehicle) error {
	s.PutVehicle(v)
	return nil
}

// Reset clears all state (for testing/demo).
func (s *Store) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rides = make(map[ride.RideID]ride.Ride)
	s.rideOrder = nil
	s.accounts = make(map[ledger.AccountID]ride.Account)
	s.accountOrder = nil
	s.vehicles = make(map[ride.VehicleID]ride.Vehicle)
	s.vehicleOrder = nil
	s.entries = nil
	s.byAccount = make(map[ledger.AccountID][]int)
	return nil
}

// =============================================================================
// LEDGER STORE (ledger.Store)
// =============================================================================

func (s *Store) Append(_ context.Context, e ledger.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLocked(e)
	return nil
}

func (s *Store) AppendBatch(_ context.Context, entries []ledger.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.appendLocked(e)
	}
	return nil
}

// appendLocked records the entry and refreshes the account's cached
// balance columns from the entry's BalanceAfter snapshot.
func (s *Store) appendLocked(e ledger.Entry) {
	s.entries = append(s.entries, e)
	s.byAccount[e.AccountID] = append(s.byAccount[e.AccountID], len(s.entries)-1)

	if a, ok := s.accounts[e.AccountID]; ok {
		switch e.Token {
		case ledger.TokenRiide:
			a.RiideBalance = e.BalanceAfter
		case ledger.TokenEvee:
			a.EveeBalance = e.BalanceAfter
		}
		a.UpdatedAt = e.CreatedAt
		s.accounts[e.AccountID] = a
	}
}

func (s *Store) LoadAll(_ context.Context) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Entry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

func (s *Store) LoadByAccount(_ context.Context, accountID ledger.AccountID) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ledger.Entry
	for _, i := range s.byAccount[accountID] {
		out = append(out, s.entries[i])
	}
	return out, nil
}

func (s *Store) LoadByToken(_ context.Context, accountID ledger.AccountID, token ledger.Token) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ledger.Entry
	for _, i := range s.byAccount[accountID] {
		if s.entries[i].Token == token {
			out = append(out, s.entries[i])
		}
	}
	return out, nil
}

func (s *Store) Recent(_ context.Context, accountID ledger.AccountID, limit int) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.byAccount[accountID]
	if limit <= 0 || limit > len(idx) {
		limit = len(idx)
	}
	out := make([]ledger.Entry, 0, limit)
	for i := len(idx) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.entries[idx[i]])
	}
	return out, nil
}

// Compile-time interface checks.
var (
	_ ride.RideRepository   = (*Store)(nil)
	_ ride.AccountDirectory = (*Store)(nil)
	_ ride.VehicleDirectory = (*Store)(nil)
	_ ledger.Store          = (*Store)(nil)
)
