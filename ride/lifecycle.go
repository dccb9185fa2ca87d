/*
lifecycle.go - Ride state machine and reward issuance

PURPOSE:
  The lifecycle Service is the single authority on ride state:

    pending -> accepted -> in_progress -> completed
       \___________\____________\------> cancelled

  completed and cancelled are terminal. On the transition into completed
  the Service computes rewards via the configured policy and appends the
  ledger entries ATOMICALLY with the status change: either both persist
  or neither does.

CONCURRENCY:
  Transitions for one ride are serialized through a per-ride lock, so a
  racing complete and cancel cannot both succeed. Different rides proceed
  in parallel. Ledger ordering per account is handled by the ledger
  itself.

FAILURE BEHAVIOR:
  A failed complete leaves the ride in_progress - the Service mutates a
  copy and persists through RideRepository.Complete, so nothing is
  observable until the store commits. Observers (the websocket feed, the
  UI) are notified only after persistence succeeds.

SEE ALSO:
  - policy.go: Reward computation
  - store.go: Repository contracts, atomic Complete
  - ledger/ledger.go: Balance stamping and per-account ordering
*/
package ride

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/riide/ride-engine/ledger"
)

// Reward entry descriptions, as shown in rider transaction history.
const (
	descRideReward = "Ride completion bonus"
	descEVReward   = "EV usage reward"
)

// =============================================================================
// NOTIFIER - Confirmed-change observer
// =============================================================================

// Notifier receives state changes AFTER they are persisted. The UI
// subscribes to these; it never mutates state optimistically.
type Notifier interface {
	RideChanged(r Ride)
	EntryAppended(e ledger.Entry)
}

type nopNotifier struct{}

func (nopNotifier) RideChanged(Ride)           {}
func (nopNotifier) EntryAppended(ledger.Entry) {}

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	rides    RideRepository
	accounts AccountDirectory
	vehicles VehicleDirectory
	tokens   *ledger.Ledger
	policy   RewardPolicy
	notifier Notifier

	// Per-ride transition locks.
	mu    sync.Mutex
	locks map[RideID]*sync.Mutex
}

func NewService(rides RideRepository, accounts AccountDirectory, vehicles VehicleDirectory, tokens *ledger.Ledger, policy RewardPolicy, notifier Notifier) *Service {
	if policy == nil {
		policy = DefaultPolicy()
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Service{
		rides:    rides,
		accounts: accounts,
		vehicles: vehicles,
		tokens:   tokens,
		policy:   policy,
		notifier: notifier,
		locks:    make(map[RideID]*sync.Mutex),
	}
}

func (s *Service) lockRide(id RideID) func() {
	s.mu.Lock()
	lk, ok := s.locks[id]
	if !ok {
		lk = &sync.Mutex{}
		s.locks[id] = lk
	}
	s.mu.Unlock()

	lk.Lock()
	return lk.Unlock
}

// =============================================================================
// CREATE
// =============================================================================

// Estimate is the routing collaborator's output, treated as opaque input.
type Estimate struct {
	FareAmount      decimal.Decimal
	DistanceKm      decimal.Decimal
	DurationMinutes int
}

type CreateInput struct {
	RiderID       ledger.AccountID
	Pickup        Location
	Destination   *Location
	PaymentMethod PaymentMethod
	Estimate      Estimate
}

// Create books a ride in pending state. Fare and distance come from the
// estimate supplied by the routing collaborator, consulted before this
// call - never inside transition logic.
func (s *Service) Create(ctx context.Context, in CreateInput) (Ride, error) {
	if in.RiderID == "" {
		return Ride{}, &ValidationError{Field: "rider_id", Reason: "missing"}
	}
	if !in.Pickup.Valid() {
		return Ride{}, &ValidationError{Field: "pickup", Reason: "coordinates missing or out of range"}
	}
	if in.Destination != nil && !in.Destination.Valid() {
		return Ride{}, &ValidationError{Field: "destination", Reason: "coordinates out of range"}
	}
	if in.PaymentMethod == "" {
		in.PaymentMethod = PayRiideToken
	}
	if !in.PaymentMethod.Valid() {
		return Ride{}, &ValidationError{Field: "payment_method", Reason: "unknown method " + string(in.PaymentMethod)}
	}

	if _, err := s.accounts.Account(ctx, in.RiderID); err != nil {
		if IsNotFound(err) {
			return Ride{}, &ValidationError{Field: "rider_id", Reason: "unknown account " + string(in.RiderID)}
		}
		return Ride{}, err
	}

	now := time.Now().UTC()
	r := Ride{
		ID:              RideID(newID("ride")),
		RiderID:         in.RiderID,
		Pickup:          in.Pickup,
		Destination:     in.Destination,
		FareAmount:      in.Estimate.FareAmount,
		DistanceKm:      in.Estimate.DistanceKm,
		DurationMinutes: in.Estimate.DurationMinutes,
		PaymentMethod:   in.PaymentMethod,
		Status:          StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.rides.Insert(ctx, r); err != nil {
		return Ride{}, err
	}
	s.notifier.RideChanged(r)
	return r, nil
}

// =============================================================================
// ACCEPT / START
// =============================================================================

// Accept transitions pending -> accepted, binding a driver and vehicle.
func (s *Service) Accept(ctx context.Context, id RideID, driverID ledger.AccountID, vehicleID VehicleID) (Ride, error) {
	if driverID == "" {
		return Ride{}, &ValidationError{Field: "driver_id", Reason: "missing"}
	}
	if vehicleID == "" {
		return Ride{}, &ValidationError{Field: "vehicle_id", Reason: "missing"}
	}

	unlock := s.lockRide(id)
	defer unlock()

	r, err := s.rides.Get(ctx, id)
	if err != nil {
		return Ride{}, err
	}
	if r.Status != StatusPending {
		return Ride{}, &TransitionError{RideID: id, From: r.Status, Op: "accept"}
	}

	if _, err := s.accounts.Account(ctx, driverID); err != nil {
		return Ride{}, err
	}
	v, err := s.vehicles.Vehicle(ctx, vehicleID)
	if err != nil {
		return Ride{}, err
	}
	if !v.Active {
		return Ride{}, &ValidationError{Field: "vehicle_id", Reason: "vehicle is not active"}
	}

	prev := r.Status
	r.DriverID = driverID
	r.VehicleID = vehicleID
	r.Status = StatusAccepted
	r.UpdatedAt = time.Now().UTC()

	if err := s.rides.Update(ctx, r, prev); err != nil {
		return Ride{}, err
	}
	s.notifier.RideChanged(r)
	return r, nil
}

// Start transitions accepted -> in_progress and stamps started_at.
func (s *Service) Start(ctx context.Context, id RideID) (Ride, error) {
	unlock := s.lockRide(id)
	defer unlock()

	r, err := s.rides.Get(ctx, id)
	if err != nil {
		return Ride{}, err
	}
	if r.Status != StatusAccepted {
		return Ride{}, &TransitionError{RideID: id, From: r.Status, Op: "start"}
	}

	prev := r.Status
	now := time.Now().UTC()
	r.Status = StatusInProgress
	r.StartedAt = &now
	r.UpdatedAt = now

	if err := s.rides.Update(ctx, r, prev); err != nil {
		return Ride{}, err
	}
	s.notifier.RideChanged(r)
	return r, nil
}

// =============================================================================
// COMPLETE - The only reward-issuing transition
// =============================================================================

// Complete transitions in_progress -> completed, stamps completed_at,
// fixes the ride's reward amounts, and appends one ledger entry per
// nonzero reward token - atomically with the status change. On any
// failure the ride remains in_progress and no entry is recorded.
func (s *Service) Complete(ctx context.Context, id RideID, actualDistanceKm decimal.Decimal, actualDurationMin int) (Ride, error) {
	if actualDistanceKm.IsNegative() {
		return Ride{}, &ValidationError{Field: "distance_km", Reason: "must not be negative"}
	}
	if actualDurationMin < 0 {
		return Ride{}, &ValidationError{Field: "duration_minutes", Reason: "must not be negative"}
	}

	unlock := s.lockRide(id)
	defer unlock()

	r, err := s.rides.Get(ctx, id)
	if err != nil {
		return Ride{}, err
	}
	if r.Status != StatusInProgress {
		return Ride{}, &TransitionError{RideID: id, From: r.Status, Op: "complete"}
	}

	now := time.Now().UTC()
	completed := r
	completed.DistanceKm = actualDistanceKm
	completed.DurationMinutes = actualDurationMin
	completed.Status = StatusCompleted
	completed.CompletedAt = &now
	completed.UpdatedAt = now

	reward := s.policy.RewardFor(completed, s.vehicleFor(ctx, completed.VehicleID))
	completed.RiideEarned = reward.Riide
	completed.EveeEarned = reward.Evee

	var drafts []ledger.Entry
	if reward.Riide.IsPositive() {
		drafts = append(drafts, ledger.Entry{
			AccountID:   completed.RiderID,
			Token:       ledger.TokenRiide,
			Type:        ledger.EntryEarn,
			Amount:      reward.Riide,
			Description: descRideReward,
			ReferenceID: string(completed.ID),
		})
	}
	if reward.Evee.IsPositive() {
		drafts = append(drafts, ledger.Entry{
			AccountID:   completed.RiderID,
			Token:       ledger.TokenEvee,
			Type:        ledger.EntryEarn,
			Amount:      reward.Evee,
			Description: descEVReward,
			ReferenceID: string(completed.ID),
		})
	}

	stamped, err := s.tokens.Issue(ctx, drafts, func(entries []ledger.Entry) error {
		return s.rides.Complete(ctx, completed, entries)
	})
	if err != nil {
		return Ride{}, err
	}

	s.notifier.RideChanged(completed)
	for _, e := range stamped {
		s.notifier.EntryAppended(e)
	}
	return completed, nil
}

func (s *Service) vehicleFor(ctx context.Context, id VehicleID) *Vehicle {
	if id == "" {
		return nil
	}
	v, err := s.vehicles.Vehicle(ctx, id)
	if err != nil {
		return nil
	}
	return &v
}

// =============================================================================
// CANCEL
// =============================================================================

// Cancel moves any non-terminal ride to cancelled. No rewards are issued.
// Cancelling an already-cancelled ride is a no-op, not an error.
func (s *Service) Cancel(ctx context.Context, id RideID, reason string) (Ride, error) {
	unlock := s.lockRide(id)
	defer unlock()

	r, err := s.rides.Get(ctx, id)
	if err != nil {
		return Ride{}, err
	}
	if r.Status == StatusCancelled {
		return r, nil
	}
	if r.Status == StatusCompleted {
		return Ride{}, &TransitionError{RideID: id, From: r.Status, Op: "cancel"}
	}

	prev := r.Status
	now := time.Now().UTC()
	r.Status = StatusCancelled
	r.CancellationReason = reason
	r.CancelledAt = &now
	r.UpdatedAt = now

	if err := s.rides.Update(ctx, r, prev); err != nil {
		return Ride{}, err
	}
	s.notifier.RideChanged(r)
	return r, nil
}

// =============================================================================
// WALLET OPERATIONS
// =============================================================================

// Spend consumes token balance outside a ride (upgrades, redemptions).
// Fails with InsufficientBalance if the spend would go negative.
func (s *Service) Spend(ctx context.Context, accountID ledger.AccountID, token ledger.Token, amount decimal.Decimal, description string) (ledger.Entry, error) {
	if _, err := s.accounts.Account(ctx, accountID); err != nil {
		return ledger.Entry{}, err
	}

	e, err := s.tokens.Append(ctx, ledger.Entry{
		AccountID:   accountID,
		Token:       token,
		Type:        ledger.EntrySpend,
		Amount:      amount,
		Description: description,
	})
	if err != nil {
		return ledger.Entry{}, err
	}
	s.notifier.EntryAppended(e)
	return e, nil
}

// BalanceOf reads the cached projection for one account+token.
func (s *Service) BalanceOf(accountID ledger.AccountID, token ledger.Token) decimal.Decimal {
	return s.tokens.BalanceOf(accountID, token)
}

// RecentTransactions returns the newest entries for an account.
func (s *Service) RecentTransactions(ctx context.Context, accountID ledger.AccountID, limit int) ([]ledger.Entry, error) {
	return s.tokens.Recent(ctx, accountID, limit)
}

// Get returns one ride by id.
func (s *Service) Get(ctx context.Context, id RideID) (Ride, error) {
	return s.rides.Get(ctx, id)
}

// RidesFor returns a rider's rides in insertion order.
func (s *Service) RidesFor(ctx context.Context, riderID ledger.AccountID) ([]Ride, error) {
	return s.rides.ByRider(ctx, riderID)
}

// =============================================================================
// ID GENERATION
// =============================================================================

func newID(prefix string) string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("ride: cannot read random bytes: %v", err))
	}
	return fmt.Sprintf("%s-%x", prefix, b)
}
