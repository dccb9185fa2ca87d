/*
Package ride provides the ride domain: records, lifecycle, and rewards.

PURPOSE:
  Models rides from booking to completion or cancellation, and issues
  token rewards through the ledger when a ride completes. The lifecycle
  controller in this package is the sole authority on ride state; callers
  observe confirmed transitions, they never assume them.

KEY CONCEPTS IN THIS FILE (types.go):
  - Status: The ride state machine's states
  - Ride: The central entity, owner of its reward amounts
  - Account/Vehicle: Directory records consumed by the lifecycle
  - Reward: Token amounts issued for a completed ride

SEE ALSO:
  - lifecycle.go: State transitions and reward issuance
  - policy.go: Pluggable reward computation
  - summary.go: Rider-facing aggregates
*/
package ride

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/riide/ride-engine/ledger"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type RideID string
type VehicleID string

// =============================================================================
// STATUS - Ride state machine
// =============================================================================

type Status string

const (
	StatusPending    Status = "pending"
	StatusAccepted   Status = "accepted"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether no further transition is permitted.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// =============================================================================
// ENUMERATIONS
// =============================================================================

type PaymentMethod string

const (
	PayRiideToken PaymentMethod = "riide_token"
	PayEveeToken  PaymentMethod = "evee_token"
	PayCrypto     PaymentMethod = "crypto"
	PayFiat       PaymentMethod = "fiat"
)

func (p PaymentMethod) Valid() bool {
	switch p {
	case PayRiideToken, PayEveeToken, PayCrypto, PayFiat:
		return true
	}
	return false
}

type VehicleType string

const (
	VehicleCar     VehicleType = "car"
	VehicleBike    VehicleType = "bike"
	VehicleScooter VehicleType = "scooter"
	VehicleEV      VehicleType = "ev"
)

type Role string

const (
	RoleRider  Role = "rider"
	RoleDriver Role = "driver"
	RoleAdmin  Role = "admin"
)

// =============================================================================
// GEOGRAPHY
// =============================================================================

type Coordinate struct {
	Lat float64
	Lng float64
}

func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// Location pairs coordinates with a display address.
type Location struct {
	Coordinate
	Address string
}

// =============================================================================
// RIDE - The central entity
// =============================================================================

// Ride owns its reward amounts: RiideEarned/EveeEarned are fixed the
// moment the ride reaches completed and never recomputed afterward.
type Ride struct {
	ID      RideID
	RiderID ledger.AccountID

	// Set on accept; empty while pending.
	DriverID  ledger.AccountID
	VehicleID VehicleID

	// Pickup is always present. Destination may be absent until set.
	Pickup      Location
	Destination *Location

	FareAmount      decimal.Decimal
	DistanceKm      decimal.Decimal
	DurationMinutes int
	PaymentMethod   PaymentMethod

	RiideEarned decimal.Decimal
	EveeEarned  decimal.Decimal

	Status             Status
	CancellationReason string

	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	CancelledAt *time.Time
	UpdatedAt   time.Time
}

// =============================================================================
// DIRECTORY RECORDS
// =============================================================================

// Account identifies a rider or driver. The balance fields are a
// materialized cache of the ledger, updated only alongside ledger appends.
type Account struct {
	ID            ledger.AccountID
	FullName      string
	Email         string
	Role          Role
	RiideBalance  decimal.Decimal
	EveeBalance   decimal.Decimal
	WalletAddress string
	Verified      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Vehicle belongs to exactly one driver. Created and updated by
// driver-side tooling; read-only to this core.
type Vehicle struct {
	ID           VehicleID
	DriverID     ledger.AccountID
	Make         string
	Model        string
	Year         int
	Color        string
	Type         VehicleType
	LicensePlate string
	Active       bool
	Position     Coordinate
	BatteryLevel *int // EV only
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsEV reports whether the vehicle earns EV ecosystem rewards.
func (v Vehicle) IsEV() bool { return v.Type == VehicleEV }

// =============================================================================
// REWARD - Token amounts for one completed ride
// =============================================================================

type Reward struct {
	Riide decimal.Decimal
	Evee  decimal.Decimal
}

func (r Reward) IsZero() bool {
	return r.Riide.IsZero() && r.Evee.IsZero()
}
