/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY REPRESENTATION:
  Amounts cross the wire as JSON numbers for the UI's convenience. All
  arithmetic stays in decimal on the server; the float conversion happens
  only at the serialization boundary.

VALIDATION:
  Validation is done in handlers and domain logic, not in DTOs. DTOs are
  pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - ride/types.go: The domain model these mirror
*/
package api

import (
	"time"

	"github.com/riide/ride-engine/ledger"
	"github.com/riide/ride-engine/ride"
)

// =============================================================================
// RIDE TYPES
// =============================================================================

// LocationDTO is a coordinate pair with a display address.
type LocationDTO struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address,omitempty"`
}

// RideDTO represents a ride in API responses.
type RideDTO struct {
	ID                 string       `json:"id"`
	RiderID            string       `json:"rider_id"`
	DriverID           string       `json:"driver_id,omitempty"`
	VehicleID          string       `json:"vehicle_id,omitempty"`
	Pickup             LocationDTO  `json:"pickup"`
	Destination        *LocationDTO `json:"destination,omitempty"`
	FareAmount         float64      `json:"fare_amount"`
	DistanceKm         float64      `json:"distance_km"`
	DurationMinutes    int          `json:"duration_minutes"`
	PaymentMethod      string       `json:"payment_method"`
	RiideEarned        float64      `json:"riide_earned"`
	EveeEarned         float64      `json:"evee_earned"`
	Status             string       `json:"status"`
	CancellationReason string       `json:"cancellation_reason,omitempty"`
	CreatedAt          string       `json:"created_at"`
	StartedAt          string       `json:"started_at,omitempty"`
	CompletedAt        string       `json:"completed_at,omitempty"`
	CancelledAt        string       `json:"cancelled_at,omitempty"`
}

// CreateRideRequest books a new ride. fare_amount, distance_km, and
// duration_minutes are optional; when absent and a destination is given,
// the server estimates them.
type CreateRideRequest struct {
	RiderID         string       `json:"rider_id"`
	Pickup          LocationDTO  `json:"pickup"`
	Destination     *LocationDTO `json:"destination,omitempty"`
	PaymentMethod   string       `json:"payment_method,omitempty"`
	FareAmount      *float64     `json:"fare_amount,omitempty"`
	DistanceKm      *float64     `json:"distance_km,omitempty"`
	DurationMinutes *int         `json:"duration_minutes,omitempty"`
}

// AcceptRideRequest binds a driver and vehicle to a pending ride.
type AcceptRideRequest struct {
	DriverID  string `json:"driver_id"`
	VehicleID string `json:"vehicle_id"`
}

// CompleteRideRequest reports the measured trip outcome.
type CompleteRideRequest struct {
	DistanceKm      float64 `json:"distance_km"`
	DurationMinutes int     `json:"duration_minutes"`
}

// CancelRideRequest carries an optional cancellation reason.
type CancelRideRequest struct {
	Reason string `json:"reason,omitempty"`
}

// =============================================================================
// ESTIMATE TYPES
// =============================================================================

type EstimateRequest struct {
	Pickup      LocationDTO `json:"pickup"`
	Destination LocationDTO `json:"destination"`
}

type EstimateDTO struct {
	FareAmount      float64 `json:"fare_amount"`
	DistanceKm      float64 `json:"distance_km"`
	DurationMinutes int     `json:"duration_minutes"`
}

// =============================================================================
// WALLET TYPES
// =============================================================================

// BalanceDTO is the dual-token balance of one account.
type BalanceDTO struct {
	AccountID string  `json:"account_id"`
	Riide     float64 `json:"riide_balance"`
	Evee      float64 `json:"evee_balance"`
}

// TransactionDTO represents a ledger entry in API responses.
type TransactionDTO struct {
	ID           string  `json:"id"`
	AccountID    string  `json:"account_id"`
	Token        string  `json:"token_type"`
	Type         string  `json:"transaction_type"`
	Amount       float64 `json:"amount"`
	BalanceAfter float64 `json:"balance_after"`
	Description  string  `json:"description,omitempty"`
	RideID       string  `json:"ride_id,omitempty"`
	CreatedAt    string  `json:"created_at"`
}

// SpendRequest consumes token balance outside a ride.
type SpendRequest struct {
	Token       string  `json:"token_type"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description,omitempty"`
}

// SummaryDTO aggregates a rider's full ride history.
type SummaryDTO struct {
	RiderID       string  `json:"rider_id"`
	TotalRides    int     `json:"total_rides"`
	TotalSpent    float64 `json:"total_spent"`
	TotalEarned   float64 `json:"total_earned"`
	TotalDistance float64 `json:"total_distance"`
}

// =============================================================================
// DIRECTORY TYPES
// =============================================================================

// AccountDTO represents a rider or driver account.
type AccountDTO struct {
	ID            string  `json:"id"`
	FullName      string  `json:"full_name"`
	Email         string  `json:"email,omitempty"`
	Role          string  `json:"role"`
	RiideBalance  float64 `json:"riide_balance"`
	EveeBalance   float64 `json:"evee_balance"`
	WalletAddress string  `json:"wallet_address,omitempty"`
	Verified      bool    `json:"verified"`
	CreatedAt     string  `json:"created_at,omitempty"`
}

// VehicleDTO represents a fleet vehicle.
type VehicleDTO struct {
	ID           string  `json:"id"`
	DriverID     string  `json:"driver_id"`
	Make         string  `json:"make,omitempty"`
	Model        string  `json:"model,omitempty"`
	Year         int     `json:"year,omitempty"`
	Color        string  `json:"color,omitempty"`
	Type         string  `json:"vehicle_type"`
	LicensePlate string  `json:"license_plate,omitempty"`
	Active       bool    `json:"active"`
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	BatteryLevel *int    `json:"battery_level,omitempty"`
}

// =============================================================================
// SCENARIO TYPES
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toRideDTO(r ride.Ride) RideDTO {
	dto := RideDTO{
		ID:        string(r.ID),
		RiderID:   string(r.RiderID),
		DriverID:  string(r.DriverID),
		VehicleID: string(r.VehicleID),
		Pickup: LocationDTO{
			Lat: r.Pickup.Lat, Lng: r.Pickup.Lng, Address: r.Pickup.Address,
		},
		FareAmount:         r.FareAmount.InexactFloat64(),
		DistanceKm:         r.DistanceKm.InexactFloat64(),
		DurationMinutes:    r.DurationMinutes,
		PaymentMethod:      string(r.PaymentMethod),
		RiideEarned:        r.RiideEarned.InexactFloat64(),
		EveeEarned:         r.EveeEarned.InexactFloat64(),
		Status:             string(r.Status),
		CancellationReason: r.CancellationReason,
		CreatedAt:          r.CreatedAt.Format(time.RFC3339),
		StartedAt:          formatOptional(r.StartedAt),
		CompletedAt:        formatOptional(r.CompletedAt),
		CancelledAt:        formatOptional(r.CancelledAt),
	}
	if r.Destination != nil {
		dto.Destination = &LocationDTO{
			Lat: r.Destination.Lat, Lng: r.Destination.Lng, Address: r.Destination.Address,
		}
	}
	return dto
}

func toTransactionDTO(e ledger.Entry) TransactionDTO {
	return TransactionDTO{
		ID:           string(e.ID),
		AccountID:    string(e.AccountID),
		Token:        string(e.Token),
		Type:         string(e.Type),
		Amount:       e.Amount.InexactFloat64(),
		BalanceAfter: e.BalanceAfter.InexactFloat64(),
		Description:  e.Description,
		RideID:       e.ReferenceID,
		CreatedAt:    e.CreatedAt.Format(time.RFC3339),
	}
}

func toAccountDTO(a ride.Account) AccountDTO {
	return AccountDTO{
		ID:            string(a.ID),
		FullName:      a.FullName,
		Email:         a.Email,
		Role:          string(a.Role),
		RiideBalance:  a.RiideBalance.InexactFloat64(),
		EveeBalance:   a.EveeBalance.InexactFloat64(),
		WalletAddress: a.WalletAddress,
		Verified:      a.Verified,
		CreatedAt:     a.CreatedAt.Format(time.RFC3339),
	}
}

func toVehicleDTO(v ride.Vehicle) VehicleDTO {
	return VehicleDTO{
		ID:           string(v.ID),
		DriverID:     string(v.DriverID),
		Make:         v.Make,
		Model:        v.Model,
		Year:         v.Year,
		Color:        v.Color,
		Type:         string(v.Type),
		LicensePlate: v.LicensePlate,
		Active:       v.Active,
		Lat:          v.Position.Lat,
		Lng:          v.Position.Lng,
		BatteryLevel: v.BatteryLevel,
	}
}

func formatOptional(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
