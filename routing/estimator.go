/*
Package routing provides fare and distance estimation.

PURPOSE:
  Implements the external estimation collaborator the booking flow
  consults BEFORE creating a ride. The lifecycle controller treats the
  output as opaque input; nothing in here runs inside transition logic.

PRICING MODEL:
  fare = base + distance_km * per_km + duration_min * per_minute

  Distance is great-circle (haversine) between pickup and destination;
  duration assumes a flat city speed. Real routing would come from a maps
  provider - this estimator keeps the same contract so it can be swapped.
*/
package routing

import (
	"context"
	"math"

	"github.com/shopspring/decimal"

	"github.com/riide/ride-engine/ride"
)

// Default city pricing.
var (
	DefaultBaseFare  = decimal.RequireFromString("2.50")
	DefaultPerKm     = decimal.RequireFromString("1.10")
	DefaultPerMinute = decimal.RequireFromString("0.25")
)

// DefaultSpeedKmh is the assumed average city speed for duration estimates.
const DefaultSpeedKmh = 18.0

// Estimator produces a fare/distance estimate for a prospective ride.
type Estimator interface {
	Estimate(ctx context.Context, pickup, destination ride.Coordinate) (ride.Estimate, error)
}

// =============================================================================
// STANDARD ESTIMATOR - Haversine distance, linear fare
// =============================================================================

type StandardEstimator struct {
	BaseFare  decimal.Decimal
	PerKm     decimal.Decimal
	PerMinute decimal.Decimal
	SpeedKmh  float64
}

func NewStandardEstimator() *StandardEstimator {
	return &StandardEstimator{
		BaseFare:  DefaultBaseFare,
		PerKm:     DefaultPerKm,
		PerMinute: DefaultPerMinute,
		SpeedKmh:  DefaultSpeedKmh,
	}
}

func (e *StandardEstimator) Estimate(_ context.Context, pickup, destination ride.Coordinate) (ride.Estimate, error) {
	if !pickup.Valid() {
		return ride.Estimate{}, &ride.ValidationError{Field: "pickup", Reason: "coordinates out of range"}
	}
	if !destination.Valid() {
		return ride.Estimate{}, &ride.ValidationError{Field: "destination", Reason: "coordinates out of range"}
	}

	km := HaversineKm(pickup, destination)
	minutes := int(math.Ceil(km / e.SpeedKmh * 60))

	distance := decimal.NewFromFloat(km).Round(2)
	fare := e.BaseFare.
		Add(e.PerKm.Mul(distance)).
		Add(e.PerMinute.Mul(decimal.NewFromInt(int64(minutes)))).
		Round(2)

	return ride.Estimate{
		FareAmount:      fare,
		DistanceKm:      distance,
		DurationMinutes: minutes,
	}, nil
}

// =============================================================================
// HAVERSINE
// =============================================================================

const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between two coordinates.
func HaversineKm(a, b ride.Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}
