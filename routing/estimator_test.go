package routing_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riide/ride-engine/ride"
	"github.com/riide/ride-engine/routing"
)

var (
	trafalgar = ride.Coordinate{Lat: 51.5080, Lng: -0.1281}
	camden    = ride.Coordinate{Lat: 51.5390, Lng: -0.1426}
)

// =============================================================================
// HAVERSINE TESTS
// =============================================================================

func TestHaversineKm_ZeroForSamePoint(t *testing.T) {
	assert.Equal(t, 0.0, routing.HaversineKm(trafalgar, trafalgar))
}

func TestHaversineKm_KnownCityPair(t *testing.T) {
	// Trafalgar Square to Camden Town is roughly 3.6km as the crow flies.
	km := routing.HaversineKm(trafalgar, camden)
	assert.InDelta(t, 3.6, km, 0.3)
}

func TestHaversineKm_Symmetric(t *testing.T) {
	assert.InDelta(t, routing.HaversineKm(trafalgar, camden), routing.HaversineKm(camden, trafalgar), 1e-9)
}

// =============================================================================
// ESTIMATOR TESTS
// =============================================================================

func TestEstimate_FareFormula(t *testing.T) {
	// GIVEN: A fixed-price estimator and a known distance
	// WHEN: Estimating
	// THEN: fare = base + km*perKm + min*perMinute, rounded to 2 places

	e := routing.NewStandardEstimator()
	est, err := e.Estimate(context.Background(), trafalgar, camden)
	require.NoError(t, err)

	assert.True(t, est.DistanceKm.IsPositive())
	assert.Greater(t, est.DurationMinutes, 0)

	expected := routing.DefaultBaseFare.
		Add(routing.DefaultPerKm.Mul(est.DistanceKm)).
		Add(routing.DefaultPerMinute.Mul(decimal.NewFromInt(int64(est.DurationMinutes)))).
		Round(2)
	assert.True(t, expected.Equal(est.FareAmount), "want %s got %s", expected, est.FareAmount)

	// Distance is rounded to 2 decimal places for display.
	assert.LessOrEqual(t, int(-est.DistanceKm.Exponent()), 2)
}

func TestEstimate_ZeroDistanceStillChargesBase(t *testing.T) {
	e := routing.NewStandardEstimator()
	est, err := e.Estimate(context.Background(), trafalgar, trafalgar)
	require.NoError(t, err)

	assert.True(t, est.DistanceKm.IsZero())
	assert.Equal(t, 0, est.DurationMinutes)
	assert.True(t, routing.DefaultBaseFare.Equal(est.FareAmount))
}

func TestEstimate_RejectsInvalidCoordinates(t *testing.T) {
	e := routing.NewStandardEstimator()
	ctx := context.Background()

	_, err := e.Estimate(ctx, ride.Coordinate{Lat: 91, Lng: 0}, camden)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ride.ErrValidation))

	_, err = e.Estimate(ctx, trafalgar, ride.Coordinate{Lat: 0, Lng: -181})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ride.ErrValidation))
}

func TestEstimate_CustomPricing(t *testing.T) {
	e := &routing.StandardEstimator{
		BaseFare:  decimal.RequireFromString("5.00"),
		PerKm:     decimal.RequireFromString("2.00"),
		PerMinute: decimal.Zero,
		SpeedKmh:  30,
	}

	est, err := e.Estimate(context.Background(), trafalgar, camden)
	require.NoError(t, err)

	expected := decimal.RequireFromString("5.00").
		Add(decimal.RequireFromString("2.00").Mul(est.DistanceKm)).
		Round(2)
	assert.True(t, expected.Equal(est.FareAmount))
}
