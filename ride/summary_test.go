package ride_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riide/ride-engine/ride"
)

// =============================================================================
// SUMMARIZE TESTS - Pure fold
// =============================================================================

func TestSummarize_AggregatesAllStatuses(t *testing.T) {
	rides := []ride.Ride{
		{
			Status:      ride.StatusCompleted,
			FareAmount:  dec("12.50"),
			DistanceKm:  dec("5.2"),
			RiideEarned: dec("2.5"),
			EveeEarned:  dec("1.8"),
		},
		{
			Status:      ride.StatusCompleted,
			FareAmount:  dec("15.75"),
			DistanceKm:  dec("7.1"),
			RiideEarned: dec("3.2"),
			EveeEarned:  dec("2.1"),
		},
		// Cancelled rides still count toward the history totals.
		{
			Status:     ride.StatusCancelled,
			FareAmount: dec("8.00"),
			DistanceKm: dec("2.0"),
		},
	}

	s := ride.Summarize(rides)

	assert.Equal(t, 3, s.TotalRides)
	assert.True(t, dec("36.25").Equal(s.TotalSpent))
	assert.True(t, dec("9.6").Equal(s.TotalEarned))
	assert.True(t, dec("14.3").Equal(s.TotalDistance))
}

func TestSummarize_EmptyHistory(t *testing.T) {
	s := ride.Summarize(nil)

	assert.Equal(t, 0, s.TotalRides)
	assert.True(t, s.TotalSpent.IsZero())
	assert.True(t, s.TotalEarned.IsZero())
	assert.True(t, s.TotalDistance.IsZero())
}

// =============================================================================
// SUMMARY-FOR TESTS - Through the service
// =============================================================================

func TestSummaryFor_TracksLifecycle(t *testing.T) {
	// GIVEN: A rider with a completed EV ride and a cancelled booking
	// WHEN: Requesting the summary
	// THEN: Both rides count, earnings come only from the completed one

	f := newFixture(t)
	ctx := context.Background()

	r := f.bookInProgress(t, "veh-ev")
	_, err := f.service.Complete(ctx, r.ID, decimal.RequireFromString("5.2"), 18)
	require.NoError(t, err)

	dropped := f.book(t, "8.00", "2.0")
	_, err = f.service.Cancel(ctx, dropped.ID, "changed plans")
	require.NoError(t, err)

	s, err := f.service.SummaryFor(ctx, "rider-1")
	require.NoError(t, err)

	assert.Equal(t, 2, s.TotalRides)
	assert.True(t, dec("20.50").Equal(s.TotalSpent))
	assert.True(t, dec("4.3").Equal(s.TotalEarned)) // 2.5 RIIDE + 1.8 EVEE
	assert.True(t, dec("7.2").Equal(s.TotalDistance))
}

func TestSummaryFor_UnknownRiderIsEmpty(t *testing.T) {
	f := newFixture(t)

	s, err := f.service.SummaryFor(context.Background(), "rider-ghost")
	require.NoError(t, err)
	assert.Equal(t, 0, s.TotalRides)
}
