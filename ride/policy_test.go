package ride_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/riide/ride-engine/ride"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// =============================================================================
// FLAT POLICY TESTS
// =============================================================================

func TestFlatPolicy_EVEarnsBothTokens(t *testing.T) {
	p := ride.FlatPolicy{RiidePerRide: dec("2.5"), EveePerEVRide: dec("1.8")}
	ev := &ride.Vehicle{ID: "veh-1", Type: ride.VehicleEV}

	reward := p.RewardFor(ride.Ride{}, ev)

	assert.True(t, dec("2.5").Equal(reward.Riide))
	assert.True(t, dec("1.8").Equal(reward.Evee))
}

func TestFlatPolicy_NonEVEarnsOnlyRiide(t *testing.T) {
	p := ride.FlatPolicy{RiidePerRide: dec("2.5"), EveePerEVRide: dec("1.8")}

	for _, vt := range []ride.VehicleType{ride.VehicleCar, ride.VehicleBike, ride.VehicleScooter} {
		reward := p.RewardFor(ride.Ride{}, &ride.Vehicle{Type: vt})
		assert.True(t, dec("2.5").Equal(reward.Riide), "type %s", vt)
		assert.True(t, reward.Evee.IsZero(), "type %s", vt)
	}
}

func TestFlatPolicy_MissingVehicleEarnsOnlyRiide(t *testing.T) {
	p := ride.FlatPolicy{RiidePerRide: dec("2.5"), EveePerEVRide: dec("1.8")}

	reward := p.RewardFor(ride.Ride{}, nil)

	assert.True(t, dec("2.5").Equal(reward.Riide))
	assert.True(t, reward.Evee.IsZero())
}

// =============================================================================
// PER-KM POLICY TESTS
// =============================================================================

func TestPerKmPolicy_ScalesWithDistance(t *testing.T) {
	p := ride.PerKmPolicy{RiidePerKm: dec("0.5"), MinRiide: dec("1"), EveePerKmEV: dec("0.3")}
	r := ride.Ride{DistanceKm: dec("10")}

	reward := p.RewardFor(r, &ride.Vehicle{Type: ride.VehicleEV})

	assert.True(t, dec("5").Equal(reward.Riide))
	assert.True(t, dec("3").Equal(reward.Evee))
}

func TestPerKmPolicy_ShortRideHitsFloor(t *testing.T) {
	p := ride.PerKmPolicy{RiidePerKm: dec("0.5"), MinRiide: dec("1"), EveePerKmEV: dec("0.3")}
	r := ride.Ride{DistanceKm: dec("0.8")} // 0.4 riide raw, below the floor

	reward := p.RewardFor(r, nil)

	assert.True(t, dec("1").Equal(reward.Riide))
	assert.True(t, reward.Evee.IsZero())
}

func TestPerKmPolicy_EveeHasNoFloor(t *testing.T) {
	p := ride.PerKmPolicy{RiidePerKm: dec("0.5"), MinRiide: dec("1"), EveePerKmEV: dec("0.3")}
	r := ride.Ride{DistanceKm: dec("0.8")}

	reward := p.RewardFor(r, &ride.Vehicle{Type: ride.VehicleEV})

	assert.True(t, dec("0.24").Equal(reward.Evee))
}

// =============================================================================
// DEFAULT POLICY TESTS
// =============================================================================

func TestDefaultPolicy_LaunchAmounts(t *testing.T) {
	p := ride.DefaultPolicy()

	reward := p.RewardFor(ride.Ride{}, &ride.Vehicle{Type: ride.VehicleEV})
	assert.True(t, dec("2.5").Equal(reward.Riide))
	assert.True(t, dec("1.8").Equal(reward.Evee))

	reward = p.RewardFor(ride.Ride{}, &ride.Vehicle{Type: ride.VehicleCar})
	assert.True(t, reward.Evee.IsZero())
}

func TestRewardPolicyFunc_Adapts(t *testing.T) {
	doubled := ride.RewardPolicyFunc(func(r ride.Ride, _ *ride.Vehicle) ride.Reward {
		return ride.Reward{Riide: r.FareAmount.Mul(dec("2"))}
	})

	reward := doubled.RewardFor(ride.Ride{FareAmount: dec("3")}, nil)
	assert.True(t, dec("6").Equal(reward.Riide))
}
