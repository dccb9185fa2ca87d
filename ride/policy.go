/*
policy.go - Pluggable reward computation

PURPOSE:
  Computes the token amounts earned for a completed ride. The business
  rule is clearly meant to vary (promotions, EV incentives), so it is a
  policy value handed to the lifecycle controller, not a constant wired
  into it.

EV ASYMMETRY:
  The product rule observed so far: every completed ride earns RIIDE;
  rides on an EV additionally earn EVEE. Whether non-EV rides should ever
  earn EVEE is an open product question, which is exactly why the amounts
  live in policy configuration (see factory package) rather than code.

SEE ALSO:
  - factory/policy.go: JSON -> RewardPolicy
  - lifecycle.go: Calls RewardFor on completion
*/
package ride

import "github.com/shopspring/decimal"

// =============================================================================
// REWARD POLICY
// =============================================================================

// RewardPolicy computes the reward for a completed ride. The vehicle is
// the one that served the ride; nil when the record is missing.
type RewardPolicy interface {
	RewardFor(r Ride, v *Vehicle) Reward
}

// RewardPolicyFunc adapts a function to the RewardPolicy interface.
type RewardPolicyFunc func(r Ride, v *Vehicle) Reward

func (f RewardPolicyFunc) RewardFor(r Ride, v *Vehicle) Reward { return f(r, v) }

// =============================================================================
// FLAT POLICY - Fixed amount per completed ride
// =============================================================================

// FlatPolicy issues a fixed RIIDE amount per completed ride, plus a fixed
// EVEE amount when the ride was served by an EV.
type FlatPolicy struct {
	RiidePerRide  decimal.Decimal
	EveePerEVRide decimal.Decimal
}

func (p FlatPolicy) RewardFor(_ Ride, v *Vehicle) Reward {
	reward := Reward{Riide: p.RiidePerRide}
	if v != nil && v.IsEV() {
		reward.Evee = p.EveePerEVRide
	}
	return reward
}

// =============================================================================
// PER-KM POLICY - Distance-scaled rewards
// =============================================================================

// PerKmPolicy scales rewards with actual ride distance, with a floor so
// short rides still earn something.
type PerKmPolicy struct {
	RiidePerKm  decimal.Decimal
	MinRiide    decimal.Decimal
	EveePerKmEV decimal.Decimal
}

func (p PerKmPolicy) RewardFor(r Ride, v *Vehicle) Reward {
	riide := p.RiidePerKm.Mul(r.DistanceKm)
	if riide.LessThan(p.MinRiide) {
		riide = p.MinRiide
	}
	reward := Reward{Riide: riide}
	if v != nil && v.IsEV() {
		reward.Evee = p.EveePerKmEV.Mul(r.DistanceKm)
	}
	return reward
}

// DefaultPolicy matches the launch configuration: a flat 2.5 RIIDE per
// completed ride, plus 1.8 EVEE when the ride was on an EV.
func DefaultPolicy() RewardPolicy {
	return FlatPolicy{
		RiidePerRide:  decimal.RequireFromString("2.5"),
		EveePerEVRide: decimal.RequireFromString("1.8"),
	}
}
