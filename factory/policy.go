/*
Package factory provides JSON to reward-policy conversion.

PURPOSE:
  Converts JSON policy definitions into ride.RewardPolicy values. This
  enables reward tuning without code changes - operations can adjust
  amounts in configuration, and the factory builds the proper policy.

JSON SCHEMA:
  Flat per-ride reward (launch configuration):
    {
      "type": "flat",
      "riide_per_ride": 2.5,
      "evee_per_ev_ride": 1.8
    }

  Distance-scaled reward:
    {
      "type": "per_km",
      "riide_per_km": 0.5,
      "min_riide": 1.0,
      "evee_per_km_ev": 0.35
    }

KEY FEATURES:
  - Validates the type discriminator
  - Applies launch defaults for omitted amounts
  - Rejects negative amounts

SEE ALSO:
  - ride/policy.go: Policy implementations
  - cmd/server/main.go: Loads a policy file via -policy
*/
package factory

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"github.com/riide/ride-engine/ride"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// PolicyJSON is the JSON representation of a reward policy.
type PolicyJSON struct {
	Type string `json:"type"` // flat, per_km

	// flat
	RiidePerRide  *float64 `json:"riide_per_ride,omitempty"`
	EveePerEVRide *float64 `json:"evee_per_ev_ride,omitempty"`

	// per_km
	RiidePerKm  *float64 `json:"riide_per_km,omitempty"`
	MinRiide    *float64 `json:"min_riide,omitempty"`
	EveePerKmEV *float64 `json:"evee_per_km_ev,omitempty"`
}

// =============================================================================
// FACTORY
// =============================================================================

// ParsePolicy builds a reward policy from a JSON document.
func ParsePolicy(data []byte) (ride.RewardPolicy, error) {
	var cfg PolicyJSON
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid policy JSON: %w", err)
	}
	return BuildPolicy(cfg)
}

// ParsePolicyFile reads and parses a policy file.
func ParsePolicyFile(path string) (ride.RewardPolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read policy file: %w", err)
	}
	return ParsePolicy(data)
}

// BuildPolicy converts a parsed config into a policy value.
func BuildPolicy(cfg PolicyJSON) (ride.RewardPolicy, error) {
	switch cfg.Type {
	case "", "flat":
		p := ride.FlatPolicy{
			RiidePerRide:  decimal.RequireFromString("2.5"),
			EveePerEVRide: decimal.RequireFromString("1.8"),
		}
		if cfg.RiidePerRide != nil {
			v, err := amount("riide_per_ride", *cfg.RiidePerRide)
			if err != nil {
				return nil, err
			}
			p.RiidePerRide = v
		}
		if cfg.EveePerEVRide != nil {
			v, err := amount("evee_per_ev_ride", *cfg.EveePerEVRide)
			if err != nil {
				return nil, err
			}
			p.EveePerEVRide = v
		}
		return p, nil

	case "per_km":
		p := ride.PerKmPolicy{}
		if cfg.RiidePerKm != nil {
			v, err := amount("riide_per_km", *cfg.RiidePerKm)
			if err != nil {
				return nil, err
			}
			p.RiidePerKm = v
		}
		if cfg.MinRiide != nil {
			v, err := amount("min_riide", *cfg.MinRiide)
			if err != nil {
				return nil, err
			}
			p.MinRiide = v
		}
		if cfg.EveePerKmEV != nil {
			v, err := amount("evee_per_km_ev", *cfg.EveePerKmEV)
			if err != nil {
				return nil, err
			}
			p.EveePerKmEV = v
		}
		return p, nil

	default:
		return nil, fmt.Errorf("unknown policy type %q", cfg.Type)
	}
}

func amount(field string, v float64) (decimal.Decimal, error) {
	if v < 0 {
		return decimal.Decimal{}, fmt.Errorf("policy field %s must not be negative", field)
	}
	return decimal.NewFromFloat(v), nil
}
