package factory_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riide/ride-engine/factory"
	"github.com/riide/ride-engine/ride"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// =============================================================================
// FLAT POLICY PARSING
// =============================================================================

func TestParsePolicy_FlatDefaults(t *testing.T) {
	// GIVEN: A flat policy with no amounts
	// WHEN: Parsing
	// THEN: Launch defaults apply (2.5 RIIDE, 1.8 EVEE)

	p, err := factory.ParsePolicy([]byte(`{"type": "flat"}`))
	require.NoError(t, err)

	flat, ok := p.(ride.FlatPolicy)
	require.True(t, ok)
	assert.True(t, dec("2.5").Equal(flat.RiidePerRide))
	assert.True(t, dec("1.8").Equal(flat.EveePerEVRide))
}

func TestParsePolicy_EmptyTypeMeansFlat(t *testing.T) {
	p, err := factory.ParsePolicy([]byte(`{}`))
	require.NoError(t, err)
	_, ok := p.(ride.FlatPolicy)
	assert.True(t, ok)
}

func TestParsePolicy_FlatOverrides(t *testing.T) {
	p, err := factory.ParsePolicy([]byte(`{
		"type": "flat",
		"riide_per_ride": 5.0,
		"evee_per_ev_ride": 0
	}`))
	require.NoError(t, err)

	flat := p.(ride.FlatPolicy)
	assert.True(t, dec("5").Equal(flat.RiidePerRide))
	assert.True(t, flat.EveePerEVRide.IsZero())
}

// =============================================================================
// PER-KM POLICY PARSING
// =============================================================================

func TestParsePolicy_PerKm(t *testing.T) {
	p, err := factory.ParsePolicy([]byte(`{
		"type": "per_km",
		"riide_per_km": 0.5,
		"min_riide": 1.0,
		"evee_per_km_ev": 0.35
	}`))
	require.NoError(t, err)

	perKm, ok := p.(ride.PerKmPolicy)
	require.True(t, ok)
	assert.True(t, dec("0.5").Equal(perKm.RiidePerKm))
	assert.True(t, dec("1").Equal(perKm.MinRiide))
	assert.True(t, dec("0.35").Equal(perKm.EveePerKmEV))
}

// =============================================================================
// REJECTION CASES
// =============================================================================

func TestParsePolicy_Rejections(t *testing.T) {
	cases := []struct {
		name string
		json string
	}{
		{"unknown type", `{"type": "surge"}`},
		{"negative flat amount", `{"type": "flat", "riide_per_ride": -1}`},
		{"negative ev amount", `{"type": "flat", "evee_per_ev_ride": -0.5}`},
		{"negative per-km amount", `{"type": "per_km", "riide_per_km": -0.1}`},
		{"negative floor", `{"type": "per_km", "min_riide": -1}`},
		{"malformed json", `{"type": "flat"`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := factory.ParsePolicy([]byte(tc.json))
			assert.Error(t, err)
		})
	}
}

func TestParsePolicyFile_MissingFile(t *testing.T) {
	_, err := factory.ParsePolicyFile("/nonexistent/policy.json")
	assert.Error(t, err)
}

func TestParsePolicyFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"type": "flat", "riide_per_ride": 3.0}`), 0o644))

	p, err := factory.ParsePolicyFile(path)
	require.NoError(t, err)
	assert.True(t, dec("3").Equal(p.(ride.FlatPolicy).RiidePerRide))
}
