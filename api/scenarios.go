/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:
  Provides pre-built scenarios that populate the store with realistic
  data for testing and demos. Each scenario creates accounts, vehicles,
  and rides that demonstrate specific features.

AVAILABLE SCENARIOS:
  launch-demo: Rider with token history, EV fleet, completed and
               cancelled rides
  empty-city:  Accounts and fleet only, no ride history

HOW SCENARIOS WORK:
 1. Reset the store (clear all data) and reload the ledger projection
 2. Seed accounts and vehicles
 3. Seed non-ride token grants through the ledger
 4. Drive historical rides through the real lifecycle, so rewards issue
    exactly as they would in production

USAGE VIA API:
  POST /api/scenarios/load
  {"scenario_id": "launch-demo"}

NOTE:
  Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Shared handler helpers
  - ride/lifecycle.go: The lifecycle the loaders drive
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/riide/ride-engine/ledger"
	"github.com/riide/ride-engine/ride"
)

// Seeder is the store surface scenario loading needs beyond the domain
// interfaces. Both the sqlite and memory stores implement it.
type Seeder interface {
	Reset(ctx context.Context) error
	SaveAccount(ctx context.Context, a ride.Account) error
	SaveVehicle(ctx context.Context, v ride.Vehicle) error
}

// =============================================================================
// SCENARIO CATALOG
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "launch-demo",
		Name:        "Launch Demo",
		Description: "A rider with token history, an EV fleet, and completed, cancelled, and pending rides",
	},
	{
		ID:          "empty-city",
		Name:        "Empty City",
		Description: "Accounts and fleet only - no ride history, zero balances",
	},
}

// ListScenarios returns the scenario catalog.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the most recently loaded scenario id.
// GET /api/scenarios/current
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"scenario_id": h.currentScenario})
}

// LoadScenario resets the store and loads a demo scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	if h.Seeder == nil {
		writeError(w, http.StatusInternalServerError, "Scenario loading is not configured", nil)
		return
	}

	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	if err := h.Seeder.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset store", err)
		return
	}
	// Resync the projection with the now-empty ledger.
	if err := h.Tokens.Load(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reload ledger", err)
		return
	}

	var err error
	switch req.ScenarioID {
	case "launch-demo":
		err = loadLaunchDemo(ctx, h)
	case "empty-city":
		err = loadEmptyCity(ctx, h)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown scenario: %s", req.ScenarioID), nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.currentScenario = req.ScenarioID
	writeJSON(w, http.StatusOK, map[string]string{
		"status":      "loaded",
		"scenario_id": req.ScenarioID,
	})
}

// =============================================================================
// SHARED SEED DATA
// =============================================================================

func intPtr(n int) *int { return &n }

// seedCity creates the shared cast: one rider, three drivers, and their
// vehicles (two EVs, one petrol car).
func seedCity(ctx context.Context, h *Handler) error {
	accounts := []ride.Account{
		{ID: "rider-alex", FullName: "Alex Morgan", Email: "alex@riide.app", Role: ride.RoleRider, WalletAddress: "0x7f3a9b2c", Verified: true},
		{ID: "driver-sara", FullName: "Sara Kim", Email: "sara@riide.app", Role: ride.RoleDriver, Verified: true},
		{ID: "driver-tom", FullName: "Tom Weber", Email: "tom@riide.app", Role: ride.RoleDriver, Verified: true},
		{ID: "driver-nina", FullName: "Nina Patel", Email: "nina@riide.app", Role: ride.RoleDriver, Verified: true},
	}
	for _, a := range accounts {
		if err := h.Seeder.SaveAccount(ctx, a); err != nil {
			return fmt.Errorf("seed account %s: %w", a.ID, err)
		}
	}

	vehicles := []ride.Vehicle{
		{
			ID: "veh-tesla", DriverID: "driver-sara",
			Make: "Tesla", Model: "Model 3", Year: 2023, Color: "White",
			Type: ride.VehicleEV, LicensePlate: "EV-001", Active: true,
			Position:     ride.Coordinate{Lat: 51.5074, Lng: -0.1278},
			BatteryLevel: intPtr(87),
		},
		{
			ID: "veh-leaf", DriverID: "driver-tom",
			Make: "Nissan", Model: "Leaf", Year: 2022, Color: "Blue",
			Type: ride.VehicleEV, LicensePlate: "EV-002", Active: true,
			Position:     ride.Coordinate{Lat: 51.5155, Lng: -0.1419},
			BatteryLevel: intPtr(64),
		},
		{
			ID: "veh-corolla", DriverID: "driver-nina",
			Make: "Toyota", Model: "Corolla", Year: 2021, Color: "Silver",
			Type: ride.VehicleCar, LicensePlate: "RD-103", Active: true,
			Position: ride.Coordinate{Lat: 51.4975, Lng: -0.1357},
		},
	}
	for _, v := range vehicles {
		if err := h.Seeder.SaveVehicle(ctx, v); err != nil {
			return fmt.Errorf("seed vehicle %s: %w", v.ID, err)
		}
	}
	return nil
}

// =============================================================================
// SCENARIO: launch-demo
// =============================================================================

// loadLaunchDemo seeds the full demo: signup bonuses through the ledger,
// one completed EV ride (which issues 2.5 RIIDE + 1.8 EVEE), one
// cancelled ride, and one still pending.
//
// Resulting rider balance: 100 + 23.25 + 2.5 = 125.75 RIIDE,
// 43.40 + 1.8 = 45.20 EVEE.
func loadLaunchDemo(ctx context.Context, h *Handler) error {
	if err := seedCity(ctx, h); err != nil {
		return err
	}

	grants := []ledger.Entry{
		{AccountID: "rider-alex", Token: ledger.TokenRiide, Type: ledger.EntryEarn,
			Amount: decimal.RequireFromString("100"), Description: "Welcome bonus"},
		{AccountID: "rider-alex", Token: ledger.TokenRiide, Type: ledger.EntryEarn,
			Amount: decimal.RequireFromString("23.25"), Description: "Referral bonus"},
		{AccountID: "rider-alex", Token: ledger.TokenEvee, Type: ledger.EntryEarn,
			Amount: decimal.RequireFromString("43.40"), Description: "Green signup bonus"},
	}
	for _, g := range grants {
		if _, err := h.Tokens.Append(ctx, g); err != nil {
			return fmt.Errorf("seed grant %q: %w", g.Description, err)
		}
	}

	// Completed EV trip, driven through the real lifecycle.
	completed, err := h.Service.Create(ctx, ride.CreateInput{
		RiderID: "rider-alex",
		Pickup: ride.Location{
			Coordinate: ride.Coordinate{Lat: 51.5074, Lng: -0.1278},
			Address:    "Trafalgar Square",
		},
		Destination: &ride.Location{
			Coordinate: ride.Coordinate{Lat: 51.5414, Lng: -0.1432},
			Address:    "Camden Market",
		},
		PaymentMethod: ride.PayRiideToken,
		Estimate: ride.Estimate{
			FareAmount:      decimal.RequireFromString("12.50"),
			DistanceKm:      decimal.RequireFromString("5.2"),
			DurationMinutes: 18,
		},
	})
	if err != nil {
		return err
	}
	if _, err := h.Service.Accept(ctx, completed.ID, "driver-sara", "veh-tesla"); err != nil {
		return err
	}
	if _, err := h.Service.Start(ctx, completed.ID); err != nil {
		return err
	}
	if _, err := h.Service.Complete(ctx, completed.ID, decimal.RequireFromString("5.2"), 18); err != nil {
		return err
	}

	// Cancelled before pickup.
	cancelled, err := h.Service.Create(ctx, ride.CreateInput{
		RiderID: "rider-alex",
		Pickup: ride.Location{
			Coordinate: ride.Coordinate{Lat: 51.5155, Lng: -0.1419},
			Address:    "Oxford Circus",
		},
		PaymentMethod: ride.PayEveeToken,
		Estimate: ride.Estimate{
			FareAmount: decimal.RequireFromString("8.75"),
			DistanceKm: decimal.RequireFromString("3.1"),
		},
	})
	if err != nil {
		return err
	}
	if _, err := h.Service.Cancel(ctx, cancelled.ID, "Changed plans"); err != nil {
		return err
	}

	// Still waiting for a driver.
	_, err = h.Service.Create(ctx, ride.CreateInput{
		RiderID: "rider-alex",
		Pickup: ride.Location{
			Coordinate: ride.Coordinate{Lat: 51.4975, Lng: -0.1357},
			Address:    "Westminster",
		},
		Destination: &ride.Location{
			Coordinate: ride.Coordinate{Lat: 51.5033, Lng: -0.1196},
			Address:    "Waterloo Station",
		},
		PaymentMethod: ride.PayFiat,
		Estimate: ride.Estimate{
			FareAmount:      decimal.RequireFromString("6.40"),
			DistanceKm:      decimal.RequireFromString("1.9"),
			DurationMinutes: 9,
		},
	})
	return err
}

// =============================================================================
// SCENARIO: empty-city
// =============================================================================

func loadEmptyCity(ctx context.Context, h *Handler) error {
	return seedCity(ctx, h)
}
