package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riide/ride-engine/api"
	"github.com/riide/ride-engine/ledger"
	"github.com/riide/ride-engine/ride"
	"github.com/riide/ride-engine/routing"
	"github.com/riide/ride-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type testServer struct {
	*httptest.Server
	store  *memory.Store
	tokens *ledger.Ledger
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := memory.New()
	tokens := ledger.New(store)
	require.NoError(t, tokens.Load(context.Background()))

	store.PutAccount(ride.Account{ID: "rider-1", FullName: "Test Rider", Role: ride.RoleRider})
	store.PutAccount(ride.Account{ID: "driver-1", FullName: "Test Driver", Role: ride.RoleDriver})
	store.PutVehicle(ride.Vehicle{
		ID: "veh-ev", DriverID: "driver-1", Make: "Tesla", Model: "Model 3",
		Type: ride.VehicleEV, Active: true,
	})
	store.PutVehicle(ride.Vehicle{
		ID: "veh-hidden", DriverID: "driver-1", Type: ride.VehicleCar, Active: false,
	})

	service := ride.NewService(store, store, store, tokens, nil, nil)
	handler := api.NewHandler(service, tokens, routing.NewStandardEstimator(), store, store, store)

	srv := httptest.NewServer(api.NewRouter(handler, nil))
	t.Cleanup(srv.Close)

	return &testServer{Server: srv, store: store, tokens: tokens}
}

func (ts *testServer) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	resp, err := http.Post(ts.URL+path, "application/json", &buf)
	require.NoError(t, err)
	return resp
}

func (ts *testServer) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// bookRide creates a pending ride over HTTP and returns its id.
func (ts *testServer) bookRide(t *testing.T) string {
	t.Helper()
	resp := ts.post(t, "/api/rides", map[string]any{
		"rider_id": "rider-1",
		"pickup":   map[string]any{"lat": 51.5074, "lng": -0.1278, "address": "Trafalgar Square"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody[map[string]any](t, resp)
	return created["id"].(string)
}

// =============================================================================
// RIDE FLOW TESTS
// =============================================================================

func TestAPI_FullRideFlow(t *testing.T) {
	// GIVEN: A seeded city
	// WHEN: Driving a ride through book -> accept -> start -> complete
	// THEN: Each step returns the new status and completion pays rewards

	ts := newTestServer(t)
	id := ts.bookRide(t)

	resp := ts.post(t, "/api/rides/"+id+"/accept", map[string]any{
		"driver_id": "driver-1", "vehicle_id": "veh-ev",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	accepted := decodeBody[map[string]any](t, resp)
	assert.Equal(t, "accepted", accepted["status"])
	assert.Equal(t, "driver-1", accepted["driver_id"])

	resp = ts.post(t, "/api/rides/"+id+"/start", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	started := decodeBody[map[string]any](t, resp)
	assert.Equal(t, "in_progress", started["status"])

	resp = ts.post(t, "/api/rides/"+id+"/complete", map[string]any{
		"distance_km": 5.2, "duration_minutes": 18,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	completed := decodeBody[map[string]any](t, resp)
	assert.Equal(t, "completed", completed["status"])
	assert.InDelta(t, 2.5, completed["riide_earned"].(float64), 1e-9)
	assert.InDelta(t, 1.8, completed["evee_earned"].(float64), 1e-9)
	assert.NotEmpty(t, completed["completed_at"])

	// The wallet reflects the reward.
	resp = ts.get(t, "/api/accounts/rider-1/balance")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	balance := decodeBody[map[string]any](t, resp)
	assert.InDelta(t, 2.5, balance["riide_balance"].(float64), 1e-9)
	assert.InDelta(t, 1.8, balance["evee_balance"].(float64), 1e-9)
}

func TestAPI_CreateWithDestinationEstimates(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.post(t, "/api/rides", map[string]any{
		"rider_id":    "rider-1",
		"pickup":      map[string]any{"lat": 51.5080, "lng": -0.1281},
		"destination": map[string]any{"lat": 51.5390, "lng": -0.1426, "address": "Camden Town"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	created := decodeBody[map[string]any](t, resp)
	assert.Greater(t, created["fare_amount"].(float64), 0.0)
	assert.Greater(t, created["distance_km"].(float64), 0.0)
	require.NotNil(t, created["destination"])
}

func TestAPI_ClientSuppliedFareWins(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.post(t, "/api/rides", map[string]any{
		"rider_id":    "rider-1",
		"pickup":      map[string]any{"lat": 51.5080, "lng": -0.1281},
		"destination": map[string]any{"lat": 51.5390, "lng": -0.1426},
		"fare_amount": 9.99, "distance_km": 3.3, "duration_minutes": 12,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	created := decodeBody[map[string]any](t, resp)
	assert.InDelta(t, 9.99, created["fare_amount"].(float64), 1e-9)
	assert.InDelta(t, 3.3, created["distance_km"].(float64), 1e-9)
}

func TestAPI_CancelWithAndWithoutBody(t *testing.T) {
	ts := newTestServer(t)

	id := ts.bookRide(t)
	resp := ts.post(t, "/api/rides/"+id+"/cancel", map[string]any{"reason": "changed plans"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cancelled := decodeBody[map[string]any](t, resp)
	assert.Equal(t, "cancelled", cancelled["status"])
	assert.Equal(t, "changed plans", cancelled["cancellation_reason"])

	// Cancel again, idempotent, empty body.
	resp = ts.post(t, "/api/rides/"+id+"/cancel", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	again := decodeBody[map[string]any](t, resp)
	assert.Equal(t, "changed plans", again["cancellation_reason"])
}

// =============================================================================
// ERROR MAPPING TESTS
// =============================================================================

func TestAPI_ErrorStatusMapping(t *testing.T) {
	ts := newTestServer(t)

	// 404: unknown ride
	resp := ts.get(t, "/api/rides/ride-nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// 400: booking for an unknown rider
	resp = ts.post(t, "/api/rides", map[string]any{
		"rider_id": "rider-ghost",
		"pickup":   map[string]any{"lat": 1.0, "lng": 1.0},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// 409: starting a pending ride
	id := ts.bookRide(t)
	resp = ts.post(t, "/api/rides/"+id+"/start", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	body := decodeBody[map[string]any](t, resp)
	assert.Equal(t, "Invalid transition", body["error"])

	// 409: spending more than the balance
	resp = ts.post(t, "/api/accounts/rider-1/spend", map[string]any{
		"token_type": "riide", "amount": 50.0, "description": "Upgrade",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// 404: balance of an unknown account
	resp = ts.get(t, "/api/accounts/nobody/balance")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

// =============================================================================
// WALLET ENDPOINT TESTS
// =============================================================================

func completeEVRide(t *testing.T, ts *testServer) string {
	t.Helper()
	id := ts.bookRide(t)
	for _, step := range []struct {
		path string
		body any
	}{
		{"/accept", map[string]any{"driver_id": "driver-1", "vehicle_id": "veh-ev"}},
		{"/start", nil},
		{"/complete", map[string]any{"distance_km": 5.2, "duration_minutes": 18}},
	} {
		resp := ts.post(t, "/api/rides/"+id+step.path, step.body)
		require.Equal(t, http.StatusOK, resp.StatusCode, step.path)
		resp.Body.Close()
	}
	return id
}

func TestAPI_TransactionsNewestFirst(t *testing.T) {
	ts := newTestServer(t)
	rideID := completeEVRide(t, ts)

	resp := ts.post(t, "/api/accounts/rider-1/spend", map[string]any{
		"token_type": "riide", "amount": 1.0, "description": "Priority pickup",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	spend := decodeBody[map[string]any](t, resp)
	assert.Equal(t, "spend", spend["transaction_type"])
	assert.InDelta(t, 1.5, spend["balance_after"].(float64), 1e-9)

	resp = ts.get(t, "/api/accounts/rider-1/transactions")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	txs := decodeBody[[]map[string]any](t, resp)
	require.Len(t, txs, 3)
	assert.Equal(t, "spend", txs[0]["transaction_type"])
	assert.Equal(t, rideID, txs[1]["ride_id"])
	assert.Equal(t, rideID, txs[2]["ride_id"])

	// Limit applies.
	resp = ts.get(t, "/api/accounts/rider-1/transactions?limit=1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	txs = decodeBody[[]map[string]any](t, resp)
	assert.Len(t, txs, 1)

	// Negative limit is rejected.
	resp = ts.get(t, "/api/accounts/rider-1/transactions?limit=-1")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

// =============================================================================
// RIDER / FLEET / MISC ENDPOINT TESTS
// =============================================================================

func TestAPI_RiderHistoryAndSummary(t *testing.T) {
	ts := newTestServer(t)
	completeEVRide(t, ts)
	id := ts.bookRide(t)
	resp := ts.post(t, "/api/rides/"+id+"/cancel", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = ts.get(t, "/api/riders/rider-1/rides")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rides := decodeBody[[]map[string]any](t, resp)
	require.Len(t, rides, 2)
	assert.Equal(t, "completed", rides[0]["status"])
	assert.Equal(t, "cancelled", rides[1]["status"])

	resp = ts.get(t, "/api/riders/rider-1/summary")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	summary := decodeBody[map[string]any](t, resp)
	assert.Equal(t, float64(2), summary["total_rides"])
	assert.InDelta(t, 4.3, summary["total_earned"].(float64), 1e-9)
}

func TestAPI_GetAccount(t *testing.T) {
	ts := newTestServer(t)
	completeEVRide(t, ts)

	resp := ts.get(t, "/api/accounts/rider-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	account := decodeBody[map[string]any](t, resp)
	assert.Equal(t, "Test Rider", account["full_name"])
	assert.Equal(t, "rider", account["role"])
	// Cached balance columns track the ledger.
	assert.InDelta(t, 2.5, account["riide_balance"].(float64), 1e-9)
	assert.InDelta(t, 1.8, account["evee_balance"].(float64), 1e-9)

	resp = ts.get(t, "/api/accounts/nobody")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestAPI_VehiclesListOnlyActive(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.get(t, "/api/vehicles")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	vehicles := decodeBody[[]map[string]any](t, resp)
	require.Len(t, vehicles, 1)
	assert.Equal(t, "veh-ev", vehicles[0]["id"])
	assert.Equal(t, "ev", vehicles[0]["vehicle_type"])

	resp = ts.get(t, "/api/vehicles/veh-hidden")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	hidden := decodeBody[map[string]any](t, resp)
	assert.Equal(t, false, hidden["active"])
}

func TestAPI_Estimate(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.post(t, "/api/estimate", map[string]any{
		"pickup":      map[string]any{"lat": 51.5080, "lng": -0.1281},
		"destination": map[string]any{"lat": 51.5390, "lng": -0.1426},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	est := decodeBody[map[string]any](t, resp)
	assert.Greater(t, est["fare_amount"].(float64), 0.0)
	assert.Greater(t, est["distance_km"].(float64), 0.0)
	assert.Greater(t, est["duration_minutes"].(float64), 0.0)
}

func TestAPI_ReconcileCleanLedger(t *testing.T) {
	ts := newTestServer(t)
	completeEVRide(t, ts)

	resp := ts.post(t, "/api/admin/reconcile", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	report := decodeBody[map[string]any](t, resp)
	assert.Equal(t, float64(2), report["checked"])
	assert.Empty(t, report["drifted"])
}

// =============================================================================
// SCENARIO ENDPOINT TESTS
// =============================================================================

func TestAPI_LoadScenario(t *testing.T) {
	// GIVEN: A server with existing state
	// WHEN: Loading the launch demo
	// THEN: The demo rider's balance comes entirely from replayed entries

	ts := newTestServer(t)
	completeEVRide(t, ts)

	resp := ts.get(t, "/api/scenarios")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decodeBody[[]map[string]any](t, resp)
	require.NotEmpty(t, list)

	resp = ts.post(t, "/api/scenarios/load", map[string]any{"scenario_id": "launch-demo"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = ts.get(t, "/api/scenarios/current")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	current := decodeBody[map[string]any](t, resp)
	assert.Equal(t, "launch-demo", current["scenario_id"])

	// Pre-scenario state is gone; demo state is in place.
	resp = ts.get(t, "/api/accounts/rider-alex/balance")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	balance := decodeBody[map[string]any](t, resp)
	assert.InDelta(t, 125.75, balance["riide_balance"].(float64), 1e-9)
	assert.InDelta(t, 45.20, balance["evee_balance"].(float64), 1e-9)

	resp = ts.get(t, "/api/accounts/rider-1/balance")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// The demo ledger reconciles cleanly.
	resp = ts.post(t, "/api/admin/reconcile", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestAPI_LoadUnknownScenario(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.post(t, "/api/scenarios/load", map[string]any{"scenario_id": "mars-colony"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

// Sanity check on the JSON error envelope shape.
func TestAPI_ErrorEnvelope(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.get(t, "/api/rides/ride-nope")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	envelope := decodeBody[map[string]any](t, resp)
	assert.Equal(t, "Not found", envelope["error"])
	assert.Contains(t, fmt.Sprint(envelope["details"]), "ride-nope")
}
