/*
handlers.go - HTTP API handlers for the ride and token engine

PURPOSE:
  Exposes the ride lifecycle and the dual-token wallet via REST. Handles
  HTTP request/response, JSON serialization, and delegates to domain
  logic.

ENDPOINTS:
  Rides:
    POST   /api/rides                      Book a ride
    GET    /api/rides/{id}                 Get ride details
    POST   /api/rides/{id}/accept          Driver accepts
    POST   /api/rides/{id}/start           Trip starts
    POST   /api/rides/{id}/complete        Trip completes, rewards issue
    POST   /api/rides/{id}/cancel          Cancel

  Riders:
    GET    /api/riders/{id}/rides          Ride history
    GET    /api/riders/{id}/summary        History aggregates

  Accounts:
    GET    /api/accounts/{id}              Account record
    GET    /api/accounts/{id}/balance      Dual-token balance
    GET    /api/accounts/{id}/transactions Recent ledger entries
    POST   /api/accounts/{id}/spend        Spend tokens

  Fleet:
    GET    /api/vehicles                   Active vehicles
    GET    /api/vehicles/{id}              Vehicle details

  Misc:
    POST   /api/estimate                   Fare/distance estimate
    GET    /api/scenarios                  List demo scenarios
    POST   /api/scenarios/load             Load a demo scenario
    POST   /api/admin/reconcile            Verify projection against ledger

ERROR HANDLING:
  Domain errors map to HTTP status via sentinel checks:
  - 400: Validation errors, invalid entries
  - 404: Unknown ride/account/vehicle
  - 409: Illegal transition, insufficient balance
  - 500: Store failures, projection drift

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - events.go: Websocket feed of confirmed changes
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/riide/ride-engine/ledger"
	"github.com/riide/ride-engine/ride"
	"github.com/riide/ride-engine/routing"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service   *ride.Service
	Tokens    *ledger.Ledger
	Estimator routing.Estimator
	Accounts  ride.AccountDirectory
	Vehicles  ride.VehicleDirectory
	Seeder    Seeder

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler with the given collaborators. seeder
// may be nil; the scenario endpoints then report an error.
func NewHandler(service *ride.Service, tokens *ledger.Ledger, estimator routing.Estimator, accounts ride.AccountDirectory, vehicles ride.VehicleDirectory, seeder Seeder) *Handler {
	return &Handler{
		Service:   service,
		Tokens:    tokens,
		Estimator: estimator,
		Accounts:  accounts,
		Vehicles:  vehicles,
		Seeder:    seeder,
	}
}

// =============================================================================
// RIDE HANDLERS
// =============================================================================

// CreateRide books a ride in pending state.
func (h *Handler) CreateRide(w http.ResponseWriter, r *http.Request) {
	var req CreateRideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in := ride.CreateInput{
		RiderID:       ledger.AccountID(req.RiderID),
		Pickup:        toLocation(req.Pickup),
		PaymentMethod: ride.PaymentMethod(req.PaymentMethod),
	}
	if req.Destination != nil {
		dest := toLocation(*req.Destination)
		in.Destination = &dest
	}

	est, err := h.estimateFor(r, req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	in.Estimate = est

	created, err := h.Service.Create(r.Context(), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRideDTO(created))
}

// estimateFor resolves the fare/distance for a booking: client-supplied
// numbers win, otherwise the estimator runs when a destination is given.
func (h *Handler) estimateFor(r *http.Request, req CreateRideRequest) (ride.Estimate, error) {
	var est ride.Estimate
	if req.FareAmount != nil || req.DistanceKm != nil || req.DurationMinutes != nil {
		if req.FareAmount != nil {
			est.FareAmount = decimal.NewFromFloat(*req.FareAmount)
		}
		if req.DistanceKm != nil {
			est.DistanceKm = decimal.NewFromFloat(*req.DistanceKm)
		}
		if req.DurationMinutes != nil {
			est.DurationMinutes = *req.DurationMinutes
		}
		return est, nil
	}

	if req.Destination == nil || h.Estimator == nil {
		return est, nil
	}
	computed, err := h.Estimator.Estimate(r.Context(),
		ride.Coordinate{Lat: req.Pickup.Lat, Lng: req.Pickup.Lng},
		ride.Coordinate{Lat: req.Destination.Lat, Lng: req.Destination.Lng})
	if err != nil {
		return est, err
	}
	return computed, nil
}

// GetRide returns a single ride.
func (h *Handler) GetRide(w http.ResponseWriter, r *http.Request) {
	id := ride.RideID(chi.URLParam(r, "id"))

	got, err := h.Service.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRideDTO(got))
}

// AcceptRide transitions pending -> accepted.
func (h *Handler) AcceptRide(w http.ResponseWriter, r *http.Request) {
	id := ride.RideID(chi.URLParam(r, "id"))

	var req AcceptRideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	accepted, err := h.Service.Accept(r.Context(), id,
		ledger.AccountID(req.DriverID), ride.VehicleID(req.VehicleID))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRideDTO(accepted))
}

// StartRide transitions accepted -> in_progress.
func (h *Handler) StartRide(w http.ResponseWriter, r *http.Request) {
	id := ride.RideID(chi.URLParam(r, "id"))

	started, err := h.Service.Start(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRideDTO(started))
}

// CompleteRide transitions in_progress -> completed and issues rewards.
func (h *Handler) CompleteRide(w http.ResponseWriter, r *http.Request) {
	id := ride.RideID(chi.URLParam(r, "id"))

	var req CompleteRideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	completed, err := h.Service.Complete(r.Context(), id,
		decimal.NewFromFloat(req.DistanceKm), req.DurationMinutes)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRideDTO(completed))
}

// CancelRide moves a non-terminal ride to cancelled.
func (h *Handler) CancelRide(w http.ResponseWriter, r *http.Request) {
	id := ride.RideID(chi.URLParam(r, "id"))

	var req CancelRideRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	cancelled, err := h.Service.Cancel(r.Context(), id, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRideDTO(cancelled))
}

// =============================================================================
// RIDER HANDLERS
// =============================================================================

// ListRiderRides returns a rider's ride history.
func (h *Handler) ListRiderRides(w http.ResponseWriter, r *http.Request) {
	riderID := ledger.AccountID(chi.URLParam(r, "id"))

	rides, err := h.Service.RidesFor(r.Context(), riderID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]RideDTO, len(rides))
	for i, rd := range rides {
		dtos[i] = toRideDTO(rd)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetRiderSummary returns history aggregates for a rider.
func (h *Handler) GetRiderSummary(w http.ResponseWriter, r *http.Request) {
	riderID := ledger.AccountID(chi.URLParam(r, "id"))

	summary, err := h.Service.SummaryFor(r.Context(), riderID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SummaryDTO{
		RiderID:       string(riderID),
		TotalRides:    summary.TotalRides,
		TotalSpent:    summary.TotalSpent.InexactFloat64(),
		TotalEarned:   summary.TotalEarned.InexactFloat64(),
		TotalDistance: summary.TotalDistance.InexactFloat64(),
	})
}

// =============================================================================
// ACCOUNT AND WALLET HANDLERS
// =============================================================================

// GetAccount returns an account record, cached balances included.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	accountID := ledger.AccountID(chi.URLParam(r, "id"))

	a, err := h.Accounts.Account(r.Context(), accountID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(a))
}

// GetBalance returns the dual-token balance of an account.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	accountID := ledger.AccountID(chi.URLParam(r, "id"))

	if _, err := h.Accounts.Account(r.Context(), accountID); err != nil {
		writeDomainError(w, err)
		return
	}

	pair := h.Tokens.Balances(accountID)
	writeJSON(w, http.StatusOK, BalanceDTO{
		AccountID: string(accountID),
		Riide:     pair.Riide.InexactFloat64(),
		Evee:      pair.Evee.InexactFloat64(),
	})
}

// GetTransactions returns the newest ledger entries for an account.
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	accountID := ledger.AccountID(chi.URLParam(r, "id"))

	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	entries, err := h.Service.RecentTransactions(r.Context(), accountID, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]TransactionDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toTransactionDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Spend consumes token balance outside a ride.
func (h *Handler) Spend(w http.ResponseWriter, r *http.Request) {
	accountID := ledger.AccountID(chi.URLParam(r, "id"))

	var req SpendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	entry, err := h.Service.Spend(r.Context(), accountID,
		ledger.Token(req.Token), decimal.NewFromFloat(req.Amount), req.Description)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(entry))
}

// =============================================================================
// FLEET HANDLERS
// =============================================================================

// ListVehicles returns all active vehicles.
func (h *Handler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	vehicles, err := h.Vehicles.Active(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]VehicleDTO, len(vehicles))
	for i, v := range vehicles {
		dtos[i] = toVehicleDTO(v)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetVehicle returns a single vehicle.
func (h *Handler) GetVehicle(w http.ResponseWriter, r *http.Request) {
	id := ride.VehicleID(chi.URLParam(r, "id"))

	v, err := h.Vehicles.Vehicle(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toVehicleDTO(v))
}

// =============================================================================
// ESTIMATE HANDLER
// =============================================================================

// GetEstimate returns a fare/distance estimate for a prospective trip.
func (h *Handler) GetEstimate(w http.ResponseWriter, r *http.Request) {
	var req EstimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	est, err := h.Estimator.Estimate(r.Context(),
		ride.Coordinate{Lat: req.Pickup.Lat, Lng: req.Pickup.Lng},
		ride.Coordinate{Lat: req.Destination.Lat, Lng: req.Destination.Lng})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, EstimateDTO{
		FareAmount:      est.FareAmount.InexactFloat64(),
		DistanceKm:      est.DistanceKm.InexactFloat64(),
		DurationMinutes: est.DurationMinutes,
	})
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// Reconcile replays every account's ledger against the cached projection
// and reports drift.
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Accounts.Accounts(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	checked := 0
	var drifted []string
	for _, a := range accounts {
		if err := h.Tokens.Reconcile(r.Context(), a.ID); err != nil {
			if errors.Is(err, ledger.ErrProjectionDrift) {
				drifted = append(drifted, string(a.ID))
				continue
			}
			writeDomainError(w, err)
			return
		}
		checked++
	}

	status := http.StatusOK
	if len(drifted) > 0 {
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]any{
		"checked": checked,
		"drifted": drifted,
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func toLocation(l LocationDTO) ride.Location {
	return ride.Location{
		Coordinate: ride.Coordinate{Lat: l.Lat, Lng: l.Lng},
		Address:    l.Address,
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain errors to HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case ride.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case errors.Is(err, ride.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "Invalid transition", err)
	case errors.Is(err, ledger.ErrInsufficientBalance):
		writeError(w, http.StatusConflict, "Insufficient balance", err)
	case errors.Is(err, ride.ErrValidation), errors.Is(err, ledger.ErrInvalidEntry):
		writeError(w, http.StatusBadRequest, "Invalid request", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}
