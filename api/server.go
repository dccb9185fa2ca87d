/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the mobile/web frontend

ROUTE GROUPS:
  /api/rides/*      Ride lifecycle
  /api/riders/*     Per-rider history and aggregates
  /api/accounts/*   Wallet operations
  /api/vehicles/*   Fleet directory
  /api/scenarios/*  Demo scenarios
  /api/admin/*      Admin operations
  /ws/riders/{id}   Live event feed

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - events.go: Websocket feed
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured. feed may be
// nil, in which case the websocket route is omitted.
func NewRouter(h *Handler, feed *Feed) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Ride lifecycle
		r.Route("/rides", func(r chi.Router) {
			r.Post("/", h.CreateRide)
			r.Get("/{id}", h.GetRide)
			r.Post("/{id}/accept", h.AcceptRide)
			r.Post("/{id}/start", h.StartRide)
			r.Post("/{id}/complete", h.CompleteRide)
			r.Post("/{id}/cancel", h.CancelRide)
		})

		// Rider history
		r.Route("/riders", func(r chi.Router) {
			r.Get("/{id}/rides", h.ListRiderRides)
			r.Get("/{id}/summary", h.GetRiderSummary)
		})

		// Accounts and wallet
		r.Route("/accounts", func(r chi.Router) {
			r.Get("/{id}", h.GetAccount)
			r.Get("/{id}/balance", h.GetBalance)
			r.Get("/{id}/transactions", h.GetTransactions)
			r.Post("/{id}/spend", h.Spend)
		})

		// Fleet
		r.Route("/vehicles", func(r chi.Router) {
			r.Get("/", h.ListVehicles)
			r.Get("/{id}", h.GetVehicle)
		})

		// Estimation
		r.Post("/estimate", h.GetEstimate)

		// Admin
		r.Route("/admin", func(r chi.Router) {
			r.Post("/reconcile", h.Reconcile)
		})

		// Scenarios
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	// Live event feed
	if feed != nil {
		r.Get("/ws/riders/{id}", feed.ServeRider)
	}

	return r
}
