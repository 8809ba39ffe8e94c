/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client address from proxy headers
  3. Logger:     Request logging
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. Timeout:    Cancels the request context after RequestTimeout
  6. CORS:       Cross-origin requests for the frontend

ROUTE GROUPS:
  /api/calculations     Ad-hoc engine runs
  /api/entries          Timesheet submissions
  /api/config           Tenant billing config
  /api/holidays         Public holidays
  /api/reports          Fleet reports
  /api/assets/*         Per-asset reports
  /api/scenarios/*      Demo scenarios
  /healthz              Liveness

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RequestTimeout bounds every API request.
const RequestTimeout = 30 * time.Second

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", TenantHeader},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Post("/calculations", h.Calculate)

		// Entry routes
		r.Route("/entries", func(r chi.Router) {
			r.Get("/", h.ListEntries)
			r.Post("/", h.SubmitEntry)
		})

		// Config routes
		r.Route("/config", func(r chi.Router) {
			r.Get("/", h.GetConfig)
			r.Put("/", h.PutConfig)
		})

		// Holiday routes
		r.Route("/holidays", func(r chi.Router) {
			r.Get("/", h.ListHolidays)
			r.Post("/", h.CreateHoliday)
		})

		// Report routes
		r.Get("/reports", h.GetFleetReport)
		r.Get("/assets/{id}/report", h.GetAssetReport)

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}
