/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the portal frontend

ROUTE GROUPS:
  /api/employees/{id}/dtr*  Reconciled reports and raw logs
  /api/cdo/*                Credit ledger
  /api/holidays/*           Calendar admin
  /health, /metrics         Operations

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public;
  deployments front this with the portal's gateway.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   allowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
		}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/employees/{id}", func(r chi.Router) {
			r.Get("/dtr", h.GetDTR)
			r.Get("/dtr/raw", h.GetRawLogs)
		})

		r.Route("/cdo", func(r chi.Router) {
			r.Get("/", h.ListCDO)
			r.Post("/", h.CreateCDO)
			r.Put("/{id}/status", h.SetCDOStatus)
			r.Get("/{id}/entries", h.ListCDOEntries)
			r.Post("/{id}/consume", h.ConsumeCDO)

			r.Route("/entries/{id}", func(r chi.Router) {
				r.Put("/", h.EditCDOEntry)
				r.Put("/status", h.SetCDOEntryStatus)
				r.Delete("/", h.CancelCDOEntry)
			})
		})

		r.Route("/holidays", func(r chi.Router) {
			r.Get("/", h.ListHolidays)
			r.Post("/", h.CreateHoliday)
			r.Delete("/{id}", h.DeleteHoliday)
		})
	})

	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
