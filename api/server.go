/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers. The HTTP
  surface is presentation glue over the engine; nothing here carries
  business rules.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the dashboard frontend

SECURITY NOTE:
  The X-Firm header stands in for a real identity provider. No
  authentication middleware is wired here.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Firm"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Invoice routes
		r.Route("/invoices", func(r chi.Router) {
			r.Get("/", h.ListInvoices)
			r.Post("/", h.CreateInvoice)
			r.Get("/{id}", h.GetInvoice)
			r.Patch("/{id}", h.UpdateInvoice)
			r.Delete("/{id}", h.DeleteInvoice)
			r.Post("/{id}/toggle-paid", h.TogglePaid)
		})

		// Quarter summary routes
		r.Route("/quarters", func(r chi.Router) {
			r.Get("/", h.ListQuarters)
			r.Get("/{quarterKey}", h.GetQuarter)
			r.Get("/{quarterKey}/yoy", h.GetYearOverYear)
		})

		// Settlement routes
		r.Route("/settlements", func(r chi.Router) {
			r.Post("/", h.Settle)
			r.Get("/{quarterKey}", h.GetSettlement)
			r.Delete("/{quarterKey}", h.Unsettle)
		})

		// Preference routes
		r.Route("/preferences", func(r chi.Router) {
			r.Get("/period", h.GetSelectedPeriod)
			r.Put("/period", h.PutSelectedPeriod)
		})

		// Scenario routes (demo/dev seed data)
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}
