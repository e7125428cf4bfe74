package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures the HTTP surface of the admission engine.
func SetupRoutes(h *Handlers, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Route("/accounts/{accountID}", func(r chi.Router) {
			r.Get("/status", h.GetStatus)
			r.Post("/admission", h.CheckAdmission)
			r.Post("/release", h.ReleaseCapacity)
			r.Post("/recipients", h.RegisterRecipient)
			r.Get("/alerts", h.ListAlerts)
		})

		r.Post("/alerts/{alertID}/ack", h.AcknowledgeAlert)
		r.Post("/events/outcome", h.RecordOutcome)
	})

	return r
}
