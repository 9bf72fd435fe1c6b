package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Get("/health", h.Health)
	r.Get("/health/ready", h.Ready)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"version": h.Version})
		})

		// Workflow instances
		r.Post("/instances", h.CreateInstance)
		r.Get("/instances", h.ListInstances)
		r.Get("/instances/{id}", h.GetInstance)
		r.Get("/instances/{id}/state", h.GetInstanceState)

		// Events
		r.Post("/instances/{id}/events", h.SubmitEvent)
		r.Get("/instances/{id}/events", h.ListInstanceEvents)

		// Human replies to QUESTION / INSTRUCTION / CRITICAL_ISSUE messages
		r.Post("/instances/{id}/input", h.SubmitHumanInput)
	})
}
