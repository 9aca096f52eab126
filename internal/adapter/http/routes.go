package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/conciergehq/lifecycle/internal/config"
	"github.com/conciergehq/lifecycle/internal/middleware"
)

// MountRoutes registers all routes on the given chi router. The check
// endpoints require the trigger token when one is configured.
func MountRoutes(r chi.Router, h *Handlers, cfg config.Server) {
	r.MethodNotAllowed(methodNotAllowed)
	r.NotFound(notFound)

	trigger := middleware.TriggerToken(cfg.TriggerTokenHash)

	r.Get("/health", h.Health)
	r.With(trigger).Get("/check-subscriptions", h.CheckSubscriptions)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"version": Version})
		})

		r.Route("/lifecycle", func(r chi.Router) {
			r.With(trigger).Get("/check", h.CheckSubscriptions)
			r.With(trigger).Get("/runs", h.ListRuns)
		})

		r.Get("/subscriptions/{tenantID}", h.GetSubscription)
	})
}

// Version is reported by GET /api/v1/.
var Version = "0.1.0"
