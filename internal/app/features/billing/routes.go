// internal/app/features/billing/routes.go
package billing

import (
	"github.com/dalemusser/copilotbilling/internal/app/system/auth"
	"github.com/dalemusser/copilotbilling/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the billing API (typically under "/api/billing").
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Get("/organization/{organizationId}", h.History)
	r.Get("/reports/generate", h.Report)
	r.Get("/status/pending", h.Pending)
	r.Get("/{billingId}", h.Get)

	// Sync and payment status: admins and managers
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireRole(models.RoleAdmin, models.RoleManager))

		pr.Post("/sync/{organizationId}", h.Sync)
		pr.Patch("/{billingId}/status", h.UpdateStatus)
	})

	return r
}
