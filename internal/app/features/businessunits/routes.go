// internal/app/features/businessunits/routes.go
package businessunits

import (
	"github.com/dalemusser/copilotbilling/internal/app/system/auth"
	"github.com/dalemusser/copilotbilling/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the business-unit API (typically under "/api/business-units").
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Get("/", h.List)
	r.Get("/stats", h.Stats)
	r.With(sm.RequireRole(models.RoleAdmin)).Put("/reassign", h.Reassign)
	r.Get("/{unit}", h.Detail)

	return r
}
