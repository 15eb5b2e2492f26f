// internal/app/features/organizations/routes.go
package organizations

import (
	"github.com/dalemusser/copilotbilling/internal/app/system/auth"
	"github.com/dalemusser/copilotbilling/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the organization API (typically under "/api/organizations").
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/members", h.Members)
	r.Get("/{id}/copilot/seats", h.Seats)

	// Admin-only mutations
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireRole(models.RoleAdmin))

		pr.Post("/", h.Create)
		pr.Patch("/{id}", h.Update)
		pr.Patch("/{id}/token", h.UpdateToken)
		pr.Delete("/{id}", h.Delete)

		pr.Post("/{id}/copilot/seats", h.AssignSeat)
		pr.Delete("/{id}/copilot/seats/{username}", h.RemoveSeat)
	})

	return r
}
