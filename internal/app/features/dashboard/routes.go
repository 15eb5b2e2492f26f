// internal/app/features/dashboard/routes.go
package dashboard

import (
	"github.com/dalemusser/copilotbilling/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes wires the dashboard pages under whatever mount point the
// top-level router chooses (e.g., "/dashboard").
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Get("/", h.ServeIndex)
		pr.Get("/business-units", h.ServeBusinessUnits)
		pr.Get("/business-unit/{unit}", h.ServeBusinessUnit)
		pr.Get("/organization/{id}", h.ServeOrganization)
		pr.Get("/select-organization", h.ServeSelectOrganization)
	})

	return r
}
