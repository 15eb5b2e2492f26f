// internal/app/features/businessunits/list.go
package businessunits

import (
	"context"
	"net/http"

	"github.com/dalemusser/copilotbilling/internal/app/store/queries/billingreports"
	"github.com/dalemusser/copilotbilling/internal/app/system/respond"
	"github.com/dalemusser/copilotbilling/internal/app/system/timeouts"
	"github.com/dalemusser/copilotbilling/internal/domain/reporting"
)

// List groups every organization by business unit, units alphabetical.
//
// Route: GET /api/business-units
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	orgs, err := h.Orgs.List(ctx, "")
	if err != nil {
		respond.ServerError(w, h.Log, "Error listing business units", err)
		return
	}
	respond.OK(w, reporting.GroupOrganizationsByUnit(orgs))
}

// Stats totals billing per business unit, largest total first.
//
// Route: GET /api/business-units/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	stats, err := billingreports.UnitsStats(ctx, h.DB)
	if err != nil {
		respond.ServerError(w, h.Log, "Error loading business unit statistics", err)
		return
	}
	respond.OK(w, stats)
}
