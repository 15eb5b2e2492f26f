// internal/app/features/organizations/delete.go
package organizations

import (
	"context"
	"net/http"

	"github.com/dalemusser/copilotbilling/internal/app/system/respond"
	"github.com/dalemusser/copilotbilling/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Delete removes an organization. Its billing records are kept.
//
// Route: DELETE /api/organizations/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := orgID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	n, err := h.Orgs.Delete(ctx, id)
	if err != nil {
		respond.ServerError(w, h.Log, "Error removing organization", err, zap.String("org_id", id.Hex()))
		return
	}
	if n == 0 {
		respond.NotFound(w, msgNotFound)
		return
	}

	h.Audit.OrgDeleted(ctx, r, actorID(r), id)
	respond.Done(w, http.StatusOK, "Organization removed", nil)
}
