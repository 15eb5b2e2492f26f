// internal/app/features/billing/sync.go
package billing

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/copilotbilling/internal/app/system/billingsync"
	"github.com/dalemusser/copilotbilling/internal/app/system/respond"
	"github.com/dalemusser/copilotbilling/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Sync pulls the current month's Copilot figures for one organization and
// upserts its billing record.
//
// Route: POST /api/billing/sync/{organizationId}
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	orgID, ok := objectIDParam(w, r, "organizationId", "organization")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Sync())
	defer cancel()

	res, err := h.Syncer.Sync(ctx, orgID)
	if errors.Is(err, billingsync.ErrOrganizationNotFound) {
		respond.NotFound(w, msgOrgNotFound)
		return
	}
	if err != nil {
		h.Audit.BillingSyncFailed(r.Context(), r, actorID(r), orgID, err.Error())
		respond.ServerError(w, h.Log, "Error synchronizing billing data", err, zap.String("org_id", orgID.Hex()))
		return
	}

	h.Audit.BillingSynced(r.Context(), r, actorID(r), orgID,
		res.Billing.PeriodKey(), res.Billing.TotalAmount, res.Seats, res.Fallbacks)
	if res.Fallbacks > 0 {
		h.Log.Info("billing synced with seat fallbacks",
			zap.String("org_id", orgID.Hex()),
			zap.Int("seats", res.Seats),
			zap.Int("fallbacks", res.Fallbacks))
	}
	respond.Done(w, http.StatusOK, "Billing data synchronized", res.Billing)
}
