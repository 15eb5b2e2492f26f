// internal/app/features/billing/records.go
package billing

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/copilotbilling/internal/app/store/queries/billingreports"
	"github.com/dalemusser/copilotbilling/internal/app/system/respond"
	"github.com/dalemusser/copilotbilling/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// History lists one organization's records, newest period first.
//
// Route: GET /api/billing/organization/{organizationId}
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	orgID, ok := objectIDParam(w, r, "organizationId", "organization")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	history, err := h.Billings.History(ctx, orgID)
	if err != nil {
		respond.ServerError(w, h.Log, "Error loading billing history", err, zap.String("org_id", orgID.Hex()))
		return
	}
	respond.OK(w, history)
}

// Get returns one record with its organization's name, login and avatar.
//
// Route: GET /api/billing/{billingId}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := objectIDParam(w, r, "billingId", "billing")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	row, err := billingreports.BillingWithOrganization(ctx, h.DB, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		respond.NotFound(w, msgBillingNotFound)
		return
	}
	if err != nil {
		respond.ServerError(w, h.Log, "Error loading billing details", err, zap.String("billing_id", id.Hex()))
		return
	}
	respond.OK(w, row)
}

// Pending lists every pending record across organizations, oldest billing
// date first.
//
// Route: GET /api/billing/status/pending
func (h *Handler) Pending(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rows, err := billingreports.PendingWithOrganization(ctx, h.DB, 0)
	if err != nil {
		respond.ServerError(w, h.Log, "Error listing pending bills", err)
		return
	}
	respond.OK(w, rows)
}
