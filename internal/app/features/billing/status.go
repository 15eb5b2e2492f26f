// internal/app/features/billing/status.go
package billing

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	billingstore "github.com/dalemusser/copilotbilling/internal/app/store/billings"
	"github.com/dalemusser/copilotbilling/internal/app/system/htmlsanitize"
	"github.com/dalemusser/copilotbilling/internal/app/system/inputval"
	"github.com/dalemusser/copilotbilling/internal/app/system/normalize"
	"github.com/dalemusser/copilotbilling/internal/app/system/respond"
	"github.com/dalemusser/copilotbilling/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type statusInput struct {
	Status           string  `json:"status" validate:"required,billingstatus" label:"Status"`
	PaymentReference *string `json:"paymentReference" validate:"omitempty,max=200" label:"Payment reference"`
	Notes            *string `json:"notes" validate:"omitempty,max=4000" label:"Notes"`
}

type statusResult struct {
	ID               string     `json:"id"`
	Status           string     `json:"status"`
	PaidAt           *time.Time `json:"paidAt"`
	PaymentReference string     `json:"paymentReference,omitempty"`
	Notes            string     `json:"notes,omitempty"`
}

// UpdateStatus sets a record's payment status. paid stamps paidAt; pending
// and overdue clear it. Optional paymentReference and notes are sanitized
// before they are stored: the reference as plain text, notes keeping basic
// formatting. Plain-text notes are stored as typed and escaped on display.
//
// Route: PATCH /api/billing/{billingId}/status
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := objectIDParam(w, r, "billingId", "billing")
	if !ok {
		return
	}
	var in statusInput
	if err := respond.Decode(r, &in); err != nil {
		respond.BadRequest(w, "Invalid request body")
		return
	}
	in.Status = normalize.Status(in.Status)
	if res := inputval.Validate(in); res.HasErrors() {
		respond.Invalid(w, res)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	before, err := h.Billings.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		respond.NotFound(w, msgBillingNotFound)
		return
	}
	if err != nil {
		respond.ServerError(w, h.Log, "Error updating billing status", err, zap.String("billing_id", id.Hex()))
		return
	}

	ch := billingstore.StatusChange{Status: in.Status}
	if in.PaymentReference != nil {
		ref := htmlsanitize.Plain(*in.PaymentReference)
		ch.PaymentReference = &ref
	}
	if in.Notes != nil {
		notes := strings.TrimSpace(*in.Notes)
		if !htmlsanitize.IsPlainText(notes) {
			notes = htmlsanitize.Sanitize(notes)
		}
		ch.Notes = &notes
	}

	after, err := h.Billings.UpdateStatus(ctx, id, ch, time.Now())
	if errors.Is(err, mongo.ErrNoDocuments) {
		respond.NotFound(w, msgBillingNotFound)
		return
	}
	if err != nil {
		respond.ServerError(w, h.Log, "Error updating billing status", err, zap.String("billing_id", id.Hex()))
		return
	}

	h.Metrics.StatusChanged(after.Status)
	h.Audit.BillingStatusChanged(ctx, r, actorID(r), after.ID, after.OrganizationID, before.Status, after.Status)
	respond.Done(w, http.StatusOK, "Billing status updated", statusResult{
		ID:               after.ID.Hex(),
		Status:           after.Status,
		PaidAt:           after.PaidAt,
		PaymentReference: after.PaymentReference,
		Notes:            after.Notes,
	})
}
