// internal/app/features/businessunits/reassign.go
package businessunits

import (
	"context"
	"net/http"

	"github.com/dalemusser/copilotbilling/internal/app/system/auth"
	"github.com/dalemusser/copilotbilling/internal/app/system/htmlsanitize"
	"github.com/dalemusser/copilotbilling/internal/app/system/inputval"
	"github.com/dalemusser/copilotbilling/internal/app/system/normalize"
	"github.com/dalemusser/copilotbilling/internal/app/system/respond"
	"github.com/dalemusser/copilotbilling/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type reassignInput struct {
	OrganizationIDs []string `json:"organizationIds" validate:"required,min=1,dive,objectid" label:"Organizations"`
	BusinessUnit    string   `json:"businessUnit" validate:"required,max=100" label:"Business unit"`
}

type reassignResult struct {
	ModifiedCount int64 `json:"modifiedCount"`
}

// Reassign moves many organizations into one business unit. The update is
// not transactional; modifiedCount reports how many actually changed.
//
// Route: PUT /api/business-units/reassign
func (h *Handler) Reassign(w http.ResponseWriter, r *http.Request) {
	var in reassignInput
	if err := respond.Decode(r, &in); err != nil {
		respond.BadRequest(w, "Invalid request body")
		return
	}
	in.BusinessUnit = normalize.BusinessUnit(htmlsanitize.Plain(in.BusinessUnit))
	if res := inputval.Validate(in); res.HasErrors() {
		respond.Invalid(w, res)
		return
	}

	ids := make([]primitive.ObjectID, 0, len(in.OrganizationIDs))
	for _, raw := range in.OrganizationIDs {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			respond.BadRequest(w, "Invalid organization list")
			return
		}
		ids = append(ids, id)
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	modified, err := h.Orgs.SetBusinessUnit(ctx, ids, in.BusinessUnit)
	if err != nil {
		respond.ServerError(w, h.Log, "Error updating business unit", err,
			zap.String("business_unit", in.BusinessUnit), zap.Int("organizations", len(ids)))
		return
	}

	actor := ""
	if u, ok := auth.CurrentUser(r); ok {
		actor = u.ID
	}
	h.Audit.BusinessUnitReassigned(ctx, r, actor, in.BusinessUnit, len(ids), modified)
	respond.Done(w, http.StatusOK, "Business unit updated", reassignResult{ModifiedCount: modified})
}
