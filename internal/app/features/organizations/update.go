// internal/app/features/organizations/update.go
package organizations

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	organizationstore "github.com/dalemusser/copilotbilling/internal/app/store/organizations"
	"github.com/dalemusser/copilotbilling/internal/app/system/htmlsanitize"
	"github.com/dalemusser/copilotbilling/internal/app/system/inputval"
	"github.com/dalemusser/copilotbilling/internal/app/system/normalize"
	"github.com/dalemusser/copilotbilling/internal/app/system/respond"
	"github.com/dalemusser/copilotbilling/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type updateInput struct {
	Name         *string `json:"name" validate:"omitempty,max=200" label:"Name"`
	BusinessUnit *string `json:"businessUnit" validate:"omitempty,max=100" label:"Business unit"`
	CostCenter   *string `json:"costCenter" validate:"omitempty,max=100" label:"Cost center"`
	Description  *string `json:"description" validate:"omitempty,max=2000" label:"Description"`
}

type updatedOrg struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	BusinessUnit string `json:"businessUnit"`
	CostCenter   string `json:"costCenter"`
	Description  string `json:"description"`
}

func plainPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := htmlsanitize.Plain(*p)
	return &v
}

// Update merges the supplied fields. Empty name or business unit are
// ignored; cost center and description may be cleared with "".
//
// Route: PATCH /api/organizations/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := orgID(w, r)
	if !ok {
		return
	}
	var in updateInput
	if err := respond.Decode(r, &in); err != nil {
		respond.BadRequest(w, "Invalid request body")
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		respond.Invalid(w, res)
		return
	}

	upd := organizationstore.Update{
		CostCenter:  plainPtr(in.CostCenter),
		Description: plainPtr(in.Description),
	}
	var fields []string
	if in.Name != nil {
		upd.Name = htmlsanitize.Plain(*in.Name)
		if upd.Name != "" {
			fields = append(fields, "name")
		}
	}
	if in.BusinessUnit != nil {
		upd.BusinessUnit = normalize.BusinessUnit(htmlsanitize.Plain(*in.BusinessUnit))
		if upd.BusinessUnit != "" {
			fields = append(fields, "businessUnit")
		}
	}
	if upd.CostCenter != nil {
		fields = append(fields, "costCenter")
	}
	if upd.Description != nil {
		fields = append(fields, "description")
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	org, err := h.Orgs.Update(ctx, id, upd)
	if errors.Is(err, mongo.ErrNoDocuments) {
		respond.NotFound(w, msgNotFound)
		return
	}
	if err != nil {
		respond.ServerError(w, h.Log, "Error updating organization", err, zap.String("org_id", id.Hex()))
		return
	}

	h.Audit.OrgUpdated(ctx, r, actorID(r), org.ID, strings.Join(fields, ","))
	respond.Done(w, http.StatusOK, "Organization updated", updatedOrg{
		ID:           org.ID.Hex(),
		Name:         org.Name,
		BusinessUnit: org.BusinessUnit,
		CostCenter:   org.CostCenter,
		Description:  org.Description,
	})
}

type tokenInput struct {
	AccessToken    string     `json:"accessToken" validate:"required" label:"Access token"`
	RefreshToken   string     `json:"refreshToken"`
	TokenExpiresAt *time.Time `json:"tokenExpiresAt"`
}

// UpdateToken replaces the stored access token.
//
// Route: PATCH /api/organizations/{id}/token
func (h *Handler) UpdateToken(w http.ResponseWriter, r *http.Request) {
	id, ok := orgID(w, r)
	if !ok {
		return
	}
	var in tokenInput
	if err := respond.Decode(r, &in); err != nil {
		respond.BadRequest(w, "Invalid request body")
		return
	}
	in.AccessToken = strings.TrimSpace(in.AccessToken)
	if res := inputval.Validate(in); res.HasErrors() {
		respond.Invalid(w, res)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	err := h.Orgs.UpdateToken(ctx, id, in.AccessToken, in.RefreshToken, in.TokenExpiresAt)
	if errors.Is(err, mongo.ErrNoDocuments) {
		respond.NotFound(w, msgNotFound)
		return
	}
	if err != nil {
		respond.ServerError(w, h.Log, "Error updating token", err, zap.String("org_id", id.Hex()))
		return
	}

	h.Audit.OrgTokenUpdated(ctx, r, actorID(r), id)
	respond.Done(w, http.StatusOK, "Token updated", nil)
}
