// internal/app/features/organizations/members.go
package organizations

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/copilotbilling/internal/app/system/inputval"
	"github.com/dalemusser/copilotbilling/internal/app/system/respond"
	"github.com/dalemusser/copilotbilling/internal/app/system/timeouts"
	"github.com/dalemusser/copilotbilling/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// withOrg loads the {id} organization (with its token) or writes the
// failure and returns false.
func (h *Handler) withOrg(w http.ResponseWriter, r *http.Request) (models.Organization, bool) {
	id, ok := orgID(w, r)
	if !ok {
		return models.Organization{}, false
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()
	return h.loadOrg(ctx, w, id)
}

// Members lists the organization's GitHub members.
//
// Route: GET /api/organizations/{id}/members
func (h *Handler) Members(w http.ResponseWriter, r *http.Request) {
	org, ok := h.withOrg(w, r)
	if !ok {
		return
	}
	members, err := h.GitHub.ForToken(org.AccessToken).ListOrganizationMembers(r.Context(), org.Login)
	if err != nil {
		respond.ServerError(w, h.Log, "Error listing organization members", err, zap.String("org", org.Login))
		return
	}
	respond.OK(w, members)
}

// Seats lists the organization's Copilot seat assignments.
//
// Route: GET /api/organizations/{id}/copilot/seats
func (h *Handler) Seats(w http.ResponseWriter, r *http.Request) {
	org, ok := h.withOrg(w, r)
	if !ok {
		return
	}
	seats, err := h.GitHub.ForToken(org.AccessToken).GetCopilotSeats(r.Context(), org.Login)
	if err != nil {
		respond.ServerError(w, h.Log, "Error listing Copilot seats", err, zap.String("org", org.Login))
		return
	}
	respond.OK(w, seats)
}

type seatInput struct {
	Username string `json:"username" validate:"required,max=100" label:"Username"`
}

// AssignSeat grants a Copilot seat to a member.
//
// Route: POST /api/organizations/{id}/copilot/seats
func (h *Handler) AssignSeat(w http.ResponseWriter, r *http.Request) {
	var in seatInput
	if err := respond.Decode(r, &in); err != nil {
		respond.BadRequest(w, "Invalid request body")
		return
	}
	in.Username = strings.TrimSpace(in.Username)
	if res := inputval.Validate(in); res.HasErrors() {
		respond.Invalid(w, res)
		return
	}
	org, ok := h.withOrg(w, r)
	if !ok {
		return
	}

	change, err := h.GitHub.ForToken(org.AccessToken).AssignCopilotSeat(r.Context(), org.Login, in.Username)
	if err != nil {
		respond.ServerError(w, h.Log, "Error assigning Copilot seat", err,
			zap.String("org", org.Login), zap.String("username", in.Username))
		return
	}

	h.Audit.CopilotSeatAssigned(r.Context(), r, actorID(r), org.ID, in.Username)
	respond.Done(w, http.StatusCreated, "Copilot seat assigned", change)
}

// RemoveSeat cancels a member's Copilot seat.
//
// Route: DELETE /api/organizations/{id}/copilot/seats/{username}
func (h *Handler) RemoveSeat(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(chi.URLParam(r, "username"))
	if username == "" {
		respond.BadRequest(w, "Username is required")
		return
	}
	org, ok := h.withOrg(w, r)
	if !ok {
		return
	}

	change, err := h.GitHub.ForToken(org.AccessToken).RemoveCopilotSeat(r.Context(), org.Login, username)
	if err != nil {
		respond.ServerError(w, h.Log, "Error removing Copilot seat", err,
			zap.String("org", org.Login), zap.String("username", username))
		return
	}

	h.Audit.CopilotSeatRemoved(r.Context(), r, actorID(r), org.ID, username)
	respond.Done(w, http.StatusOK, "Copilot seat removed", change)
}
