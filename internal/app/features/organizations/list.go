// internal/app/features/organizations/list.go
package organizations

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/copilotbilling/internal/app/system/respond"
	"github.com/dalemusser/copilotbilling/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// List returns every organization without credentials, sorted by name.
// ?businessUnit= restricts the list to one unit.
//
// Route: GET /api/organizations
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	unit := strings.TrimSpace(r.URL.Query().Get("businessUnit"))
	orgs, err := h.Orgs.List(ctx, unit)
	if err != nil {
		respond.ServerError(w, h.Log, "Error listing organizations", err, zap.String("business_unit", unit))
		return
	}
	respond.OK(w, orgs)
}

// Get returns one organization without credentials.
//
// Route: GET /api/organizations/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := orgID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	org, ok := h.loadOrg(ctx, w, id)
	if !ok {
		return
	}
	// credentials are tagged json:"-"
	respond.OK(w, org)
}
