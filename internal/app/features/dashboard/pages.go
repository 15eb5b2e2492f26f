// internal/app/features/dashboard/pages.go
package dashboard

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/dalemusser/copilotbilling/internal/app/system/auth"
	"github.com/dalemusser/copilotbilling/internal/app/system/timeouts"
	"github.com/dalemusser/copilotbilling/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type indexData struct {
	viewdata.BaseVM
	indexContent
	Error string
}

// ServeIndex renders the overview: organizations, the oldest pending bills
// and global totals. A load failure still renders the page with a message.
func (h *Handler) ServeIndex(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	data := indexData{BaseVM: h.base(w, r, "Dashboard", "/")}
	content, err := h.loadIndex(ctx, auth.SelectedOrganization(r.Context()))
	if err != nil {
		h.Log.Error("load dashboard failed", zap.Error(err))
		data.Error = "Error loading dashboard data"
	} else {
		data.indexContent = content
	}

	templates.Render(w, r, "dashboard_index", data)
}

type businessUnitsData struct {
	viewdata.BaseVM
	Units []unitCard
	Stats globalStats
}

// ServeBusinessUnits renders one card per business unit.
func (h *Handler) ServeBusinessUnits(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	units, err := h.loadUnitCards(ctx)
	if err != nil {
		h.Log.Error("load business units failed", zap.Error(err))
		h.redirectWithFlash(w, r, "/dashboard", "Error loading business unit data")
		return
	}
	stats, err := h.loadGlobalStats(ctx)
	if err != nil {
		h.Log.Error("load dashboard stats failed", zap.Error(err))
		h.redirectWithFlash(w, r, "/dashboard", "Error loading business unit data")
		return
	}

	templates.Render(w, r, "dashboard_business_units", businessUnitsData{
		BaseVM: h.base(w, r, "Dashboard - Business Units", "/dashboard"),
		Units:  units,
		Stats:  stats,
	})
}

type businessUnitData struct {
	viewdata.BaseVM
	BusinessUnit string
	unitContent
}

// ServeBusinessUnit renders one unit: totals, the last twelve periods and
// each organization's latest bills.
func (h *Handler) ServeBusinessUnit(w http.ResponseWriter, r *http.Request) {
	unit := chi.URLParam(r, "unit")
	if v, err := url.PathUnescape(unit); err == nil {
		unit = v
	}
	unit = strings.TrimSpace(unit)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	content, err := h.loadUnit(ctx, unit)
	if errors.Is(err, mongo.ErrNoDocuments) {
		h.redirectWithFlash(w, r, "/dashboard/business-units", "Business unit not found")
		return
	}
	if err != nil {
		h.Log.Error("load business unit failed", zap.Error(err), zap.String("business_unit", unit))
		h.redirectWithFlash(w, r, "/dashboard/business-units", "Error loading business unit details")
		return
	}

	templates.Render(w, r, "dashboard_business_unit", businessUnitData{
		BaseVM:       h.base(w, r, "Dashboard - "+unit, "/dashboard/business-units"),
		BusinessUnit: unit,
		unitContent:  content,
	})
}

type organizationData struct {
	viewdata.BaseVM
	orgContent
}

// ServeOrganization renders one organization's billing history.
func (h *Handler) ServeOrganization(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		h.redirectWithFlash(w, r, "/dashboard", "Organization not found")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	content, err := h.loadOrganization(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		h.redirectWithFlash(w, r, "/dashboard", "Organization not found")
		return
	}
	if err != nil {
		h.Log.Error("load organization failed", zap.Error(err), zap.String("org_id", id.Hex()))
		h.redirectWithFlash(w, r, "/dashboard", "Error loading organization details")
		return
	}

	templates.Render(w, r, "dashboard_organization", organizationData{
		BaseVM:     h.base(w, r, "Dashboard - "+content.Organization.Name, "/dashboard"),
		orgContent: content,
	})
}

// SelectOrganization stores the organization the user is working in and
// returns to the dashboard.
//
// Route: POST /auth/select-organization
func (h *Handler) SelectOrganization(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.FormValue("organizationId"))
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		h.redirectWithFlash(w, r, "/dashboard", "Organization not found")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	n, err := h.Orgs.Count(ctx, bson.M{"_id": id})
	if err != nil {
		h.Log.Error("select organization failed", zap.Error(err), zap.String("org_id", raw))
		h.redirectWithFlash(w, r, "/dashboard", "Error selecting organization")
		return
	}
	if n == 0 {
		h.redirectWithFlash(w, r, "/dashboard", "Organization not found")
		return
	}

	if err := h.SessionMgr.SelectOrganization(w, r, id.Hex()); err != nil {
		h.Log.Error("save selected organization failed", zap.Error(err))
		h.redirectWithFlash(w, r, "/dashboard", "Error selecting organization")
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}
