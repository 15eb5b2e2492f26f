// internal/app/features/businessunits/detail.go
package businessunits

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/dalemusser/copilotbilling/internal/app/store/queries/billingreports"
	"github.com/dalemusser/copilotbilling/internal/app/system/respond"
	"github.com/dalemusser/copilotbilling/internal/app/system/timeouts"
	"github.com/dalemusser/copilotbilling/internal/domain/reporting"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type orgUsage struct {
	reporting.OrgRef
	Usage *reporting.UsageStats `json:"usage"`
}

type unitStats struct {
	TotalAmount       float64                 `json:"totalAmount"`
	PaidAmount        float64                 `json:"paidAmount"`
	PendingAmount     float64                 `json:"pendingAmount"`
	OverdueAmount     float64                 `json:"overdueAmount"`
	AvgMonthlyAmount  float64                 `json:"avgMonthlyAmount"`
	OrganizationCount int                     `json:"organizationCount"`
	BillingPeriods    []reporting.PeriodStats `json:"billingPeriods"`
}

type unitDetail struct {
	BusinessUnit  string     `json:"businessUnit"`
	Organizations []orgUsage `json:"organizations"`
	Stats         unitStats  `json:"stats"`
}

// unitParam returns the decoded {unit} URL parameter.
func unitParam(r *http.Request) string {
	raw := chi.URLParam(r, "unit")
	if v, err := url.PathUnescape(raw); err == nil {
		raw = v
	}
	return strings.TrimSpace(raw)
}

// Detail reports one unit: its organizations with seat usage, overall
// totals, the monthly average and the per-period breakdown.
//
// Route: GET /api/business-units/{unit}
func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	unit := unitParam(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	data, err := billingreports.LoadUnit(ctx, h.DB, unit)
	if err != nil {
		respond.ServerError(w, h.Log, "Error loading business unit statistics", err, zap.String("business_unit", unit))
		return
	}
	if len(data.Organizations) == 0 {
		respond.NotFound(w, "Business unit not found or has no organizations")
		return
	}

	respond.OK(w, buildDetail(unit, data))
}

func buildDetail(unit string, data billingreports.UnitData) unitDetail {
	periods := reporting.ByPeriod(data.Billings)
	stats := unitStats{
		AvgMonthlyAmount:  reporting.AvgMonthly(periods),
		OrganizationCount: len(data.Organizations),
		BillingPeriods:    periods,
	}
	for _, p := range periods {
		stats.TotalAmount += p.TotalAmount
		stats.PaidAmount += p.PaidAmount
		stats.PendingAmount += p.PendingAmount
		stats.OverdueAmount += p.OverdueAmount
	}

	usage := reporting.UsageByOrganization(data.Billings)
	orgs := make([]orgUsage, 0, len(data.Organizations))
	for _, o := range data.Organizations {
		ou := orgUsage{OrgRef: reporting.Ref(o)}
		if u, ok := usage[o.ID]; ok {
			ou.Usage = &u
		}
		orgs = append(orgs, ou)
	}

	return unitDetail{BusinessUnit: unit, Organizations: orgs, Stats: stats}
}
