// Package reporting groups billing records by organization, business unit
// and calendar period and computes totals, status splits and averages.
//
// Every function is pure: callers load the records and organizations and
// pass them in.
package reporting

import (
	"sort"

	"github.com/dalemusser/copilotbilling/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UnknownOrganization labels records whose organization has been deleted.
const UnknownOrganization = "(deleted organization)"

// Summary is the status split of a set of records.
type Summary struct {
	TotalAmount   float64 `json:"totalAmount"`
	PaidAmount    float64 `json:"paidAmount"`
	PendingAmount float64 `json:"pendingAmount"`
	OverdueAmount float64 `json:"overdueAmount"`
	Count         int     `json:"count"`
	// Average is the mean amount per record.
	Average float64 `json:"average"`
}

func (t *Summary) add(b models.Billing) {
	t.TotalAmount += b.TotalAmount
	t.Count++
	switch b.Status {
	case models.BillingPaid:
		t.PaidAmount += b.TotalAmount
	case models.BillingOverdue:
		t.OverdueAmount += b.TotalAmount
	default:
		t.PendingAmount += b.TotalAmount
	}
}

// Totals sums records by status. Unknown statuses count as pending.
func Totals(records []models.Billing) Summary {
	var t Summary
	for _, b := range records {
		t.add(b)
	}
	if t.Count > 0 {
		t.Average = t.TotalAmount / float64(t.Count)
	}
	return t
}

/* -------------------------------------------------------------------------- */
/* Billing report                                                              */
/* -------------------------------------------------------------------------- */

// PeriodAmount is one organization's bill for one period.
type PeriodAmount struct {
	Period string  `json:"period"`
	Amount float64 `json:"amount"`
	Status string  `json:"status"`
}

// OrgAmount is one period's bill for one organization.
type OrgAmount struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
	Status string  `json:"status"`
}

// OrganizationSummary lists an organization's bills.
type OrganizationSummary struct {
	TotalAmount float64        `json:"totalAmount"`
	Periods     []PeriodAmount `json:"periods"`
}

// PeriodSummary lists a period's bills.
type PeriodSummary struct {
	TotalAmount   float64     `json:"totalAmount"`
	Organizations []OrgAmount `json:"organizations"`
}

// Report is the consolidated billing report.
// TotalPaid + TotalPending + TotalOverdue == TotalBilled.
type Report struct {
	TotalBilled         float64                         `json:"totalBilled"`
	TotalPaid           float64                         `json:"totalPaid"`
	TotalPending        float64                         `json:"totalPending"`
	TotalOverdue        float64                         `json:"totalOverdue"`
	OrganizationSummary map[string]*OrganizationSummary `json:"organizationSummary"`
	BillingPeriods      map[string]*PeriodSummary       `json:"billingPeriods"`
}

// GenerateReport builds the report over records. names maps organization
// ids to display names; records of unknown organizations are grouped under
// UnknownOrganization. Summaries are keyed by organization name and by
// period label ("March 2025"); entries keep the order of records.
func GenerateReport(records []models.Billing, names map[primitive.ObjectID]string) Report {
	rep := Report{
		OrganizationSummary: map[string]*OrganizationSummary{},
		BillingPeriods:      map[string]*PeriodSummary{},
	}

	for _, b := range records {
		name, ok := names[b.OrganizationID]
		if !ok {
			name = UnknownOrganization
		}
		period := b.PeriodKey()

		rep.TotalBilled += b.TotalAmount
		switch b.Status {
		case models.BillingPaid:
			rep.TotalPaid += b.TotalAmount
		case models.BillingOverdue:
			rep.TotalOverdue += b.TotalAmount
		default:
			rep.TotalPending += b.TotalAmount
		}

		os, ok := rep.OrganizationSummary[name]
		if !ok {
			os = &OrganizationSummary{Periods: []PeriodAmount{}}
			rep.OrganizationSummary[name] = os
		}
		os.TotalAmount += b.TotalAmount
		os.Periods = append(os.Periods, PeriodAmount{Period: period, Amount: b.TotalAmount, Status: b.Status})

		ps, ok := rep.BillingPeriods[period]
		if !ok {
			ps = &PeriodSummary{Organizations: []OrgAmount{}}
			rep.BillingPeriods[period] = ps
		}
		ps.TotalAmount += b.TotalAmount
		ps.Organizations = append(ps.Organizations, OrgAmount{Name: name, Amount: b.TotalAmount, Status: b.Status})
	}
	return rep
}

/* -------------------------------------------------------------------------- */
/* Per-period breakdown                                                        */
/* -------------------------------------------------------------------------- */

// PeriodStats aggregates every record of one calendar month.
type PeriodStats struct {
	Month             string  `json:"month"`
	Year              int     `json:"year"`
	TotalAmount       float64 `json:"totalAmount"`
	PaidAmount        float64 `json:"paidAmount"`
	PendingAmount     float64 `json:"pendingAmount"`
	OverdueAmount     float64 `json:"overdueAmount"`
	OrganizationCount int     `json:"organizationCount"`

	Billings []models.Billing `json:"-"`
}

// Label returns the period label, e.g. "March 2025".
func (p PeriodStats) Label() string { return models.PeriodLabel(p.Month, p.Year) }

type periodKey struct {
	year  int
	month string
}

// ByPeriod groups records by (year, month), newest first: year descending,
// then calendar month descending.
func ByPeriod(records []models.Billing) []PeriodStats {
	idx := map[periodKey]int{}
	orgs := map[periodKey]map[primitive.ObjectID]struct{}{}
	var out []PeriodStats

	for _, b := range records {
		k := periodKey{b.Year, b.Month}
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			orgs[k] = map[primitive.ObjectID]struct{}{}
			out = append(out, PeriodStats{Month: b.Month, Year: b.Year})
		}
		p := &out[i]
		p.TotalAmount += b.TotalAmount
		switch b.Status {
		case models.BillingPaid:
			p.PaidAmount += b.TotalAmount
		case models.BillingOverdue:
			p.OverdueAmount += b.TotalAmount
		default:
			p.PendingAmount += b.TotalAmount
		}
		p.Billings = append(p.Billings, b)
		orgs[k][b.OrganizationID] = struct{}{}
	}

	for i := range out {
		out[i].OrganizationCount = len(orgs[periodKey{out[i].Year, out[i].Month}])
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return models.MonthNumber(out[i].Month) > models.MonthNumber(out[j].Month)
	})
	if out == nil {
		out = []PeriodStats{}
	}
	return out
}

// AvgMonthly is the mean total per period, 0 when there are none.
func AvgMonthly(periods []PeriodStats) float64 {
	if len(periods) == 0 {
		return 0
	}
	var sum float64
	for _, p := range periods {
		sum += p.TotalAmount
	}
	return sum / float64(len(periods))
}

/* -------------------------------------------------------------------------- */
/* Seat usage                                                                  */
/* -------------------------------------------------------------------------- */

// UsageStats aggregates usage entries of one organization across periods.
type UsageStats struct {
	TotalUsageMinutes   float64 `json:"totalUsageMinutes"`
	TotalCost           float64 `json:"totalCost"`
	AverageUsagePerUser float64 `json:"averageUsagePerUser"`
	Entries             int     `json:"entries"`
}

// UsageByOrganization sums usage entries per organization. Organizations
// whose records carry no entries are absent from the result.
func UsageByOrganization(records []models.Billing) map[primitive.ObjectID]UsageStats {
	out := map[primitive.ObjectID]UsageStats{}
	for _, b := range records {
		if len(b.UsageBreakdown) == 0 {
			continue
		}
		s := out[b.OrganizationID]
		for _, u := range b.UsageBreakdown {
			s.TotalUsageMinutes += u.UsageMinutes
			s.TotalCost += u.Cost
			s.Entries++
		}
		out[b.OrganizationID] = s
	}
	for id, s := range out {
		s.AverageUsagePerUser = s.TotalUsageMinutes / float64(s.Entries)
		out[id] = s
	}
	return out
}

/* -------------------------------------------------------------------------- */
/* Business units                                                              */
/* -------------------------------------------------------------------------- */

// OrgRef is the public projection of an organization used in groupings.
type OrgRef struct {
	ID          primitive.ObjectID `json:"id"`
	Name        string             `json:"name"`
	Login       string             `json:"login"`
	AvatarURL   string             `json:"avatarUrl,omitempty"`
	CostCenter  string             `json:"costCenter,omitempty"`
	Description string             `json:"description,omitempty"`
}

// Ref projects an organization.
func Ref(o models.Organization) OrgRef {
	return OrgRef{
		ID:          o.ID,
		Name:        o.Name,
		Login:       o.Login,
		AvatarURL:   o.AvatarURL,
		CostCenter:  o.CostCenter,
		Description: o.Description,
	}
}

// UnitGroup is one business unit with its organizations.
type UnitGroup struct {
	BusinessUnit  string   `json:"businessUnit"`
	Organizations []OrgRef `json:"organizations"`
	Count         int      `json:"count"`
}

// GroupOrganizationsByUnit groups organizations by business unit, units
// sorted alphabetically. Organizations keep their input order.
func GroupOrganizationsByUnit(orgs []models.Organization) []UnitGroup {
	idx := map[string]int{}
	out := []UnitGroup{}
	for _, o := range orgs {
		i, ok := idx[o.BusinessUnit]
		if !ok {
			i = len(out)
			idx[o.BusinessUnit] = i
			out = append(out, UnitGroup{BusinessUnit: o.BusinessUnit, Organizations: []OrgRef{}})
		}
		out[i].Organizations = append(out[i].Organizations, Ref(o))
		out[i].Count++
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].BusinessUnit < out[j].BusinessUnit })
	return out
}

// UnitAmounts is the listing view of a unit's bills. Pending here is
// everything not yet paid, overdue included.
type UnitAmounts struct {
	TotalAmount   float64 `json:"totalAmount"`
	PaidAmount    float64 `json:"paidAmount"`
	PendingAmount float64 `json:"pendingAmount"`
}

// UnitStats is one business unit with its billing totals.
type UnitStats struct {
	BusinessUnit      string      `json:"businessUnit"`
	Organizations     []OrgRef    `json:"organizations"`
	OrganizationCount int         `json:"organizationCount"`
	Stats             UnitAmounts `json:"stats"`
}

// BusinessUnitStats totals records per business unit of their organization
// (the unit the organization belongs to now, not the one denormalized on
// the record). Records of unknown organizations are ignored. Units are
// sorted by total amount descending, ties alphabetically.
func BusinessUnitStats(orgs []models.Organization, records []models.Billing) []UnitStats {
	unitOf := make(map[primitive.ObjectID]string, len(orgs))
	idx := map[string]int{}
	out := []UnitStats{}
	for _, o := range orgs {
		unitOf[o.ID] = o.BusinessUnit
		i, ok := idx[o.BusinessUnit]
		if !ok {
			i = len(out)
			idx[o.BusinessUnit] = i
			out = append(out, UnitStats{BusinessUnit: o.BusinessUnit, Organizations: []OrgRef{}})
		}
		out[i].Organizations = append(out[i].Organizations, Ref(o))
		out[i].OrganizationCount++
	}

	for _, b := range records {
		unit, ok := unitOf[b.OrganizationID]
		if !ok {
			continue
		}
		s := &out[idx[unit]].Stats
		s.TotalAmount += b.TotalAmount
		if b.Status == models.BillingPaid {
			s.PaidAmount += b.TotalAmount
		}
	}
	for i := range out {
		out[i].Stats.PendingAmount = out[i].Stats.TotalAmount - out[i].Stats.PaidAmount
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Stats.TotalAmount != out[j].Stats.TotalAmount {
			return out[i].Stats.TotalAmount > out[j].Stats.TotalAmount
		}
		return out[i].BusinessUnit < out[j].BusinessUnit
	})
	return out
}
