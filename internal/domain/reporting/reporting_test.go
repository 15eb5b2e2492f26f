package reporting

import (
	"testing"

	"github.com/dalemusser/copilotbilling/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func bill(org primitive.ObjectID, month string, year int, amount float64, status string) models.Billing {
	return models.Billing{
		ID:             primitive.NewObjectID(),
		OrganizationID: org,
		Month:          month,
		Year:           year,
		TotalAmount:    amount,
		Status:         status,
	}
}

func TestGenerateReport_JanuaryFebruary(t *testing.T) {
	org := primitive.NewObjectID()
	records := []models.Billing{
		bill(org, "January", 2025, 100, models.BillingPaid),
		bill(org, "February", 2025, 150, models.BillingPending),
	}

	rep := GenerateReport(records, map[primitive.ObjectID]string{org: "Acme"})

	assert.Equal(t, 250.0, rep.TotalBilled)
	assert.Equal(t, 100.0, rep.TotalPaid)
	assert.Equal(t, 150.0, rep.TotalPending)
	assert.Zero(t, rep.TotalOverdue)

	require.Contains(t, rep.OrganizationSummary, "Acme")
	acme := rep.OrganizationSummary["Acme"]
	assert.Equal(t, 250.0, acme.TotalAmount)
	assert.Equal(t, []PeriodAmount{
		{Period: "January 2025", Amount: 100, Status: models.BillingPaid},
		{Period: "February 2025", Amount: 150, Status: models.BillingPending},
	}, acme.Periods)

	require.Contains(t, rep.BillingPeriods, "February 2025")
	feb := rep.BillingPeriods["February 2025"]
	assert.Equal(t, 150.0, feb.TotalAmount)
	assert.Equal(t, []OrgAmount{{Name: "Acme", Amount: 150, Status: models.BillingPending}}, feb.Organizations)
}

func TestGenerateReport_BucketsAddUp(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	records := []models.Billing{
		bill(a, "March", 2025, 40.5, models.BillingPaid),
		bill(a, "April", 2025, 20, models.BillingOverdue),
		bill(b, "March", 2025, 12.25, models.BillingPending),
		bill(b, "April", 2025, 7, models.BillingOverdue),
	}

	rep := GenerateReport(records, map[primitive.ObjectID]string{a: "A", b: "B"})

	assert.InDelta(t, rep.TotalBilled, rep.TotalPaid+rep.TotalPending+rep.TotalOverdue, 1e-9)
	assert.Equal(t, 27.0, rep.TotalOverdue)
	assert.Len(t, rep.BillingPeriods["March 2025"].Organizations, 2)
}

func TestGenerateReport_UnknownOrganization(t *testing.T) {
	rep := GenerateReport([]models.Billing{
		bill(primitive.NewObjectID(), "May", 2025, 10, models.BillingPending),
	}, nil)

	require.Contains(t, rep.OrganizationSummary, UnknownOrganization)
	assert.Equal(t, UnknownOrganization, rep.BillingPeriods["May 2025"].Organizations[0].Name)
}

func TestGenerateReport_Empty(t *testing.T) {
	rep := GenerateReport(nil, nil)
	assert.Zero(t, rep.TotalBilled)
	assert.NotNil(t, rep.OrganizationSummary)
	assert.NotNil(t, rep.BillingPeriods)
}

func TestTotals(t *testing.T) {
	org := primitive.NewObjectID()
	s := Totals([]models.Billing{
		bill(org, "January", 2025, 30, models.BillingPaid),
		bill(org, "February", 2025, 10, models.BillingPending),
		bill(org, "March", 2025, 20, models.BillingOverdue),
	})

	assert.Equal(t, Summary{
		TotalAmount:   60,
		PaidAmount:    30,
		PendingAmount: 10,
		OverdueAmount: 20,
		Count:         3,
		Average:       20,
	}, s)

	assert.Equal(t, Summary{}, Totals(nil))
}

func TestByPeriod_SortsCalendarDescending(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	periods := ByPeriod([]models.Billing{
		bill(a, "February", 2024, 5, models.BillingPaid),
		bill(a, "December", 2024, 10, models.BillingPaid),
		bill(b, "December", 2024, 15, models.BillingPending),
		bill(a, "January", 2025, 20, models.BillingOverdue),
		bill(a, "April", 2024, 1, models.BillingPending),
	})

	require.Len(t, periods, 4)
	labels := make([]string, len(periods))
	for i, p := range periods {
		labels[i] = p.Label()
	}
	assert.Equal(t, []string{"January 2025", "December 2024", "April 2024", "February 2024"}, labels)

	dec := periods[1]
	assert.Equal(t, 25.0, dec.TotalAmount)
	assert.Equal(t, 10.0, dec.PaidAmount)
	assert.Equal(t, 15.0, dec.PendingAmount)
	assert.Equal(t, 2, dec.OrganizationCount)
	assert.Len(t, dec.Billings, 2)

	assert.Equal(t, 20.0, periods[0].OverdueAmount)
}

func TestByPeriod_DistinctOrganizations(t *testing.T) {
	org := primitive.NewObjectID()
	periods := ByPeriod([]models.Billing{
		bill(org, "June", 2025, 1, models.BillingPaid),
		bill(org, "June", 2025, 2, models.BillingPaid),
	})
	require.Len(t, periods, 1)
	assert.Equal(t, 1, periods[0].OrganizationCount)
	assert.NotNil(t, ByPeriod(nil))
}

func TestAvgMonthly(t *testing.T) {
	assert.Zero(t, AvgMonthly(nil))
	assert.Equal(t, 15.0, AvgMonthly([]PeriodStats{{TotalAmount: 10}, {TotalAmount: 20}}))
}

func TestUsageByOrganization(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	jan := bill(a, "January", 2025, 30, models.BillingPaid)
	jan.UsageBreakdown = []models.UsageEntry{
		{Username: "alice", UsageMinutes: 120, Cost: 10},
		{Username: "bob", UsageMinutes: 0, Cost: 10},
	}
	feb := bill(a, "February", 2025, 10, models.BillingPending)
	feb.UsageBreakdown = []models.UsageEntry{{Username: "alice", UsageMinutes: 60, Cost: 10}}

	usage := UsageByOrganization([]models.Billing{jan, feb, bill(b, "January", 2025, 0, models.BillingPending)})

	require.Contains(t, usage, a)
	assert.NotContains(t, usage, b)
	assert.Equal(t, UsageStats{
		TotalUsageMinutes:   180,
		TotalCost:           30,
		AverageUsagePerUser: 60,
		Entries:             3,
	}, usage[a])
}

func TestGroupOrganizationsByUnit(t *testing.T) {
	orgs := []models.Organization{
		{ID: primitive.NewObjectID(), Name: "Zeta", BusinessUnit: "Sales"},
		{ID: primitive.NewObjectID(), Name: "Alpha", BusinessUnit: "Engineering"},
		{ID: primitive.NewObjectID(), Name: "Beta", BusinessUnit: "Sales"},
	}

	groups := GroupOrganizationsByUnit(orgs)

	require.Len(t, groups, 2)
	assert.Equal(t, "Engineering", groups[0].BusinessUnit)
	assert.Equal(t, 1, groups[0].Count)
	assert.Equal(t, "Sales", groups[1].BusinessUnit)
	assert.Equal(t, 2, groups[1].Count)
	assert.Equal(t, "Zeta", groups[1].Organizations[0].Name)
	assert.Equal(t, "Beta", groups[1].Organizations[1].Name)

	assert.Empty(t, GroupOrganizationsByUnit(nil))
}

func TestBusinessUnitStats(t *testing.T) {
	eng := models.Organization{ID: primitive.NewObjectID(), Name: "Eng", BusinessUnit: "Engineering"}
	ops := models.Organization{ID: primitive.NewObjectID(), Name: "Ops", BusinessUnit: "Operations"}
	idle := models.Organization{ID: primitive.NewObjectID(), Name: "Idle", BusinessUnit: "Archive"}

	stats := BusinessUnitStats(
		[]models.Organization{eng, ops, idle},
		[]models.Billing{
			bill(eng.ID, "January", 2025, 100, models.BillingPaid),
			bill(eng.ID, "February", 2025, 50, models.BillingOverdue),
			bill(ops.ID, "January", 2025, 200, models.BillingPending),
			bill(primitive.NewObjectID(), "January", 2025, 999, models.BillingPaid),
		},
	)

	require.Len(t, stats, 3)
	assert.Equal(t, "Operations", stats[0].BusinessUnit)
	assert.Equal(t, UnitAmounts{TotalAmount: 200, PendingAmount: 200}, stats[0].Stats)

	assert.Equal(t, "Engineering", stats[1].BusinessUnit)
	assert.Equal(t, UnitAmounts{TotalAmount: 150, PaidAmount: 100, PendingAmount: 50}, stats[1].Stats)
	assert.Equal(t, 1, stats[1].OrganizationCount)

	assert.Equal(t, "Archive", stats[2].BusinessUnit)
	assert.Zero(t, stats[2].Stats.TotalAmount)
}

func TestBusinessUnitStats_TiesAlphabetical(t *testing.T) {
	stats := BusinessUnitStats([]models.Organization{
		{ID: primitive.NewObjectID(), BusinessUnit: "B"},
		{ID: primitive.NewObjectID(), BusinessUnit: "A"},
	}, nil)
	require.Len(t, stats, 2)
	assert.Equal(t, "A", stats[0].BusinessUnit)
	assert.Equal(t, "B", stats[1].BusinessUnit)
}
