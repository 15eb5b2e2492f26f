// internal/domain/models/billing.go
package models

import (
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Billing statuses.
const (
	BillingPending = "pending"
	BillingPaid    = "paid"
	BillingOverdue = "overdue"
)

// BillingStatuses lists every status in display order.
var BillingStatuses = []string{BillingPending, BillingPaid, BillingOverdue}

// DefaultCurrency is used when the remote billing payload carries none.
const DefaultCurrency = "USD"

// IsValidBillingStatus reports whether s is one of the known statuses.
func IsValidBillingStatus(s string) bool {
	switch s {
	case BillingPending, BillingPaid, BillingOverdue:
		return true
	}
	return false
}

// UsageEntry is one seat's contribution to a billing period.
type UsageEntry struct {
	Username     string  `bson:"username" json:"username"`
	UserID       string  `bson:"user_id" json:"userId"`
	UsageMinutes float64 `bson:"usage_minutes" json:"usageMinutes"`
	Cost         float64 `bson:"cost" json:"cost"`
	Team         string  `bson:"team,omitempty" json:"team,omitempty"`
	Repository   string  `bson:"repository,omitempty" json:"repository,omitempty"`
}

// Billing is the Copilot bill of one organization for one calendar month.
// (OrganizationID, Month, Year) is unique.
type Billing struct {
	ID                 primitive.ObjectID `bson:"_id" json:"id"`
	OrganizationID     primitive.ObjectID `bson:"organization_id" json:"organizationId"`
	BusinessUnit       string             `bson:"business_unit" json:"businessUnit"`
	CostCenter         string             `bson:"cost_center,omitempty" json:"costCenter,omitempty"`
	Month              string             `bson:"month" json:"month"` // English month name
	Year               int                `bson:"year" json:"year"`
	TotalAmount        float64            `bson:"total_amount" json:"totalAmount"`
	Currency           string             `bson:"currency" json:"currency"`
	UsageBreakdown     []UsageEntry       `bson:"usage_breakdown" json:"usageBreakdown"`
	BillingPeriodStart time.Time          `bson:"billing_period_start" json:"billingPeriodStart"`
	BillingPeriodEnd   time.Time          `bson:"billing_period_end" json:"billingPeriodEnd"`
	BillingDate        *time.Time         `bson:"billing_date,omitempty" json:"billingDate,omitempty"`
	PaidAt             *time.Time         `bson:"paid_at" json:"paidAt"`
	Status             string             `bson:"status" json:"status"`
	PaymentReference   string             `bson:"payment_reference,omitempty" json:"paymentReference,omitempty"`
	Notes              string             `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt          time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt          time.Time          `bson:"updated_at" json:"updatedAt"`
}

// PeriodKey is the human label used to group bills by period, e.g. "March 2025".
func (b Billing) PeriodKey() string {
	return PeriodLabel(b.Month, b.Year)
}

// PeriodLabel formats a month name and year as a period label.
func PeriodLabel(month string, year int) string {
	return month + " " + strconv.Itoa(year)
}

// MonthNumber returns the calendar number (1-12) of an English month name,
// or 0 if the name is not recognised.
func MonthNumber(month string) int {
	for m := time.January; m <= time.December; m++ {
		if m.String() == month {
			return int(m)
		}
	}
	return 0
}

// MonthBounds returns the first and last instant of the calendar month
// containing t, in t's location.
func MonthBounds(t time.Time) (start, end time.Time) {
	start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	end = start.AddDate(0, 1, 0).Add(-time.Millisecond)
	return start, end
}
