// internal/app/features/auditlog/types.go
package auditlog

import (
	"time"

	"github.com/dalemusser/copilotbilling/internal/app/store/audit"
	"github.com/dalemusser/copilotbilling/internal/app/system/viewdata"
)

// listItem is one audit event row with ids resolved to names.
type listItem struct {
	ID        string
	Timestamp time.Time
	Category  string
	EventType string
	ActorName string // blank for scheduled jobs
	OrgName   string
	IP        string
	Success   bool
	Reason    string
	Details   map[string]string
}

type listContent struct {
	Items []listItem

	Category  string
	EventType string
	StartDate string
	EndDate   string

	Page       int
	TotalPages int
	Total      int64
	HasPrev    bool
	HasNext    bool
	PrevPage   int
	NextPage   int
}

type listData struct {
	viewdata.BaseVM
	listContent

	Categories []categoryOption
	EventTypes []string
}

type categoryOption struct {
	Value string
	Label string
}

func allCategories() []categoryOption {
	return []categoryOption{
		{Value: audit.CategoryAuth, Label: "Authentication"},
		{Value: audit.CategoryAdmin, Label: "Administration"},
		{Value: audit.CategoryBilling, Label: "Billing"},
	}
}

var (
	authEvents = []string{
		audit.EventLoginSuccess,
		audit.EventLoginFailedUserNotFound,
		audit.EventLoginFailedWrongPassword,
		audit.EventLoginFailedOAuth,
		audit.EventLoginFailedRateLimit,
		audit.EventLogout,
	}
	adminEvents = []string{
		audit.EventOrgCreated,
		audit.EventOrgUpdated,
		audit.EventOrgDeleted,
		audit.EventOrgTokenUpdated,
		audit.EventBusinessUnitReassign,
		audit.EventCopilotSeatAssigned,
		audit.EventCopilotSeatRemoved,
	}
	billingEvents = []string{
		audit.EventBillingSynced,
		audit.EventBillingSyncFailed,
		audit.EventBillingStatusChanged,
	}
)

// eventTypesForCategory returns the event types offered in the filter for
// category, or every type when category is empty.
func eventTypesForCategory(category string) []string {
	switch category {
	case audit.CategoryAuth:
		return authEvents
	case audit.CategoryAdmin:
		return adminEvents
	case audit.CategoryBilling:
		return billingEvents
	case "":
		all := make([]string, 0, len(authEvents)+len(adminEvents)+len(billingEvents))
		all = append(all, authEvents...)
		all = append(all, adminEvents...)
		return append(all, billingEvents...)
	default:
		return nil
	}
}
