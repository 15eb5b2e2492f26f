package githubapi

import "time"

// Organization is the subset of GET /orgs/{org} the dashboard uses.
type Organization struct {
	ID          int64  `json:"id"`
	Login       string `json:"login"`
	Name        string `json:"name"`
	Description string `json:"description"`
	AvatarURL   string `json:"avatar_url"`
}

// Account is a GitHub user as returned by member, seat and /user endpoints.
type Account struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	AvatarURL string `json:"avatar_url"`
	Type      string `json:"type,omitempty"`
}

// SeatBreakdown counts seats by state for the current billing cycle.
type SeatBreakdown struct {
	Total               int `json:"total"`
	AddedThisCycle      int `json:"added_this_cycle"`
	PendingInvitation   int `json:"pending_invitation"`
	PendingCancellation int `json:"pending_cancellation"`
	ActiveThisCycle     int `json:"active_this_cycle"`
	InactiveThisCycle   int `json:"inactive_this_cycle"`
}

// CopilotBilling is the organization-level Copilot billing summary.
// The amount fields are optional in the payload; nil means absent.
type CopilotBilling struct {
	SeatBreakdown         SeatBreakdown `json:"seat_breakdown"`
	SeatManagementSetting string        `json:"seat_management_setting"`
	PlanType              string        `json:"plan_type"`
	EstimatedTotalAmount  *float64      `json:"estimated_total_amount,omitempty"`
	TotalAmount           *float64      `json:"total_amount,omitempty"`
	Currency              string        `json:"currency,omitempty"`
}

// Amount returns the estimated total, falling back to the billed total, then 0.
// A zero estimate falls through to the billed total.
func (b CopilotBilling) Amount() float64 {
	if b.EstimatedTotalAmount != nil && *b.EstimatedTotalAmount != 0 {
		return *b.EstimatedTotalAmount
	}
	if b.TotalAmount != nil {
		return *b.TotalAmount
	}
	return 0
}

// Team is the team through which a seat was assigned, if any.
type Team struct {
	ID   int64  `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// Seat is one Copilot license assignment.
type Seat struct {
	Assignee           Account    `json:"assignee"`
	AssigningTeam      *Team      `json:"assigning_team,omitempty"`
	PlanType           string     `json:"plan_type,omitempty"`
	LastActivityAt     *time.Time `json:"last_activity_at,omitempty"`
	LastActivityEditor string     `json:"last_activity_editor,omitempty"`
	CreatedAt          *time.Time `json:"created_at,omitempty"`
}

// SeatList is the response of the Copilot seats listing.
type SeatList struct {
	TotalSeats int    `json:"total_seats"`
	Seats      []Seat `json:"seats"`
}

// UserUsage is one member's Copilot usage for the current cycle.
// Nil fields were absent in the payload.
type UserUsage struct {
	TotalMinutes  *float64 `json:"total_minutes,omitempty"`
	EstimatedCost *float64 `json:"estimated_cost,omitempty"`
}

// SeatChange is the response of seat assignment/removal calls.
type SeatChange struct {
	SeatsCreated   int `json:"seats_created,omitempty"`
	SeatsCancelled int `json:"seats_cancelled,omitempty"`
}
