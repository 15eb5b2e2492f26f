// internal/app/features/billing/report.go
package billing

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/copilotbilling/internal/app/store/queries/billingreports"
	"github.com/dalemusser/copilotbilling/internal/app/system/respond"
	"github.com/dalemusser/copilotbilling/internal/app/system/timeouts"
	"go.uber.org/zap"
)

const dateOnly = "2006-01-02"

// parseBound reads a report bound as either a calendar date or an RFC 3339
// timestamp. A calendar-date end bound covers that whole day.
func parseBound(raw string, end bool) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, true
	}
	if t, err := time.Parse(dateOnly, raw); err == nil {
		if end {
			t = t.Add(24*time.Hour - time.Millisecond)
		}
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

// Report builds the consolidated billing report. Records are filtered by
// creation date only when both startDate and endDate are supplied.
//
// Route: GET /api/billing/reports/generate?startDate=&endDate=
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, ok := parseBound(q.Get("startDate"), false)
	if !ok {
		respond.BadRequest(w, "Invalid startDate; use YYYY-MM-DD or RFC 3339")
		return
	}
	end, ok := parseBound(q.Get("endDate"), true)
	if !ok {
		respond.BadRequest(w, "Invalid endDate; use YYYY-MM-DD or RFC 3339")
		return
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		respond.BadRequest(w, "endDate must not be before startDate")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	report, err := billingreports.GenerateReport(ctx, h.DB, start, end)
	if err != nil {
		respond.ServerError(w, h.Log, "Error generating billing report", err,
			zap.Time("start", start), zap.Time("end", end))
		return
	}
	respond.OK(w, report)
}
