// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dalemusser/copilotbilling/internal/app/store/audit"
	"github.com/dalemusser/copilotbilling/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destination values for Config fields.
const (
	ToAll = "all" // MongoDB + zap
	ToDB  = "db"  // MongoDB only
	ToLog = "log" // zap only
	Off   = "off"
)

// Config selects where each category of audit event goes.
// Empty values behave like "all".
type Config struct {
	Auth    string
	Admin   string
	Billing string
}

// EventStore persists audit events.
type EventStore interface {
	Log(ctx context.Context, event audit.Event) error
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via EventStore) and structured logs (via zap).
type Logger struct {
	store  EventStore
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store EventStore, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// fromRequest fills IP and user agent when the event came over HTTP.
// Scheduled jobs pass a nil request.
func fromRequest(e audit.Event, r *http.Request) audit.Event {
	if r != nil {
		e.IP = ratelimit.ClientIP(r)
		e.UserAgent = r.UserAgent()
	}
	return e
}

func oidPtr(hex string) *primitive.ObjectID {
	if oid, err := primitive.ObjectIDFromHex(hex); err == nil {
		return &oid
	}
	return nil
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
	}
	if event.IP != "" {
		fields = append(fields, zap.String("ip", event.IP))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.OrganizationID != nil {
		fields = append(fields, zap.String("organization_id", event.OrganizationID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// A nil Logger is a no-op so handlers under test may omit it.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAdmin:
		setting = l.config.Admin
	case audit.CategoryBilling:
		setting = l.config.Billing
	}
	if setting == "" {
		setting = ToAll
	}
	if setting == Off {
		return
	}

	if setting == ToAll || setting == ToLog {
		l.logToZap(event)
	}
	if (setting == ToAll || setting == ToDB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// --- Authentication Events ---

// LoginSuccess logs a successful sign-in. method is "github" or "password".
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, method, login string) {
	l.Log(ctx, fromRequest(audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		ActorID:   &userID,
		Success:   true,
		Details: map[string]string{
			"auth_method": method,
			"login":       login,
		},
	}, r))
}

// LoginFailedUserNotFound logs a password sign-in for an unknown email.
func (l *Logger) LoginFailedUserNotFound(ctx context.Context, r *http.Request, attempted string) {
	l.Log(ctx, fromRequest(audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedUserNotFound,
		FailureReason: "user not found",
		Details:       map[string]string{"attempted_login": attempted},
	}, r))
}

// LoginFailedWrongPassword logs a rejected password.
func (l *Logger) LoginFailedWrongPassword(ctx context.Context, r *http.Request, userID primitive.ObjectID, login string) {
	l.Log(ctx, fromRequest(audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedWrongPassword,
		ActorID:       &userID,
		FailureReason: "wrong password",
		Details:       map[string]string{"login": login},
	}, r))
}

// LoginFailedOAuth logs a GitHub sign-in that could not complete.
func (l *Logger) LoginFailedOAuth(ctx context.Context, r *http.Request, reason string) {
	l.Log(ctx, fromRequest(audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedOAuth,
		FailureReason: reason,
	}, r))
}

// LoginFailedRateLimit logs a password sign-in refused by the login limiter.
// limitType is "ip" or "email".
func (l *Logger) LoginFailedRateLimit(ctx context.Context, r *http.Request, attempted, limitType string) {
	l.Log(ctx, fromRequest(audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedRateLimit,
		FailureReason: "rate limit exceeded",
		Details: map[string]string{
			"attempted_login": attempted,
			"limit_type":      limitType,
		},
	}, r))
}

// Logout logs a sign-out. userID is the hex id from the session.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userID string) {
	l.Log(ctx, fromRequest(audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLogout,
		ActorID:   oidPtr(userID),
		Success:   true,
	}, r))
}

// --- Administration Events ---

func (l *Logger) admin(ctx context.Context, r *http.Request, eventType, actorID string, orgID *primitive.ObjectID, details map[string]string) {
	l.Log(ctx, fromRequest(audit.Event{
		Category:       audit.CategoryAdmin,
		EventType:      eventType,
		ActorID:        oidPtr(actorID),
		OrganizationID: orgID,
		Success:        true,
		Details:        details,
	}, r))
}

// OrgCreated logs the registration of an organization.
func (l *Logger) OrgCreated(ctx context.Context, r *http.Request, actorID string, orgID primitive.ObjectID, login string) {
	l.admin(ctx, r, audit.EventOrgCreated, actorID, &orgID, map[string]string{"login": login})
}

// OrgUpdated logs an organization edit. fields names what changed.
func (l *Logger) OrgUpdated(ctx context.Context, r *http.Request, actorID string, orgID primitive.ObjectID, fields string) {
	l.admin(ctx, r, audit.EventOrgUpdated, actorID, &orgID, map[string]string{"fields_changed": fields})
}

// OrgDeleted logs an organization removal.
func (l *Logger) OrgDeleted(ctx context.Context, r *http.Request, actorID string, orgID primitive.ObjectID) {
	l.admin(ctx, r, audit.EventOrgDeleted, actorID, &orgID, nil)
}

// OrgTokenUpdated logs a credential rotation. The token itself is never logged.
func (l *Logger) OrgTokenUpdated(ctx context.Context, r *http.Request, actorID string, orgID primitive.ObjectID) {
	l.admin(ctx, r, audit.EventOrgTokenUpdated, actorID, &orgID, nil)
}

// BusinessUnitReassigned logs a bulk business-unit move.
func (l *Logger) BusinessUnitReassigned(ctx context.Context, r *http.Request, actorID, unit string, requested int, modified int64) {
	l.admin(ctx, r, audit.EventBusinessUnitReassign, actorID, nil, map[string]string{
		"business_unit": unit,
		"requested":     strconv.Itoa(requested),
		"modified":      strconv.FormatInt(modified, 10),
	})
}

// CopilotSeatAssigned logs a seat grant on the remote platform.
func (l *Logger) CopilotSeatAssigned(ctx context.Context, r *http.Request, actorID string, orgID primitive.ObjectID, username string) {
	l.admin(ctx, r, audit.EventCopilotSeatAssigned, actorID, &orgID, map[string]string{"username": username})
}

// CopilotSeatRemoved logs a seat removal on the remote platform.
func (l *Logger) CopilotSeatRemoved(ctx context.Context, r *http.Request, actorID string, orgID primitive.ObjectID, username string) {
	l.admin(ctx, r, audit.EventCopilotSeatRemoved, actorID, &orgID, map[string]string{"username": username})
}

// --- Billing Events ---

// BillingSynced logs a completed synchronization. r is nil for scheduled runs.
func (l *Logger) BillingSynced(ctx context.Context, r *http.Request, actorID string, orgID primitive.ObjectID, period string, amount float64, seats, fallbacks int) {
	l.Log(ctx, fromRequest(audit.Event{
		Category:       audit.CategoryBilling,
		EventType:      audit.EventBillingSynced,
		ActorID:        oidPtr(actorID),
		OrganizationID: &orgID,
		Success:        true,
		Details: map[string]string{
			"period":         period,
			"total_amount":   strconv.FormatFloat(amount, 'f', 2, 64),
			"seats":          strconv.Itoa(seats),
			"seat_fallbacks": strconv.Itoa(fallbacks),
		},
	}, r))
}

// BillingSyncFailed logs an aborted synchronization.
func (l *Logger) BillingSyncFailed(ctx context.Context, r *http.Request, actorID string, orgID primitive.ObjectID, reason string) {
	l.Log(ctx, fromRequest(audit.Event{
		Category:       audit.CategoryBilling,
		EventType:      audit.EventBillingSyncFailed,
		ActorID:        oidPtr(actorID),
		OrganizationID: &orgID,
		FailureReason:  reason,
	}, r))
}

// BillingStatusChanged logs a payment-status transition.
func (l *Logger) BillingStatusChanged(ctx context.Context, r *http.Request, actorID string, billingID, orgID primitive.ObjectID, from, to string) {
	l.Log(ctx, fromRequest(audit.Event{
		Category:       audit.CategoryBilling,
		EventType:      audit.EventBillingStatusChanged,
		ActorID:        oidPtr(actorID),
		OrganizationID: &orgID,
		Success:        true,
		Details: map[string]string{
			"billing_id": billingID.Hex(),
			"from":       from,
			"to":         to,
		},
	}, r))
}
