// Package billingsync pulls an organization's Copilot billing figures from
// GitHub and upserts the record for the current calendar month.
//
// A sync is one fetch of the aggregate billing, one fetch of the seat list
// and one sequential usage lookup per seat. A failed usage lookup bills the
// seat at DefaultSeatCost and never aborts the run; any other remote or
// persistence failure is returned unchanged.
package billingsync

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dalemusser/copilotbilling/internal/app/system/auditlog"
	"github.com/dalemusser/copilotbilling/internal/app/system/githubapi"
	"github.com/dalemusser/copilotbilling/internal/app/system/metrics"
	"github.com/dalemusser/copilotbilling/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// DefaultSeatCost is billed for a seat whose usage is unknown.
const DefaultSeatCost = 10.0

// ErrOrganizationNotFound is returned when the organization id is unknown.
var ErrOrganizationNotFound = errors.New("organization not found")

// Organizations loads organizations with their credentials.
type Organizations interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Organization, error)
	ListWithCredentials(ctx context.Context) ([]models.Organization, error)
}

// Billings persists billing records.
type Billings interface {
	FindByPeriod(ctx context.Context, orgID primitive.ObjectID, month string, year int) (models.Billing, error)
	Insert(ctx context.Context, b models.Billing) (models.Billing, error)
	Replace(ctx context.Context, b models.Billing) error
}

// Remote is the part of the GitHub client a sync needs.
type Remote interface {
	GetCopilotBilling(ctx context.Context, org string) (githubapi.CopilotBilling, error)
	GetCopilotSeats(ctx context.Context, org string) (githubapi.SeatList, error)
	GetUserCopilotUsage(ctx context.Context, org, username string) (githubapi.UserUsage, error)
}

// RemoteFactory returns a Remote authenticated with token.
type RemoteFactory func(token string) Remote

// GitHub adapts a githubapi.Factory to a RemoteFactory.
func GitHub(f githubapi.Factory) RemoteFactory {
	return func(token string) Remote { return f.ForToken(token) }
}

// Syncer runs billing synchronizations.
type Syncer struct {
	Orgs     Organizations
	Billings Billings
	Remote   RemoteFactory
	Log      *zap.Logger
	Metrics  *metrics.Metrics
	Audit    *auditlog.Logger

	// SeatCost overrides DefaultSeatCost when positive.
	SeatCost float64
	// Now defaults to time.Now.
	Now func() time.Time
}

// Result describes one completed sync.
type Result struct {
	Billing   models.Billing
	Created   bool
	Seats     int
	Fallbacks int
}

func (s *Syncer) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Syncer) seatCost() float64 {
	if s.SeatCost > 0 {
		return s.SeatCost
	}
	return DefaultSeatCost
}

func (s *Syncer) log() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

// Sync fetches the current figures for orgID and upserts this month's
// record. Running it twice in the same month updates the same record.
func (s *Syncer) Sync(ctx context.Context, orgID primitive.ObjectID) (res Result, err error) {
	defer func() { s.Metrics.ObserveSync(err) }()

	org, err := s.Orgs.GetByID(ctx, orgID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Result{}, ErrOrganizationNotFound
	}
	if err != nil {
		return Result{}, fmt.Errorf("load organization: %w", err)
	}

	remote := s.Remote(org.AccessToken)

	summary, err := remote.GetCopilotBilling(ctx, org.Login)
	if err != nil {
		return Result{}, fmt.Errorf("fetch copilot billing for %s: %w", org.Login, err)
	}
	seats, err := remote.GetCopilotSeats(ctx, org.Login)
	if err != nil {
		return Result{}, fmt.Errorf("fetch copilot seats for %s: %w", org.Login, err)
	}

	now := s.now()
	month := now.Month().String()
	year := now.Year()

	usage, fallbacks := s.collectUsage(ctx, remote, org, seats.Seats)

	existing, err := s.Billings.FindByPeriod(ctx, org.ID, month, year)
	switch {
	case err == nil:
		existing.TotalAmount = summary.Amount()
		existing.Currency = currency(summary.Currency, existing.Currency)
		existing.UsageBreakdown = usage
		existing.BusinessUnit = org.BusinessUnit
		existing.CostCenter = org.CostCenter
		existing.UpdatedAt = now
		if err := s.Billings.Replace(ctx, existing); err != nil {
			return Result{}, fmt.Errorf("update billing record: %w", err)
		}
		return Result{Billing: existing, Seats: len(seats.Seats), Fallbacks: fallbacks}, nil

	case errors.Is(err, mongo.ErrNoDocuments):
		start, end := models.MonthBounds(now)
		b := models.Billing{
			ID:                 primitive.NewObjectID(),
			OrganizationID:     org.ID,
			BusinessUnit:       org.BusinessUnit,
			CostCenter:         org.CostCenter,
			Month:              month,
			Year:               year,
			TotalAmount:        summary.Amount(),
			Currency:           currency(summary.Currency, ""),
			UsageBreakdown:     usage,
			BillingPeriodStart: start,
			BillingPeriodEnd:   end,
			BillingDate:        &end,
			Status:             models.BillingPending,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		b, err = s.Billings.Insert(ctx, b)
		if err != nil {
			return Result{}, fmt.Errorf("insert billing record: %w", err)
		}
		return Result{Billing: b, Created: true, Seats: len(seats.Seats), Fallbacks: fallbacks}, nil

	default:
		return Result{}, fmt.Errorf("load billing record: %w", err)
	}
}

// collectUsage looks up each seat's usage in order. A failed lookup records
// zero minutes at the default seat cost.
func (s *Syncer) collectUsage(ctx context.Context, remote Remote, org models.Organization, seats []githubapi.Seat) ([]models.UsageEntry, int) {
	usage := make([]models.UsageEntry, 0, len(seats))
	fallbacks := 0
	for _, seat := range seats {
		entry := models.UsageEntry{
			Username: seat.Assignee.Login,
			UserID:   strconv.FormatInt(seat.Assignee.ID, 10),
			Cost:     s.seatCost(),
		}
		if seat.AssigningTeam != nil {
			entry.Team = seat.AssigningTeam.Slug
		}

		u, err := remote.GetUserCopilotUsage(ctx, org.Login, seat.Assignee.Login)
		if err != nil {
			fallbacks++
			s.Metrics.SeatFallback()
			s.log().Warn("copilot usage lookup failed; billing seat at default cost",
				zap.String("org", org.Login),
				zap.String("username", seat.Assignee.Login),
				zap.Error(err))
		} else {
			if u.TotalMinutes != nil {
				entry.UsageMinutes = *u.TotalMinutes
			}
			// A zero estimate is treated as missing, matching CopilotBilling.Amount.
			if u.EstimatedCost != nil && *u.EstimatedCost != 0 {
				entry.Cost = *u.EstimatedCost
			}
		}
		usage = append(usage, entry)
	}
	return usage, fallbacks
}

func currency(remote, existing string) string {
	switch {
	case remote != "":
		return remote
	case existing != "":
		return existing
	default:
		return models.DefaultCurrency
	}
}

// Summary counts the outcome of a SyncAll run.
type Summary struct {
	RunID     string
	Succeeded int
	Failed    int
}

// SyncAll syncs every organization in turn. Per-organization failures are
// logged and audited but do not stop the run; only failing to list the
// organizations or a cancelled ctx is returned.
func (s *Syncer) SyncAll(ctx context.Context) (Summary, error) {
	sum := Summary{RunID: uuid.NewString()}
	log := s.log().With(zap.String("run_id", sum.RunID))

	orgs, err := s.Orgs.ListWithCredentials(ctx)
	if err != nil {
		return sum, fmt.Errorf("list organizations: %w", err)
	}

	for _, org := range orgs {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		res, err := s.Sync(ctx, org.ID)
		if err != nil {
			sum.Failed++
			log.Error("billing sync failed", zap.String("org", org.Login), zap.Error(err))
			s.Audit.BillingSyncFailed(ctx, nil, "", org.ID, err.Error())
			continue
		}
		sum.Succeeded++
		s.Audit.BillingSynced(ctx, nil, "", org.ID, res.Billing.PeriodKey(), res.Billing.TotalAmount, res.Seats, res.Fallbacks)
	}

	log.Info("billing sync run complete",
		zap.Int("organizations", len(orgs)),
		zap.Int("succeeded", sum.Succeeded),
		zap.Int("failed", sum.Failed))
	return sum, nil
}
