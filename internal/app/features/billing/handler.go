// internal/app/features/billing/handler.go
package billing

import (
	"context"

	billingstore "github.com/dalemusser/copilotbilling/internal/app/store/billings"
	"github.com/dalemusser/copilotbilling/internal/app/system/auditlog"
	"github.com/dalemusser/copilotbilling/internal/app/system/billingsync"
	"github.com/dalemusser/copilotbilling/internal/app/system/metrics"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Syncer is the synchronization routine the sync endpoint drives.
type Syncer interface {
	Sync(ctx context.Context, orgID primitive.ObjectID) (billingsync.Result, error)
}

// Handler serves the billing API.
type Handler struct {
	DB       *mongo.Database
	Billings *billingstore.Store
	Syncer   Syncer
	Audit    *auditlog.Logger
	Metrics  *metrics.Metrics
	Log      *zap.Logger
}

// NewHandler constructs a billing Handler.
func NewHandler(db *mongo.Database, syncer Syncer, audit *auditlog.Logger, m *metrics.Metrics, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		Billings: billingstore.New(db),
		Syncer:   syncer,
		Audit:    audit,
		Metrics:  m,
		Log:      logger,
	}
}
