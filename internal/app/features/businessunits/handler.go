// internal/app/features/businessunits/handler.go
package businessunits

import (
	organizationstore "github.com/dalemusser/copilotbilling/internal/app/store/organizations"
	"github.com/dalemusser/copilotbilling/internal/app/system/auditlog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the business-unit API.
type Handler struct {
	DB    *mongo.Database
	Orgs  *organizationstore.Store
	Audit *auditlog.Logger
	Log   *zap.Logger
}

// NewHandler constructs a business-units Handler.
func NewHandler(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:    db,
		Orgs:  organizationstore.New(db),
		Audit: audit,
		Log:   logger,
	}
}
