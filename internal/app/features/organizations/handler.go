// internal/app/features/organizations/handler.go
package organizations

import (
	organizationstore "github.com/dalemusser/copilotbilling/internal/app/store/organizations"
	"github.com/dalemusser/copilotbilling/internal/app/system/auditlog"
	"github.com/dalemusser/copilotbilling/internal/app/system/githubapi"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the feature-level entry point for the organization API.
type Handler struct {
	Orgs   *organizationstore.Store
	GitHub githubapi.Factory
	Audit  *auditlog.Logger
	Log    *zap.Logger
}

// NewHandler constructs an organizations Handler.
func NewHandler(db *mongo.Database, gh githubapi.Factory, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Orgs:   organizationstore.New(db),
		GitHub: gh,
		Audit:  audit,
		Log:    logger,
	}
}
