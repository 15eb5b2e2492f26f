// internal/app/features/auditlog/handler.go
package auditlog

import (
	"github.com/dalemusser/copilotbilling/internal/app/store/audit"
	organizationstore "github.com/dalemusser/copilotbilling/internal/app/store/organizations"
	userstore "github.com/dalemusser/copilotbilling/internal/app/store/users"
	"github.com/dalemusser/copilotbilling/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	Events     *audit.Store
	Users      *userstore.Store
	Orgs       *organizationstore.Store
	SessionMgr *auth.SessionManager
	Log        *zap.Logger
}

// NewHandler constructs the audit log viewer bound to the given database.
func NewHandler(db *mongo.Database, sm *auth.SessionManager, logger *zap.Logger) *Handler {
	return &Handler{
		Events:     audit.New(db),
		Users:      userstore.New(db),
		Orgs:       organizationstore.New(db),
		SessionMgr: sm,
		Log:        logger,
	}
}
