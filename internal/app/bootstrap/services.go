// internal/app/bootstrap/services.go
package bootstrap

import (
	auditstore "github.com/dalemusser/copilotbilling/internal/app/store/audit"
	billingstore "github.com/dalemusser/copilotbilling/internal/app/store/billings"
	organizationstore "github.com/dalemusser/copilotbilling/internal/app/store/organizations"
	"github.com/dalemusser/copilotbilling/internal/app/system/auditlog"
	"github.com/dalemusser/copilotbilling/internal/app/system/billingsync"
	"github.com/dalemusser/copilotbilling/internal/app/system/githubapi"
	"go.uber.org/zap"
)

func newAuditLogger(appCfg AppConfig, deps DBDeps, logger *zap.Logger) *auditlog.Logger {
	return auditlog.New(auditstore.New(deps.MongoDatabase), logger, auditlog.Config{
		Auth:    appCfg.AuditLogAuth,
		Admin:   appCfg.AuditLogAdmin,
		Billing: appCfg.AuditLogBilling,
	})
}

func newGitHubFactory(appCfg AppConfig, deps DBDeps) githubapi.Factory {
	return githubapi.Factory{BaseURL: appCfg.GitHubAPIURL, Metrics: deps.Metrics}
}

func newSyncer(appCfg AppConfig, deps DBDeps, audit *auditlog.Logger, logger *zap.Logger) *billingsync.Syncer {
	return &billingsync.Syncer{
		Orgs:     organizationstore.New(deps.MongoDatabase),
		Billings: billingstore.New(deps.MongoDatabase),
		Remote:   billingsync.GitHub(newGitHubFactory(appCfg, deps)),
		Log:      logger,
		Metrics:  deps.Metrics,
		Audit:    audit,
		SeatCost: appCfg.DefaultSeatCost,
	}
}
