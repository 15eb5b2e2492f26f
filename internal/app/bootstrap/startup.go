// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"time"

	auditstore "github.com/dalemusser/copilotbilling/internal/app/store/audit"
	"github.com/dalemusser/copilotbilling/internal/app/system/tasks"
	"github.com/dalemusser/copilotbilling/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// auditPruneInterval is how often expired audit events are deleted.
const auditPruneInterval = time.Hour

// errNoBackground is returned when Startup must start workers but deps was
// not built by ConnectDB.
var errNoBackground = errors.New("bootstrap: DBDeps.Background is nil")

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It starts
// the scheduled billing sync (when sync_schedule is set) and the audit
// retention worker (when audit_retention is positive).
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.Background == nil && (appCfg.SyncSchedule != "" || appCfg.AuditRetention > 0) {
		return errNoBackground
	}

	if appCfg.SyncSchedule != "" {
		syncer := newSyncer(appCfg, deps, newAuditLogger(appCfg, deps, logger), logger)

		sched := tasks.NewScheduler(logger)
		if err := sched.Add(tasks.BillingSyncJob(syncer, logger, appCfg.SyncSchedule)); err != nil {
			return err
		}
		sched.Start()
		deps.Background.Scheduler = sched
	}

	if appCfg.AuditRetention > 0 {
		w := workers.NewAuditRetention(auditstore.New(deps.MongoDatabase), logger, auditPruneInterval, appCfg.AuditRetention)
		w.Start()
		deps.Background.Retention = w
	}
	return nil
}
