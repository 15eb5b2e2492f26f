// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"

	"github.com/dalemusser/copilotbilling/internal/app/system/billingsync"
	"go.uber.org/zap"
)

// Syncer is the part of billingsync.Syncer the scheduled job runs.
type Syncer interface {
	SyncAll(ctx context.Context) (billingsync.Summary, error)
}

// BillingSyncJob creates a job that synchronizes every organization's
// current-month billing on the given cron schedule.
func BillingSyncJob(syncer Syncer, logger *zap.Logger, schedule string) Job {
	return Job{
		Name:     "billing-sync",
		Schedule: schedule,
		Run: func(ctx context.Context) error {
			sum, err := syncer.SyncAll(ctx)
			if err != nil {
				return err
			}
			if sum.Failed > 0 {
				logger.Warn("scheduled billing sync had failures",
					zap.String("run_id", sum.RunID),
					zap.Int("failed", sum.Failed),
					zap.Int("succeeded", sum.Succeeded))
			}
			return nil
		},
	}
}
