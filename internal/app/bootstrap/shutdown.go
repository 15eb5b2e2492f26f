// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown stops background workers, then tears down the DB connection.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if bg := deps.Background; bg != nil {
		if bg.Scheduler != nil {
			if err := bg.Scheduler.Stop(ctx); err != nil {
				logger.Warn("job scheduler did not stop cleanly", zap.Error(err))
			}
			bg.Scheduler = nil
		}
		if bg.Retention != nil {
			bg.Retention.Stop()
			bg.Retention = nil
		}
		if bg.LoginLimiter != nil {
			bg.LoginLimiter.Stop()
			bg.LoginLimiter = nil
		}
	}

	if deps.MongoClient != nil {
		logger.Info("disconnecting MongoDB client")
		if err := deps.MongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			return err
		}
	}
	return nil
}
