// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/copilotbilling/internal/app/system/metrics"
	"github.com/dalemusser/copilotbilling/internal/app/system/ratelimit"
	"github.com/dalemusser/copilotbilling/internal/app/system/tasks"
	"github.com/dalemusser/copilotbilling/internal/app/system/workers"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app, plus the
// process-wide services that Startup, BuildHandler and Shutdown share.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// Metrics is the single /metrics registry used by handlers and the
	// scheduled sync.
	Metrics *metrics.Metrics

	// Background is filled by Startup and drained by Shutdown. Hooks receive
	// DBDeps by value, so it is held by pointer.
	Background *Background
}

// Background holds the workers started in Startup and the login limiter
// created in BuildHandler.
type Background struct {
	Scheduler    *tasks.Scheduler
	Retention    *workers.AuditRetention
	LoginLimiter *ratelimit.LoginLimiter
}

// newDBDeps wires the shared services around a connected database.
func newDBDeps(client *mongo.Client, db *mongo.Database) DBDeps {
	return DBDeps{
		MongoClient:   client,
		MongoDatabase: db,
		Metrics:       metrics.New(),
		Background:    &Background{},
	}
}
