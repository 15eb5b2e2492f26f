// internal/app/system/tasks/scheduler.go
package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is a named unit of background work run on a cron schedule.
type Job struct {
	Name     string
	Schedule string // standard 5-field cron expression or descriptor (@hourly)
	Timeout  time.Duration
	Run      func(ctx context.Context) error
}

// DefaultJobTimeout bounds one run of a job that sets no Timeout.
const DefaultJobTimeout = 30 * time.Minute

// Scheduler runs jobs on their schedules. A job never overlaps itself:
// a tick that arrives while the previous run is still going is skipped.
type Scheduler struct {
	cron *cron.Cron
	log  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates an empty scheduler. Times are evaluated in UTC.
func NewScheduler(logger *zap.Logger) *Scheduler {
	cl := cronLogger{log: logger}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		log:    logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add registers a job. It fails on an invalid schedule.
func (s *Scheduler) Add(job Job) error {
	timeout := job.Timeout
	if timeout <= 0 {
		timeout = DefaultJobTimeout
	}
	_, err := s.cron.AddFunc(job.Schedule, func() {
		s.runOnce(job, timeout)
	})
	if err != nil {
		return fmt.Errorf("schedule job %q (%q): %w", job.Name, job.Schedule, err)
	}
	s.log.Info("scheduled job registered",
		zap.String("job", job.Name),
		zap.String("schedule", job.Schedule))
	return nil
}

func (s *Scheduler) runOnce(job Job, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		s.log.Error("scheduled job failed",
			zap.String("job", job.Name),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return
	}
	s.log.Debug("scheduled job finished",
		zap.String("job", job.Name),
		zap.Duration("elapsed", time.Since(start)))
}

// Start begins running scheduled jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("job scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop cancels running jobs and waits for them to return or for ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()

	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.log.Info("job scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger routes cron's internal logging through zap.
type cronLogger struct {
	log *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, zap.Any("details", keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, zap.Error(err), zap.Any("details", keysAndValues))
}
