package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/copilotbilling/internal/app/system/billingsync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeSyncer struct {
	sum   billingsync.Summary
	err   error
	calls int
}

func (f *fakeSyncer) SyncAll(context.Context) (billingsync.Summary, error) {
	f.calls++
	return f.sum, f.err
}

func TestBillingSyncJob(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	syncer := &fakeSyncer{sum: billingsync.Summary{RunID: "run-1", Succeeded: 2, Failed: 1}}

	job := BillingSyncJob(syncer, zap.New(core), "@daily")
	assert.Equal(t, "billing-sync", job.Name)
	assert.Equal(t, "@daily", job.Schedule)

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, syncer.calls)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "scheduled billing sync had failures", logs.All()[0].Message)
}

func TestBillingSyncJob_PropagatesError(t *testing.T) {
	syncer := &fakeSyncer{err: errors.New("list organizations: db down")}
	job := BillingSyncJob(syncer, zap.NewNop(), "@daily")
	assert.Error(t, job.Run(context.Background()))
}

func TestScheduler_RejectsInvalidSchedule(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	err := s.Add(Job{Name: "bad", Schedule: "not a schedule", Run: func(context.Context) error { return nil }})
	assert.Error(t, err)
}

func TestScheduler_RunOnceLogsFailure(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	s := NewScheduler(zap.New(core))

	s.runOnce(Job{Name: "failing", Run: func(context.Context) error { return errors.New("boom") }}, time.Second)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "failing", logs.All()[0].ContextMap()["job"])
}

func TestScheduler_StopCancelsJobContext(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	require.NoError(t, s.Add(Job{Name: "noop", Schedule: "@hourly", Run: func(context.Context) error { return nil }}))
	s.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.Error(t, s.ctx.Err())
}
