package timeouts

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestConfigure_IgnoresZero(t *testing.T) {
	t.Cleanup(Reset)

	Configure(Config{Short: 7 * time.Second, Sync: time.Minute})

	if Short() != 7*time.Second {
		t.Errorf("Short: got %v", Short())
	}
	if Sync() != time.Minute {
		t.Errorf("Sync: got %v", Sync())
	}
	if Medium() != DefaultMedium {
		t.Errorf("Medium should keep default, got %v", Medium())
	}

	Reset()
	if Current() != (Config{DefaultPing, DefaultShort, DefaultMedium, DefaultLong, DefaultSync}) {
		t.Errorf("Reset did not restore defaults: %+v", Current())
	}
}

func TestWithTimeout_LogsOnDeadline(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	log := zap.New(core)

	ctx, cancel := WithTimeout(context.Background(), time.Millisecond, log, "billing sync")
	<-ctx.Done()
	cancel()

	if logs.FilterMessage("operation timed out").Len() != 1 {
		t.Errorf("expected one timeout warning, got %d", logs.Len())
	}

	ctx, cancel = WithTimeout(context.Background(), time.Hour, log, "quick")
	cancel()
	_ = ctx
	if logs.Len() != 1 {
		t.Errorf("expected no extra warning for early cancel, got %d", logs.Len())
	}
}
