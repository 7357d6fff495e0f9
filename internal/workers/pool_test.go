package workers

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPoolManager_SubmitSnapshotFlush(t *testing.T) {
	pm := NewPoolManager(PoolConfig{SnapshotWorkers: 2, ReaperWorkers: 2})
	defer pm.Shutdown()

	var ran atomic.Bool
	done := make(chan struct{})
	pm.SubmitSnapshotFlush(func() {
		ran.Store(true)
		close(done)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task never ran")
	}
	assert.True(t, ran.Load())
}

func TestRunPeriodic_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var ticks atomic.Int32

	finished := make(chan struct{})
	go func() {
		RunPeriodic(ctx, 10*time.Millisecond, "test", func(ctx context.Context) {
			ticks.Add(1)
		})
		close(finished)
	}()

	time.Sleep(35 * time.Millisecond)
	cancel()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("RunPeriodic did not stop after cancel")
	}
	assert.GreaterOrEqual(t, ticks.Load(), int32(2))
}

func TestRunPeriodic_RecoversFromPanic(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var ticks atomic.Int32

	finished := make(chan struct{})
	go func() {
		RunPeriodic(ctx, 10*time.Millisecond, "panicky", func(ctx context.Context) {
			ticks.Add(1)
			panic("boom")
		})
		close(finished)
	}()

	time.Sleep(35 * time.Millisecond)
	cancel()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("RunPeriodic did not stop after cancel")
	}
	assert.GreaterOrEqual(t, ticks.Load(), int32(2))
}
