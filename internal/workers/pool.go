// Package workers runs the two periodic background jobs a conversation
// runtime host needs: flushing session snapshots to durable storage
// across the persistence boundary, and reaping sessions
// that have gone idle. Both run on pond worker pools, bounding how many
// flush/reap tasks execute concurrently regardless of how many sessions
// a tick finds.
package workers

import (
	"context"
	"log/slog"
	"time"

	"github.com/alitto/pond"
)

// PoolManager owns the two worker pools backing the snapshot-flush and
// idle-reap loops.
type PoolManager struct {
	SnapshotFlusher *pond.WorkerPool
	Reaper          *pond.WorkerPool
}

type PoolConfig struct {
	SnapshotWorkers int
	ReaperWorkers   int
}

func NewPoolManager(config PoolConfig) *PoolManager {
	return &PoolManager{
		SnapshotFlusher: pond.New(
			config.SnapshotWorkers,
			config.SnapshotWorkers*2,
			pond.MinWorkers(1),
			pond.IdleTimeout(30*time.Second),
		),
		Reaper: pond.New(
			config.ReaperWorkers,
			config.ReaperWorkers*2,
			pond.MinWorkers(1),
			pond.IdleTimeout(30*time.Second),
		),
	}
}

// SubmitSnapshotFlush queues a single session's snapshot write.
func (pm *PoolManager) SubmitSnapshotFlush(task func()) {
	pm.SnapshotFlusher.Submit(task)
}

// SubmitReapTask queues a single session's idle-reap.
func (pm *PoolManager) SubmitReapTask(task func()) {
	pm.Reaper.Submit(task)
}

// RunPeriodic ticks fn every interval until ctx is cancelled, recovering
// from a panicking fn so one bad tick doesn't kill the loop.
func RunPeriodic(ctx context.Context, interval time.Duration, name string, fn func(ctx context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			func() {
				defer func() {
					if r := recover(); r != nil {
						slog.Error("periodic job panicked", "job", name, "error", r)
					}
				}()
				fn(ctx)
			}()
		}
	}
}

func (pm *PoolManager) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"snapshot_flusher": map[string]interface{}{
			"running_workers":  pm.SnapshotFlusher.RunningWorkers(),
			"idle_workers":     pm.SnapshotFlusher.IdleWorkers(),
			"submitted_tasks":  pm.SnapshotFlusher.SubmittedTasks(),
			"waiting_tasks":    pm.SnapshotFlusher.WaitingTasks(),
			"successful_tasks": pm.SnapshotFlusher.SuccessfulTasks(),
			"failed_tasks":     pm.SnapshotFlusher.FailedTasks(),
		},
		"reaper": map[string]interface{}{
			"running_workers":  pm.Reaper.RunningWorkers(),
			"idle_workers":     pm.Reaper.IdleWorkers(),
			"submitted_tasks":  pm.Reaper.SubmittedTasks(),
			"waiting_tasks":    pm.Reaper.WaitingTasks(),
			"successful_tasks": pm.Reaper.SuccessfulTasks(),
			"failed_tasks":     pm.Reaper.FailedTasks(),
		},
	}
}

func (pm *PoolManager) Shutdown() {
	slog.Info("shutting down worker pools")

	pm.SnapshotFlusher.StopAndWait()
	slog.Info("snapshot flusher pool stopped")

	pm.Reaper.StopAndWait()
	slog.Info("reaper pool stopped")
}
