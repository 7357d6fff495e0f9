package workers

import (
	"context"
	"log/slog"
	"time"

	"conversation-runtime/server/internal/runtime"
	"conversation-runtime/server/internal/sessionstore"
)

// FlushJob periodically serializes every active session and writes its
// snapshot to the session store, so a process restart can resume from
// the store instead of losing in-memory state.
type FlushJob struct {
	Manager *runtime.Manager
	Store   sessionstore.Store
	TTL     time.Duration
}

func (j *FlushJob) Run(pm *PoolManager, ctx context.Context) {
	for _, id := range j.Manager.SessionIDs() {
		id := id
		pm.SubmitSnapshotFlush(func() {
			sess, ok := j.Manager.Get(id)
			if !ok {
				return
			}
			snap, err := sess.Snapshot()
			if err != nil {
				slog.Error("snapshot flush failed", "session_id", id, "error", err)
				return
			}
			if err := j.Store.Set(ctx, id, snap, j.TTL); err != nil {
				slog.Error("snapshot store write failed", "session_id", id, "error", err)
			}
		})
	}
}

// ReapJob periodically closes sessions that have been idle past the
// configured timeout, freeing their goroutine and channel.
type ReapJob struct {
	Manager   *runtime.Manager
	IdleAfter time.Duration
}

func (j *ReapJob) Run(pm *PoolManager, ctx context.Context) {
	for _, id := range j.Manager.IdleSessionIDs(j.IdleAfter) {
		id := id
		pm.SubmitReapTask(func() {
			if err := j.Manager.Remove(id); err != nil {
				slog.Warn("idle reap failed", "session_id", id, "error", err)
				return
			}
			slog.Info("reaped idle session", "session_id", id)
		})
	}
}
