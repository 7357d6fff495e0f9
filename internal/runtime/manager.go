package runtime

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"conversation-runtime/server/internal/battery"
	"conversation-runtime/server/internal/conversation"
	"conversation-runtime/server/internal/events"
	"conversation-runtime/server/internal/story"
	"conversation-runtime/server/internal/timectx"
)

// Config holds what every session created by a Manager shares: the locale
// table, the reduce-motion flag and the logger. Per-session state (event
// bus, clock, battery level) is built fresh by CreateSession, and the
// story interpreter is passed to CreateSession per call.
type Config struct {
	Locale       map[string]string
	ReduceMotion bool
	Logger       *slog.Logger

	// NewScheduler, when set, overrides the default RealScheduler per
	// session — tests inject a factory returning a fresh
	// *conversation.ManualScheduler per call.
	NewScheduler func() conversation.Scheduler

	// OnStall is invoked with the originating session id, letting a host
	// log or alert on stalled stories across every active session.
	OnStall func(sessionID string, diag conversation.StallDiagnostic)
}

// Manager owns the registry of active sessions — one core instance per
// active session/story-load.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	cfg      Config
}

func NewManager(cfg Config) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Locale == nil {
		cfg.Locale = map[string]string{}
	}
	return &Manager{
		sessions: map[string]*Session{},
		cfg:      cfg,
	}
}

// CreateSession loads a compiled story interpreter into a brand-new
// session, assigns it a uuid, and runs STORY_LOADED against it before
// returning. knownChats seeds the Target Chat validation set; in is
// STORY_LOADED's payload (history/lastReadMessageId/deferredMessages/
// labeledMessages), typically empty for a fresh playthrough.
func (mgr *Manager) CreateSession(interp story.Interpreter, knownChats []string, in conversation.LoadInput) *Session {
	id := uuid.New().String()

	cfg := conversation.Config{
		Story:        interp,
		Bus:          events.NewBus(),
		Time:         timectx.New(),
		Battery:      battery.New(),
		Locale:       mgr.cfg.Locale,
		Logger:       mgr.cfg.Logger,
		ReduceMotion: mgr.cfg.ReduceMotion,
		KnownChats:   knownChats,
	}
	if mgr.cfg.NewScheduler != nil {
		cfg.Scheduler = mgr.cfg.NewScheduler()
	}
	if mgr.cfg.OnStall != nil {
		cfg.OnStall = func(diag conversation.StallDiagnostic) {
			mgr.cfg.OnStall(id, diag)
		}
	}

	m := conversation.New(cfg)
	sess := newSession(id, m)

	mgr.mu.Lock()
	mgr.sessions[id] = sess
	mgr.mu.Unlock()

	sess.Load(in)
	return sess
}

// Get looks up a live session by id.
func (mgr *Manager) Get(id string) (*Session, bool) {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()
	sess, ok := mgr.sessions[id]
	return sess, ok
}

// Remove stops and forgets a session.
func (mgr *Manager) Remove(id string) error {
	mgr.mu.Lock()
	sess, ok := mgr.sessions[id]
	if ok {
		delete(mgr.sessions, id)
	}
	mgr.mu.Unlock()
	if !ok {
		return fmt.Errorf("runtime: session %q not found", id)
	}
	sess.Close()
	return nil
}

// Count reports the number of active sessions (for health reporting).
func (mgr *Manager) Count() int {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()
	return len(mgr.sessions)
}

// SessionIDs returns every active session id — internal/workers' snapshot
// flusher iterates this each tick.
func (mgr *Manager) SessionIDs() []string {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()
	ids := make([]string, 0, len(mgr.sessions))
	for id := range mgr.sessions {
		ids = append(ids, id)
	}
	return ids
}

// IdleSessionIDs returns every session id that has gone longer than maxIdle
// without a command — internal/workers' idle-session reaper polls this.
func (mgr *Manager) IdleSessionIDs(maxIdle time.Duration) []string {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()
	var ids []string
	for id, sess := range mgr.sessions {
		if sess.IdleFor() >= maxIdle {
			ids = append(ids, id)
		}
	}
	return ids
}
