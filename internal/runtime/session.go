package runtime

import (
	"sync/atomic"
	"time"

	"conversation-runtime/server/internal/conversation"
	"conversation-runtime/server/internal/events"
)

// Session owns exactly one conversation.Machine and runs every command
// against it on a single goroutine: a Conversation Context is never shared
// across goroutines directly, only through the session's own serialized
// command channel. All exported methods are safe to call concurrently
// from HTTP handlers; they block until the command has run.
type Session struct {
	ID string

	machine *conversation.Machine
	cmds    chan func()
	done    chan struct{}

	createdAt    time.Time
	lastActivity atomic.Int64 // unix nano
}

func newSession(id string, m *conversation.Machine) *Session {
	s := &Session{
		ID:        id,
		machine:   m,
		cmds:      make(chan func(), 32),
		done:      make(chan struct{}),
		createdAt: time.Now(),
	}
	s.touch()
	go s.run()
	return s
}

func (s *Session) run() {
	for {
		select {
		case fn := <-s.cmds:
			fn()
		case <-s.done:
			return
		}
	}
}

// exec runs fn on the session's goroutine and blocks until it completes.
func (s *Session) exec(fn func()) {
	reply := make(chan struct{})
	s.cmds <- func() {
		fn()
		close(reply)
	}
	<-reply
	s.touch()
}

func (s *Session) touch() {
	s.lastActivity.Store(time.Now().UnixNano())
}

// IdleFor reports how long this session has gone without a command.
func (s *Session) IdleFor() time.Duration {
	last := time.Unix(0, s.lastActivity.Load())
	return time.Since(last)
}

// Close stops the session's command goroutine. Callers must not invoke any
// other method afterward.
func (s *Session) Close() {
	close(s.done)
}

// Load replays STORY_LOADED against the session (used once at creation and
// again if a host reloads a snapshot into an existing session id).
func (s *Session) Load(in conversation.LoadInput) {
	s.exec(func() { s.machine.Load(in) })
}

// Choose handles CHOOSE{index}.
func (s *Session) Choose(index int) {
	s.exec(func() { s.machine.Choose(index) })
}

// OpenChat handles OPEN_CHAT{chatId}.
func (s *Session) OpenChat(chatID string) {
	s.exec(func() { s.machine.OpenChat(chatID) })
}

// CloseChat handles CLOSE_CHAT.
func (s *Session) CloseChat() {
	s.exec(func() { s.machine.CloseChat() })
}

// DataReady handles DATA_READY.
func (s *Session) DataReady() {
	s.exec(func() { s.machine.DataReady() })
}

// Reset handles RESET_GAME.
func (s *Session) Reset() {
	s.exec(func() { s.machine.Reset() })
}

// MarkChatNotified handles MARK_CHAT_NOTIFIED{chatId}.
func (s *Session) MarkChatNotified(chatID string) {
	s.exec(func() { s.machine.MarkChatNotified(chatID) })
}

// CheckStory handles CHECK_STORY.
func (s *Session) CheckStory() {
	s.exec(func() { s.machine.CheckStory() })
}

// Snapshot produces the on-demand saved-state serialization from inside
// the session's own goroutine, so it never races a concurrent command.
func (s *Session) Snapshot() (conversation.Snapshot, error) {
	var snap conversation.Snapshot
	var err error
	s.exec(func() {
		var data string
		data, err = s.machine.Serialize()
		if err != nil {
			return
		}
		snap, err = conversation.Deserialize(data)
	})
	return snap, err
}

// Subscribe registers fn against this session's event bus — the
// GET /api/sessions/:id/events SSE stream subscribes this way. The
// returned func unsubscribes.
func (s *Session) Subscribe(fn events.Subscriber) func() {
	return s.machine.Bus().Subscribe(fn)
}
