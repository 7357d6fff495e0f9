// Package conversation implements the Conversation State Machine: the
// orchestrator that drains story chunks, buffers delayed messages, routes
// them to target chats, defers background-chat replay, saves/restores
// interpreter choice state across chat switches, and emits the domain
// event contract.
package conversation

import (
	"log/slog"

	"conversation-runtime/server/internal/battery"
	"conversation-runtime/server/internal/bridge"
	"conversation-runtime/server/internal/chunkhelpers"
	"conversation-runtime/server/internal/events"
	"conversation-runtime/server/internal/message"
	"conversation-runtime/server/internal/receipts"
	"conversation-runtime/server/internal/story"
	"conversation-runtime/server/internal/timectx"
)

// StallDiagnostic is the payload handed to an OnStall callback when the
// story appears looped or stuck at the same path for too long.
type StallDiagnostic struct {
	PathString string
	Visits     int
	TurnIndex  int
}

// Machine drives one story session end to end. It is not safe for
// concurrent use — it expects a single-threaded cooperative model, so
// callers must serialize Load/Choose/OpenChat and the other event-handler
// calls themselves (e.g.
// one goroutine per session, as internal/runtime arranges).
type Machine struct {
	ctx   *Context
	story story.Interpreter

	bus       *events.Bus
	time      *timectx.Context
	battery   *battery.Context
	locale    map[string]string
	logger    *slog.Logger
	scheduler Scheduler
	bridge    *bridge.Registry

	onStall      func(StallDiagnostic)
	reduceMotion bool
	cancelTimer  CancelFunc
}

// Config bundles Machine's collaborators: story handle, event bus, time
// context, and locale table.
type Config struct {
	Story        story.Interpreter
	Bus          *events.Bus
	Time         *timectx.Context
	Battery      *battery.Context
	Locale       map[string]string
	Logger       *slog.Logger
	Scheduler    Scheduler
	OnStall      func(StallDiagnostic)
	ReduceMotion bool
	KnownChats   []string
}

func New(cfg Config) *Machine {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = RealScheduler{}
	}
	if cfg.Time == nil {
		cfg.Time = timectx.New()
	}
	if cfg.Battery == nil {
		cfg.Battery = battery.New()
	}
	if cfg.Bus == nil {
		cfg.Bus = events.NewBus()
	}
	if cfg.Locale == nil {
		cfg.Locale = map[string]string{}
	}
	ctx := NewContext()
	if len(cfg.KnownChats) > 0 {
		ctx.KnownChats = map[string]bool{}
		for _, id := range cfg.KnownChats {
			ctx.KnownChats[id] = true
		}
	}
	m := &Machine{
		ctx:          ctx,
		story:        cfg.Story,
		bus:          cfg.Bus,
		time:         cfg.Time,
		battery:      cfg.Battery,
		locale:       cfg.Locale,
		logger:       cfg.Logger,
		scheduler:    cfg.Scheduler,
		onStall:      cfg.OnStall,
		reduceMotion: cfg.ReduceMotion,
	}
	m.bridge = bridge.NewRegistry(m)
	return m
}

// Context exposes the live state for inspection/snapshotting. Callers
// must not mutate the returned value directly.
func (m *Machine) Context() *Context { return m.ctx }

// Bridge exposes the registry so a real interpreter binding can route
// external-function calls through it.
func (m *Machine) Bridge() *bridge.Registry { return m.bridge }

// Bus exposes the event bus so a host (internal/runtime) can subscribe a
// session's SSE stream to this machine's event contract.
func (m *Machine) Bus() *events.Bus { return m.bus }

func (m *Machine) publish(ev events.Event) {
	if m.ctx.IsResetting {
		return
	}
	m.bus.Publish(ev)
}

// LoadInput is STORY_LOADED's payload.
type LoadInput struct {
	History           message.History
	LastReadMessageID map[string]string
	DeferredMessages  map[string][]DeferredEntry
	LabeledMessages   map[string]message.Message
}

// Load handles STORY_LOADED: `loading → processing`. Receipts are
// upgraded across the whole restored history before anything else runs;
// notifiedChatIds is never restored, so the first background message
// after a reload always renotifies.
func (m *Machine) Load(in LoadInput) {
	m.ctx.History = in.History
	if m.ctx.History == nil {
		m.ctx.History = message.History{}
	}
	m.ctx.LastReadMessageID = in.LastReadMessageID
	if m.ctx.LastReadMessageID == nil {
		m.ctx.LastReadMessageID = map[string]string{}
	}
	deferred := in.DeferredMessages
	if deferred == nil {
		deferred = map[string][]DeferredEntry{}
	}
	m.ctx.DeferredMessages = deferred
	m.ctx.LabeledMessages = in.LabeledMessages
	if m.ctx.LabeledMessages == nil {
		m.ctx.LabeledMessages = map[string]message.Message{}
	}
	m.ctx.NotifiedChatIDs = map[string]bool{}
	m.ctx.EmittedMessageIDs = map[string]map[string]bool{}
	for chatID, msgs := range m.ctx.History {
		for _, msg := range msgs {
			m.ctx.markEmitted(chatID, msg.ID)
		}
	}
	receipts.UpgradeOnLoad(m.ctx.History)
	m.ctx.IsResetting = false
	m.ctx.StoryStarted = historyImpliesStoryStarted(m.ctx.History)

	m.ctx.State = StateProcessing
	m.publish(events.NewReady())
	m.runUntilSuspension()
}

func historyImpliesStoryStarted(h message.History) bool {
	for _, msgs := range h {
		for _, msg := range msgs {
			if !msg.IsSeed {
				return true
			}
		}
	}
	return false
}

// runUntilSuspension repeatedly evaluates the processing step order
// until the machine lands in a suspended state (delaying, awaitingData,
// waitingForInput, idle).
func (m *Machine) runUntilSuspension() {
	for m.ctx.State == StateProcessing {
		m.evaluateProcessing()
	}
}

func (m *Machine) evaluateProcessing() {
	if m.ctx.PendingDelay > 0 {
		m.enterDelaying()
		return
	}
	if m.ctx.AwaitingData {
		m.ctx.State = StateAwaitingData
		return
	}
	if m.story.CanContinue() {
		m.stepChunk()
		return
	}
	if choices := m.story.CurrentChoices(); len(choices) > 0 {
		m.ctx.ChoicesChatID = m.ctx.CurrentStoryChatID
		m.ctx.State = StateWaitingForInput
		m.publish(events.NewChoicesAvailable(choices))
		return
	}
	m.ctx.State = StateIdle
	m.detectStall()
}

func (m *Machine) detectStall() {
	if m.onStall == nil {
		return
	}
	path := m.story.CurrentPathString()
	visits := m.story.VisitCountAtPathString(path)
	turn := m.story.TurnIndex()
	if visits > 10 || (turn > 100 && !m.story.IsEndingPath(path)) {
		m.onStall(StallDiagnostic{PathString: path, Visits: visits, TurnIndex: turn})
	}
}

func (m *Machine) enterDelaying() {
	m.ctx.State = StateDelaying
	speaker := ""
	if m.ctx.BufferedMessage != nil {
		speaker = m.ctx.BufferedMessage.Speaker
	}
	m.publish(events.NewTypingStart(m.ctx.TargetChatID, speaker))
	delay := m.ctx.PendingDelay
	if m.reduceMotion {
		delay = 0
	}
	m.cancelTimer = m.scheduler.After(delay, m.fireDelay)
}

func (m *Machine) fireDelay() {
	if m.ctx.State != StateDelaying {
		return
	}
	chatID := m.ctx.TargetChatID
	msg := m.ctx.BufferedMessage
	m.ctx.BufferedMessage = nil
	m.ctx.PendingDelay = 0
	m.ctx.TargetChatID = ""
	m.cancelTimer = nil
	m.publish(events.NewTypingEnd(chatID))
	if msg != nil {
		m.commitMessage(chatID, *msg)
	}
	// Once a message for the open chat commits, the next entry of that
	// chat's deferred queue is armed, so the queue replays one delay cycle
	// per entry.
	if m.ctx.View.Type == ViewChat && m.ctx.View.ChatID == chatID {
		if queue := m.ctx.DeferredMessages[chatID]; len(queue) > 0 {
			head := queue[0]
			m.ctx.DeferredMessages[chatID] = queue[1:]
			m.ctx.BufferedMessage = &head.Message
			m.ctx.TargetChatID = chatID
			m.ctx.PendingDelay = head.Delay
		}
	}
	m.ctx.State = StateProcessing
	m.runUntilSuspension()
}

// commitMessage appends msg to chatID's history, runs the receipt
// auto-upgrade, and emits message-received — the single path every
// delivered message passes through.
func (m *Machine) commitMessage(chatID string, msg message.Message) {
	m.ctx.History[chatID] = append(m.ctx.History[chatID], msg)
	if msg.Type == message.TypeReceived {
		if upg := receipts.AutoUpgrade(m.ctx.History, chatID); upg != nil {
			m.ctx.ReceiptChanged = &ReceiptChange{ChatID: upg.ChatID, Label: upg.Label, Receipt: upg.Receipt}
			m.publish(events.NewReceiptChanged(upg.ChatID, upg.Label, upg.Receipt))
		}
	}
	m.emitMessageReceived(chatID, msg)
}

func (m *Machine) emitMessageReceived(chatID string, msg message.Message) {
	if !m.ctx.markEmitted(chatID, msg.ID) {
		return
	}
	isCurrent := m.ctx.View.Type == ViewChat && m.ctx.View.ChatID == chatID
	m.publish(events.NewMessageReceived(chatID, msg, isCurrent))
}

// Choose handles CHOOSE{index}, the waitingForInput transition.
func (m *Machine) Choose(index int) {
	if m.ctx.State != StateWaitingForInput {
		m.logger.Warn("conversation: choose ignored outside waitingForInput", "state", m.ctx.State)
		return
	}
	if m.ctx.View.Type != ViewChat || m.ctx.ChoicesChatID != m.ctx.View.ChatID {
		m.logger.Debug("conversation: choose rejected, view mismatch", "choicesChatId", m.ctx.ChoicesChatID, "viewChatId", m.ctx.View.ChatID)
		return
	}
	choices := m.story.CurrentChoices()
	var text string
	for _, c := range choices {
		if c.Index == index {
			text = c.Text
			break
		}
	}
	if err := m.story.ChooseChoiceIndex(index); err != nil {
		m.logger.Warn("conversation: invalid choice index", "index", index, "err", err)
		return
	}
	m.publish(events.NewMessageSent(m.ctx.ChoicesChatID, index, text))
	m.ctx.State = StateProcessing
	m.runUntilSuspension()
}

// DataReady handles DATA_READY: clears awaitingData and resumes
// processing.
func (m *Machine) DataReady() {
	if !m.ctx.AwaitingData {
		return
	}
	m.ctx.AwaitingData = false
	m.ctx.State = StateProcessing
	m.runUntilSuspension()
}

// Reset handles RESET_GAME: sets isResetting so late emissions are
// suppressed; a subsequent Load clears it.
func (m *Machine) Reset() {
	m.ctx.IsResetting = true
}

// MarkChatNotified handles MARK_CHAT_NOTIFIED{chatId}.
func (m *Machine) MarkChatNotified(chatID string) {
	m.ctx.NotifiedChatIDs[chatID] = true
}

// CheckStory handles CHECK_STORY: nudges an idle machine to re-evaluate,
// in case host-visible story state changed without an input event (e.g. a
// variable was poked through a side channel).
func (m *Machine) CheckStory() {
	if m.ctx.State == StateIdle {
		m.ctx.State = StateProcessing
		m.runUntilSuspension()
	}
}
