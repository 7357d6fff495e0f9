package conversation

import "conversation-runtime/server/internal/message"

// State is one of the Conversation State Machine's six states.
type State string

const (
	StateLoading         State = "loading"
	StateProcessing      State = "processing"
	StateDelaying        State = "delaying"
	StateAwaitingData    State = "awaitingData"
	StateWaitingForInput State = "waitingForInput"
	StateIdle            State = "idle"
)

// ViewType discriminates Context.View.
type ViewType string

const (
	ViewHub  ViewType = "hub"
	ViewChat ViewType = "chat"
)

// View is the host's current focus: either the hub (chat list) or one
// open chat.
type View struct {
	Type   ViewType
	ChatID string
}

// DeferredEntry is one queued background-chat message awaiting replay.
type DeferredEntry struct {
	Message message.Message
	Delay   int
}

// Context is the conversation's full mutable state. Most fields are
// mutated only by the Machine via direct assignment; Messages already in
// History are immutable except for Receipt upgrades performed in place.
type Context struct {
	State State
	View  View

	History           message.History
	EmittedMessageIDs map[string]map[string]bool
	SavedChoicesState map[string]string

	BufferedMessage *message.Message
	PendingDelay    int
	TargetChatID    string

	StoryStarted           bool
	StoryStartedThisRender bool

	LabeledMessages map[string]message.Message

	LastReadMessageID map[string]string
	NotifiedChatIDs   map[string]bool
	DeferredMessages  map[string][]DeferredEntry

	ReceiptChanged *ReceiptChange

	// CapturedDelay accumulates delay_next() calls made by the bridge
	// during the in-flight Continue() call; consumed and reset at the
	// start of each per-chunk step.
	CapturedDelay int

	AwaitingData bool
	IsResetting  bool

	// ChoicesChatID is the target chat the currently offered choices
	// belong to, captured as the story's resolved target chat when the
	// machine entered waitingForInput.
	ChoicesChatID string

	// CurrentStoryChatID tracks the most recently resolved target chat
	// across chunk steps, independent of whether that chunk produced a
	// message; it backs ChoicesChatID capture.
	CurrentStoryChatID string

	KnownChats map[string]bool
}

// ReceiptChange mirrors receipts.Upgrade; redeclared here so conversation
// callers don't need to import the receipts package merely to read the
// one-cycle `_receiptChanged` signal off Context.
type ReceiptChange struct {
	ChatID  string
	Label   string
	Receipt message.Receipt
}

// NewContext builds a zero-value Context with every map initialized, ready
// for Load.
func NewContext() *Context {
	return &Context{
		State:             StateLoading,
		View:              View{Type: ViewHub},
		History:           message.History{},
		EmittedMessageIDs: map[string]map[string]bool{},
		SavedChoicesState: map[string]string{},
		LabeledMessages:   map[string]message.Message{},
		LastReadMessageID: map[string]string{},
		NotifiedChatIDs:   map[string]bool{},
		DeferredMessages:  map[string][]DeferredEntry{},
	}
}

func (c *Context) markEmitted(chatID, id string) bool {
	if c.EmittedMessageIDs[chatID] == nil {
		c.EmittedMessageIDs[chatID] = map[string]bool{}
	}
	if c.EmittedMessageIDs[chatID][id] {
		return false
	}
	c.EmittedMessageIDs[chatID][id] = true
	return true
}

func (c *Context) lastMessageID(chatID string) string {
	msgs := c.History[chatID]
	if len(msgs) == 0 {
		return message.BeforeAll
	}
	return msgs[len(msgs)-1].ID
}
