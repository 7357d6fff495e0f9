// Package events implements the Event Contract: a fixed set of typed
// payloads, each produced only through its own factory so the shape
// emitted can never drift from what subscribers expect.
package events

import (
	"conversation-runtime/server/internal/message"
	"conversation-runtime/server/internal/story"
)

// Name identifies one of the contract's event kinds.
type Name string

const (
	MessageReceived    Name = "message-received"
	MessageSent        Name = "message-sent"
	NotificationShow   Name = "notification-show"
	NotificationDismiss Name = "notification-dismiss"
	TypingStart        Name = "typing-start"
	TypingEnd          Name = "typing-end"
	ChoicesAvailable   Name = "choices-available"
	ChatOpened         Name = "chat-opened"
	ChatClosed         Name = "chat-closed"
	PresenceChanged    Name = "presence-changed"
	TimeUpdated        Name = "time-updated"
	DayAdvanced        Name = "day-advanced"
	BatteryChanged     Name = "battery-changed"
	DataRequested      Name = "data-requested"
	DataReceived       Name = "data-received"
	DataError          Name = "data-error"
	Ready              Name = "ready"

	// ReceiptChanged fires on every receipt upgrade
	// (_receiptChanged{chatId, label, receipt}) and AudioCue fires when
	// play_sound runs. Neither appeared in the contract's original
	// enumerated event list, but both are wired through the same factory
	// discipline as the rest of the contract.
	ReceiptChanged Name = "receipt-changed"
	AudioCue       Name = "audio-cue"
)

// Event is the envelope every factory produces: a fixed Name paired with a
// payload whose concrete type matches that name. Subscribers must treat
// Payload as an immutable snapshot.
type Event struct {
	Name    Name
	Payload any
}

type MessageReceivedPayload struct {
	ChatID        string
	Message       message.Message
	IsCurrentChat bool
}

func NewMessageReceived(chatID string, m message.Message, isCurrentChat bool) Event {
	return Event{Name: MessageReceived, Payload: MessageReceivedPayload{ChatID: chatID, Message: m, IsCurrentChat: isCurrentChat}}
}

type MessageSentPayload struct {
	ChatID      string
	ChoiceIndex int
	Text        string
}

func NewMessageSent(chatID string, choiceIndex int, text string) Event {
	return Event{Name: MessageSent, Payload: MessageSentPayload{ChatID: chatID, ChoiceIndex: choiceIndex, Text: text}}
}

type NotificationShowPayload struct {
	ChatID  string
	Preview string
}

func NewNotificationShow(chatID, preview string) Event {
	return Event{Name: NotificationShow, Payload: NotificationShowPayload{ChatID: chatID, Preview: preview}}
}

type NotificationDismissPayload struct {
	ChatID string
}

func NewNotificationDismiss(chatID string) Event {
	return Event{Name: NotificationDismiss, Payload: NotificationDismissPayload{ChatID: chatID}}
}

type TypingStartPayload struct {
	ChatID  string
	Speaker string
}

func NewTypingStart(chatID, speaker string) Event {
	return Event{Name: TypingStart, Payload: TypingStartPayload{ChatID: chatID, Speaker: speaker}}
}

type TypingEndPayload struct {
	ChatID string
}

func NewTypingEnd(chatID string) Event {
	return Event{Name: TypingEnd, Payload: TypingEndPayload{ChatID: chatID}}
}

type ChoicesAvailablePayload struct {
	Choices []story.Choice
}

func NewChoicesAvailable(choices []story.Choice) Event {
	return Event{Name: ChoicesAvailable, Payload: ChoicesAvailablePayload{Choices: choices}}
}

type ChatOpenedPayload struct {
	ChatID   string
	Messages []message.Message
}

func NewChatOpened(chatID string, messages []message.Message) Event {
	return Event{Name: ChatOpened, Payload: ChatOpenedPayload{ChatID: chatID, Messages: messages}}
}

type ChatClosedPayload struct{}

func NewChatClosed() Event {
	return Event{Name: ChatClosed, Payload: ChatClosedPayload{}}
}

type PresenceChangedPayload struct {
	ChatID string
	Status string
}

func NewPresenceChanged(chatID, status string) Event {
	return Event{Name: PresenceChanged, Payload: PresenceChangedPayload{ChatID: chatID, Status: status}}
}

type TimeUpdatedPayload struct {
	Time int
	Day  int
}

func NewTimeUpdated(minutesSinceMidnight, day int) Event {
	return Event{Name: TimeUpdated, Payload: TimeUpdatedPayload{Time: minutesSinceMidnight, Day: day}}
}

type DayAdvancedPayload struct {
	Time int
	Day  int
}

func NewDayAdvanced(minutesSinceMidnight, day int) Event {
	return Event{Name: DayAdvanced, Payload: DayAdvancedPayload{Time: minutesSinceMidnight, Day: day}}
}

type BatteryChangedPayload struct {
	Battery int
	IsLow   bool
}

func NewBatteryChanged(battery int, isLow bool) Event {
	return Event{Name: BatteryChanged, Payload: BatteryChangedPayload{Battery: battery, IsLow: isLow}}
}

type DataRequestedPayload struct {
	ID     string
	Source string
	Query  string
	Params map[string]string
}

func NewDataRequested(id, source, query string, params map[string]string) Event {
	return Event{Name: DataRequested, Payload: DataRequestedPayload{ID: id, Source: source, Query: query, Params: params}}
}

type DataReceivedPayload struct {
	ID   string
	Data string
}

func NewDataReceived(id, data string) Event {
	return Event{Name: DataReceived, Payload: DataReceivedPayload{ID: id, Data: data}}
}

type DataErrorPayload struct {
	ID    string
	Error string
}

func NewDataError(id, errMsg string) Event {
	return Event{Name: DataError, Payload: DataErrorPayload{ID: id, Error: errMsg}}
}

type ReadyPayload struct{}

func NewReady() Event {
	return Event{Name: Ready, Payload: ReadyPayload{}}
}

type ReceiptChangedPayload struct {
	ChatID  string
	Label   string
	Receipt message.Receipt
}

func NewReceiptChanged(chatID, label string, receipt message.Receipt) Event {
	return Event{Name: ReceiptChanged, Payload: ReceiptChangedPayload{ChatID: chatID, Label: label, Receipt: receipt}}
}

type AudioCuePayload struct {
	SoundID string
}

func NewAudioCue(soundID string) Event {
	return Event{Name: AudioCue, Payload: AudioCuePayload{SoundID: soundID}}
}
