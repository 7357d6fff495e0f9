package conversation

import (
	"encoding/json"

	"conversation-runtime/server/internal/message"
)

const snapshotVersion = 1

// deferredEntryJSON mirrors the saved-state layout's
// `Array<{message, delay}>` shape for one deferred queue entry.
type deferredEntryJSON struct {
	Message message.Message `json:"message"`
	Delay   int             `json:"delay"`
}

// Snapshot is the JSON-serializable form of a conversation's saved state.
// notifiedChatIds is intentionally absent: a restored session always
// renotifies on the first background message after reload rather than
// trying to recall which chats were already flagged.
type Snapshot struct {
	V                 int                              `json:"v"`
	Story             string                            `json:"story"`
	History           message.History                   `json:"history"`
	LastReadMessageID map[string]string                 `json:"lastReadMessageId"`
	DeferredMessages  map[string][]deferredEntryJSON     `json:"deferredMessages"`
	LabeledMessages   map[string]message.Message         `json:"labeledMessages"`
}

// Serialize produces the on-demand JSON snapshot. The interpreter
// supplies its own opaque `story` string via Serialize().
func (m *Machine) Serialize() (string, error) {
	storyState, err := m.story.Serialize()
	if err != nil {
		return "", err
	}

	deferred := make(map[string][]deferredEntryJSON, len(m.ctx.DeferredMessages))
	for chatID, entries := range m.ctx.DeferredMessages {
		out := make([]deferredEntryJSON, len(entries))
		for i, e := range entries {
			out[i] = deferredEntryJSON{Message: e.Message, Delay: e.Delay}
		}
		deferred[chatID] = out
	}

	snap := Snapshot{
		V:                 snapshotVersion,
		Story:             storyState,
		History:           m.ctx.History,
		LastReadMessageID: m.ctx.LastReadMessageID,
		DeferredMessages:  deferred,
		LabeledMessages:   m.ctx.LabeledMessages,
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Deserialize parses a Snapshot produced by Serialize, without applying it
// to a Machine — internal/runtime's Session.Snapshot uses this to return
// the serialized state as a value.
func Deserialize(data string) (Snapshot, error) {
	var snap Snapshot
	err := json.Unmarshal([]byte(data), &snap)
	return snap, err
}

// LoadSnapshot restores both the interpreter's own opaque state and the
// conversation context from a previously-serialized Snapshot, then runs
// STORY_LOADED.
func (m *Machine) LoadSnapshot(snap Snapshot) error {
	if err := m.story.Load(snap.Story); err != nil {
		return err
	}
	m.Load(snap.ToLoadInput())
	return nil
}

// ToLoadInput converts a parsed Snapshot into the shape Machine.Load
// expects.
func (s Snapshot) ToLoadInput() LoadInput {
	deferred := make(map[string][]DeferredEntry, len(s.DeferredMessages))
	for chatID, entries := range s.DeferredMessages {
		out := make([]DeferredEntry, len(entries))
		for i, e := range entries {
			out[i] = DeferredEntry{Message: e.Message, Delay: e.Delay}
		}
		deferred[chatID] = out
	}
	return LoadInput{
		History:           s.History,
		LastReadMessageID:  s.LastReadMessageID,
		DeferredMessages:  deferred,
		LabeledMessages:   s.LabeledMessages,
	}
}
