package conversation

import (
	"conversation-runtime/server/internal/events"
	"conversation-runtime/server/internal/message"
)

// OpenChat handles OPEN_CHAT{chatId}. It may arrive in any state;
// afterward the machine always re-enters processing so interpreter state
// restored in step 2 (if any) can settle into the right suspended state
// on its own (waitingForInput if the restored choices are pending,
// idle/delaying/awaitingData otherwise). Treating every incoming state
// the same way keeps a single code path for "opening is a flush point,"
// rather than special-casing the delaying→processing transition alone.
func (m *Machine) OpenChat(chatID string) {
	previousChatID := ""
	if m.ctx.View.Type == ViewChat {
		previousChatID = m.ctx.View.ChatID
	}

	wasDelaying := m.ctx.State == StateDelaying
	if wasDelaying && m.cancelTimer != nil {
		m.cancelTimer()
		m.cancelTimer = nil
	}

	// Step 1: commit a matching buffered message now, so the unread
	// separator has something to anchor against. A buffered message for
	// some other chat is simply dropped along with the cancelled timer —
	// opening a chat is a flush point only for that chat's own delay.
	if m.ctx.BufferedMessage != nil && m.ctx.TargetChatID == chatID {
		msg := *m.ctx.BufferedMessage
		m.ctx.BufferedMessage = nil
		m.ctx.PendingDelay = 0
		m.ctx.TargetChatID = ""
		m.commitMessage(chatID, msg)
	} else if wasDelaying {
		m.ctx.BufferedMessage = nil
		m.ctx.PendingDelay = 0
		m.ctx.TargetChatID = ""
	}

	// Step 2: save/restore choice state.
	if choices := m.story.CurrentChoices(); len(choices) > 0 && m.ctx.ChoicesChatID != "" && m.ctx.ChoicesChatID != chatID {
		if state, err := m.story.Serialize(); err == nil {
			m.ctx.SavedChoicesState[m.ctx.ChoicesChatID] = state
		}
	}
	if saved, ok := m.ctx.SavedChoicesState[chatID]; ok {
		if err := m.story.Load(saved); err != nil {
			m.logger.Warn("conversation: failed to restore saved choice state", "chatId", chatID, "err", err)
		}
		delete(m.ctx.SavedChoicesState, chatID)
	}

	// Step 3: update view, pin previous chat's read cursor.
	m.ctx.View = View{Type: ViewChat, ChatID: chatID}
	if previousChatID != "" {
		m.ctx.LastReadMessageID[previousChatID] = m.ctx.lastMessageID(previousChatID)
	}

	// Step 4: arm the head of the deferred queue, if any.
	if queue := m.ctx.DeferredMessages[chatID]; len(queue) > 0 {
		head := queue[0]
		m.ctx.DeferredMessages[chatID] = queue[1:]
		m.ctx.BufferedMessage = &head.Message
		m.ctx.TargetChatID = chatID
		m.ctx.PendingDelay = head.Delay
	}

	// Step 5: clear the notification flag.
	delete(m.ctx.NotifiedChatIDs, chatID)
	m.publish(events.NewNotificationDismiss(chatID))

	// Step 6: mark existing history as emitted (idempotent replay guard).
	for _, msg := range m.ctx.History[chatID] {
		m.ctx.markEmitted(chatID, msg.ID)
	}
	snapshot := make([]message.Message, len(m.ctx.History[chatID]))
	copy(snapshot, m.ctx.History[chatID])
	m.publish(events.NewChatOpened(chatID, snapshot))

	m.ctx.State = StateProcessing
	m.runUntilSuspension()
}

// CloseChat handles CLOSE_CHAT. From delaying it cancels the timer and
// drops the buffered message outright — an explicit, documented policy,
// not a bug: re-entering the chat later will not resurrect it unless the
// story re-emits it.
func (m *Machine) CloseChat() {
	if m.ctx.View.Type == ViewChat {
		chatID := m.ctx.View.ChatID
		m.ctx.LastReadMessageID[chatID] = m.ctx.lastMessageID(chatID)
		if choices := m.story.CurrentChoices(); len(choices) > 0 {
			if state, err := m.story.Serialize(); err == nil {
				m.ctx.SavedChoicesState[chatID] = state
			}
		}
	}
	m.ctx.View = View{Type: ViewHub}
	m.publish(events.NewChatClosed())

	if m.ctx.State == StateDelaying {
		if m.cancelTimer != nil {
			m.cancelTimer()
			m.cancelTimer = nil
		}
		m.ctx.BufferedMessage = nil
		m.ctx.PendingDelay = 0
		m.ctx.TargetChatID = ""
		m.ctx.State = StateIdle
	}
}
