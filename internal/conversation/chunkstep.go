package conversation

import (
	"strconv"
	"strings"
	"time"

	"conversation-runtime/server/internal/chunkhelpers"
	"conversation-runtime/server/internal/events"
	"conversation-runtime/server/internal/message"
	"conversation-runtime/server/internal/receipts"
	"conversation-runtime/server/internal/tagparser"
)

// stepChunk executes exactly one Continue() call and its full per-chunk
// fan-out. It always returns with the machine still in StateProcessing —
// the caller's runUntilSuspension loop re-evaluates from the top
// afterward.
func (m *Machine) stepChunk() {
	m.ctx.CapturedDelay = 0
	rawText, err := m.story.Continue()
	if err != nil {
		m.logger.Error("conversation: story Continue failed", "err", err, "path", m.story.CurrentPathString())
		return
	}
	text := strings.TrimSpace(rawText)
	tags := tagparser.Parse(m.story.CurrentTags())

	storyCurrentChatVar := m.story.Variables().GetString("current_chat", "")
	targetChatID, wasUnknown := chunkhelpers.ResolveTargetChat(tags.Get("targetChat"), storyCurrentChatVar, m.ctx.KnownChats)
	if wasUnknown {
		m.logger.Warn("conversation: unknown target chat, routed to sink", "targetChat", targetChatID)
	}
	m.ctx.CurrentStoryChatID = targetChatID

	tagDelay := parseIntTag(tags, "delay")
	capturedDelay := chunkhelpers.ComposeDelay(tagDelay, m.ctx.CapturedDelay)
	m.ctx.CapturedDelay = 0

	if tags.Has("story_start") {
		m.ctx.StoryStarted = true
		m.ctx.StoryStartedThisRender = true
	}
	storyStarted := m.ctx.StoryStarted
	hasStatus := hasAnyStatusTag(tags)
	immediate := tags.Has("immediate")

	if raw := tags.Get("time"); raw != "" {
		m.acceptTime(raw, storyStarted)
	}
	if presence := tags.Status.Presence; presence != "" {
		m.publish(events.NewPresenceChanged(targetChatID, presence))
	}

	// Step 4: deferred receipt upgrade short-circuits the rest of the step.
	if tags.ReceiptDeferred != nil {
		status := message.Receipt(tags.ReceiptDeferred.Status)
		if upg := receipts.ExplicitUpgrade(m.ctx.History, m.ctx.LabeledMessages, tags.ReceiptDeferred.Label, status); upg != nil {
			m.ctx.ReceiptChanged = &ReceiptChange{ChatID: upg.ChatID, Label: upg.Label, Receipt: upg.Receipt}
			m.publish(events.NewReceiptChanged(upg.ChatID, upg.Label, upg.Receipt))
		}
		m.armDelay(targetChatID, capturedDelay)
		return
	}

	// Step 5: empty-text special cases, in priority order.
	if text == "" {
		if tags.Has("story_start") && !tags.Has("delay") && !hasStatus {
			m.armDelay(targetChatID, capturedDelay)
			return
		}
		if chunkhelpers.IsStatusOnlyChunk(text, hasStatus) {
			status := message.Build(message.BuildInput{
				Text:            "",
				Tags:            tags,
				Now:             time.Now(),
				LabeledMessages: m.ctx.LabeledMessages,
				Logger:          m.logger,
			})
			status.StatusOnly = true
			m.routeMessage(targetChatID, status, capturedDelay, immediate)
			return
		}
		if capturedDelay > 0 {
			m.armDelay(targetChatID, capturedDelay)
			return
		}
		return // no-op
	}

	// Step 6: seed-skip guard.
	if !storyStarted && chunkhelpers.HasSeedMessages(m.ctx.History[targetChatID]) {
		return
	}

	// Step 7: build the message via the factory.
	msg := message.Build(message.BuildInput{
		Text:            text,
		Tags:            tags,
		Now:             time.Now(),
		LabeledMessages: m.ctx.LabeledMessages,
		Logger:          m.logger,
	})
	if msg.Label != "" {
		m.ctx.LabeledMessages[msg.Label] = msg
	}

	// Step 8: duplicate detection.
	if chunkhelpers.IsDuplicate(m.ctx.History[targetChatID], msg) {
		return
	}

	m.routeMessage(targetChatID, msg, capturedDelay, immediate)
}

// routeMessage implements steps 9-11 of the per-chunk step: deferred
// routing, high-water-mark update, and the delay/append decision.
func (m *Machine) routeMessage(targetChatID string, msg message.Message, capturedDelay int, immediate bool) {
	isBackground := m.ctx.View.Type == ViewChat && targetChatID != m.ctx.View.ChatID
	alreadyNotified := m.ctx.NotifiedChatIDs[targetChatID]

	if isBackground && alreadyNotified {
		if immediate {
			m.flushDeferred(targetChatID)
			// fall through: this message still needs to be appended below.
		} else {
			delay := capturedDelay
			if delay == 0 {
				delay = 500
			}
			m.ctx.DeferredMessages[targetChatID] = append(m.ctx.DeferredMessages[targetChatID], DeferredEntry{Message: msg, Delay: delay})
			return
		}
	}

	willNotify := (m.ctx.View.Type != ViewChat || targetChatID != m.ctx.View.ChatID) && !alreadyNotified
	if willNotify {
		if _, ok := m.ctx.LastReadMessageID[targetChatID]; !ok {
			m.ctx.LastReadMessageID[targetChatID] = m.ctx.lastMessageID(targetChatID)
		}
		m.ctx.NotifiedChatIDs[targetChatID] = true
		m.publish(events.NewNotificationShow(targetChatID, previewOf(msg)))
	}

	totalDelay := chunkhelpers.ComposeDelay(m.ctx.PendingDelay, capturedDelay)
	if totalDelay > 0 {
		m.ctx.BufferedMessage = &msg
		m.ctx.TargetChatID = targetChatID
		m.ctx.PendingDelay = totalDelay
		return
	}
	m.commitMessage(targetChatID, msg)
}

func (m *Machine) flushDeferred(chatID string) {
	entries := m.ctx.DeferredMessages[chatID]
	delete(m.ctx.DeferredMessages, chatID)
	for _, e := range entries {
		m.commitMessage(chatID, e.Message)
	}
}

// armDelay folds capturedDelay into the pending delay without building a
// message — used by the empty-text and deferred-receipt paths. The typing
// indicator this arms needs a target chat even though no message is
// buffered alongside it.
func (m *Machine) armDelay(targetChatID string, capturedDelay int) {
	if capturedDelay <= 0 {
		return
	}
	m.ctx.PendingDelay = chunkhelpers.ComposeDelay(m.ctx.PendingDelay, capturedDelay)
	m.ctx.TargetChatID = targetChatID
}

func hasAnyStatusTag(tags *tagparser.Context) bool {
	s := tags.Status
	return s.HasBattery || s.HasSignal || s.Weather != "" || s.Temperature != "" || s.Internet != "" || s.Presence != ""
}

func parseIntTag(tags *tagparser.Context, key string) int {
	raw := tags.Get(key)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return n
}

func previewOf(msg message.Message) string {
	switch msg.Kind {
	case message.KindText:
		return msg.Text
	case message.KindAudio:
		return msg.Transcript
	case message.KindImage:
		return msg.Caption
	case message.KindAttachment:
		return msg.Caption
	case message.KindLinkPreview:
		if msg.LinkPreview != nil {
			return msg.LinkPreview.Title
		}
	}
	return ""
}
