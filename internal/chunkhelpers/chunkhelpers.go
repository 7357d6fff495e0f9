// Package chunkhelpers holds the small pure functions shared by the
// conversation state machine and the message factory: duplicate detection,
// target-chat resolution, status-only detection, and delay composition.
package chunkhelpers

import (
	"strings"

	"conversation-runtime/server/internal/message"
)

// UnknownChat is the sink chat id a chunk routes to when its target chat
// cannot be resolved or validated.
const UnknownChat = "unknown"

// ResolveTargetChat implements the Target Chat rule: the tag override wins
// over the story's current_chat variable; if neither resolves or the
// result isn't in knownChats, the chunk routes to UnknownChat and the
// caller should log the violation once per unique id.
func ResolveTargetChat(tagTarget, storyCurrentChat string, knownChats map[string]bool) (chatID string, wasUnknown bool) {
	candidate := tagTarget
	if candidate == "" {
		candidate = storyCurrentChat
	}
	if candidate == "" {
		return UnknownChat, true
	}
	if knownChats != nil && !knownChats[candidate] {
		return UnknownChat, true
	}
	return candidate, false
}

// ComposeDelay sums a pending delay already accumulated in the state
// machine with a delay captured this chunk.
func ComposeDelay(pending, captured int) int {
	return pending + captured
}

// maxDuplicateWindow is how far back duplicate detection scans.
const maxDuplicateWindow = 10

// contentKey returns the kind-specific content-matching key for a message,
// used by IsDuplicate to compare candidates. Two messages are
// content-equal iff their contentKey, kind, type, and speaker all match.
func contentKey(m message.Message) string {
	switch m.Kind {
	case message.KindText:
		url := ""
		if m.LinkPreviewEmbedded != nil {
			url = m.LinkPreviewEmbedded.URL
		}
		return m.Text + "\x00" + url
	case message.KindAudio:
		return m.AudioSrc
	case message.KindImage:
		return m.ImageSrc
	case message.KindAttachment:
		return m.AttachmentSrc
	case message.KindLinkPreview:
		if m.LinkPreview != nil {
			return m.LinkPreview.URL
		}
		return ""
	default:
		return ""
	}
}

// IsDuplicate scans the last maxDuplicateWindow messages of history and
// reports whether candidate matches one of them on (kind, type, speaker,
// content-key) — this is what makes re-visited story passages safe to
// re-execute.
func IsDuplicate(history []message.Message, candidate message.Message) bool {
	start := 0
	if len(history) > maxDuplicateWindow {
		start = len(history) - maxDuplicateWindow
	}
	candidateKey := contentKey(candidate)
	for _, existing := range history[start:] {
		if existing.Kind != candidate.Kind {
			continue
		}
		if existing.Type != candidate.Type {
			continue
		}
		if existing.Speaker != candidate.Speaker {
			continue
		}
		if contentKey(existing) == candidateKey {
			return true
		}
	}
	return false
}

// HasSeedMessages reports whether history already contains a seed-marked
// message, used by the seed-skip guard.
func HasSeedMessages(history []message.Message) bool {
	for _, m := range history {
		if m.IsSeed {
			return true
		}
	}
	return false
}

// IsStatusOnlyChunk reports whether a chunk carries no meaningful text and
// should be treated as a synthetic status update rather than a message.
// text must already be trimmed.
func IsStatusOnlyChunk(text string, hasStatusTags bool) bool {
	return strings.TrimSpace(text) == "" && hasStatusTags
}
