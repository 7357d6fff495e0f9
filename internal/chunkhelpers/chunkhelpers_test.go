package chunkhelpers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"conversation-runtime/server/internal/message"
)

func TestResolveTargetChat_TagWins(t *testing.T) {
	known := map[string]bool{"P": true, "N": true}
	chat, unknown := ResolveTargetChat("P", "N", known)
	assert.Equal(t, "P", chat)
	assert.False(t, unknown)
}

func TestResolveTargetChat_FallsBackToStoryVariable(t *testing.T) {
	known := map[string]bool{"N": true}
	chat, unknown := ResolveTargetChat("", "N", known)
	assert.Equal(t, "N", chat)
	assert.False(t, unknown)
}

func TestResolveTargetChat_UnknownWhenNeitherResolves(t *testing.T) {
	chat, unknown := ResolveTargetChat("", "", map[string]bool{"N": true})
	assert.Equal(t, UnknownChat, chat)
	assert.True(t, unknown)
}

func TestResolveTargetChat_UnknownWhenNotInKnownSet(t *testing.T) {
	chat, unknown := ResolveTargetChat("Ghost", "N", map[string]bool{"N": true})
	assert.Equal(t, UnknownChat, chat)
	assert.True(t, unknown)
}

func TestComposeDelay(t *testing.T) {
	assert.Equal(t, 800, ComposeDelay(300, 500))
	assert.Equal(t, 0, ComposeDelay(0, 0))
}

func TestIsDuplicate_TextMatch(t *testing.T) {
	history := []message.Message{
		{Kind: message.KindText, Type: message.TypeReceived, Speaker: "Pat", Text: "Hi"},
	}
	candidate := message.Message{Kind: message.KindText, Type: message.TypeReceived, Speaker: "Pat", Text: "Hi"}
	assert.True(t, IsDuplicate(history, candidate))
}

func TestIsDuplicate_DifferentSpeakerNotDuplicate(t *testing.T) {
	history := []message.Message{
		{Kind: message.KindText, Type: message.TypeReceived, Speaker: "Pat", Text: "Hi"},
	}
	candidate := message.Message{Kind: message.KindText, Type: message.TypeReceived, Speaker: "Sam", Text: "Hi"}
	assert.False(t, IsDuplicate(history, candidate))
}

func TestIsDuplicate_OnlyScansLastTenMessages(t *testing.T) {
	history := make([]message.Message, 0, 11)
	history = append(history, message.Message{Kind: message.KindText, Type: message.TypeReceived, Speaker: "Pat", Text: "old"})
	for i := 0; i < 10; i++ {
		history = append(history, message.Message{Kind: message.KindText, Type: message.TypeReceived, Speaker: "Pat", Text: "filler"})
	}
	candidate := message.Message{Kind: message.KindText, Type: message.TypeReceived, Speaker: "Pat", Text: "old"}
	assert.False(t, IsDuplicate(history, candidate))
}

func TestIsDuplicate_AudioComparesSrc(t *testing.T) {
	history := []message.Message{
		{Kind: message.KindAudio, Type: message.TypeReceived, Speaker: "Pat", AudioSrc: "a.mp3"},
	}
	dup := message.Message{Kind: message.KindAudio, Type: message.TypeReceived, Speaker: "Pat", AudioSrc: "a.mp3"}
	notDup := message.Message{Kind: message.KindAudio, Type: message.TypeReceived, Speaker: "Pat", AudioSrc: "b.mp3"}
	assert.True(t, IsDuplicate(history, dup))
	assert.False(t, IsDuplicate(history, notDup))
}

func TestHasSeedMessages(t *testing.T) {
	assert.True(t, HasSeedMessages([]message.Message{{IsSeed: true}}))
	assert.False(t, HasSeedMessages([]message.Message{{IsSeed: false}}))
	assert.False(t, HasSeedMessages(nil))
}

func TestIsStatusOnlyChunk(t *testing.T) {
	assert.True(t, IsStatusOnlyChunk("", true))
	assert.False(t, IsStatusOnlyChunk("", false))
	assert.False(t, IsStatusOnlyChunk("hello", true))
}
