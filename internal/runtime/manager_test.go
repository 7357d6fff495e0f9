package runtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conversation-runtime/server/internal/conversation"
	"conversation-runtime/server/internal/events"
	"conversation-runtime/server/internal/story"
)

func TestManager_CreateSession_RunsLoadAndAssignsID(t *testing.T) {
	fi := story.NewFakeInterpreter()
	fi.Push(story.Chunk{Text: "Hi", Tags: []string{"speaker:A", "type:received", "targetChat:A"}})

	mgr := NewManager(Config{ReduceMotion: true})
	sess := mgr.CreateSession(fi, []string{"A"}, conversation.LoadInput{})

	require.NotEmpty(t, sess.ID)
	got, ok := mgr.Get(sess.ID)
	assert.True(t, ok)
	assert.Same(t, sess, got)
	assert.Equal(t, 1, mgr.Count())
}

func TestSession_SubscribeReceivesEvents(t *testing.T) {
	fi := story.NewFakeInterpreter()

	mgr := NewManager(Config{ReduceMotion: true})

	var names []events.Name
	done := make(chan struct{})
	sess := mgr.CreateSession(fi, []string{"A"}, conversation.LoadInput{})
	unsubscribe := sess.Subscribe(func(ev events.Event) {
		names = append(names, ev.Name)
		if ev.Name == events.MessageReceived {
			close(done)
		}
	})
	defer unsubscribe()

	// CreateSession has already run STORY_LOADED, so the chunk is queued
	// after subscribing and picked up by CHECK_STORY.
	fi.Push(story.Chunk{Text: "Hi", Tags: []string{"speaker:A", "type:received", "targetChat:A"}})
	sess.CheckStory()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message-received")
	}
	assert.Contains(t, names, events.MessageReceived)
}

func TestSession_ChooseIsSerializedThroughCommandChannel(t *testing.T) {
	fi := story.NewFakeInterpreter()
	fi.Path = "hub"
	fi.Push(story.Chunk{Text: "pick", Tags: []string{"speaker:A", "type:received", "targetChat:A"}})
	fi.PushChoice(story.ChoicePoint{
		Choices:  []story.Choice{{Index: 0, Text: "ok"}},
		Branches: [][]story.Chunk{{{Text: "chose", Tags: []string{"speaker:A", "type:sent", "targetChat:A"}}}},
	})

	mgr := NewManager(Config{ReduceMotion: true})
	sess := mgr.CreateSession(fi, []string{"A"}, conversation.LoadInput{})
	sess.OpenChat("A")
	sess.Choose(0)

	snap, err := sess.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 1, snap.V)
	assert.Len(t, snap.History["A"], 2)
}

func TestManager_RemoveUnknownSession(t *testing.T) {
	mgr := NewManager(Config{})
	err := mgr.Remove("missing")
	assert.Error(t, err)
}

func TestManager_IdleSessionIDs(t *testing.T) {
	fi := story.NewFakeInterpreter()
	mgr := NewManager(Config{ReduceMotion: true})
	sess := mgr.CreateSession(fi, nil, conversation.LoadInput{})

	assert.Empty(t, mgr.IdleSessionIDs(time.Hour))
	assert.Contains(t, mgr.IdleSessionIDs(0), sess.ID)
}
