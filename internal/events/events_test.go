package events

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"conversation-runtime/server/internal/message"
)

func TestNewMessageReceived_ShapesPayload(t *testing.T) {
	m := message.Message{ID: "1", Text: "hi"}
	ev := NewMessageReceived("chatA", m, true)
	assert.Equal(t, MessageReceived, ev.Name)
	payload, ok := ev.Payload.(MessageReceivedPayload)
	assert.True(t, ok)
	assert.Equal(t, "chatA", payload.ChatID)
	assert.True(t, payload.IsCurrentChat)
}

func TestBus_FanOutToAllSubscribers(t *testing.T) {
	bus := NewBus()
	var gotA, gotB Event
	bus.Subscribe(func(ev Event) { gotA = ev })
	bus.Subscribe(func(ev Event) { gotB = ev })

	bus.Publish(NewReady())

	assert.Equal(t, Ready, gotA.Name)
	assert.Equal(t, Ready, gotB.Name)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()
	count := 0
	unsub := bus.Subscribe(func(ev Event) { count++ })
	bus.Publish(NewReady())
	unsub()
	bus.Publish(NewReady())
	assert.Equal(t, 1, count)
}
