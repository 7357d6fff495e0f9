package sessionstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSnapshot struct {
	V   int    `json:"v"`
	Raw string `json:"raw"`
}

func TestMemoryStore_SetGetRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	in := fakeSnapshot{V: 1, Raw: `{"state":"waitingForInput"}`}
	require.NoError(t, store.Set(ctx, "sess-1", in, time.Minute))

	var out fakeSnapshot
	require.NoError(t, store.Get(ctx, "sess-1", &out))
	assert.Equal(t, in, out)
}

func TestMemoryStore_GetMissingKey(t *testing.T) {
	store := NewMemoryStore()
	var out fakeSnapshot
	err := store.Get(context.Background(), "missing", &out)
	assert.Error(t, err)
}

func TestMemoryStore_ExpiredEntryIsRemoved(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "sess-1", fakeSnapshot{V: 1}, -time.Second))

	var out fakeSnapshot
	err := store.Get(ctx, "sess-1", &out)
	assert.Error(t, err)

	store.mu.Lock()
	_, stillPresent := store.store[Key("sess-1")]
	store.mu.Unlock()
	assert.False(t, stillPresent)
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "sess-1", fakeSnapshot{V: 1}, time.Minute))
	require.NoError(t, store.Delete(ctx, "sess-1"))

	var out fakeSnapshot
	assert.Error(t, store.Get(ctx, "sess-1", &out))
}

func TestKey_Namespaced(t *testing.T) {
	assert.Equal(t, "session:abc-123", Key("abc-123"))
}
