package tagparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_BareFlag(t *testing.T) {
	ctx := Parse([]string{"story_start"})
	assert.True(t, ctx.Flags["story_start"])
	assert.True(t, ctx.Has("story_start"))
}

func TestParse_KeyValue(t *testing.T) {
	ctx := Parse([]string{"speaker:Pat"})
	assert.Equal(t, "Pat", ctx.Get("speaker"))
}

func TestParse_StatusBatterySignalAreInts(t *testing.T) {
	ctx := Parse([]string{"status:battery:75", "status:signal:3"})
	assert.True(t, ctx.Status.HasBattery)
	assert.Equal(t, 75, ctx.Status.Battery)
	assert.True(t, ctx.Status.HasSignal)
	assert.Equal(t, 3, ctx.Status.Signal)
}

func TestParse_StatusOtherSubkeysStayStrings(t *testing.T) {
	ctx := Parse([]string{"status:weather:sunny", "status:internet:wifi"})
	assert.Equal(t, "sunny", ctx.Status.Weather)
	assert.Equal(t, "wifi", ctx.Status.Internet)
}

func TestParse_PresencePreservesLastSeenForm(t *testing.T) {
	ctx := Parse([]string{"presence:lastseen:2:14"})
	assert.Equal(t, "lastseen:2:14", ctx.Status.Presence)
}

func TestParse_PresenceSimple(t *testing.T) {
	ctx := Parse([]string{"presence:away"})
	assert.Equal(t, "away", ctx.Status.Presence)
}

func TestParse_ReceiptDeferred(t *testing.T) {
	ctx := Parse([]string{"receipt:read:msg-42"})
	require.NotNil(t, ctx.ReceiptDeferred)
	assert.Equal(t, "read", ctx.ReceiptDeferred.Status)
	assert.Equal(t, "msg-42", ctx.ReceiptDeferred.Label)
}

func TestParse_ReceiptAlone(t *testing.T) {
	ctx := Parse([]string{"receipt:delivered"})
	assert.Nil(t, ctx.ReceiptDeferred)
	assert.Equal(t, "delivered", ctx.Receipt)
}

func TestParse_DuplicateKeyLastWins(t *testing.T) {
	ctx := Parse([]string{"speaker:Pat", "speaker:Sam"})
	assert.Equal(t, "Sam", ctx.Get("speaker"))
}

func TestParse_EmptyAndWhitespaceTagsIgnored(t *testing.T) {
	ctx := Parse([]string{"", "   "})
	assert.Empty(t, ctx.Flags)
	assert.Empty(t, ctx.Values)
}

func TestParse_IsPure(t *testing.T) {
	tags := []string{"speaker:Pat", "status:battery:50"}
	first := Parse(tags)
	second := Parse(tags)
	assert.Equal(t, first, second)
}
