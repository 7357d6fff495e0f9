package timectx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"12:00 AM", 0},
		{"12:30 AM", 30},
		{"1:00 AM", 60},
		{"12:00 PM", 720},
		{"12:30 PM", 750},
		{"1:00 PM", 780},
		{"11:59 PM", 23*60 + 59},
	}
	for _, tc := range cases {
		got, err := Parse(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse("garbage")
	assert.Error(t, err)
}

func TestAccept_SeedsBeforeStoryStartDoNotMutate(t *testing.T) {
	c := New()
	c.Accept("9:00 AM", false, nil)
	assert.Equal(t, 0, c.MinutesSinceMidnight)
}

func TestAccept_ForwardMovesClock(t *testing.T) {
	c := New()
	c.Accept("9:00 AM", true, nil)
	assert.Equal(t, 540, c.MinutesSinceMidnight)
	c.Accept("10:00 AM", true, nil)
	assert.Equal(t, 600, c.MinutesSinceMidnight)
}

func TestAccept_BackwardRejected(t *testing.T) {
	c := New()
	c.Accept("10:00 AM", true, nil)
	c.Accept("9:00 AM", true, nil)
	assert.Equal(t, 600, c.MinutesSinceMidnight)
}

func TestAdvanceDay_RollsDayAndSetsMorning(t *testing.T) {
	c := New()
	c.Accept("11:00 PM", true, nil)
	c.AdvanceDay("7:00 AM")
	assert.Equal(t, 1, c.Day)
	assert.Equal(t, 420, c.MinutesSinceMidnight)

	c.Accept("8:00 AM", true, nil)
	assert.Equal(t, 480, c.MinutesSinceMidnight)
}

func TestAdvanceDay_NoMorningDefaultsToMidnight(t *testing.T) {
	c := New()
	c.Accept("11:00 PM", true, nil)
	c.AdvanceDay("")
	assert.Equal(t, 0, c.MinutesSinceMidnight)
}

func TestSnapshotRoundTrip(t *testing.T) {
	c := New()
	c.Accept("3:00 PM", true, nil)
	c.Day = 2
	snap := c.Snapshot()
	restored := FromSnapshot(snap)
	assert.Equal(t, c.MinutesSinceMidnight, restored.MinutesSinceMidnight)
	assert.Equal(t, c.Day, restored.Day)
}
