package battery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_FullyCharged(t *testing.T) {
	c := New()
	assert.Equal(t, 100, c.Level())
	assert.False(t, c.IsLow())
}

func TestAdvance_DrainsProportionally(t *testing.T) {
	c := New()
	c.Advance(720) // half a day
	assert.Equal(t, 50, c.Level())
}

func TestAdvance_ClampsAtZero(t *testing.T) {
	c := New()
	c.Advance(1440 * 3)
	assert.Equal(t, 0, c.Level())
}

func TestAdvance_NegativeIgnored(t *testing.T) {
	c := New()
	c.Advance(100)
	before := c.Level()
	c.Advance(-50)
	assert.Equal(t, before, c.Level())
}

func TestCharge_Resets(t *testing.T) {
	c := New()
	c.Advance(1000)
	c.Charge()
	assert.Equal(t, 100, c.Level())
}

func TestIsLow(t *testing.T) {
	c := New()
	c.Advance(1440 * 0.85)
	assert.True(t, c.IsLow())
}

func TestSnapshotRoundTrip(t *testing.T) {
	c := New()
	c.Advance(300)
	restored := FromSnapshot(c.Snapshot())
	assert.Equal(t, c.Level(), restored.Level())
}
