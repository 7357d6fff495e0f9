package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHost struct {
	delayMs       int
	soundID       string
	advanceCalled bool
	morning       string
	resolveID     string
	resolveVar    string
	reqSource     string
	reqQuery      string
	reqParams     map[string]string
}

func (h *fakeHost) DelayNext(ms int)      { h.delayMs = ms }
func (h *fakeHost) PlaySound(soundID string) { h.soundID = soundID }
func (h *fakeHost) AdvanceDay(morningTime string) {
	h.advanceCalled = true
	h.morning = morningTime
}
func (h *fakeHost) ResolveName(id, variant string) string {
	h.resolveID = id
	h.resolveVar = variant
	return "Resolved:" + id
}
func (h *fakeHost) RequestData(source, query string, params map[string]string) {
	h.reqSource = source
	h.reqQuery = query
	h.reqParams = params
}

func TestInvoke_DelayNext(t *testing.T) {
	h := &fakeHost{}
	r := NewRegistry(h)
	_, err := r.Invoke(DelayNext, false, 500)
	require.NoError(t, err)
	assert.Equal(t, 500, h.delayMs)
}

func TestInvoke_PlaySoundIsLookaheadSafe(t *testing.T) {
	h := &fakeHost{}
	r := NewRegistry(h)
	_, err := r.Invoke(PlaySound, true, "ding")
	require.NoError(t, err)
	assert.Equal(t, "ding", h.soundID)
}

func TestInvoke_AdvanceDayRejectedDuringLookahead(t *testing.T) {
	h := &fakeHost{}
	r := NewRegistry(h)
	_, err := r.Invoke(AdvanceDay, true, "8:00 AM")
	assert.Error(t, err)
	assert.False(t, h.advanceCalled)
}

func TestInvoke_AdvanceDayAllowedDuringExecution(t *testing.T) {
	h := &fakeHost{}
	r := NewRegistry(h)
	_, err := r.Invoke(AdvanceDay, false, "8:00 AM")
	require.NoError(t, err)
	assert.True(t, h.advanceCalled)
	assert.Equal(t, "8:00 AM", h.morning)
}

func TestInvoke_ResolveNameReturnsValue(t *testing.T) {
	h := &fakeHost{}
	r := NewRegistry(h)
	result, err := r.Invoke(ResolveName, true, "pat", "")
	require.NoError(t, err)
	assert.Equal(t, "Resolved:pat", result)
}

func TestInvoke_RequestDataRejectedDuringLookahead(t *testing.T) {
	h := &fakeHost{}
	r := NewRegistry(h)
	_, err := r.Invoke(RequestData, true, "weatherAPI", "today", map[string]string{"city": "NYC"})
	assert.Error(t, err)
}

func TestInvoke_RequestDataCarriesParams(t *testing.T) {
	h := &fakeHost{}
	r := NewRegistry(h)
	_, err := r.Invoke(RequestData, false, "weatherAPI", "today", map[string]string{"city": "NYC"})
	require.NoError(t, err)
	assert.Equal(t, "weatherAPI", h.reqSource)
	assert.Equal(t, map[string]string{"city": "NYC"}, h.reqParams)
}

func TestInvoke_UnknownFunction(t *testing.T) {
	r := NewRegistry(&fakeHost{})
	_, err := r.Invoke(Name("bogus"), false)
	assert.Error(t, err)
}

func TestIsLookaheadSafe_Table(t *testing.T) {
	r := NewRegistry(&fakeHost{})
	assert.False(t, r.IsLookaheadSafe(DelayNext))
	assert.True(t, r.IsLookaheadSafe(PlaySound))
	assert.False(t, r.IsLookaheadSafe(AdvanceDay))
	assert.True(t, r.IsLookaheadSafe(ResolveName))
	assert.False(t, r.IsLookaheadSafe(RequestData))
}
