package conversation

import (
	"conversation-runtime/server/internal/bridge"
	"conversation-runtime/server/internal/chunkhelpers"
	"conversation-runtime/server/internal/events"
	"conversation-runtime/server/internal/timectx"
)

// Machine implements bridge.Host so the external-function bridge can
// route story-invoked callbacks straight into the state machine's own
// fields, which own every resulting mutation.

var _ bridge.Host = (*Machine)(nil)

// DelayNext accumulates into CapturedDelay, which stepChunk resets before
// calling Continue and reads right after it: a call made while a chunk
// executes sets the captured delay for that chunk's message.
func (m *Machine) DelayNext(ms int) {
	m.ctx.CapturedDelay = chunkhelpers.ComposeDelay(m.ctx.CapturedDelay, ms)
}

// PlaySound emits an audio-cue event.
func (m *Machine) PlaySound(soundID string) {
	m.publish(events.NewAudioCue(soundID))
}

// AdvanceDay rolls the simulated clock forward one day and publishes
// day-advanced.
func (m *Machine) AdvanceDay(morningTime string) {
	m.time.AdvanceDay(morningTime)
	snap := m.time.Snapshot()
	m.publish(events.NewDayAdvanced(snap.MinutesSinceMidnight, snap.Day))
}

// ResolveName looks up id in the locale table, falling back to id itself
// so a name reference never resolves to an undefined value.
func (m *Machine) ResolveName(id, variant string) string {
	key := id
	if variant != "" {
		key = id + ":" + variant
	}
	if name, ok := m.locale[key]; ok {
		return name
	}
	if name, ok := m.locale[id]; ok {
		return name
	}
	return id
}

// RequestData marks the story awaiting external data and emits
// data-requested.
func (m *Machine) RequestData(source, query string, params map[string]string) {
	m.ctx.AwaitingData = true
	m.publish(events.NewDataRequested(requestID(source, query), source, query, params))
}

func requestID(source, query string) string {
	return source + ":" + query
}

// acceptTime routes a #time: tag through the Time Context, advances
// battery drain proportionally to the elapsed simulated minutes,
// and publishes time-updated/battery-changed when the clock actually
// moves. Called by the chunk step whenever a tag carries a time value.
func (m *Machine) acceptTime(raw string, storyStarted bool) {
	if raw == "" {
		return
	}
	before := m.time.Snapshot()
	m.time.Accept(raw, storyStarted, m.logger)
	after := m.time.Snapshot()
	if after == before {
		return
	}
	if elapsed := elapsedMinutes(before, after); elapsed > 0 {
		m.battery.Advance(float64(elapsed))
		m.publish(events.NewBatteryChanged(m.battery.Level(), m.battery.IsLow()))
	}
	m.publish(events.NewTimeUpdated(after.MinutesSinceMidnight, after.Day))
}

func elapsedMinutes(before, after timectx.Snapshot) int {
	if after.Day == before.Day {
		return after.MinutesSinceMidnight - before.MinutesSinceMidnight
	}
	dayDelta := after.Day - before.Day
	remainder := 1440 - before.MinutesSinceMidnight
	return remainder + after.MinutesSinceMidnight + (dayDelta-1)*1440
}
