// Package tagparser converts the raw tag strings produced by a story
// interpreter's currentTags into a structured context map.
//
// The parser is pure and side-effect-free: given the same tag slice it
// always returns the same Context, with no external state consulted.
package tagparser

import (
	"strconv"
	"strings"
)

// ReceiptDeferred is the payload of a `receipt:status:label` tag — an
// explicit receipt upgrade addressed by label rather than by "the most
// recent sent message".
type ReceiptDeferred struct {
	Status string
	Label  string
}

// Status holds the namespaced `status:*` and `presence:*` tag values.
type Status struct {
	Battery     int
	HasBattery  bool
	Signal      int
	HasSignal   bool
	Weather     string
	Temperature string
	Internet    string
	Presence    string
}

// Context is the structured result of parsing one chunk's tags. Flags (bare
// `key` tags) are recorded in Flags; `key:value` tags land in Values,
// except for the handful of namespaced tags broken out into their own
// fields below.
type Context struct {
	Flags  map[string]bool
	Values map[string]string

	Status          Status
	ReceiptDeferred *ReceiptDeferred
	Receipt         string
}

// Has reports whether tag key was present at all (as a flag or key:value).
func (c *Context) Has(key string) bool {
	if c.Flags[key] {
		return true
	}
	_, ok := c.Values[key]
	return ok
}

// Get returns the string value of a `key:value` tag, or "" if absent.
func (c *Context) Get(key string) string {
	return c.Values[key]
}

// Parse converts an ordered sequence of raw tag strings into a Context.
// Duplicate keys within the chunk: last tag wins.
func Parse(tags []string) *Context {
	ctx := &Context{
		Flags:  make(map[string]bool),
		Values: make(map[string]string),
	}

	for _, raw := range tags {
		key, rest, hasColon := splitTag(raw)
		if key == "" {
			continue
		}

		if !hasColon {
			ctx.Flags[key] = true
			continue
		}

		switch key {
		case "status":
			applyStatusTag(&ctx.Status, rest)
		case "presence":
			ctx.Status.Presence = rest
		case "receipt":
			applyReceiptTag(ctx, rest)
		default:
			ctx.Values[key] = rest
		}
	}

	return ctx
}

// splitTag splits "key:rest" into key and rest, trimming both. A tag with no
// colon returns hasColon=false.
func splitTag(raw string) (key, rest string, hasColon bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", "", false
	}
	idx := strings.Index(trimmed, ":")
	if idx < 0 {
		return trimmed, "", false
	}
	return strings.TrimSpace(trimmed[:idx]), strings.TrimSpace(trimmed[idx+1:]), true
}

// applyStatusTag handles `status:sub:value`. sub is the first segment of
// rest, value is everything after its colon (value itself may contain
// colons, e.g. `status:presence:lastseen:14:32`, though presence is
// normally routed through its own top-level tag).
func applyStatusTag(s *Status, rest string) {
	sub, value, ok := splitTag(rest)
	if !ok {
		return
	}
	switch sub {
	case "battery":
		if n, err := strconv.Atoi(value); err == nil {
			s.Battery = n
			s.HasBattery = true
		}
	case "signal":
		if n, err := strconv.Atoi(value); err == nil {
			s.Signal = n
			s.HasSignal = true
		}
	case "weather":
		s.Weather = value
	case "temperature":
		s.Temperature = value
	case "internet":
		s.Internet = value
	}
}

// applyReceiptTag handles `receipt:status` and `receipt:status:label`.
func applyReceiptTag(ctx *Context, rest string) {
	status, label, ok := splitTag(rest)
	if !ok {
		ctx.Receipt = rest
		ctx.ReceiptDeferred = nil
		return
	}
	ctx.ReceiptDeferred = &ReceiptDeferred{Status: status, Label: label}
}
