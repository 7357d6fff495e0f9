// Package bridge implements the External Function Bridge: the
// fixed contract of host callbacks the compiled story can invoke, each
// tagged with whether it is safe to run during the interpreter's lookahead
// (predicate evaluation) or only during actual execution.
package bridge

import "fmt"

// Name identifies one of the bridge's fixed functions.
type Name string

const (
	DelayNext   Name = "delay_next"
	PlaySound   Name = "play_sound"
	AdvanceDay  Name = "advance_day"
	ResolveName Name = "name"
	RequestData Name = "request_data"
)

// lookaheadSafe is the authoritative safety table. A function not
// listed here is treated as unsafe by default (Invoke rejects it during
// lookahead) — an unknown function has no proven side-effect profile.
var lookaheadSafe = map[Name]bool{
	DelayNext:   false,
	PlaySound:   true,
	AdvanceDay:  false,
	ResolveName: true,
	RequestData: false,
}

// Host performs the actual effect behind each bridge function. The
// conversation state machine implements Host and owns all resulting
// mutations (pending delay, time/day rollover, data-await flag); Registry
// itself holds no runtime state.
type Host interface {
	DelayNext(ms int)
	PlaySound(soundID string)
	AdvanceDay(morningTime string)
	ResolveName(id, variant string) string
	RequestData(source, query string, params map[string]string)
}

// Registry dispatches bridge calls to a Host while enforcing the
// lookahead-safety table.
type Registry struct {
	host Host
}

func NewRegistry(host Host) *Registry {
	return &Registry{host: host}
}

// IsLookaheadSafe reports whether name may be called while the interpreter
// is merely evaluating a conditional, as opposed to actually executing it.
func (r *Registry) IsLookaheadSafe(name Name) bool {
	return lookaheadSafe[name]
}

// Invoke dispatches name with args. lookahead must be true when the
// interpreter is calling this during predicate evaluation rather than real
// execution; Invoke refuses unsafe functions in that mode rather than let
// them mutate state speculatively: advance_day, for instance, must never
// be invoked during the interpreter's conditional evaluation, and the
// same rule generalizes to every unsafe function.
func (r *Registry) Invoke(name Name, lookahead bool, args ...any) (any, error) {
	if lookahead && !r.IsLookaheadSafe(name) {
		return nil, fmt.Errorf("bridge: %s is not lookahead-safe", name)
	}
	switch name {
	case DelayNext:
		ms, err := argInt(args, 0)
		if err != nil {
			return nil, err
		}
		r.host.DelayNext(ms)
		return nil, nil
	case PlaySound:
		soundID, err := argString(args, 0)
		if err != nil {
			return nil, err
		}
		r.host.PlaySound(soundID)
		return nil, nil
	case AdvanceDay:
		morning := ""
		if len(args) > 0 {
			morning, _ = args[0].(string)
		}
		r.host.AdvanceDay(morning)
		return nil, nil
	case ResolveName:
		id, err := argString(args, 0)
		if err != nil {
			return nil, err
		}
		variant := ""
		if len(args) > 1 {
			variant, _ = args[1].(string)
		}
		return r.host.ResolveName(id, variant), nil
	case RequestData:
		source, err := argString(args, 0)
		if err != nil {
			return nil, err
		}
		query, _ := argString(args, 1)
		params, _ := args[safeIndex(args, 2)].(map[string]string)
		r.host.RequestData(source, query, params)
		return nil, nil
	default:
		return nil, fmt.Errorf("bridge: unknown function %q", name)
	}
}

func safeIndex(args []any, i int) int {
	if i < len(args) {
		return i
	}
	return 0
}

func argInt(args []any, i int) (int, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("bridge: missing argument %d", i)
	}
	switch v := args[i].(type) {
	case int:
		return v, nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("bridge: argument %d is not numeric", i)
	}
}

func argString(args []any, i int) (string, error) {
	if i >= len(args) {
		return "", fmt.Errorf("bridge: missing argument %d", i)
	}
	s, ok := args[i].(string)
	if !ok {
		return "", fmt.Errorf("bridge: argument %d is not a string", i)
	}
	return s, nil
}
