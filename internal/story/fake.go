package story

import (
	"encoding/json"
	"fmt"
)

// Chunk is one scripted step of a FakeInterpreter timeline: the raw text
// and tags Continue() should hand back.
type Chunk struct {
	Text string
	Tags []string
}

// ChoicePoint is a scripted branch point: when CurrentChoices() is
// non-empty, ChooseChoiceIndex(i) splices Branches[i] onto the front of
// the remaining queue.
type ChoicePoint struct {
	Choices  []Choice
	Branches [][]Chunk
}

// FakeVariables is a minimal in-memory Variables implementation for tests
// and for driving the runtime without a real interpreter wired in.
type FakeVariables struct {
	Strings  map[string]string
	Numbers  map[string]float64
	Booleans map[string]bool
}

func NewFakeVariables() *FakeVariables {
	return &FakeVariables{
		Strings:  map[string]string{},
		Numbers:  map[string]float64{},
		Booleans: map[string]bool{},
	}
}

func (v *FakeVariables) GetString(name, fallback string) string {
	if val, ok := v.Strings[name]; ok {
		return val
	}
	return fallback
}

func (v *FakeVariables) GetNumber(name string, fallback float64) float64 {
	if val, ok := v.Numbers[name]; ok {
		return val
	}
	return fallback
}

func (v *FakeVariables) GetBoolean(name string, fallback bool) bool {
	if val, ok := v.Booleans[name]; ok {
		return val
	}
	return fallback
}

// FakeInterpreter is a scriptable Interpreter test double: a queue of
// chunks, optionally interrupted by a ChoicePoint, with a trivial
// path/visit/turn model for exercising stall detection.
type FakeInterpreter struct {
	Queue       []Chunk
	Pending     *ChoicePoint
	Vars        *FakeVariables
	Path        string
	Visits      map[string]int
	Turn        int
	EndingPaths map[string]bool

	currentTags       []string
	pendingAfterDrain *ChoicePoint
}

func NewFakeInterpreter() *FakeInterpreter {
	return &FakeInterpreter{
		Vars:        NewFakeVariables(),
		Visits:      map[string]int{},
		EndingPaths: map[string]bool{},
	}
}

// Push appends scripted chunks to the end of the queue.
func (f *FakeInterpreter) Push(chunks ...Chunk) *FakeInterpreter {
	f.Queue = append(f.Queue, chunks...)
	return f
}

// PushChoice arms a choice point after the currently queued chunks drain.
func (f *FakeInterpreter) PushChoice(cp ChoicePoint) *FakeInterpreter {
	f.pendingAfterDrain = &cp
	return f
}

func (f *FakeInterpreter) CanContinue() bool {
	if f.Pending != nil {
		return false
	}
	if len(f.Queue) == 0 && f.pendingAfterDrain != nil {
		f.Pending = f.pendingAfterDrain
		f.pendingAfterDrain = nil
		return false
	}
	return len(f.Queue) > 0
}

func (f *FakeInterpreter) Continue() (string, error) {
	if len(f.Queue) == 0 {
		return "", fmt.Errorf("story: Continue called with empty queue")
	}
	chunk := f.Queue[0]
	f.Queue = f.Queue[1:]
	f.currentTags = chunk.Tags
	f.Turn++
	return chunk.Text, nil
}

func (f *FakeInterpreter) CurrentTags() []string {
	return f.currentTags
}

func (f *FakeInterpreter) CurrentChoices() []Choice {
	if f.Pending == nil {
		return nil
	}
	return f.Pending.Choices
}

func (f *FakeInterpreter) ChooseChoiceIndex(index int) error {
	if f.Pending == nil {
		return fmt.Errorf("story: no pending choice")
	}
	if index < 0 || index >= len(f.Pending.Branches) {
		return fmt.Errorf("story: choice index %d out of range", index)
	}
	branch := f.Pending.Branches[index]
	f.Queue = append(append([]Chunk{}, branch...), f.Queue...)
	f.Pending = nil
	return nil
}

func (f *FakeInterpreter) Variables() Variables { return f.Vars }

func (f *FakeInterpreter) CurrentPathString() string { return f.Path }

func (f *FakeInterpreter) VisitCountAtPathString(path string) int { return f.Visits[path] }

func (f *FakeInterpreter) TurnIndex() int { return f.Turn }

func (f *FakeInterpreter) IsEndingPath(path string) bool { return f.EndingPaths[path] }

type fakeSnapshot struct {
	Queue  []Chunk        `json:"queue"`
	Path   string         `json:"path"`
	Turn   int            `json:"turn"`
	Vars   *FakeVariables `json:"vars"`
}

func (f *FakeInterpreter) Serialize() (string, error) {
	data, err := json.Marshal(fakeSnapshot{Queue: f.Queue, Path: f.Path, Turn: f.Turn, Vars: f.Vars})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (f *FakeInterpreter) Load(state string) error {
	var snap fakeSnapshot
	if err := json.Unmarshal([]byte(state), &snap); err != nil {
		return err
	}
	f.Queue = snap.Queue
	f.Path = snap.Path
	f.Turn = snap.Turn
	if snap.Vars != nil {
		f.Vars = snap.Vars
	}
	return nil
}
