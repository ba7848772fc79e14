package scan

import "fmt"

// State tracks a scan through its lifecycle. Transitions are linear —
// created, navigating, collecting, scored, completed — with failed as a
// terminal state reachable from any non-terminal state.
type State string

const (
	StateCreated    State = "created"
	StateNavigating State = "navigating"
	StateCollecting State = "collecting"
	StateScored     State = "scored"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// next is the single legal forward transition per state.
var next = map[State]State{
	StateCreated:    StateNavigating,
	StateNavigating: StateCollecting,
	StateCollecting: StateScored,
	StateScored:     StateCompleted,
}

// Terminal reports whether s admits no further transitions.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// machine enforces the scan lifecycle. It is owned by one scan goroutine
// and needs no locking.
type machine struct {
	state State
}

func newMachine() *machine {
	return &machine{state: StateCreated}
}

func (m *machine) current() State { return m.state }

// advance moves to the given state, which must be the legal successor of
// the current one. An illegal transition is an engine bug and surfaces as
// an internal error rather than a panic, so partial results still return.
func (m *machine) advance(to State) error {
	if next[m.state] != to {
		return fmt.Errorf("%w: illegal transition %s -> %s", ErrInternal, m.state, to)
	}
	m.state = to
	return nil
}

// fail marks the scan failed. Failing a terminal scan is ignored: the
// first terminal disposition wins.
func (m *machine) fail() {
	if m.state.Terminal() {
		return
	}
	m.state = StateFailed
}
