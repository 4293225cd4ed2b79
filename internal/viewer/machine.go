// Package viewer holds the kiosk display state and the lookup flow that
// moves it between idle, searching, viewer and error.
package viewer

import "strings"

// State is the display state of the kiosk.
type State string

const (
	StateIdle      State = "idle"
	StateSearching State = "searching"
	StateViewer    State = "viewer"
	StateError     State = "error"
)

// Snapshot is a copy of the machine's observable fields.
type Snapshot struct {
	State       State
	Part        string
	Filename    string
	DocumentURL string
	Message     string
	Remaining   int
}

// Machine tracks the display state. It is not safe for concurrent use;
// the Orchestrator owns it.
type Machine struct {
	cur Snapshot
	seq uint64
}

// NewMachine returns a machine in the idle state.
func NewMachine() *Machine {
	return &Machine{cur: Snapshot{State: StateIdle}}
}

// Snapshot returns the current fields.
func (m *Machine) Snapshot() Snapshot { return m.cur }

// State returns the current state.
func (m *Machine) State() State { return m.cur.State }

// Seq returns the sequence number of the latest lookup issued.
func (m *Machine) Seq() uint64 { return m.seq }

// Begin enters searching for part and returns the lookup's sequence
// number. Any earlier lookup becomes stale.
func (m *Machine) Begin(part string) uint64 {
	m.seq++
	m.cur = Snapshot{State: StateSearching, Part: part}
	return m.seq
}

// current reports whether seq belongs to the lookup the machine is
// waiting for.
func (m *Machine) current(seq uint64) bool {
	return seq == m.seq && m.cur.State == StateSearching
}

// Succeed moves searching to viewer. It returns false and changes nothing
// when seq is stale or the machine has left searching.
func (m *Machine) Succeed(seq uint64, filename, documentURL string) bool {
	if !m.current(seq) {
		return false
	}
	m.cur = Snapshot{
		State:       StateViewer,
		Part:        m.cur.Part,
		Filename:    filename,
		DocumentURL: documentURL,
	}
	return true
}

// Fail moves searching to error with a countdown of remaining units.
// Stale completions are ignored as in Succeed.
func (m *Machine) Fail(seq uint64, message string, remaining int) bool {
	if !m.current(seq) {
		return false
	}
	m.cur = Snapshot{
		State:     StateError,
		Part:      m.cur.Part,
		Message:   message,
		Remaining: remaining,
	}
	return true
}

// Countdown sets the remaining units while in error.
func (m *Machine) Countdown(remaining int) bool {
	if m.cur.State != StateError {
		return false
	}
	m.cur.Remaining = remaining
	return true
}

// Return leaves viewer for idle.
func (m *Machine) Return() bool {
	if m.cur.State != StateViewer {
		return false
	}
	m.Reset()
	return true
}

// Dismiss leaves error for idle.
func (m *Machine) Dismiss() bool {
	if m.cur.State != StateError {
		return false
	}
	m.Reset()
	return true
}

// Reset forces idle from any state and clears every field. An in-flight
// lookup completes into nothing.
func (m *Machine) Reset() {
	m.cur = Snapshot{State: StateIdle}
}

// Showing reports whether part is the document currently on screen.
func (m *Machine) Showing(part string) bool {
	return m.cur.State == StateViewer &&
		strings.TrimSpace(m.cur.Part) == strings.TrimSpace(part)
}
