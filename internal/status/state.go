package status

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/paulologeh/pychat/internal/bus"
)

// State represents the engine's runtime state.
type State string

const (
	Booting       State = "BOOTING"
	Bootstrapping State = "BOOTSTRAPPING"
	Ready         State = "READY"
	Reconnecting  State = "RECONNECTING"
	Degraded      State = "DEGRADED"
	Error         State = "ERROR"
)

// validTransitions defines allowed state transitions.
var validTransitions = map[State][]State{
	Booting:       {Bootstrapping, Error},
	Bootstrapping: {Ready, Degraded, Error},
	Ready:         {Reconnecting, Degraded, Bootstrapping, Error},
	Reconnecting:  {Ready, Degraded, Error},
	Degraded:      {Reconnecting, Ready, Bootstrapping, Error},
	Error:         {Booting},
}

// Machine tracks and enforces runtime state transitions, publishing each
// change as a session.status_changed event.
type Machine struct {
	mu      sync.RWMutex
	current State
	bus     *bus.Bus
}

// NewMachine creates a new state machine starting in Booting state.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Booting,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition attempts to move to a new state. Returns an error if the
// transition is invalid.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	if m.bus != nil {
		m.bus.Publish(bus.Event{
			Kind:      "session.status_changed",
			Timestamp: time.Now(),
			Payload: StatusChange{
				From: from,
				To:   to,
			},
		})
	}
	return nil
}

// StatusChange is the payload for status change events.
type StatusChange struct {
	From State
	To   State
}
