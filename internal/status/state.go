package status

import (
	"fmt"
	"slices"
	"sync"

	"github.com/prsnl/prsnl/internal/bus"
)

// State represents the connection status of the transport.
type State string

const (
	Disconnected State = "DISCONNECTED"
	Connecting   State = "CONNECTING"
	Connected    State = "CONNECTED"
	Reconnecting State = "RECONNECTING"
)

// validTransitions defines allowed state transitions. Reconnect retry
// failures keep the machine in Reconnecting without re-entering it, so
// no transition (and no event) happens for them.
var validTransitions = map[State][]State{
	Disconnected: {Connecting},
	Connecting:   {Connected, Disconnected},
	Connected:    {Reconnecting, Disconnected},
	Reconnecting: {Connected, Disconnected},
}

// Machine tracks and enforces connection state transitions. Only the
// transport that owns the physical connection mutates it; everyone else
// observes conn.status_changed events on the bus.
type Machine struct {
	mu      sync.RWMutex
	current State
	bus     *bus.Bus
}

// NewMachine creates a state machine starting in Disconnected.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Disconnected,
		bus:     b,
	}
}

// Current returns the current state. The value is a snapshot and may
// lag the physical link.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition attempts to move to a new state, publishing exactly one
// conn.status_changed event on success. Transitioning to the current
// state is a no-op so a state re-entered without leaving it never emits
// a duplicate event.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if to == m.current {
		return nil
	}
	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	if m.bus != nil {
		m.bus.Publish(bus.Event{
			Kind: bus.KindStatusChanged,
			Payload: StatusChange{
				From: from,
				To:   to,
			},
		})
	}
	return nil
}

// StatusChange is the payload for conn.status_changed events.
type StatusChange struct {
	From State
	To   State
}
