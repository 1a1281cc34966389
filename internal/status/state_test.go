package status

import (
	"testing"

	"github.com/prsnl/prsnl/internal/bus"
)

func TestInitialState(t *testing.T) {
	m := NewMachine(nil)
	if m.Current() != Disconnected {
		t.Errorf("initial state = %s, want DISCONNECTED", m.Current())
	}
}

func TestValidTransitions(t *testing.T) {
	tests := []struct {
		from State
		to   State
	}{
		{Disconnected, Connecting},
		{Connecting, Connected},
		{Connecting, Disconnected},
		{Connected, Reconnecting},
		{Connected, Disconnected},
		{Reconnecting, Connected},
		{Reconnecting, Disconnected},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			m := NewMachine(nil)
			walkTo(t, m, tt.from)
			if err := m.Transition(tt.to); err != nil {
				t.Errorf("Transition(%s -> %s) error = %v", tt.from, tt.to, err)
			}
			if m.Current() != tt.to {
				t.Errorf("state = %s, want %s", m.Current(), tt.to)
			}
		})
	}
}

func TestInvalidTransition(t *testing.T) {
	m := NewMachine(nil)
	if err := m.Transition(Connected); err == nil {
		t.Error("Transition(DISCONNECTED -> CONNECTED) should fail")
	}
	if err := m.Transition(Reconnecting); err == nil {
		t.Error("Transition(DISCONNECTED -> RECONNECTING) should fail")
	}

	// A failed first connect goes to DISCONNECTED, never RECONNECTING.
	m = NewMachine(nil)
	walkTo(t, m, Connecting)
	if err := m.Transition(Reconnecting); err == nil {
		t.Error("Transition(CONNECTING -> RECONNECTING) should fail")
	}
}

func TestTransitionEmitsEvent(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("conn.", 10)
	defer unsub()

	m := NewMachine(b)
	if err := m.Transition(Connecting); err != nil {
		t.Fatal(err)
	}

	evt := <-ch
	if evt.Kind != bus.KindStatusChanged {
		t.Errorf("event kind = %q, want %q", evt.Kind, bus.KindStatusChanged)
	}
	change, ok := evt.Payload.(StatusChange)
	if !ok {
		t.Fatalf("payload type = %T, want StatusChange", evt.Payload)
	}
	if change.From != Disconnected || change.To != Connecting {
		t.Errorf("change = %v -> %v, want DISCONNECTED -> CONNECTING", change.From, change.To)
	}
}

// TestSameStateIsNoEvent verifies that re-entering the current state
// produces neither an error nor a duplicate event. Reconnect retry
// failures rely on this: the machine stays in RECONNECTING silently.
func TestSameStateIsNoEvent(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("conn.", 10)
	defer unsub()

	m := NewMachine(b)
	walkTo(t, m, Reconnecting)
	drain(ch)

	if err := m.Transition(Reconnecting); err != nil {
		t.Fatalf("Transition to same state: %v", err)
	}
	select {
	case evt := <-ch:
		t.Errorf("unexpected event for same-state transition: %v", evt)
	default:
	}
}

// TestConnectLifecycle walks the happy path:
// DISCONNECTED -> CONNECTING -> CONNECTED and counts events.
func TestConnectLifecycle(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("conn.", 10)
	defer unsub()

	m := NewMachine(b)
	steps := []State{Connecting, Connected}
	for _, s := range steps {
		if err := m.Transition(s); err != nil {
			t.Fatalf("Transition to %s: %v (current: %s)", s, err, m.Current())
		}
	}
	if got := drain(ch); got != 2 {
		t.Errorf("event count = %d, want 2", got)
	}
}

// TestLinkDropReconnectCycle walks CONNECTED -> RECONNECTING -> CONNECTED.
func TestLinkDropReconnectCycle(t *testing.T) {
	m := NewMachine(nil)
	walkTo(t, m, Connected)

	steps := []State{Reconnecting, Connected}
	for _, s := range steps {
		if err := m.Transition(s); err != nil {
			t.Fatalf("Transition to %s: %v (current: %s)", s, err, m.Current())
		}
	}
	if m.Current() != Connected {
		t.Errorf("final state = %s, want CONNECTED", m.Current())
	}
}

// TestDisconnectFromAnyState verifies every non-terminal state can reach
// DISCONNECTED, the explicit-disconnect contract.
func TestDisconnectFromAnyState(t *testing.T) {
	for _, from := range []State{Connecting, Connected, Reconnecting} {
		m := NewMachine(nil)
		walkTo(t, m, from)
		if err := m.Transition(Disconnected); err != nil {
			t.Errorf("Transition(%s -> DISCONNECTED) error = %v", from, err)
		}
	}
}

// walkTo is a helper that transitions the machine to a target state.
func walkTo(t *testing.T, m *Machine, target State) {
	t.Helper()
	paths := map[State][]State{
		Disconnected: {},
		Connecting:   {Connecting},
		Connected:    {Connecting, Connected},
		Reconnecting: {Connecting, Connected, Reconnecting},
	}
	for _, s := range paths[target] {
		if err := m.Transition(s); err != nil {
			t.Fatalf("walkTo(%s): %v", target, err)
		}
	}
}

func drain(ch <-chan bus.Event) int {
	n := 0
	for {
		select {
		case <-ch:
			n++
		default:
			return n
		}
	}
}
