package statemachine

import (
	"sync"
)

// State names a state in the machine.
type State string

// Event names a trigger that may cause a transition.
type Event string

// transitionKey composes the lookup key for the transition table.
type transitionKey struct {
	from  State
	event Event
}

// Machine is a small thread-safe finite state machine with an explicit
// transition table. Firing an event that has no transition from the
// current state fails with a typed error instead of silently changing
// state, which turns lifecycle bugs into loud test failures.
type Machine struct {
	mu          sync.RWMutex
	initial     State
	current     State
	transitions map[transitionKey]State
}

// New creates a machine resting in the initial state.
func New(initial State) *Machine {
	return &Machine{
		initial:     initial,
		current:     initial,
		transitions: make(map[transitionKey]State),
	}
}

// AddTransition registers from --event--> to. Registering the same
// from/event pair twice overwrites the earlier target.
func (m *Machine) AddTransition(from State, event Event, to State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions[transitionKey{from: from, event: event}] = to
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Is reports whether the machine currently rests in the given state.
func (m *Machine) Is(s State) bool {
	return m.Current() == s
}

// Fire applies the transition for event from the current state. It returns
// ErrNoTransition (wrapped with state/event detail) when none is registered.
func (m *Machine) Fire(event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	to, ok := m.transitions[transitionKey{from: m.current, event: event}]
	if !ok {
		return newNoTransitionError(m.current, event)
	}
	m.current = to
	return nil
}

// CanFire reports whether a transition exists for event from the current
// state.
func (m *Machine) CanFire(event Event) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.transitions[transitionKey{from: m.current, event: event}]
	return ok
}

// Reset returns the machine to its initial state.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = m.initial
}
