package statemachine

import (
	"errors"
	"fmt"
)

// ErrNoTransition indicates the fired event has no registered transition
// from the current state. Match with errors.Is.
var ErrNoTransition = errors.New("statemachine: no transition for event")

// NoTransitionError carries the state/event pair that failed.
type NoTransitionError struct {
	From  State
	Event Event
}

func newNoTransitionError(from State, event Event) *NoTransitionError {
	return &NoTransitionError{From: from, Event: event}
}

func (e *NoTransitionError) Error() string {
	return fmt.Sprintf("statemachine: no transition from state %q for event %q", e.From, e.Event)
}

func (e *NoTransitionError) Unwrap() error {
	return ErrNoTransition
}
