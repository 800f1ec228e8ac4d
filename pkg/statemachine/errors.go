package statemachine

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyTable = errors.New("statemachine: no transitions defined")

	// ErrNoTransition matches any NoTransitionError via errors.Is.
	ErrNoTransition = errors.New("statemachine: no transition available")
	// ErrRejected matches any RejectedError via errors.Is.
	ErrRejected = errors.New("statemachine: transition rejected by guards")
)

// NoTransitionError is returned by Fire when the table has no transition for
// the current state and event.
type NoTransitionError[S, E comparable] struct {
	State S
	Event E
}

func (e *NoTransitionError[S, E]) Error() string {
	return fmt.Sprintf("no transition from state %v on event %v", e.State, e.Event)
}

func (e *NoTransitionError[S, E]) Unwrap() error { return ErrNoTransition }

// RejectedError is returned by Fire when transitions exist but every one was
// blocked by a guard.
type RejectedError[S, E comparable] struct {
	State S
	Event E
}

func (e *RejectedError[S, E]) Error() string {
	return fmt.Sprintf("transition from state %v on event %v rejected by guards", e.State, e.Event)
}

func (e *RejectedError[S, E]) Unwrap() error { return ErrRejected }

// DuplicateError is returned by Build when the same unguarded transition is
// declared twice.
type DuplicateError[S, E comparable] struct {
	State S
	Event E
}

func (e *DuplicateError[S, E]) Error() string {
	return fmt.Sprintf("duplicate transition from state %v on event %v", e.State, e.Event)
}
