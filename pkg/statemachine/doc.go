// Package statemachine implements small finite state machines over
// comparable state and event types.
//
// A Table holds the allowed transitions and is built once with Builder.
// Machines created from it track a single current state. Machines carry no
// lock of their own: the session supervisor keeps one per session record and
// fires events while holding that record's mutex.
//
//	type light string
//	type signal string
//
//	table := statemachine.NewBuilder[light, signal]("red").
//		Allow("red", "go", "green").
//		Allow("green", "stop", "red").
//		MustBuild()
//
//	m := statemachine.New(table)
//	next, err := m.Fire("go") // "green", nil
//	_, err = m.Fire("go")     // errors.Is(err, statemachine.ErrNoTransition)
//
// Guards allow branching: when several transitions share a source state and
// event, the first one whose guards all pass is taken. If none pass, Fire
// returns a RejectedError.
package statemachine
