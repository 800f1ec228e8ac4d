package statemachine

// Guard decides at fire time whether a matching transition may be taken.
type Guard[S, E comparable] func(from S, event E) bool

// Transition moves the machine from From to To when Event is fired.
type Transition[S, E comparable] struct {
	From   S
	To     S
	Event  E
	Guards []Guard[S, E]
}

// Table is an immutable set of transitions shared by any number of machines.
// Build one with NewBuilder at startup and reuse it.
type Table[S, E comparable] struct {
	initial     S
	transitions map[S]map[E][]Transition[S, E]
}

// Initial returns the state new machines start in.
func (t *Table[S, E]) Initial() S {
	return t.initial
}

// Allowed reports whether the table has any transition out of from on event,
// ignoring guards.
func (t *Table[S, E]) Allowed(from S, event E) bool {
	return len(t.transitions[from][event]) > 0
}

// Events lists the events that have at least one transition out of from.
func (t *Table[S, E]) Events(from S) []E {
	byEvent := t.transitions[from]
	out := make([]E, 0, len(byEvent))
	for ev := range byEvent {
		out = append(out, ev)
	}
	return out
}

// Machine tracks the current state of one entity against a Table.
// It is not safe for concurrent use; callers guard it with the lock that
// already protects the entity.
type Machine[S, E comparable] struct {
	table   *Table[S, E]
	current S
}

// New returns a machine positioned at the table's initial state.
func New[S, E comparable](table *Table[S, E]) *Machine[S, E] {
	return &Machine[S, E]{table: table, current: table.initial}
}

func (m *Machine[S, E]) Current() S {
	return m.current
}

// Fire applies event and returns the resulting state. On error the state is
// unchanged. The first transition whose guards all pass wins.
func (m *Machine[S, E]) Fire(event E) (S, error) {
	t, err := m.lookup(event)
	if err != nil {
		return m.current, err
	}
	m.current = t.To
	return m.current, nil
}

// CanFire reports whether Fire(event) would succeed.
func (m *Machine[S, E]) CanFire(event E) bool {
	_, err := m.lookup(event)
	return err == nil
}

// Reset puts the machine back into the initial state.
func (m *Machine[S, E]) Reset() {
	m.current = m.table.initial
}

func (m *Machine[S, E]) lookup(event E) (Transition[S, E], error) {
	candidates := m.table.transitions[m.current][event]
	if len(candidates) == 0 {
		return Transition[S, E]{}, &NoTransitionError[S, E]{State: m.current, Event: event}
	}
	for _, t := range candidates {
		if passes(t, m.current, event) {
			return t, nil
		}
	}
	return Transition[S, E]{}, &RejectedError[S, E]{State: m.current, Event: event}
}

func passes[S, E comparable](t Transition[S, E], from S, event E) bool {
	for _, g := range t.Guards {
		if g != nil && !g(from, event) {
			return false
		}
	}
	return true
}
