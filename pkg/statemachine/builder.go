package statemachine

// Builder assembles a Table.
//
//	table, err := statemachine.NewBuilder[Status, Trigger](StatusIdle).
//		Allow(StatusIdle, TriggerStart, StatusInitializing).
//		Allow(StatusInitializing, TriggerQR, StatusAwaitingScan).
//		Build()
type Builder[S, E comparable] struct {
	initial     S
	transitions []Transition[S, E]
}

func NewBuilder[S, E comparable](initial S) *Builder[S, E] {
	return &Builder[S, E]{initial: initial}
}

// Allow adds an unguarded transition.
func (b *Builder[S, E]) Allow(from S, event E, to S) *Builder[S, E] {
	return b.AllowIf(from, event, to)
}

// AllowIf adds a transition taken only when every guard passes. Transitions
// for the same state and event are tried in the order they were added.
func (b *Builder[S, E]) AllowIf(from S, event E, to S, guards ...Guard[S, E]) *Builder[S, E] {
	b.transitions = append(b.transitions, Transition[S, E]{
		From:   from,
		To:     to,
		Event:  event,
		Guards: guards,
	})
	return b
}

// AllowFrom adds the same event/target pair for several source states.
func (b *Builder[S, E]) AllowFrom(froms []S, event E, to S) *Builder[S, E] {
	for _, from := range froms {
		b.Allow(from, event, to)
	}
	return b
}

// Build validates the collected transitions and returns the table.
func (b *Builder[S, E]) Build() (*Table[S, E], error) {
	if len(b.transitions) == 0 {
		return nil, ErrEmptyTable
	}
	t := &Table[S, E]{
		initial:     b.initial,
		transitions: make(map[S]map[E][]Transition[S, E]),
	}
	for _, tr := range b.transitions {
		byEvent, ok := t.transitions[tr.From]
		if !ok {
			byEvent = make(map[E][]Transition[S, E])
			t.transitions[tr.From] = byEvent
		}
		for _, existing := range byEvent[tr.Event] {
			if existing.To == tr.To && len(existing.Guards) == 0 && len(tr.Guards) == 0 {
				return nil, &DuplicateError[S, E]{State: tr.From, Event: tr.Event}
			}
		}
		byEvent[tr.Event] = append(byEvent[tr.Event], tr)
	}
	return t, nil
}

// MustBuild is Build that panics. Intended for package-level tables.
func (b *Builder[S, E]) MustBuild() *Table[S, E] {
	t, err := b.Build()
	if err != nil {
		panic(err)
	}
	return t
}
