package observability

import "context"

// MultiObserver forwards each event to its observers in order. A panicking
// observer is skipped for that event; the remaining observers still see it.
type MultiObserver struct {
	observers []Observer
}

// NewMultiObserver drops nil observers.
func NewMultiObserver(observers ...Observer) *MultiObserver {
	m := &MultiObserver{observers: make([]Observer, 0, len(observers))}
	for _, obs := range observers {
		if obs != nil {
			m.observers = append(m.observers, obs)
		}
	}
	return m
}

func (m *MultiObserver) OnEvent(ctx context.Context, event Event) {
	for _, obs := range m.observers {
		deliver(ctx, obs, event)
	}
}

func deliver(ctx context.Context, obs Observer, event Event) {
	defer func() { _ = recover() }()
	obs.OnEvent(ctx, event)
}

func (m *MultiObserver) Len() int {
	return len(m.observers)
}
