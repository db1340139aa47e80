package agent

import "sync"

// Mailbox is a bounded FIFO queue. Push never blocks: a full mailbox rejects
// the item with ErrMailboxFull.
type Mailbox[T any] struct {
	mu       sync.RWMutex
	items    chan T
	capacity int
	closed   bool
}

func NewMailbox[T any](capacity int) *Mailbox[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Mailbox[T]{
		items:    make(chan T, capacity),
		capacity: capacity,
	}
}

func (m *Mailbox[T]) Push(item T) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return ErrMailboxClosed
	}

	select {
	case m.items <- item:
		return nil
	default:
		return ErrMailboxFull
	}
}

// TryPop removes the oldest item. It reports false when the mailbox is empty.
func (m *Mailbox[T]) TryPop() (T, bool) {
	select {
	case item, ok := <-m.items:
		return item, ok
	default:
		var zero T
		return zero, false
	}
}

// Close rejects further pushes. Items already queued can still be popped.
func (m *Mailbox[T]) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		m.closed = true
		close(m.items)
	}
}

func (m *Mailbox[T]) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

func (m *Mailbox[T]) Len() int {
	return len(m.items)
}

func (m *Mailbox[T]) Cap() int {
	return m.capacity
}
