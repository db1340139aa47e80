package agent_test

import (
	"errors"
	"testing"

	"github.com/tailored-agentic-units/recommender/agent"
)

func TestMailbox(t *testing.T) {
	m := agent.NewMailbox[int](2)

	if m.Cap() != 2 {
		t.Errorf("Cap() = %d, want 2", m.Cap())
	}
	if err := m.Push(1); err != nil {
		t.Fatalf("Push(1) error = %v", err)
	}
	if err := m.Push(2); err != nil {
		t.Fatalf("Push(2) error = %v", err)
	}
	if err := m.Push(3); !errors.Is(err, agent.ErrMailboxFull) {
		t.Errorf("Push(3) error = %v, want ErrMailboxFull", err)
	}
	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}

	if v, ok := m.TryPop(); !ok || v != 1 {
		t.Errorf("TryPop() = %d, %v, want 1, true", v, ok)
	}

	m.Close()
	if !m.IsClosed() {
		t.Error("IsClosed() = false after Close")
	}
	if err := m.Push(4); !errors.Is(err, agent.ErrMailboxClosed) {
		t.Errorf("Push after Close error = %v, want ErrMailboxClosed", err)
	}
	if v, ok := m.TryPop(); !ok || v != 2 {
		t.Errorf("TryPop() after Close = %d, %v, want 2, true", v, ok)
	}
	if _, ok := m.TryPop(); ok {
		t.Error("TryPop() on drained closed mailbox reported an item")
	}
	m.Close()
}
