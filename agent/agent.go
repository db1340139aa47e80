package agent

import (
	"context"

	"github.com/tailored-agentic-units/recommender/orchestrate/messaging"
)

// Agent is a mailbox-driven participant registered with the hub.
type Agent interface {
	ID() string
	Name() string
	Capabilities() []messaging.Kind

	// Receive queues msg. It is the only way messages enter the mailbox.
	Receive(msg *messaging.Message) error

	// Drain handles queued messages in FIFO order and returns the first
	// response produced, or nil once the mailbox is empty.
	Drain(ctx context.Context) *messaging.Message

	// Handle processes one message without touching the mailbox.
	Handle(ctx context.Context, msg *messaging.Message) *messaging.Message

	Status() Status
	SetActive(active bool)
}

// Status is the get_status payload and the per-agent entry of the hub status.
type Status struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Active       bool             `json:"active"`
	QueueSize    int              `json:"queue_size"`
	Capabilities []messaging.Kind `json:"capabilities"`
}

// Handler serves one request kind. A nil payload with a nil error means no
// response.
type Handler func(ctx context.Context, msg *messaging.Message) (any, error)
