package messaging

import (
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
)

type Priority int

const (
	PriorityLow Priority = iota + 1
	PriorityMedium
	PriorityHigh
)

func (p Priority) Valid() bool {
	return p >= PriorityLow && p <= PriorityHigh
}

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// Message is the unit of agent-to-agent communication. Fields are set at
// construction and treated as read-only afterwards; use Clone before
// handing a message to code that may retain it.
type Message struct {
	ID        string            `json:"id"`
	From      string            `json:"from"`
	To        string            `json:"to"`
	Kind      Kind              `json:"kind"`
	Payload   any               `json:"payload,omitempty"`
	ReplyTo   string            `json:"reply_to,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Priority  Priority          `json:"priority"`
	Headers   map[string]string `json:"headers,omitempty"`
}

func (msg *Message) IsResponse() bool {
	return msg.ReplyTo != ""
}

func (msg *Message) IsError() bool {
	return msg.Kind == KindErrorResponse
}

func (msg *Message) Clone() *Message {
	clone := *msg
	clone.Headers = maps.Clone(msg.Headers)
	return &clone
}

func (msg *Message) String() string {
	return fmt.Sprintf(
		"Message{ID: %s, From: %s, To: %s, Kind: %s, Priority: %s}",
		msg.ID,
		msg.From,
		msg.To,
		msg.Kind,
		msg.Priority,
	)
}

func generateID() string {
	return uuid.Must(uuid.NewV7()).String()
}
