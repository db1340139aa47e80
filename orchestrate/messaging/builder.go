package messaging

import "time"

type MessageBuilder struct {
	message *Message
}

func NewMessage(from, to string, kind Kind, payload any) *MessageBuilder {
	return &MessageBuilder{
		message: &Message{
			ID:        generateID(),
			From:      from,
			To:        to,
			Kind:      kind,
			Payload:   payload,
			Timestamp: time.Now(),
			Priority:  PriorityLow,
		},
	}
}

// NewResponse builds a reply to the message identified by replyTo.
func NewResponse(from, to, replyTo string, kind Kind, payload any) *MessageBuilder {
	return NewMessage(from, to, kind, payload).ReplyTo(replyTo)
}

func (mb *MessageBuilder) ReplyTo(replyTo string) *MessageBuilder {
	mb.message.ReplyTo = replyTo
	return mb
}

func (mb *MessageBuilder) Priority(priority Priority) *MessageBuilder {
	mb.message.Priority = priority
	return mb
}

func (mb *MessageBuilder) Headers(headers map[string]string) *MessageBuilder {
	mb.message.Headers = headers
	return mb
}

func (mb *MessageBuilder) Build() *Message {
	return mb.message
}
