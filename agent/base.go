package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/tailored-agentic-units/recommender/observability"
	"github.com/tailored-agentic-units/recommender/orchestrate/messaging"
	"github.com/tailored-agentic-units/recommender/validation"
)

const DefaultMailboxSize = 256

type Option func(*Base)

func WithLogger(logger *slog.Logger) Option {
	return func(b *Base) {
		if logger != nil {
			b.logger = logger
		}
	}
}

func WithObserver(observer observability.Observer) Option {
	return func(b *Base) {
		if observer != nil {
			b.observer = observer
		}
	}
}

func WithMailboxSize(size int) Option {
	return func(b *Base) {
		if size > 0 {
			b.mailboxSize = size
		}
	}
}

// Base implements Agent around a handler table. Concrete agents embed it and
// supply their handlers to NewBase.
type Base struct {
	id       string
	name     string
	handlers map[messaging.Kind]Handler
	mailbox  *Mailbox[*messaging.Message]
	active   atomic.Bool

	mailboxSize int
	logger      *slog.Logger
	observer    observability.Observer
}

// NewBase binds handlers to a new agent identity. get_status and announcement
// are served by Base unless handlers overrides them.
func NewBase(id, name string, handlers map[messaging.Kind]Handler, opts ...Option) *Base {
	b := &Base{
		id:          id,
		name:        name,
		handlers:    make(map[messaging.Kind]Handler, len(handlers)+2),
		mailboxSize: DefaultMailboxSize,
		logger:      slog.Default(),
		observer:    observability.NoOpObserver{},
	}
	for _, opt := range opts {
		opt(b)
	}

	b.handlers[messaging.KindGetStatus] = b.handleStatus
	b.handlers[messaging.KindAnnouncement] = b.handleAnnouncement
	for kind, h := range handlers {
		b.handlers[kind] = h
	}

	b.mailbox = NewMailbox[*messaging.Message](b.mailboxSize)
	b.active.Store(true)
	return b
}

func (b *Base) ID() string   { return b.id }
func (b *Base) Name() string { return b.name }

func (b *Base) Logger() *slog.Logger { return b.logger }

func (b *Base) Observer() observability.Observer { return b.observer }

// Capabilities lists the handled kinds in sorted order.
func (b *Base) Capabilities() []messaging.Kind {
	kinds := make([]messaging.Kind, 0, len(b.handlers))
	for kind := range b.handlers {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

func (b *Base) SetActive(active bool) {
	b.active.Store(active)
}

func (b *Base) Status() Status {
	return Status{
		ID:           b.id,
		Name:         b.name,
		Active:       b.active.Load(),
		QueueSize:    b.mailbox.Len(),
		Capabilities: b.Capabilities(),
	}
}

// Send builds a message from this agent. Delivery is the hub's job.
func (b *Base) Send(to string, kind messaging.Kind, payload any, priority messaging.Priority) *messaging.Message {
	return messaging.NewMessage(b.id, to, kind, payload).Priority(priority).Build()
}

// Reply builds the response to request, keeping its priority.
func (b *Base) Reply(request *messaging.Message, kind messaging.Kind, payload any) *messaging.Message {
	return messaging.NewResponse(b.id, request.From, request.ID, kind, payload).
		Priority(request.Priority).
		Build()
}

func (b *Base) Receive(msg *messaging.Message) error {
	if msg == nil {
		return fmt.Errorf("agent %s: nil message", b.id)
	}
	if err := b.mailbox.Push(msg); err != nil {
		return fmt.Errorf("agent %s: %w", b.id, err)
	}
	return nil
}

func (b *Base) Drain(ctx context.Context) *messaging.Message {
	for b.active.Load() && ctx.Err() == nil {
		msg, ok := b.mailbox.TryPop()
		if !ok {
			return nil
		}
		if response := b.Handle(ctx, msg); response != nil {
			return response
		}
	}
	return nil
}

func (b *Base) Handle(ctx context.Context, msg *messaging.Message) *messaging.Message {
	if msg == nil {
		return nil
	}

	if !msg.Kind.Valid() {
		err := validation.Field("kind", "oneof", fmt.Sprintf("%q is not a known message kind", msg.Kind))
		return b.fail(ctx, msg, err)
	}

	handler, ok := b.handlers[msg.Kind]
	if !ok {
		b.logger.WarnContext(ctx, "unknown message kind",
			slog.String("agent_id", b.id),
			slog.String("kind", string(msg.Kind)),
			slog.String("message_id", msg.ID),
		)
		observability.Emit(ctx, b.observer, observability.EventMessageUnknown, observability.LevelWarning, b.id, map[string]any{
			"kind":       string(msg.Kind),
			"message_id": msg.ID,
		})
		return nil
	}

	started := time.Now()
	payload, err := b.invoke(ctx, handler, msg)
	if err != nil {
		return b.fail(ctx, msg, err)
	}

	observability.Emit(ctx, b.observer, observability.EventMessageHandle, observability.LevelVerbose, b.id, map[string]any{
		"kind":        string(msg.Kind),
		"message_id":  msg.ID,
		"duration_ms": time.Since(started).Milliseconds(),
	})

	if payload == nil {
		return nil
	}

	kind, ok := msg.Kind.ResultKind()
	if !ok {
		return nil
	}
	return b.Reply(msg, kind, payload)
}

func (b *Base) invoke(ctx context.Context, handler Handler, msg *messaging.Message) (payload any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: handler panic: %v", ErrInternal, r)
		}
	}()
	return handler(ctx, msg)
}

func (b *Base) fail(ctx context.Context, msg *messaging.Message, err error) *messaging.Message {
	code := ErrorCode(err)

	b.logger.ErrorContext(ctx, "message handling failed",
		slog.String("agent_id", b.id),
		slog.String("kind", string(msg.Kind)),
		slog.String("message_id", msg.ID),
		slog.String("code", code),
		slog.String("error", err.Error()),
	)
	observability.Emit(ctx, b.observer, observability.EventMessageFailed, observability.LevelError, b.id, map[string]any{
		"kind":       string(msg.Kind),
		"message_id": msg.ID,
		"code":       code,
	})

	payload := ErrorPayload{
		Code:              code,
		Error:             err.Error(),
		OriginalMessageID: msg.ID,
		Timestamp:         time.Now(),
	}
	return messaging.NewResponse(b.id, msg.From, msg.ID, messaging.KindErrorResponse, payload).
		Priority(messaging.PriorityHigh).
		Build()
}

func (b *Base) handleStatus(ctx context.Context, msg *messaging.Message) (any, error) {
	return b.Status(), nil
}

func (b *Base) handleAnnouncement(ctx context.Context, msg *messaging.Message) (any, error) {
	b.logger.InfoContext(ctx, "announcement received",
		slog.String("agent_id", b.id),
		slog.String("from", msg.From),
		slog.Any("payload", msg.Payload),
	)
	return nil, nil
}
