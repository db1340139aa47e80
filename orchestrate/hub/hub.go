package hub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/tailored-agentic-units/recommender/agent"
	"github.com/tailored-agentic-units/recommender/observability"
	"github.com/tailored-agentic-units/recommender/orchestrate/config"
	"github.com/tailored-agentic-units/recommender/orchestrate/messaging"
)

type Hub interface {
	Name() string

	Register(a agent.Agent)
	Unregister(agentID string) error

	Route(ctx context.Context, msg *messaging.Message) error
	Broadcast(ctx context.Context, from string, kind messaging.Kind, payload any, priority messaging.Priority) BroadcastResult
	Dispatch(ctx context.Context, msg *messaging.Message) (*messaging.Message, error)
	Step(ctx context.Context, agentID string) (*messaging.Message, error)

	History() []*messaging.Message
	Status() SystemStatus
	Metrics() MetricsSnapshot
}

// BroadcastResult lists the intended recipients in the order they were tried.
type BroadcastResult struct {
	Recipients []string `json:"recipients"`
	Delivered  int      `json:"delivered"`
	Failed     int      `json:"failed"`
}

type SystemStatus struct {
	Name        string                  `json:"name"`
	TotalAgents int                     `json:"total_agents"`
	Agents      map[string]agent.Status `json:"agents"`
	HistorySize int                     `json:"history_size"`
}

// Drop reasons reported in RoutingError.Reason and hub.route.drop events.
const (
	ReasonUnknownReceiver = "unknown_receiver"
	ReasonMailboxFull     = "mailbox_full"
	ReasonRejected        = "rejected"
)

type hub struct {
	name string

	mu      sync.Mutex
	agents  map[string]agent.Agent
	history *history

	// serializes draining per agent so concurrent Dispatch calls never
	// consume each other's replies
	drainMu sync.Map

	config   config.HubConfig
	logger   *slog.Logger
	observer observability.Observer
	metrics  *Metrics
}

// New builds a hub from cfg merged over the defaults. The observer is
// resolved by name from the observability registry.
func New(cfg config.HubConfig) (Hub, error) {
	merged := config.DefaultHubConfig()
	merged.Merge(&cfg)

	observer, err := observability.GetObserver(merged.Observer)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve observer: %w", err)
	}

	return &hub{
		name:     merged.Name,
		agents:   make(map[string]agent.Agent),
		history:  newHistory(merged.HistorySize),
		config:   merged,
		logger:   merged.Logger,
		observer: observer,
		metrics:  NewMetrics(),
	}, nil
}

func (h *hub) Name() string {
	return h.name
}

// Register adds or replaces the agent under its ID. A replaced agent keeps
// whatever was still queued in its mailbox.
func (h *hub) Register(a agent.Agent) {
	id := a.ID()

	h.mu.Lock()
	previous, replaced := h.agents[id]
	h.agents[id] = a
	h.metrics.SetAgents(len(h.agents))
	h.mu.Unlock()

	ctx := context.Background()
	if replaced {
		pending := previous.Status().QueueSize
		h.logger.WarnContext(ctx, "agent registration replaced",
			slog.String("hub_name", h.name),
			slog.String("agent_id", id),
			slog.Int("pending_messages", pending),
		)
		observability.Emit(ctx, h.observer, observability.EventAgentReplace, observability.LevelWarning, h.source(), map[string]any{
			"agent_id":         id,
			"pending_messages": pending,
		})
		return
	}

	h.logger.DebugContext(ctx, "agent registered",
		slog.String("hub_name", h.name),
		slog.String("agent_id", id),
	)
	observability.Emit(ctx, h.observer, observability.EventAgentRegister, observability.LevelInfo, h.source(), map[string]any{
		"agent_id": id,
		"name":     a.Name(),
	})
}

func (h *hub) Unregister(agentID string) error {
	h.mu.Lock()
	_, exists := h.agents[agentID]
	if exists {
		delete(h.agents, agentID)
		h.metrics.SetAgents(len(h.agents))
	}
	h.mu.Unlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrAgentNotFound, agentID)
	}

	h.drainMu.Delete(agentID)
	h.logger.Debug("agent unregistered",
		slog.String("hub_name", h.name),
		slog.String("agent_id", agentID),
	)
	observability.Emit(context.Background(), h.observer, observability.EventAgentUnregister, observability.LevelInfo, h.source(), map[string]any{
		"agent_id": agentID,
	})
	return nil
}

func (h *hub) Route(ctx context.Context, msg *messaging.Message) error {
	if msg == nil {
		return fmt.Errorf("%w: nil message", ErrRouting)
	}

	h.mu.Lock()
	receiver, ok := h.agents[msg.To]
	if !ok {
		h.mu.Unlock()
		return h.drop(ctx, msg, ReasonUnknownReceiver, nil)
	}
	if err := receiver.Receive(msg); err != nil {
		h.mu.Unlock()
		reason := ReasonRejected
		if errors.Is(err, agent.ErrMailboxFull) {
			reason = ReasonMailboxFull
		}
		return h.drop(ctx, msg, reason, err)
	}
	h.history.append(msg.Clone())
	h.mu.Unlock()

	h.metrics.RecordRouted()
	h.logger.DebugContext(ctx, "message routed",
		slog.String("hub_name", h.name),
		slog.String("message_id", msg.ID),
		slog.String("from", msg.From),
		slog.String("to", msg.To),
		slog.String("kind", string(msg.Kind)),
	)
	observability.Emit(ctx, h.observer, observability.EventRoute, observability.LevelVerbose, h.source(), map[string]any{
		"message_id": msg.ID,
		"from":       msg.From,
		"to":         msg.To,
		"kind":       string(msg.Kind),
	})
	return nil
}

func (h *hub) drop(ctx context.Context, msg *messaging.Message, reason string, cause error) error {
	h.metrics.RecordDropped()

	routingErr := &RoutingError{
		MessageID: msg.ID,
		Receiver:  msg.To,
		Reason:    reason,
		Err:       cause,
	}

	h.logger.ErrorContext(ctx, "message dropped",
		slog.String("hub_name", h.name),
		slog.String("message_id", msg.ID),
		slog.String("from", msg.From),
		slog.String("to", msg.To),
		slog.String("kind", string(msg.Kind)),
		slog.String("reason", reason),
	)
	observability.Emit(ctx, h.observer, observability.EventRouteDrop, observability.LevelError, h.source(), map[string]any{
		"message_id": msg.ID,
		"to":         msg.To,
		"kind":       string(msg.Kind),
		"reason":     reason,
	})
	return routingErr
}

func (h *hub) Broadcast(ctx context.Context, from string, kind messaging.Kind, payload any, priority messaging.Priority) BroadcastResult {
	h.mu.Lock()
	recipients := make([]string, 0, len(h.agents))
	for id := range h.agents {
		if id != from {
			recipients = append(recipients, id)
		}
	}
	h.mu.Unlock()
	sort.Strings(recipients)

	result := BroadcastResult{Recipients: recipients}
	for _, to := range recipients {
		msg := messaging.NewMessage(from, to, kind, payload).Priority(priority).Build()
		if err := h.Route(ctx, msg); err != nil {
			result.Failed++
			continue
		}
		result.Delivered++
	}

	h.metrics.RecordBroadcast()
	h.logger.DebugContext(ctx, "broadcast sent",
		slog.String("hub_name", h.name),
		slog.String("from", from),
		slog.String("kind", string(kind)),
		slog.Int("delivered", result.Delivered),
		slog.Int("failed", result.Failed),
	)
	observability.Emit(ctx, h.observer, observability.EventBroadcast, observability.LevelInfo, h.source(), map[string]any{
		"from":      from,
		"kind":      string(kind),
		"delivered": result.Delivered,
		"failed":    result.Failed,
	})
	return result
}

// Dispatch routes msg and drains its receiver until the reply to msg is
// produced. Replies to other requests met on the way are routed to their
// addressees. A nil response with a nil error means the receiver handled msg
// without replying. DefaultTimeout applies when ctx carries no deadline.
//
// msg is not routed when ctx is already done or the receiver is inactive. Once
// routed, a handler that has started runs to completion even if ctx ends
// during the drain.
func (h *hub) Dispatch(ctx context.Context, msg *messaging.Message) (*messaging.Message, error) {
	if msg == nil {
		return nil, fmt.Errorf("%w: nil message", ErrRouting)
	}

	if _, ok := ctx.Deadline(); !ok && h.config.DefaultTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.DefaultTimeout)
		defer cancel()
	}

	unlock := h.lockDrain(msg.To)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("dispatch %s to %s: %w", msg.ID, msg.To, err)
	}
	if receiver, ok := h.lookup(msg.To); ok && !receiver.Status().Active {
		return nil, fmt.Errorf("%w: %s", ErrAgentInactive, msg.To)
	}

	if err := h.Route(ctx, msg); err != nil {
		return nil, err
	}

	receiver, ok := h.lookup(msg.To)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, msg.To)
	}

	for {
		response := receiver.Drain(ctx)
		if response == nil {
			break
		}
		if response.ReplyTo == msg.ID {
			h.dispatched(ctx, msg, response)
			return response, nil
		}
		h.forward(ctx, response)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("dispatch %s to %s: %w", msg.ID, msg.To, err)
	}
	if !receiver.Status().Active {
		return nil, fmt.Errorf("%w: %s", ErrAgentInactive, msg.To)
	}

	h.dispatched(ctx, msg, nil)
	return nil, nil
}

// Step drains one agent. The response is routed when its addressee is
// registered and returned otherwise.
func (h *hub) Step(ctx context.Context, agentID string) (*messaging.Message, error) {
	receiver, ok := h.lookup(agentID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, agentID)
	}

	unlock := h.lockDrain(agentID)
	response := receiver.Drain(ctx)
	unlock()

	if response == nil {
		return nil, nil
	}
	if _, registered := h.lookup(response.To); registered {
		return nil, h.Route(ctx, response)
	}
	return response, nil
}

func (h *hub) forward(ctx context.Context, response *messaging.Message) {
	if _, registered := h.lookup(response.To); registered {
		_ = h.Route(ctx, response)
		return
	}
	_ = h.drop(ctx, response, ReasonUnknownReceiver, nil)
}

func (h *hub) dispatched(ctx context.Context, request, response *messaging.Message) {
	data := map[string]any{
		"message_id": request.ID,
		"to":         request.To,
		"kind":       string(request.Kind),
		"replied":    response != nil,
	}
	if response != nil {
		data["response_kind"] = string(response.Kind)
	}
	observability.Emit(ctx, h.observer, observability.EventDispatchComplete, observability.LevelVerbose, h.source(), data)
}

func (h *hub) lookup(id string) (agent.Agent, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	a, ok := h.agents[id]
	return a, ok
}

func (h *hub) lockDrain(id string) func() {
	m, _ := h.drainMu.LoadOrStore(id, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (h *hub) History() []*messaging.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.history.snapshot()
}

func (h *hub) Status() SystemStatus {
	h.mu.Lock()
	defer h.mu.Unlock()

	agents := make(map[string]agent.Status, len(h.agents))
	for id, a := range h.agents {
		agents[id] = a.Status()
	}

	return SystemStatus{
		Name:        h.name,
		TotalAgents: len(h.agents),
		Agents:      agents,
		HistorySize: h.history.len(),
	}
}

func (h *hub) Metrics() MetricsSnapshot {
	return h.metrics.Snapshot()
}

func (h *hub) source() string {
	return "hub." + h.name
}
