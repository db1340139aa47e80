// Package hub routes messages between registered agents.
//
// The hub owns the agent registry and a bounded delivery history. Route
// delivers a message to the mailbox of its receiver; it never runs handlers.
// Agents are driven explicitly: Step drains one agent and forwards the
// response, Dispatch routes a request and drains the receiver until the reply
// to that request appears.
//
//	h, err := hub.New(config.DefaultHubConfig())
//	h.Register(popularityAgent)
//	h.Register(suggestionAgent)
//
//	req := messaging.NewMessage("caller", "suggestion", messaging.KindGetRecommendations, payload).Build()
//	resp, err := h.Dispatch(ctx, req)
//
// Undeliverable messages are dropped with a *RoutingError (errors.Is ErrRouting),
// logged, counted, and reported to the observer as hub.route.drop. Broadcast
// fans one message out per registered agent other than the sender and never
// stops on an individual failure.
//
// A single mutex guards both the registry and the history, and routing holds it
// across lookup, mailbox push and history append, so the order of History
// matches the FIFO order of every mailbox.
package hub
