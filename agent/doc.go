// Package agent defines the Agent contract and the Base every agent embeds.
//
// An agent owns a bounded FIFO mailbox and a handler table keyed by request
// Kind. The table is fixed at construction; the hub never calls handlers
// directly. It delivers with Receive and asks the agent to Drain.
//
// Handlers return a payload and an error. Base turns the payload into the
// result message for the request kind and turns errors (including recovered
// panics) into error_response messages:
//
//	errors.Is(err, validation.ErrInvalid) -> code "validation_error"
//	anything else                         -> code "internal_error"
//
// A handler returning a nil payload and nil error produces no response.
package agent
