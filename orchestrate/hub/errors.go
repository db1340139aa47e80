package hub

import (
	"errors"
	"fmt"
)

var (
	ErrRouting       = errors.New("routing failed")
	ErrAgentNotFound = errors.New("agent not found")
	ErrAgentInactive = errors.New("agent inactive")
)

// RoutingError reports a message the hub could not deliver. The message is
// dropped; it is neither queued nor recorded in history.
type RoutingError struct {
	MessageID string
	Receiver  string
	Reason    string
	Err       error
}

func (e *RoutingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: message %s to %q: %s: %v", ErrRouting, e.MessageID, e.Receiver, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: message %s to %q: %s", ErrRouting, e.MessageID, e.Receiver, e.Reason)
}

func (e *RoutingError) Is(target error) bool {
	return target == ErrRouting
}

func (e *RoutingError) Unwrap() error {
	return e.Err
}
