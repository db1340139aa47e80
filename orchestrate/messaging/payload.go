package messaging

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tailored-agentic-units/recommender/validation"
)

var ErrInvalidPayload = fmt.Errorf("%w: invalid payload", validation.ErrInvalid)

// Decode returns the payload of msg as T. Payloads built in-process arrive
// as T or *T; payloads built by callers outside the module arrive as
// generic mappings and are decoded through their JSON form.
func Decode[T any](msg *Message) (T, error) {
	var zero T

	switch p := msg.Payload.(type) {
	case nil:
		return zero, fmt.Errorf("%w: %s carries no payload", ErrInvalidPayload, msg.Kind)
	case T:
		return p, nil
	case *T:
		if p == nil {
			return zero, fmt.Errorf("%w: %s carries no payload", ErrInvalidPayload, msg.Kind)
		}
		return *p, nil
	}

	data, err := json.Marshal(msg.Payload)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return zero, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, msg.Kind, err)
	}
	return out, nil
}
