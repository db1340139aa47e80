package agent

import (
	"errors"
	"fmt"
	"time"

	"github.com/tailored-agentic-units/recommender/orchestrate/messaging"
	"github.com/tailored-agentic-units/recommender/validation"
)

var (
	ErrInternal      = errors.New("internal error")
	ErrMailboxFull   = errors.New("mailbox full")
	ErrMailboxClosed = errors.New("mailbox closed")
)

// Error codes carried by error_response payloads.
const (
	CodeValidation = "validation_error"
	CodeInternal   = "internal_error"
)

// ErrorPayload is the body of an error_response message.
type ErrorPayload struct {
	Code              string    `json:"code"`
	Error             string    `json:"error"`
	OriginalMessageID string    `json:"original_message_id"`
	Timestamp         time.Time `json:"timestamp"`
}

// ErrorCode classifies err for an error_response.
func ErrorCode(err error) string {
	if errors.Is(err, validation.ErrInvalid) {
		return CodeValidation
	}
	return CodeInternal
}

// ResponseError is an error_response message seen from the caller side.
// It unwraps to validation.ErrInvalid or ErrInternal according to its code.
type ResponseError struct {
	Code              string
	Message           string
	OriginalMessageID string
	From              string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s from %s: %s", e.Code, e.From, e.Message)
}

func (e *ResponseError) Unwrap() error {
	if e.Code == CodeValidation {
		return validation.ErrInvalid
	}
	return ErrInternal
}

// AsError returns the *ResponseError carried by msg, or nil when msg is not
// an error_response.
func AsError(msg *messaging.Message) error {
	if msg == nil || !msg.IsError() {
		return nil
	}

	payload, err := messaging.Decode[ErrorPayload](msg)
	if err != nil {
		return &ResponseError{
			Code:              CodeInternal,
			Message:           "malformed error response",
			OriginalMessageID: msg.ReplyTo,
			From:              msg.From,
		}
	}

	return &ResponseError{
		Code:              payload.Code,
		Message:           payload.Error,
		OriginalMessageID: payload.OriginalMessageID,
		From:              msg.From,
	}
}
