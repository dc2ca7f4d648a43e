package client

import (
	"errors"
	"fmt"
)

// ErrUnexpectedStatus is returned when the service answers with a non-2xx
// status. Message carries the `error` field of the body when there is one.
type ErrUnexpectedStatus struct {
	error
	StatusCode int
	Message    string
}

func NewErrUnexpectedStatus(op string, statusCode int, message string) *ErrUnexpectedStatus {
	msg := fmt.Sprintf("%s: star plan service returned status %d", op, statusCode)
	if message != "" {
		msg = fmt.Sprintf("%s: %s", msg, message)
	}
	return &ErrUnexpectedStatus{error: errors.New(msg), StatusCode: statusCode, Message: message}
}

// ErrInvalidResponse is returned when a 2xx body cannot be decoded or fails
// validation.
type ErrInvalidResponse struct {
	error
}

func NewErrInvalidResponse(op string, err error) *ErrInvalidResponse {
	return &ErrInvalidResponse{fmt.Errorf("%s: invalid response: %w", op, err)}
}

func (e *ErrInvalidResponse) Unwrap() error {
	return errors.Unwrap(e.error)
}

// ServerMessage returns the message the service attached to err, if any.
func ServerMessage(err error) string {
	var statusErr *ErrUnexpectedStatus
	if errors.As(err, &statusErr) {
		return statusErr.Message
	}
	return ""
}
