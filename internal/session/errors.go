package session

import (
	"errors"
)

var (
	ErrEmptyURL        = errors.New("source url is empty")
	ErrEmptySelection  = errors.New("no target selected")
	ErrTriggerDisabled = errors.New("trigger is disabled")
	ErrRequestInFlight = errors.New("request already in flight")
	ErrNoJob           = errors.New("no job launched in this session")
	ErrClosed          = errors.New("session closed")
	ErrReset           = errors.New("session reset while the request was in flight")
)
