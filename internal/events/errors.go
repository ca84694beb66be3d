package events

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("event not found")
	ErrDuplicateID    = errors.New("duplicate event id")
	ErrRemoteRejected = errors.New("remote operation rejected")
	ErrRemoteFaulted  = errors.New("remote operation faulted")
	// ErrTimeout is a fault raised when a remote call outlives the engine timeout.
	ErrTimeout = fmt.Errorf("%w: remote operation timed out", ErrRemoteFaulted)
)

const (
	msgUnknown  = "unknown error"
	msgTimedOut = "remote operation timed out"
)

// rejectionFallback is surfaced when the remote reports failure without a message.
func rejectionFallback(kind Kind) string {
	return fmt.Sprintf("failed to %s event", kind)
}

// OpError describes a failed mutation. Error returns the message shown to the user.
type OpError struct {
	Kind    Kind
	ID      string
	Message string
	Err     error
}

func (e *OpError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return msgUnknown
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// panicError carries a recovered panic from a remote call.
type panicError struct {
	value any
}

func (p *panicError) Error() string {
	switch v := p.value.(type) {
	case error:
		return v.Error()
	case string:
		return v
	default:
		return msgUnknown
	}
}

func (p *panicError) Unwrap() error {
	return ErrRemoteFaulted
}
