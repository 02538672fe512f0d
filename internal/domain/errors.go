package domain

import (
	"errors"
	"fmt"
)

// Error classes for everything that can go wrong inside a chat session.
// Protocol and persistence failures are recovered inside the session; the
// other two end it.
var (
	ErrProtocol     = errors.New("protocol error")
	ErrPersistence  = errors.New("persistence error")
	ErrConnection   = errors.New("connection error")
	ErrUnclassified = errors.New("unclassified error")
)

// ProtocolError reports a malformed or incomplete inbound frame.
type ProtocolError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	switch {
	case e.Field != "":
		return fmt.Sprintf("protocol error: field %q %s", e.Field, e.Reason)
	case e.Err != nil:
		return fmt.Sprintf("protocol error: %s: %v", e.Reason, e.Err)
	default:
		return "protocol error: " + e.Reason
	}
}

func (e *ProtocolError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrProtocol}
	}
	return []error{ErrProtocol, e.Err}
}

// PersistenceError reports that the message store rejected or could not
// perform an operation.
type PersistenceError struct {
	Op  string
	Err error
}

func NewPersistenceError(op string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Err: err}
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}

// IsRecoverable reports whether a session may keep running after err.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrProtocol) || errors.Is(err, ErrPersistence)
}

// Classify maps err onto one of the four error classes.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrProtocol):
		return ErrProtocol
	case errors.Is(err, ErrPersistence):
		return ErrPersistence
	case errors.Is(err, ErrConnection):
		return ErrConnection
	default:
		return ErrUnclassified
	}
}
