package retools

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of a control error
type ErrorType int

const (
	// ErrTypeLifecycle indicates a command that is invalid in the current
	// engine state (start while running, anything else while idle)
	ErrTypeLifecycle ErrorType = iota
	// ErrTypeNotFound indicates a key clear for an ID with no mask
	ErrTypeNotFound
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeLifecycle:
		return "Lifecycle Error"
	case ErrTypeNotFound:
		return "Not Found"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Error is a control error reported to the operator. None of these are
// fatal; the engine state is unchanged when one is returned.
type Error struct {
	Type    ErrorType
	Message string
}

// Error implements the error interface
func (e *Error) Error() string {
	return e.Message
}

var (
	// ErrAlreadyRunning is returned by Start while the engine is running
	ErrAlreadyRunning = &Error{Type: ErrTypeLifecycle, Message: "RE tools already running"}
	// ErrNotRunning is returned by every operation but Start while idle
	ErrNotRunning = &Error{Type: ErrTypeLifecycle, Message: "RE tools not running"}
	// ErrKeyNotFound is returned by ClearKey when the ID has no mask
	ErrKeyNotFound = &Error{Type: ErrTypeNotFound, Message: "no key set for ID"}
)

// ErrorTypeOf returns the type of a control error in err's chain
func ErrorTypeOf(err error) (ErrorType, bool) {
	var rerr *Error
	if errors.As(err, &rerr) {
		return rerr.Type, true
	}
	return 0, false
}
