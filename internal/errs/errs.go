// Package errs defines the well-known error kinds used across the server.
//
// Sentinel errors are checkable with errors.Is; WireError additionally
// carries the wire-level code so the dispatcher can render a -CODE message
// reply without re-deriving it from the Go error text.
package errs

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownCommand       = errors.New("unknown command")
	ErrWrongType            = errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")
	ErrNotInteger           = errors.New("value is not an integer or out of range")
	ErrOverflow             = errors.New("increment or decrement would overflow")
	ErrNestedMulti          = errors.New("MULTI calls can not be nested")
	ErrExecWithoutMulti     = errors.New("EXEC without MULTI")
	ErrExecAbort            = errors.New("Transaction discarded because of previous errors.")
	ErrDiscardWithoutMulti  = errors.New("DISCARD without MULTI")
	ErrWatchInsideMulti     = errors.New("WATCH inside MULTI is not allowed")
	ErrBlockingInTxn        = errors.New("is not allowed in transaction context")
	ErrPubSubContext        = errors.New("only (P)SUBSCRIBE / (P)UNSUBSCRIBE / PING / QUIT are allowed in this context")
	ErrXAddTopOrEqual       = errors.New("The ID specified in XADD is equal or smaller than the target stream top item")
	ErrXAddZero             = errors.New("The ID specified in XADD must be greater than 0-0")
	ErrProtocol             = errors.New("Protocol error")
)

// WireError pairs a wire-level code ("ERR", "WRONGTYPE", ...) with a message,
// and wraps an underlying sentinel for errors.Is/errors.As use.
type WireError struct {
	Code    string
	Message string
	Cause   error
}

func (e *WireError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s %s", e.Code, e.Message)
}

func (e *WireError) Is(target error) bool {
	return e.Cause == target
}

func (e *WireError) Unwrap() error {
	return e.Cause
}

// Wrong returns the WRONGTYPE wire error.
func Wrong() *WireError {
	return &WireError{Code: "WRONGTYPE", Message: "Operation against a key holding the wrong kind of value", Cause: ErrWrongType}
}

// ExecAbort returns the EXECABORT wire error EXEC replies with when the
// queued transaction was flagged abort-at-exec by a structural dispatch
// error while queuing.
func ExecAbort() *WireError {
	return &WireError{Code: "EXECABORT", Message: ErrExecAbort.Error(), Cause: ErrExecAbort}
}

// Err builds a generic -ERR reply from a formatted message. It wraps no
// sentinel, so errors.Is matches nothing for it.
func Err(format string, args ...any) *WireError {
	return &WireError{Code: "ERR", Message: fmt.Sprintf(format, args...)}
}

// ErrFor builds a -ERR reply for a known sentinel.
func ErrFor(cause error) *WireError {
	return &WireError{Code: "ERR", Message: cause.Error(), Cause: cause}
}

// ValidationError marks a mistake the dispatcher catches before a command
// runs or is enqueued in a transaction (currently the arity check, via
// WrongArity).
type ValidationError struct {
	*WireError
}

func NewValidationError(we *WireError) *ValidationError {
	return &ValidationError{WireError: we}
}

// WrongArity builds the standard "wrong number of arguments" validation error.
func WrongArity(cmd string) *ValidationError {
	return NewValidationError(&WireError{
		Code:    "ERR",
		Message: fmt.Sprintf("wrong number of arguments for '%s' command", cmd),
	})
}
