package rollcache

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by rollcache operations.
//
// Callers should use [errors.Is] to check error types:
//
//	if errors.Is(err, rollcache.ErrIndexOutOfRange) {
//	    // row does not exist in the source
//	}
var (
	// ErrInvalidArgument indicates a nil or illegal argument.
	//
	// This is a programming error.
	ErrInvalidArgument = errors.New("rollcache: invalid argument")

	// ErrPrecondition indicates a call broke an operation's precondition,
	// for example evicting rows from the middle of the window.
	//
	// This is a programming error.
	ErrPrecondition = errors.New("rollcache: precondition violated")

	// ErrUnsupported indicates a write was requested from a source that does
	// not implement [Writer].
	ErrUnsupported = errors.New("rollcache: unsupported operation")

	// ErrSourceIO indicates the source failed to fetch or write rows.
	//
	// The source's own error is wrapped too, so errors.Is matches both.
	//
	// Recovery: retry. A failed Flush keeps every change it did not write.
	ErrSourceIO = errors.New("rollcache: source failure")

	// ErrIndexOutOfRange indicates a row number outside the source's total range.
	ErrIndexOutOfRange = errors.New("rollcache: index out of range")

	// ErrInconsistent indicates the window algorithm ended in a state that
	// breaks its own invariants. It is surfaced instead of hidden.
	//
	// This is a bug in rollcache or a source that lies about its rows.
	ErrInconsistent = errors.New("rollcache: internal inconsistency")

	// ErrUnknownKey indicates an edit referenced a ledger key that is not
	// pending. It matches [ErrInvalidArgument] as well.
	ErrUnknownKey = fmt.Errorf("%w: unknown ledger key", ErrInvalidArgument)
)

// sourceErr marks err as a source failure while keeping it matchable.
func sourceErr(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(ErrSourceIO, err))
}
