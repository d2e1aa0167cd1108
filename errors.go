package statepick

import (
	"errors"
	"fmt"
)

// Sentinel errors for the ordering and selection APIs.
//
// All errors are synchronous and fail-fast: they are returned directly to
// the caller of the offending operation, never retried or swallowed.
// Mutating operations are all-or-nothing - an operation that returns an
// error has not touched the registry or the engine's bookkeeping.
var (
	// ErrDuplicateID indicates an id is already registered.
	ErrDuplicateID = errors.New("duplicate id")

	// ErrNotFound indicates an id is not registered.
	ErrNotFound = errors.New("id not found")

	// ErrIndexOutOfRange indicates a slot index outside [0, len).
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrSamePriority indicates two Default resolvers with equal
	// (group, priority) keys and no tiebreaker. Equal-priority ties are
	// never ordered silently; the caller must supply a disambiguation rule.
	ErrSamePriority = errors.New("unresolved priority tie")

	// ErrResolverShape indicates a group/priority query against a resolver
	// that is not a Default resolver.
	ErrResolverShape = errors.New("resolver shape mismatch")
)

// OrderError wraps a sentinel with the id and slot it concerns.
// Use errors.Is against the sentinels above to classify it.
type OrderError struct {
	Op    string // "insert", "remove", "index-of", "id-at"
	ID    string // fmt.Sprint of the offending id, empty when not id-related
	Index int    // offending slot, -1 when not slot-related
	Err   error  // sentinel cause
}

// Error implements the error interface.
func (e *OrderError) Error() string {
	switch {
	case e.ID != "" && e.Index >= 0:
		return fmt.Sprintf("%s %q at %d: %v", e.Op, e.ID, e.Index, e.Err)
	case e.ID != "":
		return fmt.Sprintf("%s %q: %v", e.Op, e.ID, e.Err)
	case e.Index >= 0:
		return fmt.Sprintf("%s at %d: %v", e.Op, e.Index, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

// Unwrap exposes the sentinel cause to errors.Is/errors.As.
func (e *OrderError) Unwrap() error { return e.Err }

func orderErr(op string, id any, index int, err error) *OrderError {
	oe := &OrderError{Op: op, Index: index, Err: err}
	if id != nil {
		oe.ID = fmt.Sprint(id)
	}
	return oe
}
