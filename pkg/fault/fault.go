// Package fault provides a small tagged error type so callers can branch
// on the kind of failure without depending on the package that produced it.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for the caller.
type Kind int

// Known failure kinds.
const (
	// Unknown is the zero kind for errors not produced by this package.
	Unknown Kind = iota
	// Validation marks rejected input, e.g. a malformed season string.
	Validation
	// NotFound marks a missing entity.
	NotFound
	// External marks a failure in an outside collaborator, e.g. a judge
	// site fetch.
	External
	// Conflict marks an operation refused because of concurrent state,
	// e.g. a rating recomputation during a season transition.
	Conflict
)

// String returns the kind name for logs.
func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case NotFound:
		return "not_found"
	case External:
		return "external"
	case Conflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Error is a kinded error with an optional wrapped cause.
type Error struct {
	kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

// Unwrap exposes the cause for errors.Is/As chains.
func (e *Error) Unwrap() error { return e.err }

// Kind returns the classification of this error.
func (e *Error) Kind() Kind { return e.kind }

// New creates a kinded error with a formatted message.
func New(kind Kind, format string, args ...any) error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap annotates err with a kind and message. A nil err yields nil.
func Wrap(kind Kind, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...), err: err}
}

// KindOf extracts the kind from an error chain, or Unknown.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.kind
	}
	return Unknown
}

// IsKind reports whether err carries the given kind anywhere in its chain.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
