// Package errors provides the coordinator's error type: a stack-trace
// wrapped error tagged with one of a small fixed set of kinds (IllegalState,
// InvalidArgument, AlreadyPresent, Expired, Fatal).
package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a CoordinatorError so callers can branch on it with
// errors.Is instead of string matching.
type Kind int

const (
	// Unclassified is the zero value; used for errors that don't need a kind.
	Unclassified Kind = iota

	// IllegalState marks a guarded entry point called in the wrong
	// replica state or role.
	IllegalState

	// InvalidArgument marks a malformed OpId, non-monotonic index, term
	// regression, or ill-formed configuration.
	InvalidArgument

	// AlreadyPresent marks an idempotent vote or config-change request
	// that was recovered locally.
	AlreadyPresent

	// Expired marks a lease check that was rejected because the leader's
	// lease has lapsed.
	Expired

	// Fatal marks a durable-store write failure during a state transition.
	Fatal
)

func (k Kind) String() string {
	switch k {
	case IllegalState:
		return "illegal state"
	case InvalidArgument:
		return "invalid argument"
	case AlreadyPresent:
		return "already present"
	case Expired:
		return "expired"
	case Fatal:
		return "fatal"
	default:
		return "unclassified"
	}
}

// CoordinatorError is the coordinator's error type. It carries a Kind for
// programmatic dispatch and an inner error (with a stack trace attached via
// github.com/pkg/errors) for diagnostics.
type CoordinatorError struct {
	Kind    Kind
	Inner   error
	Message string
}

// New creates a CoordinatorError with no kind and no wrapped cause.
func New(text string) *CoordinatorError {
	return &CoordinatorError{Message: text}
}

// WrapError wraps inner with a stack trace and the formatted message,
// without assigning a kind. Most call sites should prefer WrapKind.
func WrapError(inner error, messagef string, messageArgs ...interface{}) *CoordinatorError {
	return &CoordinatorError{
		Inner:   errors.WithStack(inner),
		Message: fmt.Sprintf(messagef, messageArgs...),
	}
}

// WrapKind wraps inner with a stack trace, a kind, and the formatted message.
func WrapKind(kind Kind, inner error, messagef string, messageArgs ...interface{}) *CoordinatorError {
	var wrapped error
	if inner != nil {
		wrapped = errors.WithStack(inner)
	}
	return &CoordinatorError{
		Kind:    kind,
		Inner:   wrapped,
		Message: fmt.Sprintf(messagef, messageArgs...),
	}
}

func (e *CoordinatorError) UnwrapError() error {
	return e.Inner
}

// Unwrap lets errors.Is/errors.As walk through the stack-traced inner error.
func (e *CoordinatorError) Unwrap() error {
	return e.Inner
}

func (e *CoordinatorError) Error() string {
	if e.Kind == Unclassified {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is lets errors.Is(err, Sentinel(kind)) work by matching a zero-message
// CoordinatorError of the same kind, as produced by Sentinel below.
func (e *CoordinatorError) Is(target error) bool {
	other, ok := target.(*CoordinatorError)
	if !ok {
		return false
	}
	return other.Message == "" && other.Kind == e.Kind
}

// Sentinel returns a zero-message CoordinatorError of the given kind,
// suitable as the target of errors.Is(err, Sentinel(IllegalState)).
func Sentinel(kind Kind) *CoordinatorError {
	return &CoordinatorError{Kind: kind}
}

// HasKind reports whether err is (or wraps) a CoordinatorError of kind.
func HasKind(err error, kind Kind) bool {
	return errors.Is(err, Sentinel(kind))
}
