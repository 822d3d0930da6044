package fault

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can react without string matching
type Kind int

const (
	// Validation is malformed or insufficient local input, rejected before
	// any network call
	Validation Kind = iota
	// ConflictEquivalent is a backend conflict the caller can treat as
	// already achieved (account already open, ticket already advanced)
	ConflictEquivalent
	// StateViolation is an illegal transition on a terminal or out-of-order
	// state; surfaced, never retried
	StateViolation
	// NotFound is a stale id referencing an unknown entity
	NotFound
	// Transport is an unreachable channel or service
	Transport
	// AuthExpired is a rejected credential; the session must end at a
	// higher layer
	AuthExpired
)

// String returns the kind label used in logs and API payloads
func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case ConflictEquivalent:
		return "conflict_equivalent"
	case StateViolation:
		return "state_violation"
	case NotFound:
		return "not_found"
	case Transport:
		return "transport"
	case AuthExpired:
		return "auth_expired"
	}
	return "unknown"
}

// Fault is a classified failure with a human-readable message
type Fault struct {
	Kind    Kind
	Message string
	Cause   error
}

func (f *Fault) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Message, f.Cause)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Fault) Unwrap() error {
	return f.Cause
}

// New creates a fault with a formatted message
func New(kind Kind, format string, args ...interface{}) *Fault {
	return &Fault{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a fault that carries an underlying cause
func Wrap(kind Kind, err error, format string, args ...interface{}) *Fault {
	return &Fault{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: err}
}

// KindOf extracts the kind from an error chain. Unclassified errors
// report as Transport, the only kind safe to retry.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return Transport
}

// Is reports whether the error chain contains a fault of the given kind
func Is(err error, kind Kind) bool {
	var f *Fault
	return errors.As(err, &f) && f.Kind == kind
}
