package gateway

import (
	"errors"
	"fmt"
)

// Kind is a stable category for programmatic error handling.
type Kind string

const (
	// KindUnavailable means the gateway could not be reached or answered
	// with something unusable. Nothing was submitted; retrying is safe.
	KindUnavailable Kind = "Unavailable"
	// KindRejected means the gateway answered a submission with a non-2xx
	// status. Body holds the gateway's response verbatim.
	KindRejected Kind = "Rejected"
	// KindAmbiguous means a submission was sent but its outcome is unknown.
	// The transaction may or may not have been accepted.
	KindAmbiguous Kind = "Ambiguous"
	// KindNotFound means the gateway answered a read with 404.
	KindNotFound Kind = "NotFound"
)

// Error is the package's structured error type.
type Error struct {
	Kind       Kind
	Op         string
	StatusCode int
	Body       string
	Cause      error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("gateway %s: %s: HTTP %d: %s", e.Op, e.Kind, e.StatusCode, e.Body)
	case e.Cause != nil:
		return fmt.Sprintf("gateway %s: %s: %v", e.Op, e.Kind, e.Cause)
	default:
		return fmt.Sprintf("gateway %s: %s", e.Op, e.Kind)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

func isRetryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) || e.Kind != KindUnavailable {
		return false
	}
	// 4xx other than 429 is a permanent answer.
	if e.StatusCode >= 400 && e.StatusCode < 500 && e.StatusCode != 429 {
		return false
	}
	return true
}
