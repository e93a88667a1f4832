package keys

import "errors"

// Kind is a stable category for programmatic error handling.
type Kind string

const (
	// KindKey covers secrets that do not decode into a valid private key.
	KindKey Kind = "Key"
	// KindSecret covers failures to obtain a secret from its provider.
	KindSecret Kind = "Secret"
)

// Error is the package's structured error type.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func keyError(msg string) error { return &Error{Kind: KindKey, Message: msg} }

func secretError(msg string, cause error) error {
	return &Error{Kind: KindSecret, Message: msg, Cause: cause}
}

// IsKind reports whether err is (or wraps) an *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
