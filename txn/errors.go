package txn

import "errors"

// Kind is a stable category for programmatic error handling.
type Kind string

const (
	// KindHeader covers headers that fail Header.Validate.
	KindHeader Kind = "Header"
	// KindSigning covers invalid notary keys, signer/header mismatches and
	// signature failures.
	KindSigning Kind = "Signing"
	// KindManifest covers manifests that fail static validation.
	KindManifest Kind = "Manifest"
	// KindEncoding covers CBOR encode/decode failures and non-canonical input.
	KindEncoding Kind = "Encoding"
	// KindVerification covers compiled transactions whose signatures or
	// blobs do not check out.
	KindVerification Kind = "Verification"
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
	if e.Cause != nil {
		return "txn: " + e.Message + ": " + e.Cause.Error()
	}
	return "txn: " + e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func newError(kind Kind, msg string, cause error) error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// WrapHeader reports a header failure as KindSigning, the category callers
// assembling a transaction see for an inconsistent header. Any other error
// is returned unchanged.
func WrapHeader(err error) error {
	if IsKind(err, KindHeader) {
		return newError(KindSigning, "inconsistent header", err)
	}
	return err
}
