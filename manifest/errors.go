package manifest

import "errors"

// Kind groups manifest errors for callers; match on Kind and RuleID, not on
// message text.
type Kind string

const (
	KindParse      Kind = "Parse"
	KindValidation Kind = "Validation"
	KindRender     Kind = "Render"
	KindInternal   Kind = "Internal"
)

// Error reports a violated manifest rule. RuleID is stable across releases:
// MAN-PARSE-* for the text parser, MAN-VAL-* and MAN-BLOB-* for static
// validation, MAN-RENDER-* for rendering.
type Error struct {
	Kind    Kind
	RuleID  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.RuleID == "" {
		return "manifest: " + e.Message
	}
	return "manifest " + e.RuleID + ": " + e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func newError(kind Kind, ruleID, msg string) error {
	return &Error{Kind: kind, RuleID: ruleID, Message: msg}
}

func wrapError(kind Kind, ruleID, msg string, cause error) error {
	return &Error{Kind: kind, RuleID: ruleID, Message: msg, Cause: cause}
}

func asError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// IsKind reports whether err wraps a *Error of kind.
func IsKind(err error, kind Kind) bool {
	e, ok := asError(err)
	return ok && e.Kind == kind
}

// RuleID returns the rule violated by err, or "".
func RuleID(err error) string {
	if e, ok := asError(err); ok {
		return e.RuleID
	}
	return ""
}
