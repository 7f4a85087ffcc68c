package booking

import (
	"errors"
	"fmt"
)

// Kind classifies engine failures for callers.
type Kind string

const (
	// KindNotFound: meeting, slot, contact or role does not exist.
	KindNotFound Kind = "NOT_FOUND"
	// KindNotBookable: the transition is rejected by a business rule
	// (meeting closed, members-only role, duplicate role held).
	KindNotBookable Kind = "NOT_BOOKABLE"
	// KindConflict: lost a race on a single-owner slot; the caller may retry.
	KindConflict Kind = "CONFLICT"
	// KindConfig: registry data is broken (unknown cardinality, missing
	// pathway metadata). Surfaced unmodified, never swallowed.
	KindConfig Kind = "CONFIG"
	// KindTransient: database timeout or deadlock; the caller may retry.
	KindTransient Kind = "TRANSIENT"
	// KindFatal: an invariant violation detected after a write. The
	// transaction is rolled back and the error is alerted on.
	KindFatal Kind = "FATAL"
)

// Error is a classified engine failure carrying a short display reason.
type Error struct {
	Kind   Kind
	Reason string
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error { return e.Cause }

// KindOf returns the kind of err, or KindTransient for plain database errors
// bubbling up from the store.
func KindOf(err error) Kind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindTransient
}

// ReasonOf returns the display reason of err, or a generic fallback.
func ReasonOf(err error) string {
	var be *Error
	if errors.As(err, &be) {
		return be.Reason
	}
	return "internal error"
}

func notFound(what string) error {
	return &Error{Kind: KindNotFound, Reason: what + " not found"}
}

func notBookable(reason string) error {
	return &Error{Kind: KindNotBookable, Reason: reason}
}

func configErr(reason string, cause error) error {
	return &Error{Kind: KindConfig, Reason: reason, Cause: cause}
}

func fatalErr(reason string) error {
	return &Error{Kind: KindFatal, Reason: reason}
}
