package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a failure from the remote backend or the booking layer.
// The set is closed: every error that crosses a package boundary carries
// exactly one of these.
type Kind string

const (
	KindUnauthorized      Kind = "UNAUTHORIZED"
	KindForbidden         Kind = "FORBIDDEN"
	KindNotFound          Kind = "NOT_FOUND"
	KindBadRequest        Kind = "BAD_REQUEST"
	KindServerError       Kind = "SERVER_ERROR"
	KindNetworkError      Kind = "NETWORK_ERROR"
	KindConflict          Kind = "CONFLICT"
	KindBookingInProgress Kind = "BOOKING_IN_PROGRESS"
	KindUnknown           Kind = "UNKNOWN_ERROR"
)

// Error is a classified failure. Conflicts is populated only for
// KindConflict so callers can offer alternative slots.
type Error struct {
	Kind      Kind
	Message   string
	Conflicts []ConflictDetail
	Cause     error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError builds a classified error with no underlying cause.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError attaches a classification to an underlying error.
func WrapError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// ConflictError builds a KindConflict error carrying the reservations that
// intersect the requested interval.
func ConflictError(conflicts []ConflictDetail) *Error {
	return &Error{
		Kind:      KindConflict,
		Message:   "the selected time slot is no longer available",
		Conflicts: conflicts,
	}
}

// KindOf extracts the classification from err. Unclassified errors map to
// KindUnknown; a nil error has no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given classification.
func IsKind(err error, kind Kind) bool { return KindOf(err) == kind }

// ConflictsOf returns the conflicting intervals attached to err, if any.
func ConflictsOf(err error) []ConflictDetail {
	var de *Error
	if errors.As(err, &de) {
		return de.Conflicts
	}
	return nil
}
