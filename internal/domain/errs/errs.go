// Package errs defines the error taxonomy returned by the engine.
//
// Every failure an operation reports carries exactly one Kind. Callers branch
// on kinds with errors.Is against the sentinel values below; the message is
// free text meant for logs and for the surrounding application to show.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	KindValidation             Kind = "validation"
	KindCapacityExceeded       Kind = "capacity_exceeded"
	KindPhaseLocked            Kind = "phase_locked"
	KindExclusionViolation     Kind = "exclusion_violation"
	KindNoPanelAssigned        Kind = "no_panel_assigned"
	KindConcurrentModification Kind = "concurrent_modification"
	KindPermissionDenied       Kind = "permission_denied"
	KindNotFound               Kind = "not_found"
	KindAlreadyInTeam          Kind = "already_in_team"
	KindInvalidState           Kind = "invalid_state"
)

// Error is a classified engine error.
type Error struct {
	Kind Kind
	Msg  string
	Err  error // optional cause
}

func (e *Error) Error() string {
	switch {
	case e.Msg == "" && e.Err == nil:
		return string(e.Kind)
	case e.Msg == "":
		return string(e.Kind) + ": " + e.Err.Error()
	case e.Err == nil:
		return e.Msg
	default:
		return e.Msg + ": " + e.Err.Error()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind when target is a bare sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Msg == "" && t.Err == nil
}

// Sentinels for errors.Is.
var (
	ErrValidation             = &Error{Kind: KindValidation}
	ErrCapacityExceeded       = &Error{Kind: KindCapacityExceeded}
	ErrPhaseLocked            = &Error{Kind: KindPhaseLocked}
	ErrExclusionViolation     = &Error{Kind: KindExclusionViolation}
	ErrNoPanelAssigned        = &Error{Kind: KindNoPanelAssigned}
	ErrConcurrentModification = &Error{Kind: KindConcurrentModification}
	ErrPermissionDenied       = &Error{Kind: KindPermissionDenied}
	ErrNotFound               = &Error{Kind: KindNotFound}
	ErrAlreadyInTeam          = &Error{Kind: KindAlreadyInTeam}
	ErrInvalidState           = &Error{Kind: KindInvalidState}
)

// New returns a classified error with a formatted message.
func New(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies cause under kind.
func Wrap(kind Kind, cause error, msg string) error {
	return &Error{Kind: kind, Msg: msg, Err: cause}
}

// Validation is shorthand for New(KindValidation, ...).
func Validation(format string, args ...any) error {
	return New(KindValidation, format, args...)
}

// NotFound is shorthand for New(KindNotFound, "<what> not found").
func NotFound(what string) error {
	return New(KindNotFound, "%s not found", what)
}

// PermissionDenied is shorthand for New(KindPermissionDenied, ...).
func PermissionDenied(format string, args ...any) error {
	return New(KindPermissionDenied, format, args...)
}

// InvalidState is shorthand for New(KindInvalidState, ...).
func InvalidState(format string, args ...any) error {
	return New(KindInvalidState, format, args...)
}

// KindOf reports the kind of err, or "" when err is nil or unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Retryable reports whether a caller may safely reissue the same request.
// Only lost races qualify; the underlying unit of work applied nothing.
func Retryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}
