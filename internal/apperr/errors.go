// Package apperr defines the error taxonomy shared by the library core and
// the command layer.
//
// Every error produced at a package boundary carries a short machine-readable
// reason (for example "read_failed") that clients map to localized text. The
// wire form is "reason" or "reason|<key>=...", where key is "detail" unless
// the error names a file ("filename").
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrIO            = errors.New("io error")
	ErrParse         = errors.New("parse error")
	ErrLockConflict  = errors.New("lock conflict")
	ErrInvalid       = errors.New("invalid input")
)

// Error is a categorized failure with a stable reason code.
type Error struct {
	Kind   error // one of the sentinels above
	Reason string
	Detail string
	// DetailKey names Detail in the wire form; empty means "detail".
	DetailKey string
	Err       error
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Reason
	}
	key := e.DetailKey
	if key == "" {
		key = "detail"
	}
	return e.Reason + "|" + key + "=" + e.Detail
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel kind, so errors.Is(err, apperr.ErrIO) works through
// any amount of wrapping.
func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func newError(kind error, reason string, err error) *Error {
	e := &Error{Kind: kind, Reason: reason, Err: err}
	if err != nil {
		e.Detail = err.Error()
	}
	return e
}

// IO reports an open/read/write/rename/stat failure.
func IO(reason string, err error) error { return newError(ErrIO, reason, err) }

// Parse reports malformed JSON or a malformed source document.
func Parse(reason string, err error) error { return newError(ErrParse, reason, err) }

// LockConflict reports that an exclusion section could not be acquired.
func LockConflict(reason string, err error) error {
	return newError(ErrLockConflict, reason, err)
}

// Invalid reports a request rejected before touching storage.
func Invalid(reason string, err error) error { return newError(ErrInvalid, reason, err) }

// NotFound reports a required resource that does not exist.
func NotFound(reason string, err error) error { return newError(ErrNotFound, reason, err) }

// AlreadyExists reports a create/rename that would overwrite the file name.
func AlreadyExists(reason, name string) error {
	return &Error{Kind: ErrAlreadyExists, Reason: reason, Detail: name, DetailKey: "filename"}
}

// Invalidf is Invalid with a formatted detail and no underlying error.
func Invalidf(reason, format string, args ...any) error {
	return &Error{Kind: ErrInvalid, Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// Reason extracts the machine-readable reason from err, or "internal_error"
// when err carries none.
func Reason(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return "internal_error"
}
