package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindUnauthorized
	KindForbidden
	KindConfiguration
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindConfiguration:
		return "configuration"
	case KindPersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

// HTTPStatus maps the kind onto the status code the API responds with.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Error is the error type returned across the service boundary.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message is the text safe to show to a caller. Persistence and configuration
// causes are not exposed.
func (e *Error) Message() string {
	if e.Msg != "" {
		return e.Msg
	}
	switch e.Kind {
	case KindPersistence, KindConfiguration, KindUnknown:
		return "internal error"
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

// New creates an error of the given kind.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Wrap attaches a kind to an underlying cause.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func Validation(op, msg string) *Error   { return New(KindValidation, op, msg) }
func NotFound(op, msg string) *Error     { return New(KindNotFound, op, msg) }
func Conflict(op, msg string) *Error     { return New(KindConflict, op, msg) }
func Unauthorized(op, msg string) *Error { return New(KindUnauthorized, op, msg) }
func Forbidden(op, msg string) *Error    { return New(KindForbidden, op, msg) }

func Configuration(op, msg string) *Error {
	return New(KindConfiguration, op, msg)
}

func Persistence(op string, err error) *Error {
	return Wrap(KindPersistence, op, err)
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
