// Package apperr carries the error kinds the HTTP layer maps to status codes.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies a failure.
type Kind int

const (
	KindInternal Kind = iota
	KindAuthMissing
	KindAuthInvalid
	KindForbidden
	KindBadRequest
	KindNotFound
	KindUpstream
	KindMethodNotAllowed
)

func (k Kind) String() string {
	switch k {
	case KindAuthMissing:
		return "auth_missing"
	case KindAuthInvalid:
		return "auth_invalid"
	case KindForbidden:
		return "forbidden"
	case KindBadRequest:
		return "bad_request"
	case KindNotFound:
		return "not_found"
	case KindUpstream:
		return "upstream"
	case KindMethodNotAllowed:
		return "method_not_allowed"
	default:
		return "internal"
	}
}

// HTTPStatus returns the response status for the kind.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindAuthMissing, KindAuthInvalid:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindBadRequest:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified error with a client-facing message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, apperr.Forbidden("")) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf reports the kind of err, KindInternal when unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func New(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func AuthMissing(msg string) *Error { return New(KindAuthMissing, msg) }
func AuthInvalid(msg string) *Error { return New(KindAuthInvalid, msg) }
func Forbidden(msg string) *Error   { return New(KindForbidden, msg) }
func BadRequest(msg string) *Error  { return New(KindBadRequest, msg) }
func NotFound(msg string) *Error    { return New(KindNotFound, msg) }

// Upstream marks a store or gateway failure.
func Upstream(msg string, err error) *Error { return Wrap(KindUpstream, msg, err) }

func MethodNotAllowed(msg string) *Error { return New(KindMethodNotAllowed, msg) }
