package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures surfaced to callers.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindInvalidCurrency
	KindExternalService
	KindNotFound
	KindUnauthorized
	KindInvalidInput
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidCurrency:
		return "invalid_currency"
	case KindExternalService:
		return "external_service_error"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "internal_error"
	}
}

// Error is the caller-facing error. Message is safe to show; Err is for logs only.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// Sentinels for errors.Is matching on kind.
var (
	ErrInvalidCurrency = &Error{Kind: KindInvalidCurrency}
	ErrExternalService = &Error{Kind: KindExternalService}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrUnauthorized    = &Error{Kind: KindUnauthorized}
	ErrInternal        = &Error{Kind: KindInternal}
	ErrInvalidInput    = &Error{Kind: KindInvalidInput}
)

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil && e.Err.Error() != msg {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound) works
// for every not-found error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func InvalidCurrency(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidCurrency, Message: fmt.Sprintf(format, args...)}
}

func ExternalService(message string, cause error) *Error {
	return &Error{Kind: KindExternalService, Message: message, Err: cause}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(format string, args ...any) *Error {
	return &Error{Kind: KindUnauthorized, Message: fmt.Sprintf(format, args...)}
}

// InvalidInput wraps a validation failure unrelated to currency.
func InvalidInput(err error) *Error {
	return &Error{Kind: KindInvalidInput, Message: err.Error(), Err: err}
}

func Internal(message string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: cause}
}

// KindOf returns the kind of the first *Error in err's chain, KindInternal otherwise.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// PublicMessage returns the text that may be shown to a caller.
// Internal errors never expose their details.
func PublicMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) || e.Kind == KindInternal {
		return "An unexpected internal error occurred. Please contact support."
	}
	if e.Message == "" {
		return e.Kind.String()
	}
	return e.Message
}
