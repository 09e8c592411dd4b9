package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is the machine readable class of a domain error
type ErrorKind string

const (
	KindValidation        ErrorKind = "validation_error"
	KindPermission        ErrorKind = "permission_denied"
	KindNotFound          ErrorKind = "not_found"
	KindInsufficientFunds ErrorKind = "insufficient_funds"
	KindUnauthenticated   ErrorKind = "unauthenticated"
	KindThrottled         ErrorKind = "throttled"
)

// Error carries a kind and a human readable detail
type Error struct {
	Kind   ErrorKind
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return string(e.Kind)
	}
	return e.Detail
}

// Is matches any Error of the same kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrPermission        = &Error{Kind: KindPermission}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrInsufficientFunds = &Error{Kind: KindInsufficientFunds}
	ErrUnauthenticated   = &Error{Kind: KindUnauthenticated}
)

func newError(kind ErrorKind, format string, args ...any) error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Validation reports malformed or duplicate input
func Validation(format string, args ...any) error {
	return newError(KindValidation, format, args...)
}

// Permission reports a role or ownership failure
func Permission(format string, args ...any) error {
	return newError(KindPermission, format, args...)
}

// NotFound reports a missing record
func NotFound(format string, args ...any) error {
	return newError(KindNotFound, format, args...)
}

// InsufficientFunds reports a purchase the customer cannot cover
func InsufficientFunds(format string, args ...any) error {
	return newError(KindInsufficientFunds, format, args...)
}

// Unauthenticated reports bad credentials or an unusable token
func Unauthenticated(format string, args ...any) error {
	return newError(KindUnauthenticated, format, args...)
}

// KindOf returns the kind of a domain error, or "" for anything else
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
