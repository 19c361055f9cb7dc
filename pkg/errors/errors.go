// Package errors defines the error vocabulary the API speaks. Every
// error that reaches a handler is normalised into an *Error so the
// response layer can map it to a status code and a stable machine code
// without inspecting strings.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error pairs a stable machine-readable code with an HTTP status and a
// human message. Err, when set, is the underlying cause and never
// leaves the process in a response body.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// New builds a root Error with no underlying cause.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap builds an Error around an underlying cause.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Clone copies a sentinel error, optionally overriding its message.
// Sentinels are shared; mutating them in place would leak the override
// into unrelated requests.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	copied := *err
	if message != "" {
		copied.Message = message
	}
	return &copied
}

// FromError converts any error into an *Error, defaulting unknown
// errors to an internal error so the original cause is kept but never
// exposed.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Generic sentinels.
var (
	ErrNotFound     = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrValidation   = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrConflict     = New("CONFLICT", http.StatusConflict, "conflict")
	ErrUnauthorized = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrForbidden    = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrInternal     = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
)

// Authentication sentinels. Invalid credentials and unknown accounts
// share one code so login responses do not reveal which emails exist.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
)

// Entitlement sentinels surfaced by the subscription gate. All deny
// with 403 except the unknown-tenant case, which the gate maps to
// ErrNotFound before these are consulted.
var (
	ErrSubscriptionRequired = New("SUBSCRIPTION_REQUIRED", http.StatusForbidden, "school account is not activated")
	ErrSubscriptionExpired  = New("SUBSCRIPTION_EXPIRED", http.StatusForbidden, "school subscription has expired")
	ErrSubscriptionInactive = New("SUBSCRIPTION_INACTIVE", http.StatusForbidden, "school subscription is inactive")
	ErrUpgradeRequired      = New("UPGRADE_REQUIRED", http.StatusForbidden, "feature requires a higher package tier")
)
