package domain

import (
	"errors"
	"fmt"
)

// Error is a coded domain failure. The package-level Err* values are the
// complete taxonomy; concrete failures wrap one of them via Errorf.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

var (
	ErrNotFound            = NewError("NOT_FOUND", "resource not found")
	ErrProfileMissing      = NewError("PROFILE_MISSING", "no account profile exists for this principal")
	ErrForbidden           = NewError("FORBIDDEN", "not allowed to perform this action")
	ErrInvalidTransition   = NewError("INVALID_TRANSITION", "operation not allowed in current state")
	ErrConflict            = NewError("CONFLICT", "resource was modified concurrently")
	ErrValidation          = NewError("VALIDATION_ERROR", "invalid input")
	ErrPaymentMismatch     = NewError("PAYMENT_MISMATCH", "paid amount does not match booking total")
	ErrGatewayTimeout      = NewError("GATEWAY_TIMEOUT", "payment gateway did not answer in time")
	ErrHasActiveBookings   = NewError("HAS_ACTIVE_BOOKINGS", "entity is referenced by pending or accepted bookings")
	ErrAlreadySettled      = NewError("ALREADY_SETTLED", "booking is already settled")
	ErrCustomerBlacklisted = NewError("CUSTOMER_BLACKLISTED", "customer is blacklisted")
)

type detailedError struct {
	kind *Error
	msg  string
}

func (e *detailedError) Error() string { return e.msg }

func (e *detailedError) Unwrap() error { return e.kind }

// Errorf returns an error carrying kind's code with a specific message.
// errors.Is(err, kind) holds for the result.
func Errorf(kind *Error, format string, args ...any) error {
	return &detailedError{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// CodeOf returns the taxonomy code carried by err, or "" for foreign errors.
func CodeOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Warning records a best-effort secondary write that failed without rolling
// back the primary operation.
type Warning struct {
	Step    string `json:"step"`
	Message string `json:"message"`
}
