// Package apperror defines the error taxonomy shared by the booking service.
// Every error that crosses a layer boundary is an *Error carrying a Kind,
// which the HTTP layer maps to a status code.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error.
type Kind string

const (
	KindValidation           Kind = "VALIDATION_ERROR"
	KindAvailabilityConflict Kind = "AVAILABILITY_CONFLICT"
	KindPaymentVerification  Kind = "PAYMENT_VERIFICATION_ERROR"
	KindPaymentFailed        Kind = "PAYMENT_FAILED"
	KindPersistence          Kind = "PERSISTENCE_ERROR"
	KindNotFound             Kind = "NOT_FOUND"
	KindInvalidState         Kind = "INVALID_STATE"
	KindConflict             Kind = "CONFLICT"
	KindAttestationRequired  Kind = "ATTESTATION_REQUIRED"
	KindInternal             Kind = "INTERNAL_ERROR"
)

// Error is the concrete error type returned by services and repositories.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so errors.Is(err, &Error{Kind: k}) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// WithDetail attaches a key/value pair surfaced to API clients.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// Retryable reports whether the caller may repeat the operation unchanged.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindPaymentVerification, KindPersistence, KindConflict:
		return true
	default:
		return false
	}
}

// HTTPStatus maps the error kind to a response status.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindAvailabilityConflict, KindInvalidState, KindConflict:
		return http.StatusConflict
	case KindPaymentVerification:
		return http.StatusBadGateway
	case KindPaymentFailed:
		return http.StatusPaymentRequired
	case KindPersistence:
		return http.StatusServiceUnavailable
	case KindAttestationRequired:
		return http.StatusPreconditionRequired
	default:
		return http.StatusInternalServerError
	}
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an error of the given kind around a cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func NewValidationError(message string) *Error {
	return New(KindValidation, message)
}

func NewAvailabilityConflict(message string) *Error {
	return New(KindAvailabilityConflict, message)
}

func NewPaymentVerificationError(message string, err error) *Error {
	return Wrap(KindPaymentVerification, message, err)
}

func NewPaymentFailed(message string) *Error {
	return New(KindPaymentFailed, message)
}

func NewPersistenceError(message string, err error) *Error {
	return Wrap(KindPersistence, message, err)
}

// NewNotFoundError reports a missing entity by name and identifier.
func NewNotFoundError(entity, id string) *Error {
	return New(KindNotFound, fmt.Sprintf("%s %s not found", entity, id)).
		WithDetail("entity", entity)
}

// NewInvalidStateError reports a rejected state transition.
func NewInvalidStateError(from, to string) *Error {
	return New(KindInvalidState, fmt.Sprintf("cannot transition from %s to %s", from, to)).
		WithDetail("from", from).
		WithDetail("to", to)
}

// NewConflictError reports an optimistic locking failure.
func NewConflictError(message string) *Error {
	return New(KindConflict, message)
}

func NewAttestationRequired(code, prompt string) *Error {
	return New(KindAttestationRequired, prompt).WithDetail("code", code)
}

// KindOf returns the Kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind anywhere in its chain.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// As is a shorthand for errors.As with *Error.
func As(err error) (*Error, bool) {
	var appErr *Error
	ok := errors.As(err, &appErr)
	return appErr, ok
}
