// Package apperr holds the error kinds shared by the list, order and catalog services.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNoActiveList   = errors.New("no active list accepting orders")
	ErrInvalidOrder   = errors.New("invalid order")
	ErrUnknownProduct = errors.New("unknown product")
	ErrConflict       = errors.New("conflict")
	ErrStorage        = errors.New("storage failure")

	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// ValidationError is a field-level rejection. Kind is ErrInvalidOrder or ErrInvalidInput.
type ValidationError struct {
	Kind    error
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return e.Kind }

// InvalidOrder builds a ValidationError of kind ErrInvalidOrder.
func InvalidOrder(field, msg string) error {
	return &ValidationError{Kind: ErrInvalidOrder, Field: field, Message: msg}
}

// Invalid builds a ValidationError of kind ErrInvalidInput.
func Invalid(field, msg string) error {
	return &ValidationError{Kind: ErrInvalidInput, Field: field, Message: msg}
}

// Required is Invalid(field, "is required").
func Required(field string) error {
	return Invalid(field, "is required")
}

// UnknownProduct reports a product id that did not resolve.
func UnknownProduct(id int64) error {
	return fmt.Errorf("%w: %d", ErrUnknownProduct, id)
}

// NotFound reports a missing entity, e.g. NotFound("weekly list", 7).
func NotFound(entity string, id int64) error {
	return fmt.Errorf("%s %d %w", entity, id, ErrNotFound)
}

// Conflict wraps ErrConflict with a reason.
func Conflict(reason string) error {
	return fmt.Errorf("%w: %s", ErrConflict, reason)
}

// Storage wraps a persistence fault. Both ErrStorage and err stay visible to errors.Is.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

// IsValidation reports whether err carries field-level detail.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// FieldOf returns the offending field of a validation error, or "".
func FieldOf(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Field
	}
	return ""
}
