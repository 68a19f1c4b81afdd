package market

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks a request that breaks a business rule or sends a
	// malformed query.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidPayload marks a request body whose fields violate their
	// declared constraints.
	ErrInvalidPayload = errors.New("invalid payload")

	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")

	ErrListingNotFound = fmt.Errorf("%w: listing", ErrNotFound)
	ErrOrderNotFound   = fmt.Errorf("%w: order", ErrNotFound)

	ErrNotOwner       = fmt.Errorf("%w: only the seller may modify this listing", ErrForbidden)
	ErrNotParticipant = fmt.Errorf("%w: only the buyer or seller may modify this order", ErrForbidden)
	ErrSellerOnly     = fmt.Errorf("%w: only the seller may change the order status", ErrForbidden)
)

// Business rule violations raised while placing an order.
var (
	ErrOwnListing  = NewValidationError(FieldListingID, "cannot purchase own listing", ErrValidation)
	ErrAlreadySold = NewValidationError(FieldListingID, "already sold", ErrValidation)
	ErrOutOfStock  = NewValidationError(FieldListingID, "out of stock", ErrValidation)
	ErrInvalidRole = NewValidationError("role", "role must be buyer or seller", ErrValidation)
)

// ValidationError names the offending field alongside the rule it broke.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func NewValidationError(field, message string, err error) *ValidationError {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return e.Err }
