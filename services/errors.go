package services

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrOrderNotFound         = errors.New("order not found")
	ErrInvalidTransition     = errors.New("status transition not allowed")
	ErrConcurrentUpdate      = errors.New("order was modified concurrently, reload and retry")
	ErrPaymentLocked         = errors.New("payment can only change before the order is dispatched")
	ErrTrackingCodeExhausted = errors.New("could not allocate a unique tracking code")
	ErrValidation            = errors.New("validation failed")
	ErrEmptyCart             = errors.New("cart is empty")
	ErrExtrasPending         = errors.New("extras must be configured before checkout")
	ErrTenantNotFound        = errors.New("tenant not found")
	ErrMenuItemNotFound      = errors.New("menu item not found")
	ErrOptionGroupNotFound   = errors.New("option group not found")
	ErrLegacyGroup           = errors.New("built-in option groups cannot be deleted")
	ErrInvalidCredentials    = errors.New("invalid credentials")
)

// ValidationError reports a rejected input field. It matches ErrValidation with errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
