// internal/util/errors.go
package util

import (
	"errors"
	"fmt"
)

// Common application-specific errors.
var (
	ErrNotFound               = errors.New("resource not found")
	ErrInvalidInput           = errors.New("invalid input provided")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrUnknownAction          = errors.New("unknown premium action")
	ErrReactivationNotAllowed = errors.New("membership already expired, reactivation not allowed")
	ErrStorageUnavailable     = errors.New("storage unavailable")
	ErrCommerceUnavailable    = errors.New("commerce store unavailable")
	ErrDuplicateEvent         = errors.New("event already processed")
)

// InsufficientCreditsError is the caller-facing variant of ErrInsufficientFunds
// for the spend path. It carries the cost of the requested action and the
// balance the wallet actually held, so the caller can tell the user exactly
// how many more credits are needed.
type InsufficientCreditsError struct {
	Required  int64
	Available int64
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: required %d, available %d", e.Required, e.Available)
}

// Unwrap lets errors.Is(err, ErrInsufficientFunds) match the typed error, so
// both the spend and admin paths share one sentinel.
func (e *InsufficientCreditsError) Unwrap() error {
	return ErrInsufficientFunds
}

// WrapStorage tags a low-level persistence failure as ErrStorageUnavailable
// while keeping the underlying detail in the message. Callers may retry with
// backoff; the ledger itself never retries internally.
func WrapStorage(err error) error {
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}

// IsError checks if the given error matches the target error, unwrapping as needed.
func IsError(err, target error) bool {
	return errors.Is(err, target)
}
