package services

import (
	"errors"
	"fmt"
)

// Recoverable ledger errors. Every failure path leaves the account, the
// log and the reservation in their pre-call state.
var (
	ErrInvalidPinFormat           = errors.New("pin must be exactly 4 digits")
	ErrInvalidPin                 = errors.New("invalid pin")
	ErrInvalidAmount              = errors.New("amount must be positive")
	ErrAccountNotFound            = errors.New("account not found")
	ErrReservationNotFound        = errors.New("reservation not found")
	ErrReservationAlreadyResolved = errors.New("reservation already resolved")
	ErrReservationExpired         = errors.New("reservation expired")
	ErrConcurrentModification     = errors.New("concurrent modification, retry")
	ErrRedemptionCodesUnavailable = errors.New("redemption codes unavailable")
)

// InsufficientBalanceError carries the shortfall so callers can decide
// whether a retry with a smaller amount makes sense.
type InsufficientBalanceError struct {
	Requested int64
	Available int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: requested %d, available %d (short %d)",
		e.Requested, e.Available, e.Shortfall())
}

func (e *InsufficientBalanceError) Shortfall() int64 {
	return e.Requested - e.Available
}

// IsInsufficientBalance reports whether err is an insufficient balance
// failure, unwrapping as needed.
func IsInsufficientBalance(err error) bool {
	var ib *InsufficientBalanceError
	return errors.As(err, &ib)
}
