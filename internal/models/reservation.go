package models

import "time"

// Reservation is a temporary hold against a wallet's available balance.
// It starts in "held" and ends in exactly one of the terminal states;
// no transition ever leaves a terminal state.
type Reservation struct {
	ID         string    `json:"id" db:"id"`
	UserID     string    `json:"user_id" db:"user_id"`
	BusinessID string    `json:"business_id" db:"business_id"`
	Amount     int64     `json:"amount" db:"amount"`
	Status     string    `json:"status" db:"status"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	ExpiresAt  time.Time `json:"expires_at" db:"expires_at"`
}

// Reservation statuses
const (
	ReservationHeld     = "held"
	ReservationConsumed = "consumed"
	ReservationReleased = "released"
	ReservationExpired  = "expired"
)

// Live reports whether the reservation still counts against the
// available balance. A held reservation past its deadline is treated as
// expired even before the sweeper has run.
func (r *Reservation) Live(now time.Time) bool {
	return r.Status == ReservationHeld && now.Before(r.ExpiresAt)
}
