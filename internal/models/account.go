package models

import (
	"database/sql"
	"time"
)

// Account is a user's coin wallet. Balance and the lifetime counters are
// only ever mutated together with a matching ledger entry.
type Account struct {
	UserID         string         `json:"user_id" db:"user_id"`
	Balance        int64          `json:"balance" db:"balance"`
	LifetimeEarned int64          `json:"lifetime_earned" db:"lifetime_earned"`
	LifetimeSpent  int64          `json:"lifetime_spent" db:"lifetime_spent"`
	PinHash        sql.NullString `json:"-" db:"pin_hash"`
	Version        int            `json:"-" db:"version"` // for optimistic locking
	UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"`
}

// LedgerEntry is an immutable record of a balance-affecting event.
// Positive amounts are credits, negative amounts are debits.
type LedgerEntry struct {
	ID        int64     `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Amount    int64     `json:"amount" db:"amount"`
	Kind      string    `json:"kind" db:"kind"`
	Reference string    `json:"reference" db:"reference"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Ledger entry kinds
const (
	EntryKindEarn   = "earn"
	EntryKindSpend  = "spend"
	EntryKindAdjust = "adjust"
	EntryKindRefund = "refund"
)
