package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/localperks/backend/internal/models"
)

// AccountStore owns wallet accounts. ApplyDeltaTx is the sole mutator
// of balance and the lifetime counters, and it always writes the
// matching ledger entry in the same transaction.
type AccountStore struct {
	db  *sql.DB
	log *TransactionLog
}

func NewAccountStore(db *sql.DB, log *TransactionLog) *AccountStore {
	return &AccountStore{db: db, log: log}
}

// GetOrCreate returns the account for userID, creating it with zero
// balances if absent. Existing accounts are returned untouched.
func (s *AccountStore) GetOrCreate(ctx context.Context, userID string) (*models.Account, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (user_id, balance, lifetime_earned, lifetime_spent, version, updated_at)
		VALUES ($1, 0, 0, 0, 1, NOW())
		ON CONFLICT (user_id) DO NOTHING`, userID)
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, userID)
}

// Get returns the account or ErrAccountNotFound.
func (s *AccountStore) Get(ctx context.Context, userID string) (*models.Account, error) {
	var account models.Account
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, balance, lifetime_earned, lifetime_spent, pin_hash, version, updated_at
		FROM accounts
		WHERE user_id = $1`, userID).Scan(
		&account.UserID, &account.Balance, &account.LifetimeEarned,
		&account.LifetimeSpent, &account.PinHash, &account.Version, &account.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}

	return &account, nil
}

// ApplyDelta runs ApplyDeltaTx in its own transaction.
func (s *AccountStore) ApplyDelta(ctx context.Context, userID string, amount int64, kind, reference string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.ApplyDeltaTx(tx, userID, amount, kind, reference); err != nil {
		return err
	}

	return tx.Commit()
}

// ApplyDeltaTx mutates the balance and appends the paired ledger entry
// inside the caller's transaction. Both land or neither does. The
// account row is locked for the duration so deltas on one account are
// serialized; the version check turns a lost race into
// ErrConcurrentModification instead of a silent overwrite.
func (s *AccountStore) ApplyDeltaTx(tx *sql.Tx, userID string, amount int64, kind, reference string) error {
	account, err := s.lockAccount(tx, userID)
	if err != nil {
		return err
	}

	if amount < 0 && account.Balance+amount < 0 {
		return &InsufficientBalanceError{Requested: -amount, Available: account.Balance}
	}

	earned, spent := account.LifetimeEarned, account.LifetimeSpent
	if amount > 0 {
		earned += amount
	} else {
		spent += -amount
	}

	result, err := tx.Exec(`
		UPDATE accounts
		SET balance = $1, lifetime_earned = $2, lifetime_spent = $3,
		    version = version + 1, updated_at = $4
		WHERE user_id = $5 AND version = $6`,
		account.Balance+amount, earned, spent, time.Now(), userID, account.Version)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrConcurrentModification
	}

	_, err = s.log.AppendTx(tx, &models.LedgerEntry{
		UserID:    userID,
		Amount:    amount,
		Kind:      kind,
		Reference: reference,
	})
	return err
}

// lockAccount loads the account row FOR UPDATE, serializing all
// mutating operations on one account for the life of the transaction.
func (s *AccountStore) lockAccount(tx *sql.Tx, userID string) (*models.Account, error) {
	var account models.Account
	err := tx.QueryRow(`
		SELECT user_id, balance, lifetime_earned, lifetime_spent, pin_hash, version, updated_at
		FROM accounts
		WHERE user_id = $1
		FOR UPDATE`, userID).Scan(
		&account.UserID, &account.Balance, &account.LifetimeEarned,
		&account.LifetimeSpent, &account.PinHash, &account.Version, &account.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}

	return &account, nil
}
