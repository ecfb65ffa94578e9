package services

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/localperks/backend/internal/models"
)

// ReservationManager owns the hold lifecycle:
// held -> {consumed, released, expired}, all terminal.
//
// Reserve's admission check and its insert share one transaction with
// the account row locked, so two concurrent holds can never jointly
// overdraw the available balance. Expiry is lazy: every path that reads
// a hold treats a past deadline as expired whether or not the sweeper
// has run.
type ReservationManager struct {
	db       *sql.DB
	accounts *AccountStore
}

func NewReservationManager(db *sql.DB, accounts *AccountStore) *ReservationManager {
	return &ReservationManager{db: db, accounts: accounts}
}

// Reserve places a hold of amount against the user's available balance
// for ttl. Fails with InsufficientBalanceError when amount exceeds
// balance minus the sum of live holds.
func (m *ReservationManager) Reserve(ctx context.Context, userID, businessID string, amount int64, ttl time.Duration) (*models.Reservation, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := m.ReserveTx(tx, userID, businessID, amount, ttl)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return res, nil
}

// ReserveTx is Reserve inside the caller's transaction.
func (m *ReservationManager) ReserveTx(tx *sql.Tx, userID, businessID string, amount int64, ttl time.Duration) (*models.Reservation, error) {
	// Locking the account row serializes concurrent admission checks
	// on the same wallet.
	account, err := m.accounts.lockAccount(tx, userID)
	if err != nil {
		return nil, err
	}

	held, err := m.heldTotal(tx, userID)
	if err != nil {
		return nil, err
	}

	available := account.Balance - held
	if amount > available {
		return nil, &InsufficientBalanceError{Requested: amount, Available: available}
	}

	now := time.Now()
	res := &models.Reservation{
		ID:         uuid.NewString(),
		UserID:     userID,
		BusinessID: businessID,
		Amount:     amount,
		Status:     models.ReservationHeld,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}

	_, err = tx.Exec(`
		INSERT INTO reservations (id, user_id, business_id, amount, status, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		res.ID, res.UserID, res.BusinessID, res.Amount, res.Status, res.CreatedAt, res.ExpiresAt)
	if err != nil {
		return nil, err
	}

	return res, nil
}

// Consume resolves a held reservation into a spend: the reservation
// turns terminal and the account is debited with a matching ledger
// entry, all in one transaction. A hold past its deadline is marked
// expired and the call fails with ErrReservationExpired.
func (m *ReservationManager) Consume(ctx context.Context, reservationID string) (*models.Reservation, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := m.lockReservation(tx, reservationID)
	if err != nil {
		return nil, err
	}

	if res.Status != models.ReservationHeld {
		return nil, ErrReservationAlreadyResolved
	}

	if time.Now().After(res.ExpiresAt) {
		if err := m.setStatus(tx, reservationID, models.ReservationExpired); err != nil {
			return nil, err
		}
		// The expiry transition is real even though the call fails.
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		return nil, ErrReservationExpired
	}

	if err := m.setStatus(tx, reservationID, models.ReservationConsumed); err != nil {
		return nil, err
	}

	if err := m.accounts.ApplyDeltaTx(tx, res.UserID, -res.Amount, models.EntryKindSpend, res.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	res.Status = models.ReservationConsumed
	return res, nil
}

// Release returns a held reservation to the wallet with no ledger
// effect and no balance change.
func (m *ReservationManager) Release(ctx context.Context, reservationID string) (*models.Reservation, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := m.lockReservation(tx, reservationID)
	if err != nil {
		return nil, err
	}

	if res.Status != models.ReservationHeld {
		return nil, ErrReservationAlreadyResolved
	}

	if time.Now().After(res.ExpiresAt) {
		if err := m.setStatus(tx, reservationID, models.ReservationExpired); err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		return nil, ErrReservationExpired
	}

	if err := m.setStatus(tx, reservationID, models.ReservationReleased); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	res.Status = models.ReservationReleased
	return res, nil
}

// Get returns the reservation, reporting a stale held one as expired.
func (m *ReservationManager) Get(ctx context.Context, reservationID string) (*models.Reservation, error) {
	var res models.Reservation
	err := m.db.QueryRowContext(ctx, `
		SELECT id, user_id, business_id, amount, status, created_at, expires_at
		FROM reservations
		WHERE id = $1`, reservationID).Scan(
		&res.ID, &res.UserID, &res.BusinessID, &res.Amount, &res.Status, &res.CreatedAt, &res.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, err
	}

	if res.Status == models.ReservationHeld && time.Now().After(res.ExpiresAt) {
		res.Status = models.ReservationExpired
	}

	return &res, nil
}

// Available returns balance minus the sum of live holds.
func (m *ReservationManager) Available(ctx context.Context, userID string) (int64, error) {
	var balance, held int64
	err := m.db.QueryRowContext(ctx, `
		SELECT a.balance,
		       COALESCE((SELECT SUM(r.amount) FROM reservations r
		                 WHERE r.user_id = a.user_id
		                   AND r.status = 'held'
		                   AND r.expires_at > NOW()), 0)
		FROM accounts a
		WHERE a.user_id = $1`, userID).Scan(&balance, &held)
	if err == sql.ErrNoRows {
		return 0, ErrAccountNotFound
	}
	if err != nil {
		return 0, err
	}

	return balance - held, nil
}

// SweepExpired transitions stale held reservations to expired. The
// predicate matches the lazy-expiry checks exactly, so swept and lazy
// expiry always agree.
func (m *ReservationManager) SweepExpired(ctx context.Context) (int64, error) {
	result, err := m.db.ExecContext(ctx, `
		UPDATE reservations
		SET status = 'expired'
		WHERE status = 'held' AND expires_at < NOW()`)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// StartSweeper runs SweepExpired every interval until ctx is cancelled.
// The sweeper only keeps the held-set small; correctness never depends
// on it having run.
func (m *ReservationManager) StartSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := m.SweepExpired(ctx)
				if err != nil {
					log.Printf("[RESERVATION] Sweep failed: %v", err)
					continue
				}
				if n > 0 {
					log.Printf("[RESERVATION] Swept %d expired holds", n)
				}
			}
		}
	}()
}

func (m *ReservationManager) lockReservation(tx *sql.Tx, reservationID string) (*models.Reservation, error) {
	var res models.Reservation
	err := tx.QueryRow(`
		SELECT id, user_id, business_id, amount, status, created_at, expires_at
		FROM reservations
		WHERE id = $1
		FOR UPDATE`, reservationID).Scan(
		&res.ID, &res.UserID, &res.BusinessID, &res.Amount, &res.Status, &res.CreatedAt, &res.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, err
	}

	return &res, nil
}

func (m *ReservationManager) heldTotal(tx *sql.Tx, userID string) (int64, error) {
	var held int64
	err := tx.QueryRow(`
		SELECT COALESCE(SUM(amount), 0)
		FROM reservations
		WHERE user_id = $1 AND status = 'held' AND expires_at > NOW()`, userID).Scan(&held)
	return held, err
}

func (m *ReservationManager) setStatus(tx *sql.Tx, reservationID, status string) error {
	_, err := tx.Exec(`
		UPDATE reservations SET status = $1 WHERE id = $2`, status, reservationID)
	return err
}
