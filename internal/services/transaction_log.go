package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/localperks/backend/internal/models"
)

// TransactionLog is the append-only history of balance-affecting
// events. Nothing here updates or deletes rows.
type TransactionLog struct {
	db *sql.DB
}

func NewTransactionLog(db *sql.DB) *TransactionLog {
	return &TransactionLog{db: db}
}

// AppendTx inserts an entry inside the caller's transaction and returns
// its id. Balance mutations and their entries must share one transaction,
// which is why there is no standalone Append.
func (l *TransactionLog) AppendTx(tx *sql.Tx, entry *models.LedgerEntry) (int64, error) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	var id int64
	err := tx.QueryRow(`
		INSERT INTO ledger_entries (user_id, amount, kind, reference, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		entry.UserID, entry.Amount, entry.Kind, entry.Reference, entry.CreatedAt).Scan(&id)
	if err != nil {
		return 0, err
	}

	entry.ID = id
	return id, nil
}

// History returns a user's entries newest first. The caller controls
// pagination depth via limit and offset.
func (l *TransactionLog) History(ctx context.Context, userID string, limit, offset int) ([]models.LedgerEntry, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, user_id, amount, kind, reference, created_at
		FROM ledger_entries
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.LedgerEntry{}
	for rows.Next() {
		var e models.LedgerEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &e.Kind, &e.Reference, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
