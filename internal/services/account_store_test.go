package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func accountRows(userID string, balance, earned, spent int64, version int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"user_id", "balance", "lifetime_earned", "lifetime_spent", "pin_hash", "version", "updated_at"}).
		AddRow(userID, balance, earned, spent, nil, version, time.Now())
}

func TestAccountStore_ApplyDelta(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	store := NewAccountStore(db, NewTransactionLog(db))

	t.Run("credit updates balance and appends entry", func(t *testing.T) {
		mock.ExpectBegin()

		mock.ExpectQuery("SELECT user_id, balance, lifetime_earned, lifetime_spent, pin_hash, version, updated_at FROM accounts WHERE user_id = \\$1 FOR UPDATE").
			WithArgs("user1").
			WillReturnRows(accountRows("user1", 100, 100, 0, 1))

		mock.ExpectExec("UPDATE accounts SET balance = \\$1, lifetime_earned = \\$2, lifetime_spent = \\$3, version = version \\+ 1, updated_at = \\$4 WHERE user_id = \\$5 AND version = \\$6").
			WithArgs(int64(150), int64(150), int64(0), sqlmock.AnyArg(), "user1", 1).
			WillReturnResult(sqlmock.NewResult(0, 1))

		mock.ExpectQuery("INSERT INTO ledger_entries").
			WithArgs("user1", int64(50), "earn", "event-9", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

		mock.ExpectCommit()

		err := store.ApplyDelta(context.Background(), "user1", 50, "earn", "event-9")
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("debit updates lifetime_spent", func(t *testing.T) {
		mock.ExpectBegin()

		mock.ExpectQuery("SELECT user_id, balance, lifetime_earned, lifetime_spent, pin_hash, version, updated_at FROM accounts WHERE user_id = \\$1 FOR UPDATE").
			WithArgs("user1").
			WillReturnRows(accountRows("user1", 100, 100, 0, 3))

		mock.ExpectExec("UPDATE accounts SET balance = \\$1, lifetime_earned = \\$2, lifetime_spent = \\$3, version = version \\+ 1, updated_at = \\$4 WHERE user_id = \\$5 AND version = \\$6").
			WithArgs(int64(70), int64(100), int64(30), sqlmock.AnyArg(), "user1", 3).
			WillReturnResult(sqlmock.NewResult(0, 1))

		mock.ExpectQuery("INSERT INTO ledger_entries").
			WithArgs("user1", int64(-30), "spend", "res-1", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(2)))

		mock.ExpectCommit()

		err := store.ApplyDelta(context.Background(), "user1", -30, "spend", "res-1")
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insufficient balance carries shortfall", func(t *testing.T) {
		mock.ExpectBegin()

		mock.ExpectQuery("SELECT user_id, balance, lifetime_earned, lifetime_spent, pin_hash, version, updated_at FROM accounts WHERE user_id = \\$1 FOR UPDATE").
			WithArgs("user1").
			WillReturnRows(accountRows("user1", 20, 20, 0, 1))

		mock.ExpectRollback()

		err := store.ApplyDelta(context.Background(), "user1", -50, "spend", "res-2")
		assert.Error(t, err)

		var ib *InsufficientBalanceError
		assert.ErrorAs(t, err, &ib)
		assert.Equal(t, int64(30), ib.Shortfall())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("version conflict surfaces as concurrent modification", func(t *testing.T) {
		mock.ExpectBegin()

		mock.ExpectQuery("SELECT user_id, balance, lifetime_earned, lifetime_spent, pin_hash, version, updated_at FROM accounts WHERE user_id = \\$1 FOR UPDATE").
			WithArgs("user1").
			WillReturnRows(accountRows("user1", 100, 100, 0, 1))

		mock.ExpectExec("UPDATE accounts SET balance = \\$1, lifetime_earned = \\$2, lifetime_spent = \\$3, version = version \\+ 1, updated_at = \\$4 WHERE user_id = \\$5 AND version = \\$6").
			WithArgs(int64(150), int64(150), int64(0), sqlmock.AnyArg(), "user1", 1).
			WillReturnResult(sqlmock.NewResult(0, 0))

		mock.ExpectRollback()

		err := store.ApplyDelta(context.Background(), "user1", 50, "earn", "event-9")
		assert.ErrorIs(t, err, ErrConcurrentModification)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown account", func(t *testing.T) {
		mock.ExpectBegin()

		mock.ExpectQuery("SELECT user_id, balance, lifetime_earned, lifetime_spent, pin_hash, version, updated_at FROM accounts WHERE user_id = \\$1 FOR UPDATE").
			WithArgs("ghost").
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "balance", "lifetime_earned", "lifetime_spent", "pin_hash", "version", "updated_at"}))

		mock.ExpectRollback()

		err := store.ApplyDelta(context.Background(), "ghost", 10, "earn", "event-1")
		assert.ErrorIs(t, err, ErrAccountNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountStore_GetOrCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	store := NewAccountStore(db, NewTransactionLog(db))

	t.Run("creates with zero balances when absent", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO accounts \\(user_id, balance, lifetime_earned, lifetime_spent, version, updated_at\\) VALUES \\(\\$1, 0, 0, 0, 1, NOW\\(\\)\\) ON CONFLICT \\(user_id\\) DO NOTHING").
			WithArgs("newbie").
			WillReturnResult(sqlmock.NewResult(0, 1))

		mock.ExpectQuery("SELECT user_id, balance, lifetime_earned, lifetime_spent, pin_hash, version, updated_at FROM accounts WHERE user_id = \\$1").
			WithArgs("newbie").
			WillReturnRows(accountRows("newbie", 0, 0, 0, 1))

		account, err := store.GetOrCreate(context.Background(), "newbie")
		assert.NoError(t, err)
		assert.Equal(t, "newbie", account.UserID)
		assert.Equal(t, int64(0), account.Balance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("leaves existing account untouched", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO accounts").
			WithArgs("veteran").
			WillReturnResult(sqlmock.NewResult(0, 0))

		mock.ExpectQuery("SELECT user_id, balance, lifetime_earned, lifetime_spent, pin_hash, version, updated_at FROM accounts WHERE user_id = \\$1").
			WithArgs("veteran").
			WillReturnRows(accountRows("veteran", 250, 400, 150, 7))

		account, err := store.GetOrCreate(context.Background(), "veteran")
		assert.NoError(t, err)
		assert.Equal(t, int64(250), account.Balance)
		assert.Equal(t, int64(400), account.LifetimeEarned)
		assert.Equal(t, int64(150), account.LifetimeSpent)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountStore_Get_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	store := NewAccountStore(db, NewTransactionLog(db))

	mock.ExpectQuery("SELECT user_id, balance, lifetime_earned, lifetime_spent, pin_hash, version, updated_at FROM accounts WHERE user_id = \\$1").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "balance", "lifetime_earned", "lifetime_spent", "pin_hash", "version", "updated_at"}))

	_, err = store.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
