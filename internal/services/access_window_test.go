package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

// Monday 2026-01-05 in the tests below.
var monday = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

func TestAccessWindowPolicy_PriceFor(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	policy := NewAccessWindowPolicy(db)

	t.Run("request inside the window returns its cost", func(t *testing.T) {
		at := monday.Add(10*time.Hour + 30*time.Minute) // Monday 10:30

		mock.ExpectQuery("SELECT coin_cost FROM access_windows WHERE business_id = \\$1 AND day_of_week = \\$2 AND start_time <= \\$3 AND end_time > \\$3 ORDER BY coin_cost ASC, start_time ASC LIMIT 1").
			WithArgs("biz1", int(time.Monday), "10:30:00").
			WillReturnRows(sqlmock.NewRows([]string{"coin_cost"}).AddRow(int64(2)))

		cost, priced, err := policy.PriceFor(context.Background(), "biz1", at)
		assert.NoError(t, err)
		assert.True(t, priced)
		assert.Equal(t, int64(2), cost)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("request outside every window has no active pricing", func(t *testing.T) {
		at := monday.Add(13 * time.Hour) // Monday 13:00

		mock.ExpectQuery("SELECT coin_cost FROM access_windows").
			WithArgs("biz1", int(time.Monday), "13:00:00").
			WillReturnRows(sqlmock.NewRows([]string{"coin_cost"}))

		cost, priced, err := policy.PriceFor(context.Background(), "biz1", at)
		assert.NoError(t, err)
		assert.False(t, priced)
		assert.Equal(t, int64(0), cost)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("overlap tie-break selects cheapest then earliest", func(t *testing.T) {
		// The ordering lives in the query itself; the single returned
		// row is whatever matched "coin_cost ASC, start_time ASC" first.
		at := monday.Add(11 * time.Hour)

		mock.ExpectQuery("ORDER BY coin_cost ASC, start_time ASC LIMIT 1").
			WithArgs("biz1", int(time.Monday), "11:00:00").
			WillReturnRows(sqlmock.NewRows([]string{"coin_cost"}).AddRow(int64(1)))

		cost, priced, err := policy.PriceFor(context.Background(), "biz1", at)
		assert.NoError(t, err)
		assert.True(t, priced)
		assert.Equal(t, int64(1), cost)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccessWindowPolicy_WindowsFor(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	policy := NewAccessWindowPolicy(db)

	mock.ExpectQuery("SELECT id, business_id, day_of_week, start_time::text, end_time::text, coin_cost, COALESCE\\(label, ''\\) FROM access_windows WHERE business_id = \\$1 ORDER BY day_of_week ASC, start_time ASC").
		WithArgs("biz1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "business_id", "day_of_week", "start_time", "end_time", "coin_cost", "label"}).
			AddRow(int64(1), "biz1", int(time.Monday), "09:00:00", "12:00:00", int64(2), "morning").
			AddRow(int64(2), "biz1", int(time.Friday), "18:00:00", "22:00:00", int64(5), ""))

	windows, err := policy.WindowsFor(context.Background(), "biz1")
	assert.NoError(t, err)
	assert.Len(t, windows, 2)
	assert.Equal(t, time.Monday, windows[0].DayOfWeek)
	assert.Equal(t, "09:00:00", windows[0].StartTime)
	assert.Equal(t, int64(2), windows[0].CoinCost)
	assert.Equal(t, time.Friday, windows[1].DayOfWeek)
	assert.NoError(t, mock.ExpectationsWereMet())
}
