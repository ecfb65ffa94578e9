package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/localperks/backend/internal/models"
)

// AccessWindowPolicy resolves a business's time-of-day pricing windows
// to a coin cost at redemption time. Windows are read-only here.
type AccessWindowPolicy struct {
	db *sql.DB
}

func NewAccessWindowPolicy(db *sql.DB) *AccessWindowPolicy {
	return &AccessWindowPolicy{db: db}
}

// PriceFor returns the coin cost of redeeming access to businessID at
// the given instant, or ok=false when no window covers it. Overlapping
// windows resolve deterministically: lowest coin_cost wins, ties broken
// by earliest start_time.
func (p *AccessWindowPolicy) PriceFor(ctx context.Context, businessID string, at time.Time) (int64, bool, error) {
	var cost int64
	err := p.db.QueryRowContext(ctx, `
		SELECT coin_cost
		FROM access_windows
		WHERE business_id = $1
		  AND day_of_week = $2
		  AND start_time <= $3 AND end_time > $3
		ORDER BY coin_cost ASC, start_time ASC
		LIMIT 1`,
		businessID, int(at.Weekday()), at.Format("15:04:05")).Scan(&cost)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	return cost, true, nil
}

// WindowsFor lists a business's pricing windows in weekly order.
func (p *AccessWindowPolicy) WindowsFor(ctx context.Context, businessID string) ([]models.AccessWindow, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, business_id, day_of_week, start_time::text, end_time::text, coin_cost, COALESCE(label, '')
		FROM access_windows
		WHERE business_id = $1
		ORDER BY day_of_week ASC, start_time ASC`, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	windows := []models.AccessWindow{}
	for rows.Next() {
		var w models.AccessWindow
		var day int
		if err := rows.Scan(&w.ID, &w.BusinessID, &day, &w.StartTime, &w.EndTime, &w.CoinCost, &w.Label); err != nil {
			return nil, err
		}
		w.DayOfWeek = time.Weekday(day)
		windows = append(windows, w)
	}

	return windows, rows.Err()
}
