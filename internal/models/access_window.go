package models

import "time"

// AccessWindow is a business-owned pricing rule: a weekly time range
// with a coin cost for redeeming access inside it. The ledger only ever
// reads these; businesses own and mutate them elsewhere.
type AccessWindow struct {
	ID         int64        `json:"id" db:"id"`
	BusinessID string       `json:"business_id" db:"business_id"`
	DayOfWeek  time.Weekday `json:"day_of_week" db:"day_of_week"`
	StartTime  string       `json:"start_time" db:"start_time"` // HH:MM:SS local time
	EndTime    string       `json:"end_time" db:"end_time"`     // exclusive
	CoinCost   int64        `json:"coin_cost" db:"coin_cost"`
	Label      string       `json:"label,omitempty" db:"label"`
}
