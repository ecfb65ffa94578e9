package models

import "time"

// Business is the plain record the ranking comparator and the pricing
// preview consume. The ledger holds no foreign key to it; reservations
// reference businesses by id only.
type Business struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Category  string    `json:"category" db:"category"`
	Rating    float64   `json:"rating" db:"rating"`
	OpenNow   bool      `json:"open_now" db:"open_now"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// SyncEvent is a locally mirrored copy of an event published by a
// federated peer hub.
type SyncEvent struct {
	ID        int64     `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	StartsAt  time.Time `json:"starts_at" db:"starts_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// SyncMapping links a peer's event id to the local mirror row.
type SyncMapping struct {
	RemoteID string `json:"remote_id" db:"remote_id"`
	LocalID  int64  `json:"local_id" db:"local_id"`
	PeerHub  string `json:"peer_hub" db:"peer_hub"`
}
