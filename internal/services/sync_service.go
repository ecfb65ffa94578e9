package services

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"log"
)

// ErrSyncEventNotFound is returned when no mapping exists for the
// remote id a peer reported.
var ErrSyncEventNotFound = errors.New("sync event not found")

// SyncService is the consuming end of the hub federation: when a peer
// reports that a mirrored event was deleted, the local copy and its
// mapping row go away together. No outbound mirroring happens here.
type SyncService struct {
	db *sql.DB
}

func NewSyncService(db *sql.DB) *SyncService {
	return &SyncService{db: db}
}

// DeleteMirroredEvent removes the local event record for remoteID and
// its two-way mapping row in one transaction.
func (s *SyncService) DeleteMirroredEvent(ctx context.Context, remoteID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var localID int64
	err = tx.QueryRowContext(ctx, `
		SELECT local_id FROM sync_mappings WHERE remote_id = $1`, remoteID).Scan(&localID)
	if err == sql.ErrNoRows {
		return ErrSyncEventNotFound
	}
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM sync_mappings WHERE remote_id = $1`, remoteID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM events WHERE id = $1`, localID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	log.Printf("[SYNC] Deleted mirrored event %d (remote %s)", localID, remoteID)
	return nil
}

// ValidateAPIKey checks a peer's bearer key against the active-key
// registry. Keys are stored hashed.
func (s *SyncService) ValidateAPIKey(ctx context.Context, rawKey string) (bool, error) {
	digest := sha256.Sum256([]byte(rawKey))

	var active bool
	err := s.db.QueryRowContext(ctx, `
		SELECT active FROM api_keys WHERE key_hash = $1`,
		hex.EncodeToString(digest[:])).Scan(&active)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return active, nil
}
