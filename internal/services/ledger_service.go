package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/localperks/backend/internal/audit"
	"github.com/localperks/backend/internal/config"
	"github.com/localperks/backend/internal/models"
)

// LedgerService orchestrates accounts, the transaction log, holds and
// window pricing behind a small atomic API. Peer-to-peer transfer was
// removed by policy; there deliberately is no Transfer operation.
type LedgerService struct {
	db           *sql.DB
	redis        *redis.Client
	accounts     *AccountStore
	txlog        *TransactionLog
	reservations *ReservationManager
	policy       *AccessWindowPolicy
	audit        *audit.Logger
	config       *config.LedgerConfig
}

// RedemptionResult is what RedeemAccess hands back. When the window
// carries no active pricing, Priced is false and nothing was reserved.
type RedemptionResult struct {
	Priced      bool                `json:"priced"`
	Cost        int64               `json:"cost"`
	Reservation *models.Reservation `json:"reservation,omitempty"`
	Consumed    bool                `json:"consumed"`
}

func NewLedgerService(db *sql.DB, redisClient *redis.Client) *LedgerService {
	txlog := NewTransactionLog(db)
	accounts := NewAccountStore(db, txlog)
	return &LedgerService{
		db:           db,
		redis:        redisClient,
		accounts:     accounts,
		txlog:        txlog,
		reservations: NewReservationManager(db, accounts),
		policy:       NewAccessWindowPolicy(db),
		audit:        audit.NewLogger(),
		config:       config.LoadLedgerConfig(),
	}
}

func (s *LedgerService) Accounts() *AccountStore           { return s.accounts }
func (s *LedgerService) Log() *TransactionLog              { return s.txlog }
func (s *LedgerService) Reservations() *ReservationManager { return s.reservations }
func (s *LedgerService) Policy() *AccessWindowPolicy       { return s.policy }
func (s *LedgerService) DefaultHoldTTL() time.Duration     { return s.config.DefaultHoldTTL }
func (s *LedgerService) HistoryMaxLimit() int              { return s.config.HistoryMaxLimit }

// Earn credits amount coins to the user, creating the account on first
// credit. Reference identifies the event or activity that triggered it.
func (s *LedgerService) Earn(ctx context.Context, userID string, amount int64, reference string) error {
	if amount <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidAmount, amount)
	}

	if _, err := s.accounts.GetOrCreate(ctx, userID); err != nil {
		return err
	}

	if err := s.accounts.ApplyDelta(ctx, userID, amount, models.EntryKindEarn, reference); err != nil {
		s.audit.LogError(userID, "", err)
		return err
	}

	s.audit.LogEarn(userID, reference, amount)
	return nil
}

// RedeemAccess prices the business's window at the given instant and
// places a hold for the cost. With confirm set the hold is consumed
// synchronously; otherwise the open reservation is returned for a later
// Consume or Release (e.g. the business scans a code at the door).
func (s *LedgerService) RedeemAccess(ctx context.Context, userID, businessID string, at time.Time, confirm bool) (*RedemptionResult, error) {
	cost, ok, err := s.policy.PriceFor(ctx, businessID, at)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &RedemptionResult{Priced: false}, nil
	}
	if cost == 0 {
		// A zero-cost window grants access without touching the wallet.
		return &RedemptionResult{Priced: true, Cost: 0, Consumed: confirm}, nil
	}

	res, err := s.reservations.Reserve(ctx, userID, businessID, cost, s.config.DefaultHoldTTL)
	if err != nil {
		s.audit.LogError(userID, "", err)
		return nil, err
	}
	s.audit.LogReservation("RESERVE", userID, res.ID, businessID, cost)

	result := &RedemptionResult{Priced: true, Cost: cost, Reservation: res}

	if confirm {
		consumed, err := s.reservations.Consume(ctx, res.ID)
		if err != nil {
			// The hold stays open for the caller to retry or release.
			s.audit.LogError(userID, res.ID, err)
			return nil, err
		}
		result.Reservation = consumed
		result.Consumed = true
		s.audit.LogReservation("CONSUME", userID, res.ID, businessID, cost)
	}

	s.queueRedemptionEvent(ctx, userID, businessID, result)
	return result, nil
}

// ConsumeReservation resolves a deferred redemption.
func (s *LedgerService) ConsumeReservation(ctx context.Context, reservationID string) (*models.Reservation, error) {
	res, err := s.reservations.Consume(ctx, reservationID)
	if err != nil {
		if !errors.Is(err, ErrReservationNotFound) {
			s.audit.LogError("", reservationID, err)
		}
		return nil, err
	}

	s.audit.LogReservation("CONSUME", res.UserID, res.ID, res.BusinessID, res.Amount)
	return res, nil
}

// ReleaseReservation abandons a deferred redemption without spending.
func (s *LedgerService) ReleaseReservation(ctx context.Context, reservationID string) (*models.Reservation, error) {
	res, err := s.reservations.Release(ctx, reservationID)
	if err != nil {
		if !errors.Is(err, ErrReservationNotFound) {
			s.audit.LogError("", reservationID, err)
		}
		return nil, err
	}

	s.audit.LogReservation("RELEASE", res.UserID, res.ID, res.BusinessID, res.Amount)
	return res, nil
}

// queueRedemptionEvent pushes the redemption to the analytics queue.
// Best effort: the ledger state is already committed.
func (s *LedgerService) queueRedemptionEvent(ctx context.Context, userID, businessID string, result *RedemptionResult) {
	if s.redis == nil {
		return
	}

	data, err := json.Marshal(map[string]any{
		"userId":     userID,
		"businessId": businessID,
		"cost":       result.Cost,
		"consumed":   result.Consumed,
		"timestamp":  time.Now().Unix(),
	})
	if err != nil {
		return
	}

	if err := s.redis.RPush(ctx, s.config.RedemptionQueueKey, data).Err(); err != nil {
		log.Printf("[LEDGER] Failed to queue redemption event: %v", err)
	}
}
