package services

import (
	"bytes"
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/localperks/backend/internal/config"
	"github.com/localperks/backend/internal/models"
	"github.com/skip2/go-qrcode"
)

// RedemptionQRService renders an open hold as a QR token the business
// scans to consume it. Tokens live in Redis and expire with the hold.
type RedemptionQRService struct {
	db           *sql.DB
	redis        *redis.Client
	reservations *ReservationManager
	config       *config.LedgerConfig
}

func NewRedemptionQRService(db *sql.DB, redisClient *redis.Client, reservations *ReservationManager) *RedemptionQRService {
	return &RedemptionQRService{
		db:           db,
		redis:        redisClient,
		reservations: reservations,
		config:       config.LoadLedgerConfig(),
	}
}

// GenerateHoldQR builds a token for a held reservation and returns the
// token plus a base64 PNG of its QR code.
func (s *RedemptionQRService) GenerateHoldQR(ctx context.Context, reservationID string) (string, string, error) {
	// Tokens live in Redis; without it there is nothing to resolve a
	// scan against, so fail up front instead of dereferencing nil.
	if s.redis == nil {
		return "", "", ErrRedemptionCodesUnavailable
	}

	res, err := s.reservations.Get(ctx, reservationID)
	if err != nil {
		return "", "", err
	}

	switch res.Status {
	case models.ReservationHeld:
	case models.ReservationExpired:
		return "", "", ErrReservationExpired
	default:
		return "", "", ErrReservationAlreadyResolved
	}

	payload := map[string]any{
		"reservationId": res.ID,
		"businessId":    res.BusinessID,
		"nonce":         s.generateNonce(),
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", "", err
	}

	token := base64.URLEncoding.EncodeToString(jsonData)

	// The hold can cross its deadline between the Get above and here.
	ttl := time.Until(res.ExpiresAt)
	if ttl <= 0 {
		return "", "", ErrReservationExpired
	}

	key := fmt.Sprintf("hold_qr:%s", token)
	if err := s.redis.Set(ctx, key, res.ID, ttl).Err(); err != nil {
		return "", "", err
	}

	qr, err := qrcode.New(token, qrcode.Medium)
	if err != nil {
		return "", "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(s.config.QRImageSize)); err != nil {
		return "", "", err
	}

	return token, base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// ResolveHoldToken maps a scanned token back to its reservation id and
// invalidates the token.
func (s *RedemptionQRService) ResolveHoldToken(ctx context.Context, token string) (string, error) {
	if s.redis == nil {
		return "", ErrRedemptionCodesUnavailable
	}

	key := fmt.Sprintf("hold_qr:%s", token)

	reservationID, err := s.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", fmt.Errorf("invalid or expired redemption code")
	}
	if err != nil {
		return "", err
	}

	s.redis.Del(ctx, key)

	return reservationID, nil
}

func (s *RedemptionQRService) generateNonce() string {
	b := make([]byte, 16)
	rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}
