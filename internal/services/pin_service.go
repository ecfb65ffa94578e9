package services

import (
	"context"
	cryptorand "crypto/rand"
	"crypto/subtle"
	"database/sql"
	"encoding/base64"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/localperks/backend/internal/config"
	"github.com/spf13/viper"
	"golang.org/x/crypto/argon2"
)

var pinFormatRegex = regexp.MustCompile(`^[0-9]{4}$`)

// PinService gates wallet operations behind a 4-digit numeric PIN.
// Digests are salted Argon2id; the raw PIN is never stored or logged.
type PinService struct {
	db     *sql.DB
	redis  *redis.Client
	config *config.LedgerConfig
}

func NewPinService(db *sql.DB, redisClient *redis.Client) *PinService {
	return &PinService{
		db:     db,
		redis:  redisClient,
		config: config.LoadLedgerConfig(),
	}
}

// SetPin stores the digest of rawPin on the user's account, creating
// the account with zero balances if it does not exist yet. Re-setting
// the same PIN leaves the stored digest unchanged.
func (s *PinService) SetPin(ctx context.Context, userID, rawPin string) error {
	if !pinFormatRegex.MatchString(rawPin) {
		return ErrInvalidPinFormat
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO accounts (user_id, balance, lifetime_earned, lifetime_spent, version, updated_at)
		VALUES ($1, 0, 0, 0, 1, NOW())
		ON CONFLICT (user_id) DO NOTHING`, userID)
	if err != nil {
		return err
	}

	var current sql.NullString
	err = tx.QueryRowContext(ctx, `
		SELECT pin_hash FROM accounts WHERE user_id = $1 FOR UPDATE`, userID).Scan(&current)
	if err != nil {
		return err
	}

	// Same PIN again keeps the existing salt and digest.
	if current.Valid && verifyPinHash(rawPin, current.String) {
		return tx.Commit()
	}

	hash, err := hashPin(rawPin)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE accounts SET pin_hash = $1, updated_at = $2 WHERE user_id = $3`,
		hash, time.Now(), userID)
	if err != nil {
		return err
	}

	log.Printf("[PIN] PIN set for user %s", userID)
	return tx.Commit()
}

// VerifyPin recomputes the digest and compares in constant time.
// Attempts are rate limited per user when Redis is available.
func (s *PinService) VerifyPin(ctx context.Context, userID, rawPin string) error {
	if !pinFormatRegex.MatchString(rawPin) {
		return ErrInvalidPinFormat
	}

	if err := s.checkAttemptLimit(ctx, userID); err != nil {
		return err
	}

	var hash sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT pin_hash FROM accounts WHERE user_id = $1`, userID).Scan(&hash)
	if err == sql.ErrNoRows || (err == nil && !hash.Valid) {
		return ErrAccountNotFound
	}
	if err != nil {
		return err
	}

	if !verifyPinHash(rawPin, hash.String) {
		s.recordFailedAttempt(ctx, userID)
		log.Printf("[PIN] Verification failed for user %s", userID)
		return ErrInvalidPin
	}

	return nil
}

func (s *PinService) checkAttemptLimit(ctx context.Context, userID string) error {
	if s.redis == nil {
		return nil
	}

	key := fmt.Sprintf("pin:attempts:%s", userID)
	count, err := s.redis.Get(ctx, key).Int()
	if err != nil && err != redis.Nil {
		return err
	}

	if count >= s.config.MaxPinAttempts {
		return ErrInvalidPin
	}

	return nil
}

func (s *PinService) recordFailedAttempt(ctx context.Context, userID string) {
	if s.redis == nil {
		return
	}

	key := fmt.Sprintf("pin:attempts:%s", userID)
	pipe := s.redis.Pipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, s.config.PinAttemptWindow)
	pipe.Exec(ctx)
}

func argonDefaults() {
	viper.SetDefault("argon2.time", 3)
	viper.SetDefault("argon2.memory", 64*1024)
	viper.SetDefault("argon2.threads", 4)
	viper.SetDefault("argon2.key_length", 32)
	viper.SetDefault("argon2.salt_length", 16)
}

func hashPin(pin string) (string, error) {
	argonDefaults()
	salt := make([]byte, viper.GetInt("argon2.salt_length"))
	if _, err := cryptorand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(pin), salt,
		uint32(viper.GetInt("argon2.time")),
		uint32(viper.GetInt("argon2.memory")),
		uint8(viper.GetInt("argon2.threads")),
		uint32(viper.GetInt("argon2.key_length")))
	return fmt.Sprintf("%s$%s", base64.StdEncoding.EncodeToString(salt), base64.StdEncoding.EncodeToString(hash)), nil
}

func verifyPinHash(pin, stored string) bool {
	argonDefaults()
	parts := strings.Split(stored, "$")
	if len(parts) != 2 {
		return false
	}

	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}

	hash, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(pin), salt,
		uint32(viper.GetInt("argon2.time")),
		uint32(viper.GetInt("argon2.memory")),
		uint8(viper.GetInt("argon2.threads")),
		uint32(viper.GetInt("argon2.key_length")))
	return subtle.ConstantTimeCompare(hash, computed) == 1
}
