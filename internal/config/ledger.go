package config

import (
	"os"
	"strconv"
	"time"
)

type LedgerConfig struct {
	DefaultHoldTTL     time.Duration
	SweepInterval      time.Duration
	HistoryMaxLimit    int
	MaxPinAttempts     int
	PinAttemptWindow   time.Duration
	QRImageSize        int
	RedemptionQueueKey string
}

func LoadLedgerConfig() *LedgerConfig {
	return &LedgerConfig{
		DefaultHoldTTL:     getEnvAsDuration("LEDGER_HOLD_TTL", 15*time.Minute),
		SweepInterval:      getEnvAsDuration("LEDGER_SWEEP_INTERVAL", 1*time.Minute),
		HistoryMaxLimit:    getEnvAsInt("LEDGER_HISTORY_MAX_LIMIT", 100),
		MaxPinAttempts:     getEnvAsInt("LEDGER_MAX_PIN_ATTEMPTS", 5),
		PinAttemptWindow:   getEnvAsDuration("LEDGER_PIN_ATTEMPT_WINDOW", 15*time.Minute),
		QRImageSize:        getEnvAsInt("LEDGER_QR_IMAGE_SIZE", 256),
		RedemptionQueueKey: getEnv("LEDGER_REDEMPTION_QUEUE", "redemption_events"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			return duration
		}
	}
	return defaultVal
}
