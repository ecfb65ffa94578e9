package database

import (
	"context"
	"log"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/viper"
)

// InitRedis connects to Redis using viper config. Redis is an
// availability-optional layer for the ledger: callers get nil when it
// is unreachable, PIN rate limiting and redemption codes degrade, and
// the ledger itself keeps serving.
func InitRedis() *redis.Client {
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", "6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	rdb := redis.NewClient(&redis.Options{
		Addr:     viper.GetString("redis.host") + ":" + viper.GetString("redis.port"),
		Password: viper.GetString("redis.password"),
		DB:       viper.GetInt("redis.db"),
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Printf("[REDIS] Unreachable, running degraded: %v", err)
		return nil
	}

	log.Println("[REDIS] Connection established")
	return rdb
}
