package stream

import (
	"github.com/redis/go-redis/v9"

	"github.com/odtweather/trail/server/internal/config"
)

// ConnectRedis returns a client for the relay, or nil when relaying is off
func ConnectRedis(cfg config.StreamConfig) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}

	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
}
