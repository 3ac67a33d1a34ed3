package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to Redis using either a redis:// URL or a plain
// host:port address with separate credentials.
func NewRedisClient(cfg *Config) (*redis.Client, error) {
	var opts *redis.Options

	if strings.HasPrefix(cfg.RedisURL, "redis://") || strings.HasPrefix(cfg.RedisURL, "rediss://") {
		parsed, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{
			Addr:     cfg.RedisURL,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

// AsynqRedisAddr returns the address and credentials asynq should use,
// matching whatever NewRedisClient connects to.
func AsynqRedisAddr(cfg *Config) (addr, password string, db int) {
	if strings.HasPrefix(cfg.RedisURL, "redis://") || strings.HasPrefix(cfg.RedisURL, "rediss://") {
		if parsed, err := redis.ParseURL(cfg.RedisURL); err == nil {
			return parsed.Addr, parsed.Password, parsed.DB
		}
	}
	return cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB
}
