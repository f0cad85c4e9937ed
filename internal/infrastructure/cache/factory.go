package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/backoffice/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewSweepLock returns a Redis lock when useRedis is set and Redis answers,
// otherwise an in-memory lock. The returned close function releases the client.
func NewSweepLock(ctx context.Context, cfg config.RedisConfig, useRedis bool, logger *zap.Logger) (SweepLock, func() error, error) {
	noop := func() error { return nil }
	if !useRedis {
		logger.Info("using in-memory sweep lock")
		return NewInMemorySweepLock(), noop, nil
	}

	client, err := NewRedisClient(ctx, cfg)
	if err != nil {
		return nil, noop, fmt.Errorf("redis sweep lock requested but unavailable: %w", err)
	}
	logger.Info("using Redis sweep lock", zap.String("addr", cfg.Addr()))
	return NewRedisSweepLock(client, DefaultSweepLockKey), client.Close, nil
}
