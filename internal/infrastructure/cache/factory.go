package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rt44/backend/internal/domain/shared"
	"github.com/rt44/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

const pingTimeout = 5 * time.Second

// NewIdempotencyStore returns a Redis store when Redis is configured and
// reachable, otherwise a MemoryStore. A single instance deployment loses
// nothing by running without Redis.
func NewIdempotencyStore(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) shared.IdempotencyStore {
	addr := cfg.Addr()
	if addr == "" {
		log.Info("Redis not configured, using in-memory idempotency store")
		return NewMemoryStore()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		log.Warn("Redis unreachable, falling back to in-memory idempotency store",
			zap.String("addr", addr), zap.Error(err))
		return NewMemoryStore()
	}

	log.Info("Using Redis idempotency store", zap.String("addr", addr))
	return NewRedisStore(client, "")
}
