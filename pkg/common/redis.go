package common

import (
	"context"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/tanagardigil-gorkem/assistme-api/pkg/types"
)

// RedisClient wraps a go-redis client with lock helpers
type RedisClient struct {
	redis.UniversalClient
	locker *redislock.Client
}

type redisClientOptions struct {
	clientName string
}

type RedisClientOption func(*redisClientOptions)

// WithClientName sets the connection name reported to the server
func WithClientName(name string) RedisClientOption {
	return func(o *redisClientOptions) {
		o.clientName = name
	}
}

// NewRedisClient connects to redis and verifies the connection
func NewRedisClient(cfg types.RedisConfig, opts ...RedisClientOption) (*RedisClient, error) {
	options := &redisClientOptions{clientName: cfg.ClientName}
	for _, opt := range opts {
		opt(options)
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:           cfg.Addrs,
		Username:        cfg.Username,
		Password:        cfg.Password,
		ClientName:      options.clientName,
		PoolSize:        cfg.PoolSize,
		MinIdleConns:    cfg.MinIdleConns,
		DialTimeout:     cfg.DialTimeout,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	log.Info().Strs("addrs", cfg.Addrs).Msg("connected to redis")

	return &RedisClient{
		UniversalClient: client,
		locker:          redislock.New(client),
	}, nil
}

// AcquireLock obtains a distributed lock, retrying briefly under contention.
// The returned release func is safe to call once.
func (r *RedisClient) AcquireLock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	lock, err := r.locker.Obtain(ctx, key, ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 50),
	})
	if err != nil {
		return nil, fmt.Errorf("obtain lock %s: %w", key, err)
	}

	return func() {
		if err := lock.Release(context.Background()); err != nil {
			log.Warn().Str("lock_key", key).Err(err).Msg("failed to release lock")
		}
	}, nil
}
