// Package redislock serialises admission attempts for the same user across
// API replicas. The database transaction remains the source of truth.
package redislock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ErrNotObtained is returned when another holder owns the lock.
var ErrNotObtained = errors.New("lock not obtained")

// Release frees a held lock.
type Release func(ctx context.Context)

// Locker obtains short-lived per-key locks.
type Locker interface {
	Obtain(ctx context.Context, key string) (Release, error)
}

// RedisLocker is a Locker backed by bsm/redislock.
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
	logger *slog.Logger
}

// New creates a RedisLocker. ttl bounds how long a crashed holder blocks others.
func New(rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisLocker {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisLocker{client: redislock.New(rdb), ttl: ttl, logger: logger}
}

// Obtain tries once to take the lock for key.
func (l *RedisLocker) Obtain(ctx context.Context, key string) (Release, error) {
	lock, err := l.client.Obtain(ctx, key, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrNotObtained
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain lock %s: %w", key, err)
	}

	return func(ctx context.Context) {
		if err := lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.logger.Warn("failed to release lock",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}, nil
}

// Noop grants every lock. Used when Redis is not configured.
type Noop struct{}

// Obtain always succeeds.
func (Noop) Obtain(context.Context, string) (Release, error) {
	return func(context.Context) {}, nil
}
