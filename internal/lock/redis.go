package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go-parts-ledger/pkg/logger"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const retryInterval = 100 * time.Millisecond

// RedisLocker holds locks in Redis so that instances sharing it exclude each
// other. A lock expires after ttl if its holder dies.
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
	wait   time.Duration
	log    *logrus.Logger
}

func NewRedisLocker(rdb *redis.Client, ttl, wait time.Duration, log *logrus.Logger) *RedisLocker {
	return &RedisLocker{
		client: redislock.New(rdb),
		ttl:    ttl,
		wait:   wait,
		log:    log,
	}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	attempts := int(l.wait / retryInterval)
	if attempts < 1 {
		attempts = 1
	}

	held, err := l.client.Obtain(ctx, key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(retryInterval), attempts),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: %s", ErrNotObtained, key)
	} else if err != nil {
		logger.LogError(l.log, "lock", "Acquire", "error obtaining redis lock", key, err)
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The caller's context may already be done; release on a fresh one.
			if err := held.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				logger.LogError(l.log, "lock", "Release", "failed to release redis lock", key, err)
			}
		})
	}, nil
}
