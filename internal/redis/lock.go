package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/hackgods/practice-scheduling-billing/internal/lock"
)

const lockRetryInterval = 25 * time.Millisecond

type redisRecordLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRecordLocker creates a lock.Locker backed by one Redis key per
// record. Waiters poll until the key frees up or ctx is done, so operations
// on the same record queue instead of failing.
func NewRedisRecordLocker(client *redis.Client, ttl time.Duration) lock.Locker {
	return &redisRecordLocker{
		client: client,
		ttl:    ttl,
	}
}

func (l *redisRecordLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	redisKey := fmt.Sprintf("lock:%s", key)
	token := uuid.NewString()

	if err := l.acquire(ctx, redisKey, token); err != nil {
		return err
	}

	defer func() {
		// release must still run when ctx was cancelled mid-operation
		_ = l.release(context.WithoutCancel(ctx), redisKey, token)
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

func (l *redisRecordLocker) acquire(ctx context.Context, key, token string) error {
	ticker := time.NewTicker(lockRetryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return errors.Join(lock.ErrLockNotAcquired, ctx.Err())
			}
			return fmt.Errorf("acquire record lock: %w", err)
		}
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return errors.Join(lock.ErrLockNotAcquired, ctx.Err())
		case <-ticker.C:
		}
	}
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisRecordLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release record lock: %w", err)
	}
	return nil
}
