package redisclient

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/practice-scheduling-billing/internal/lock"
	"github.com/hackgods/practice-scheduling-billing/internal/storage"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewRedisClient(context.Background(), Options{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRecordLocker_SameKeySerialized(t *testing.T) {
	_, client := setupTestRedis(t)
	locker := NewRedisRecordLocker(client, 2*time.Second)

	var active, maxActive int32
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := locker.WithLock(context.Background(), "appointment:1", func(ctx context.Context) error {
				n := atomic.AddInt32(&active, 1)
				for {
					m := atomic.LoadInt32(&maxActive)
					if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				atomic.AddInt32(&active, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), maxActive)
}

func TestRecordLocker_ReleasesKeyAfterUse(t *testing.T) {
	mr, client := setupTestRedis(t)
	locker := NewRedisRecordLocker(client, 2*time.Second)

	err := locker.WithLock(context.Background(), "transaction:9", func(ctx context.Context) error {
		require.True(t, mr.Exists("lock:transaction:9"))
		deadline, ok := ctx.Deadline()
		require.True(t, ok)
		require.LessOrEqual(t, time.Until(deadline), 2*time.Second)
		return nil
	})
	require.NoError(t, err)
	require.False(t, mr.Exists("lock:transaction:9"))
}

func TestRecordLocker_CancelWhileWaiting(t *testing.T) {
	mr, client := setupTestRedis(t)
	locker := NewRedisRecordLocker(client, time.Minute)
	require.NoError(t, mr.Set("lock:appointment:2", "someone-else"))

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()

	called := false
	err := locker.WithLock(ctx, "appointment:2", func(context.Context) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, lock.ErrLockNotAcquired)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.False(t, called)

	got, err := mr.Get("lock:appointment:2")
	require.NoError(t, err)
	require.Equal(t, "someone-else", got)
}

func TestRecordLocker_ReleaseNeedsMatchingToken(t *testing.T) {
	mr, client := setupTestRedis(t)
	l := &redisRecordLocker{client: client, ttl: time.Minute}
	ctx := context.Background()

	require.NoError(t, mr.Set("lock:appointment:3", "owner-token"))
	require.NoError(t, l.release(ctx, "lock:appointment:3", "stale-token"))
	require.True(t, mr.Exists("lock:appointment:3"))

	require.NoError(t, l.release(ctx, "lock:appointment:3", "owner-token"))
	require.False(t, mr.Exists("lock:appointment:3"))
}

func TestRecordLocker_ExpiredLockCanBeTaken(t *testing.T) {
	mr, client := setupTestRedis(t)
	l := &redisRecordLocker{client: client, ttl: time.Second}
	ctx := context.Background()

	require.NoError(t, l.acquire(ctx, "lock:appointment:4", "first"))
	require.Equal(t, time.Second, mr.TTL("lock:appointment:4"))
	mr.FastForward(2 * time.Second)

	require.NoError(t, l.acquire(ctx, "lock:appointment:4", "second"))
	got, err := mr.Get("lock:appointment:4")
	require.NoError(t, err)
	require.Equal(t, "second", got)
}

func TestKVStore_MissAndPrefix(t *testing.T) {
	mr, client := setupTestRedis(t)
	kv := NewKVStore(client, "practice")
	ctx := context.Background()

	_, err := kv.Get(ctx, "settings")
	require.ErrorIs(t, err, storage.ErrMiss)

	require.NoError(t, kv.Set(ctx, "settings", `{"currency":"BRL"}`, 0))
	raw, err := mr.Get("practice:settings")
	require.NoError(t, err)
	require.Equal(t, `{"currency":"BRL"}`, raw)
	require.False(t, mr.Exists("settings"))

	got, err := kv.Get(ctx, "settings")
	require.NoError(t, err)
	require.Equal(t, `{"currency":"BRL"}`, got)

	require.NoError(t, kv.Delete(ctx, "settings"))
	_, err = kv.Get(ctx, "settings")
	require.ErrorIs(t, err, storage.ErrMiss)
}

func TestKVStore_TTLAndNoPrefix(t *testing.T) {
	mr, client := setupTestRedis(t)
	kv := NewKVStore(client, "")
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "notifications", "[]", time.Minute))
	require.True(t, mr.Exists("notifications"))
	require.Equal(t, time.Minute, mr.TTL("notifications"))

	var items []string
	require.NoError(t, storage.GetJSON(ctx, kv, "notifications", &items))
	require.Empty(t, items)
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisClient(context.Background(), Options{Addr: addr})
	require.Error(t, err)
}
