package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"event-rsvp-backend/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	m := NewKeyedMutex()

	var active, maxActive atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := m.Lock(context.Background(), "user:1")
			if !assert.NoError(t, err) {
				return
			}
			defer unlock()

			n := active.Add(1)
			for {
				cur := maxActive.Load()
				if n <= cur || maxActive.CompareAndSwap(cur, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			active.Add(-1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxActive.Load())
	assert.Empty(t, m.locks)
}

func TestKeyedMutex_DifferentKeysIndependent(t *testing.T) {
	m := NewKeyedMutex()

	unlockA, err := m.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	unlockB, err := m.Lock(ctx, "b")
	require.NoError(t, err)
	unlockB()
}

func TestKeyedMutex_Timeout(t *testing.T) {
	m := NewKeyedMutex()

	unlock, err := m.Lock(context.Background(), "a")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = m.Lock(ctx, "a")
	require.ErrorIs(t, err, ErrLockTimeout)

	unlock()
	unlock()
	assert.Empty(t, m.locks)
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisLocker_ExclusiveUntilUnlock(t *testing.T) {
	mr, client := newTestRedis(t)
	l := NewRedisLocker(client, time.Minute)

	unlock, err := l.Lock(context.Background(), "user:1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("lock:user:1"))

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "user:1")
	require.ErrorIs(t, err, ErrLockTimeout)

	unlock()
	assert.False(t, mr.Exists("lock:user:1"))

	unlock2, err := l.Lock(context.Background(), "user:1")
	require.NoError(t, err)
	unlock2()
}

func TestRedisLocker_DeadlineDuringAcquireIsTimeout(t *testing.T) {
	_, client := newTestRedis(t)
	l := NewRedisLocker(client, time.Minute)

	unlock, err := l.Lock(context.Background(), "user:1")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Lock(ctx, "user:1")
	require.ErrorIs(t, err, ErrLockTimeout)
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestRedisLocker_ExpiredLockIsReleasable(t *testing.T) {
	mr, client := newTestRedis(t)
	l := NewRedisLocker(client, time.Second)

	stale, err := l.Lock(context.Background(), "user:1")
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	fresh, err := l.Lock(context.Background(), "user:1")
	require.NoError(t, err)

	// the expired holder must not release the new holder's lock
	stale()
	assert.True(t, mr.Exists("lock:user:1"))
	fresh()
	assert.False(t, mr.Exists("lock:user:1"))
}
