package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisLocker(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	l := NewRedis(rdb)
	ctx := context.Background()

	lease, ok, err := l.Acquire(ctx, "lock:play:op:p1", 5*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.Acquire(ctx, "lock:play:op:p1", 5*time.Second)
	require.NoError(t, err)
	require.False(t, ok)

	// a stale lease cannot release someone else's lock
	require.NoError(t, l.Release(ctx, Lease{Key: lease.Key, Token: "stale"}))
	require.True(t, mr.Exists(lease.Key))

	require.NoError(t, l.Release(ctx, lease))
	require.False(t, mr.Exists(lease.Key))

	_, ok, err = l.Acquire(ctx, "lock:play:op:p1", 5*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRedisLockerExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	l := NewRedis(rdb)
	ctx := context.Background()

	_, ok, err := l.Acquire(ctx, "k", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	_, ok, err = l.Acquire(ctx, "k", time.Second)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRedisLockerError(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	_, ok, err := NewRedis(rdb).Acquire(context.Background(), "k", time.Second)
	require.Error(t, err)
	require.False(t, ok)
}

func TestMemoryLocker(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	m := NewMemory()
	m.now = func() time.Time { return now }
	ctx := context.Background()

	lease, ok, err := m.Acquire(ctx, "k", time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, m.Held("k"))

	_, ok, _ = m.Acquire(ctx, "k", time.Second)
	require.False(t, ok)

	now = now.Add(2 * time.Second)
	require.False(t, m.Held("k"))
	second, ok, _ := m.Acquire(ctx, "k", time.Second)
	require.True(t, ok)

	// the expired holder releasing late must not free the new lease
	require.NoError(t, m.Release(ctx, lease))
	require.True(t, m.Held("k"))
	require.NoError(t, m.Release(ctx, second))
	require.False(t, m.Held("k"))
}
