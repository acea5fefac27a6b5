package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLocker(client), mr
}

func TestRedisLockerExclusive(t *testing.T) {
	locker, mr := newRedisLocker(t)
	ctx := context.Background()

	token, ok, err := locker.TryLock(ctx, "mailroom:scheduler:fee_recalculation", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEmpty(t, token)

	_, ok, err = locker.TryLock(ctx, "mailroom:scheduler:fee_recalculation", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// A stale token must not release someone else's lock.
	require.NoError(t, locker.Release(ctx, "mailroom:scheduler:fee_recalculation", "other"))
	assert.True(t, mr.Exists("mailroom:scheduler:fee_recalculation"))

	require.NoError(t, locker.Release(ctx, "mailroom:scheduler:fee_recalculation", token))
	assert.False(t, mr.Exists("mailroom:scheduler:fee_recalculation"))
}

func TestRedisLockerExpires(t *testing.T) {
	locker, mr := newRedisLocker(t)
	ctx := context.Background()

	_, ok, err := locker.TryLock(ctx, "job", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	_, ok, err = locker.TryLock(ctx, "job", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLockerValidation(t *testing.T) {
	locker, _ := newRedisLocker(t)
	ctx := context.Background()

	_, _, err := locker.TryLock(ctx, "", time.Second)
	assert.Error(t, err)
	_, _, err = locker.TryLock(ctx, "job", 0)
	assert.Error(t, err)

	var nilLocker *RedisLocker
	_, _, err = nilLocker.TryLock(ctx, "job", time.Second)
	assert.Error(t, err)
	assert.NoError(t, nilLocker.Release(ctx, "job", "token"))
}
