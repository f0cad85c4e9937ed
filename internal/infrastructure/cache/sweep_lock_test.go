package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/backoffice/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeRedis models SET NX and the compare-and-delete script on a single map
type fakeRedis struct {
	values  map[string]string
	failSet error
	evals   int
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: make(map[string]string)}
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	if f.failSet != nil {
		return redis.NewBoolResult(false, f.failSet)
	}
	if _, ok := f.values[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.values[key] = value.(string)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Eval(ctx context.Context, _ string, keys []string, args ...any) *redis.Cmd {
	f.evals++
	if f.values[keys[0]] == args[0].(string) {
		delete(f.values, keys[0])
		return redis.NewCmdResult(int64(1), nil)
	}
	return redis.NewCmdResult(int64(0), nil)
}

func TestRedisSweepLock(t *testing.T) {
	ctx := context.Background()

	t.Run("only one holder at a time", func(t *testing.T) {
		store := newFakeRedis()
		a := NewRedisSweepLock(store, "")
		b := NewRedisSweepLock(store, "")

		ok, err := a.TryAcquire(ctx, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = b.TryAcquire(ctx, time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, a.Release(ctx))
		ok, err = b.TryAcquire(ctx, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("release by a non-holder leaves the key", func(t *testing.T) {
		store := newFakeRedis()
		a := NewRedisSweepLock(store, "k")
		b := NewRedisSweepLock(store, "k")

		_, err := a.TryAcquire(ctx, time.Minute)
		require.NoError(t, err)
		require.NoError(t, b.Release(ctx))

		assert.Equal(t, 0, store.evals)
		assert.Contains(t, store.values, "k")
	})

	t.Run("redis errors are wrapped", func(t *testing.T) {
		store := newFakeRedis()
		store.failSet = errors.New("connection refused")
		lock := NewRedisSweepLock(store, "")

		ok, err := lock.TryAcquire(ctx, time.Minute)
		assert.False(t, ok)
		assert.ErrorContains(t, err, "connection refused")
	})
}

func TestInMemorySweepLock(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	lock := NewInMemorySweepLock()
	lock.now = func() time.Time { return now }

	ok, _ := lock.TryAcquire(ctx, time.Minute)
	assert.True(t, ok)
	ok, _ = lock.TryAcquire(ctx, time.Minute)
	assert.False(t, ok)

	now = now.Add(2 * time.Minute)
	ok, _ = lock.TryAcquire(ctx, time.Minute)
	assert.True(t, ok, "expired lock can be taken over")

	require.NoError(t, lock.Release(ctx))
	ok, _ = lock.TryAcquire(ctx, time.Minute)
	assert.True(t, ok)
}

func TestNewSweepLock_InMemory(t *testing.T) {
	lock, closeFn, err := NewSweepLock(context.Background(), config.RedisConfig{}, false, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &InMemorySweepLock{}, lock)
	assert.NoError(t, closeFn())
}
