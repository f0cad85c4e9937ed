package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultSweepLockKey is the Redis key guarding the batch refresh
const DefaultSweepLockKey = "backoffice:refresh:sweep-lock"

// releaseScript deletes the key only if it still holds our token
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// SweepLock keeps replicas from sweeping at the same time
type SweepLock interface {
	TryAcquire(ctx context.Context, ttl time.Duration) (bool, error)
	Release(ctx context.Context) error
}

// redisCommander is the subset of the go-redis client used by the lock
type redisCommander interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd
}

// RedisSweepLock is a single-key Redis lock with an owner token.
// The TTL bounds how long a crashed holder can block other replicas.
type RedisSweepLock struct {
	client redisCommander
	key    string

	mu    sync.Mutex
	token string
}

// NewRedisSweepLock creates a lock on key using client
func NewRedisSweepLock(client redisCommander, key string) *RedisSweepLock {
	if key == "" {
		key = DefaultSweepLockKey
	}
	return &RedisSweepLock{client: client, key: key}
}

// TryAcquire sets the key if absent. It returns false when another holder owns it.
func (l *RedisSweepLock) TryAcquire(ctx context.Context, ttl time.Duration) (bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire sweep lock: %w", err)
	}
	if !ok {
		return false, nil
	}
	l.mu.Lock()
	l.token = token
	l.mu.Unlock()
	return true, nil
}

// Release deletes the key if this instance still owns it
func (l *RedisSweepLock) Release(ctx context.Context) error {
	l.mu.Lock()
	token := l.token
	l.token = ""
	l.mu.Unlock()
	if token == "" {
		return nil
	}
	if err := l.client.Eval(ctx, releaseScript, []string{l.key}, token).Err(); err != nil {
		return fmt.Errorf("failed to release sweep lock: %w", err)
	}
	return nil
}

// InMemorySweepLock is a process-local lock with expiry, for single-replica deployments and tests
type InMemorySweepLock struct {
	mu        sync.Mutex
	held      bool
	expiresAt time.Time
	now       func() time.Time
}

// NewInMemorySweepLock creates an in-memory sweep lock
func NewInMemorySweepLock() *InMemorySweepLock {
	return &InMemorySweepLock{now: time.Now}
}

// TryAcquire takes the lock unless it is held and not yet expired
func (l *InMemorySweepLock) TryAcquire(_ context.Context, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held && l.now().Before(l.expiresAt) {
		return false, nil
	}
	l.held = true
	l.expiresAt = l.now().Add(ttl)
	return true, nil
}

// Release frees the lock
func (l *InMemorySweepLock) Release(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	return nil
}

var (
	_ SweepLock = (*RedisSweepLock)(nil)
	_ SweepLock = (*InMemorySweepLock)(nil)
)
