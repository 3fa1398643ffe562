// Package locks provides expiring, owner-checked locks used to allow at most
// one CV attempt per proposal at a time.
package locks

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type Locker interface {
	// TryLock acquires key for owner until ttl elapses. It reports false when
	// another owner holds a live lock.
	TryLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	// Unlock releases key only if owner still holds it.
	Unlock(ctx context.Context, key, owner string) error
}

type memoryLock struct {
	owner     string
	expiresAt time.Time
}

// MemoryLocker is a single-process Locker.
type MemoryLocker struct {
	mu    sync.Mutex
	now   func() time.Time
	locks map[string]memoryLock
}

func NewMemoryLocker(now func() time.Time) *MemoryLocker {
	if now == nil {
		now = time.Now
	}
	return &MemoryLocker{now: now, locks: map[string]memoryLock{}}
}

func (m *MemoryLocker) TryLock(_ context.Context, key, owner string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if l, ok := m.locks[key]; ok && now.Before(l.expiresAt) && l.owner != owner {
		return false, nil
	}
	m.locks[key] = memoryLock{owner: owner, expiresAt: now.Add(ttl)}
	return true, nil
}

func (m *MemoryLocker) Unlock(_ context.Context, key, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.locks[key]; ok && l.owner == owner {
		delete(m.locks, key)
	}
	return nil
}

var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker shares locks between replicas.
type RedisLocker struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisLocker(rdb *redis.Client, prefix string) *RedisLocker {
	return &RedisLocker{rdb: rdb, prefix: prefix}
}

func (r *RedisLocker) TryLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	return r.rdb.SetNX(ctx, r.prefix+key, owner, ttl).Result()
}

func (r *RedisLocker) Unlock(ctx context.Context, key, owner string) error {
	return unlockScript.Run(ctx, r.rdb, []string{r.prefix + key}, owner).Err()
}
