package util

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RetryCounter counts redeliveries of a message so a consumer can stop
// requeueing after a limit.
type RetryCounter interface {
	IncrementAndGet(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

// RedisRetryCounter shares counts across consumer instances.
type RedisRetryCounter struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisRetryCounter(rdb *redis.Client, ttl time.Duration) *RedisRetryCounter {
	return &RedisRetryCounter{rdb: rdb, ttl: ttl}
}

// IncrementAndGet increments the retry count for a given key and returns the new count
func (r *RedisRetryCounter) IncrementAndGet(ctx context.Context, key string) (int64, error) {
	count, err := r.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}

	// Set expiration on first increment
	if count == 1 {
		r.rdb.Expire(ctx, key, r.ttl)
	}

	return count, nil
}

func (r *RedisRetryCounter) Reset(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, key).Err()
}

// MemoryRetryCounter is process-local; counts vanish on restart.
type MemoryRetryCounter struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]retryEntry
	now     func() time.Time
}

type retryEntry struct {
	count   int64
	expires time.Time
}

func NewMemoryRetryCounter(ttl time.Duration) *MemoryRetryCounter {
	return &MemoryRetryCounter{
		ttl:     ttl,
		entries: make(map[string]retryEntry),
		now:     time.Now,
	}
}

func (m *MemoryRetryCounter) IncrementAndGet(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	e, ok := m.entries[key]
	if !ok || (m.ttl > 0 && now.After(e.expires)) {
		e = retryEntry{expires: now.Add(m.ttl)}
	}
	e.count++
	m.entries[key] = e
	return e.count, nil
}

func (m *MemoryRetryCounter) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// FormatRetryKey formats a retry key for a handler and the entity it acts on
func FormatRetryKey(handler, id string) string {
	return fmt.Sprintf("retry:%s:%s", handler, id)
}
