package stance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultMaxWrites   = 5
	defaultWriteWindow = 10 * time.Second
)

// LimitConfig bounds how many stance writes a voter may make per window.
type LimitConfig struct {
	MaxWrites int
	Window    time.Duration
}

// DefaultLimitConfig allows 5 writes per voter every 10 seconds.
func DefaultLimitConfig() LimitConfig {
	return LimitConfig{MaxWrites: defaultMaxWrites, Window: defaultWriteWindow}
}

func (c LimitConfig) withDefaults() LimitConfig {
	if c.MaxWrites <= 0 {
		c.MaxWrites = defaultMaxWrites
	}
	if c.Window <= 0 {
		c.Window = defaultWriteWindow
	}
	return c
}

func limitKey(debateID, voterID string) string {
	return fmt.Sprintf("rate:stance:%s:%s", debateID, voterID)
}

// RedisLimiter is a fixed-window counter shared by every server instance.
type RedisLimiter struct {
	rdb    *redis.Client
	config LimitConfig
}

func NewRedisLimiter(rdb *redis.Client, config LimitConfig) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, config: config.withDefaults()}
}

// Allow counts a write and reports whether it fits in the current window.
func (l *RedisLimiter) Allow(ctx context.Context, debateID, voterID string) (bool, error) {
	if l == nil || l.rdb == nil {
		return false, fmt.Errorf("Redis client not available")
	}

	key := limitKey(debateID, voterID)
	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	// Set expiration if first time
	if count == 1 {
		if err := l.rdb.Expire(ctx, key, l.config.Window).Err(); err != nil {
			return false, err
		}
	}
	return count <= int64(l.config.MaxWrites), nil
}

type window struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter is the single-instance equivalent of RedisLimiter.
type MemoryLimiter struct {
	config LimitConfig
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

func NewMemoryLimiter(config LimitConfig) *MemoryLimiter {
	return &MemoryLimiter{
		config:  config.withDefaults(),
		now:     time.Now,
		windows: make(map[string]*window),
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, debateID, voterID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	key := limitKey(debateID, voterID)
	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(l.config.Window)}
		l.windows[key] = w
		l.sweep(now)
	}
	w.count++
	return w.count <= l.config.MaxWrites, nil
}

// sweep drops expired windows; callers hold mu.
func (l *MemoryLimiter) sweep(now time.Time) {
	for key, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, key)
		}
	}
}
