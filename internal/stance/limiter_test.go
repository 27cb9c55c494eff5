package stance

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisLimiter(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	l := NewRedisLimiter(rdb, LimitConfig{MaxWrites: 2, Window: time.Minute})
	for i, want := range []bool{true, true, false} {
		ok, err := l.Allow(ctx, "d1", "v1")
		if err != nil {
			t.Fatalf("Allow: %v", err)
		}
		if ok != want {
			t.Errorf("write %d: expected %v, got %v", i+1, want, ok)
		}
	}

	if ok, _ := l.Allow(ctx, "d1", "v2"); !ok {
		t.Error("Expected a different voter to have its own budget")
	}

	mr.FastForward(time.Minute)
	if ok, _ := l.Allow(ctx, "d1", "v1"); !ok {
		t.Error("Expected the window to reset after expiry")
	}
}

func TestMemoryLimiter(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter(LimitConfig{MaxWrites: 1, Window: 10 * time.Second})
	l.now = func() time.Time { return now }

	if ok, _ := l.Allow(ctx, "d1", "v1"); !ok {
		t.Fatal("Expected first write to pass")
	}
	if ok, _ := l.Allow(ctx, "d1", "v1"); ok {
		t.Error("Expected second write in the window to be rejected")
	}

	now = now.Add(10 * time.Second)
	if ok, _ := l.Allow(ctx, "d1", "v1"); !ok {
		t.Error("Expected the window to reset")
	}
}

func TestLimitConfigDefaults(t *testing.T) {
	c := LimitConfig{}.withDefaults()
	if c != DefaultLimitConfig() {
		t.Errorf("Expected defaults %+v, got %+v", DefaultLimitConfig(), c)
	}
}
