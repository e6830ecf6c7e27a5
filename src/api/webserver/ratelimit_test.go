package webserver

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestMemoryLimiterSlidingWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }
	ctx := context.Background()

	for i, want := range []bool{true, true, false} {
		ok, _ := rl.Allow(ctx, "ip")
		if ok != want {
			t.Fatalf("request %d allowed = %v, want %v", i, ok, want)
		}
	}
	if ok, _ := rl.Allow(ctx, "other"); !ok {
		t.Fatal("keys must be limited independently")
	}

	now = now.Add(time.Minute)
	if ok, _ := rl.Allow(ctx, "ip"); !ok {
		t.Fatal("window should have slid")
	}

	now = now.Add(2 * time.Minute)
	rl.cleanup()
	if len(rl.requests) != 0 {
		t.Fatalf("cleanup left %d keys", len(rl.requests))
	}
}

func TestRedisLimiterFixedWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	rl := NewRedisLimiter(rdb, 2, time.Minute)
	ctx := context.Background()
	for i, want := range []bool{true, true, false} {
		ok, err := rl.Allow(ctx, "ip")
		if err != nil {
			t.Fatal(err)
		}
		if ok != want {
			t.Fatalf("request %d allowed = %v, want %v", i, ok, want)
		}
	}
	if ttl := mr.TTL("surveybot:ratelimit:ip"); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("ttl = %v", ttl)
	}

	mr.FastForward(time.Minute + time.Second)
	if ok, _ := rl.Allow(ctx, "ip"); !ok {
		t.Fatal("window should have reset")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	e := newEnv(t, NewRedisLimiter(rdb, 1, time.Minute))
	w, _ := e.do(t, http.MethodGet, "/api/user/check/x", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("first request = %d", w.Code)
	}
	w, out := e.do(t, http.MethodGet, "/api/user/check/x", nil, nil)
	if w.Code != http.StatusTooManyRequests || out["err"] == nil {
		t.Fatalf("second request = %d %v", w.Code, out)
	}

	mr.Close()
	w, _ = e.do(t, http.MethodGet, "/api/user/check/x", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("limiter outage should fail open, got %d", w.Code)
	}
}
