package cache

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type payload struct {
	Price  float64   `json:"price"`
	Closes []float64 `json:"closes"`
}

func TestMemoryCacheTypedRoundTrip(t *testing.T) {
	mc := NewMemoryCache(WithMemoryCleanup(0))
	defer mc.Close()
	ctx := context.Background()

	in := payload{Price: 5000, Closes: []float64{1, 2, 3}}
	if err := mc.Set(ctx, "k", in, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	var out payload
	if err := mc.Get(ctx, "k", &out); err != nil {
		t.Fatalf("get: %v", err)
	}
	if out.Price != 5000 || len(out.Closes) != 3 {
		t.Fatalf("unexpected value %+v", out)
	}
}

func TestMemoryCacheConvertsMismatchedTypes(t *testing.T) {
	mc := NewMemoryCache(WithMemoryCleanup(0))
	defer mc.Close()
	ctx := context.Background()

	_ = mc.Set(ctx, "k", map[string]interface{}{"price": 1.5}, time.Minute)
	var out payload
	if err := mc.Get(ctx, "k", &out); err != nil {
		t.Fatalf("get: %v", err)
	}
	if out.Price != 1.5 {
		t.Fatalf("unexpected price %v", out.Price)
	}
}

func TestMemoryCacheExpiryUsesClock(t *testing.T) {
	clk := &fakeClock{now: time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC)}
	mc := NewMemoryCache(WithMemoryCleanup(0), WithMemoryClock(clk.Now))
	defer mc.Close()
	ctx := context.Background()

	_ = mc.Set(ctx, "k", "v", 5*time.Minute)

	clk.Advance(4*time.Minute + 59*time.Second)
	var s string
	if err := mc.Get(ctx, "k", &s); err != nil || s != "v" {
		t.Fatalf("expected hit before expiry, got %q %v", s, err)
	}

	clk.Advance(time.Second)
	if err := mc.Get(ctx, "k", &s); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss at expiry, got %v", err)
	}
	if ok, _ := mc.Exists(ctx, "k"); ok {
		t.Fatalf("expired key should not exist")
	}
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	mc := NewMemoryCache(WithMemoryCleanup(0), WithMemoryMaxSize(2), WithMemoryClock(clk.Now))
	defer mc.Close()
	ctx := context.Background()

	_ = mc.Set(ctx, "a", 1, time.Hour)
	clk.Advance(time.Second)
	_ = mc.Set(ctx, "b", 2, time.Hour)
	clk.Advance(time.Second)
	var v int
	_ = mc.Get(ctx, "a", &v) // a is now more recent than b
	clk.Advance(time.Second)
	_ = mc.Set(ctx, "c", 3, time.Hour)

	if ok, _ := mc.Exists(ctx, "b"); ok {
		t.Fatalf("expected b to be evicted")
	}
	if ok, _ := mc.Exists(ctx, "a", "c"); !ok {
		t.Fatalf("expected a and c to remain")
	}
	if mc.Len() != 2 {
		t.Fatalf("expected 2 items, got %d", mc.Len())
	}
}

func TestMemoryCacheRejectsNonPointer(t *testing.T) {
	mc := NewMemoryCache(WithMemoryCleanup(0))
	defer mc.Close()
	_ = mc.Set(context.Background(), "k", 1, time.Minute)
	var v int
	if err := mc.Get(context.Background(), "k", v); err == nil {
		t.Fatalf("expected error for non-pointer dest")
	}
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc, err := NewRedisCache(WithRedisAddr(mr.Host(), mustPort(t, mr)), WithRedisPrefix("test"))
	if err != nil {
		t.Fatalf("redis: %v", err)
	}
	t.Cleanup(func() { _ = rc.Close() })
	return mr, rc
}

func mustPort(t *testing.T, mr *miniredis.Miniredis) int {
	t.Helper()
	p, err := strconv.Atoi(mr.Port())
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	return p
}

func TestRedisCacheJSONAndPrefix(t *testing.T) {
	mr, rc := newTestRedis(t)
	ctx := context.Background()

	if err := rc.Set(ctx, "current", payload{Price: 4321}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !mr.Exists("test:current") {
		t.Fatalf("expected prefixed key in redis, keys=%v", mr.Keys())
	}

	var out payload
	if err := rc.Get(ctx, "current", &out); err != nil {
		t.Fatalf("get: %v", err)
	}
	if out.Price != 4321 {
		t.Fatalf("unexpected value %+v", out)
	}

	mr.FastForward(2 * time.Minute)
	if err := rc.Get(ctx, "current", &out); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss after ttl, got %v", err)
	}
}

func TestLayeredCachePromotesFromRedis(t *testing.T) {
	_, rc := newTestRedis(t)
	ctx := context.Background()

	// Written by another instance: only L2 has it.
	if err := rc.Set(ctx, "historical:1mo", payload{Price: 10}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	lc := NewLayeredCache(rc, WithLayeredMemorySize(8))
	defer lc.memCache.Close()
	var out payload
	if err := lc.Get(ctx, "historical:1mo", &out); err != nil {
		t.Fatalf("get: %v", err)
	}
	if out.Price != 10 {
		t.Fatalf("unexpected value %+v", out)
	}
	if lc.memCache.Len() != 1 {
		t.Fatalf("expected promotion into L1")
	}

	if err := lc.Delete(ctx, "historical:1mo"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ok, _ := lc.Exists(ctx, "historical:1mo"); ok {
		t.Fatalf("expected key gone from both layers")
	}
}

func TestLayeredCacheSurvivesRedisOutage(t *testing.T) {
	mr, rc := newTestRedis(t)
	lc := NewLayeredCache(rc, WithLayeredMemorySize(8))
	defer lc.memCache.Close()
	ctx := context.Background()

	mr.Close()
	if err := lc.Set(ctx, "current", payload{Price: 7}, time.Minute); err == nil {
		t.Fatalf("expected redis write error")
	}
	var out payload
	if err := lc.Get(ctx, "current", &out); err != nil || out.Price != 7 {
		t.Fatalf("expected L1 hit during outage, got %+v %v", out, err)
	}
	if err := lc.Get(ctx, "historical:1y", &out); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss for L2 failure, got %v", err)
	}
}

func TestGenerateKeySkipsEmptyParts(t *testing.T) {
	if got := GenerateKey("", "current"); got != "current" {
		t.Fatalf("got %q", got)
	}
	if got := GenerateKey("sppredict", "historical:1mo"); got != "sppredict:historical:1mo" {
		t.Fatalf("got %q", got)
	}
}
