package cache

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func boolParser(fetches *int32) ValueParser[bool] {
	return func(raw *string) (bool, error) {
		atomic.AddInt32(fetches, 1)
		if raw == nil {
			return false, nil
		}
		return *raw == "true", nil
	}
}

func newTestCache(t *testing.T, ttl, staleBuffer time.Duration, fetches *int32) (*Cache[bool], *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client, ttl, staleBuffer, "quota", boolParser(fetches)), mr
}

// Seed scenario 3: ttl=1 (scaled to 100ms here), stale_buffer=2 (scaled to
// 200ms). A fresh read makes no store call; a stale read returns the
// cached value and triggers exactly one background refresh; an expired
// read blocks for a foreground fetch.
func TestCacheStaleWhileRevalidate(t *testing.T) {
	const ttl = 100 * time.Millisecond
	const staleBuffer = 200 * time.Millisecond

	var fetches int32
	c, mr := newTestCache(t, ttl, staleBuffer, &fetches)
	mr.Set("quota:2025-11:t1", "true")

	ctx := context.Background()

	val, err := c.GetOrRefresh(ctx, "2025-11:t1")
	if err != nil {
		t.Fatalf("initial GetOrRefresh: %v", err)
	}
	if !val {
		t.Fatal("initial GetOrRefresh = false, want true")
	}
	if got := atomic.LoadInt32(&fetches); got != 1 {
		t.Fatalf("fetches after initial load = %d, want 1", got)
	}

	// Within ttl: fresh, no store call.
	time.Sleep(ttl / 2)
	val, err = c.GetOrRefresh(ctx, "2025-11:t1")
	if err != nil || !val {
		t.Fatalf("fresh read = (%v, %v), want (true, nil)", val, err)
	}
	if got := atomic.LoadInt32(&fetches); got != 1 {
		t.Fatalf("fetches after fresh read = %d, want still 1", got)
	}

	// Beyond ttl but within ttl+stale_buffer: stale, returns cached value
	// immediately and kicks off exactly one background refresh.
	time.Sleep(ttl)
	val, err = c.GetOrRefresh(ctx, "2025-11:t1")
	if err != nil || !val {
		t.Fatalf("stale read = (%v, %v), want (true, nil)", val, err)
	}

	deadline := time.Now().Add(time.Second)
	for atomic.LoadInt32(&fetches) < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := atomic.LoadInt32(&fetches); got != 2 {
		t.Fatalf("fetches after stale read's background refresh = %d, want exactly 2", got)
	}

	// Beyond ttl+stale_buffer from the *original* fetch: forces a fresh
	// foreground fetch. The background refresh above reset fetchedAt, so
	// sleep past ttl+stale_buffer relative to that refresh.
	time.Sleep(ttl + staleBuffer)
	val, err = c.GetOrRefresh(ctx, "2025-11:t1")
	if err != nil || !val {
		t.Fatalf("expired read = (%v, %v), want (true, nil)", val, err)
	}
	if got := atomic.LoadInt32(&fetches); got != 3 {
		t.Fatalf("fetches after expired read = %d, want 3", got)
	}
}

func TestCacheGetOrRefreshMissingKeyUsesParserDefault(t *testing.T) {
	var fetches int32
	c, _ := newTestCache(t, time.Minute, time.Minute, &fetches)

	val, err := c.GetOrRefresh(context.Background(), "2025-11:unknown")
	if err != nil {
		t.Fatalf("GetOrRefresh: %v", err)
	}
	if val {
		t.Fatal("missing key should parse to false")
	}
}

func TestCacheGetManyOrRefreshPartitionsFreshAndMissing(t *testing.T) {
	var fetches int32
	c, mr := newTestCache(t, time.Minute, time.Minute, &fetches)
	mr.Set("quota:2025-11:t1", "true")
	mr.Set("quota:2025-11:t2", "false")

	values, errs := c.GetManyOrRefresh(context.Background(), []string{"2025-11:t1", "2025-11:t2", "2025-11:t3"})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if !values["2025-11:t1"] || values["2025-11:t2"] || values["2025-11:t3"] {
		t.Fatalf("values = %v, want t1=true, t2=false, t3=false", values)
	}
}
