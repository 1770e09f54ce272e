package resolver

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// testCache connects to REDIS_ADDR, skipping the test when it is unset or down.
func testCache(t *testing.T) *Cache {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		t.Skipf("redis unavailable: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return NewCache(rdb, time.Minute)
}

func testPortal(t *testing.T) string {
	return fmt.Sprintf("cachetest_%s_%d", t.Name(), time.Now().UnixNano())
}

func cleanupPortal(t *testing.T, c *Cache, portal string) {
	t.Cleanup(func() {
		ctx := context.Background()
		_, _ = c.deleteMatching(ctx, docKeyPrefix+portal+":*")
		_ = c.rdb.Del(ctx, genKey(portal)).Err()
	})
}

func TestResolver_CachesUntilInvalidated(t *testing.T) {
	c := testCache(t)
	portal := testPortal(t)
	cleanupPortal(t, c, portal)
	ctx := context.Background()

	src := &fakeSource{snap: fixtureSnapshot()}
	r := New(src, c)
	for i := 0; i < 2; i++ {
		if _, err := r.Document(ctx, portal, "prod"); err != nil {
			t.Fatalf("Document: %v", err)
		}
	}
	if src.calls != 1 {
		t.Fatalf("second call should hit the cache, got %d loads", src.calls)
	}

	c.Invalidate(ctx, []string{portal})
	if _, err := r.Document(ctx, portal, "prod"); err != nil {
		t.Fatalf("Document: %v", err)
	}
	if src.calls != 2 {
		t.Fatalf("invalidation should force a rebuild, got %d loads", src.calls)
	}
	if gen, err := c.generation(ctx, portal); err != nil || gen != 1 {
		t.Fatalf("generation = %d, %v; want 1", gen, err)
	}
}

func TestResolver_BuildRacingInvalidationIsNotServed(t *testing.T) {
	c := testCache(t)
	portal := testPortal(t)
	cleanupPortal(t, c, portal)
	ctx := context.Background()

	stale := fixtureSnapshot()
	fresh := fixtureSnapshot()
	fresh.Layers = fresh.Layers[:1]
	src := &fakeSource{snap: stale}
	// A write commits while the first build still holds the old snapshot.
	src.loading = func() {
		src.loading = nil
		src.snap = fresh
		c.Invalidate(ctx, []string{portal})
	}
	r := New(src, c)

	first, err := r.Document(ctx, portal, "prod")
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	if len(first.Layers) == len(fresh.Layers) {
		t.Fatalf("first build should render the old snapshot")
	}

	second, err := r.Document(ctx, portal, "prod")
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	if src.calls != 2 {
		t.Fatalf("document built before the invalidation was served from cache")
	}
	if len(second.Layers) != len(fresh.Layers) {
		t.Fatalf("got %d layers, want %d", len(second.Layers), len(fresh.Layers))
	}
}
