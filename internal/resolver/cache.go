package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"MapLayerStore/internal/logger"

	"github.com/redis/go-redis/v9"
)

const (
	docKeyPrefix = "portaldoc:"
	genKeyPrefix = "portalgen:"
)

// DefaultDocumentTTL bounds how long a rendered document may outlive a missed invalidation.
const DefaultDocumentTTL = 2 * time.Hour

// Cache keeps rendered documents in Redis. A nil client disables it.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultDocumentTTL
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

func (c *Cache) enabled() bool { return c != nil && c.rdb != nil }

// Documents are keyed by the portal's generation, which Invalidate bumps. A
// build that read the old generation can only fill a key nobody reads again.
func docKey(portal string, gen int64, env string) string {
	return docKeyPrefix + portal + ":" + strconv.FormatInt(gen, 10) + ":" + env
}

func genKey(portal string) string {
	return genKeyPrefix + portal
}

// generation returns the portal's current generation, 0 before the first
// invalidation.
func (c *Cache) generation(ctx context.Context, portal string) (int64, error) {
	gen, err := c.rdb.Get(ctx, genKey(portal)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// get reports a miss as (nil, nil).
func (c *Cache) get(ctx context.Context, portal string, gen int64, env string) (*Document, error) {
	if !c.enabled() {
		return nil, nil
	}
	raw, err := c.rdb.Get(ctx, docKey(portal, gen, env)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("invalid document in redis for %s/%s: %w", portal, env, err)
	}
	return &doc, nil
}

func (c *Cache) set(ctx context.Context, portal string, gen int64, env string, doc *Document) error {
	if !c.enabled() {
		return nil
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	return c.rdb.Set(ctx, docKey(portal, gen, env), data, c.ttl).Err()
}

func (c *Cache) deleteMatching(ctx context.Context, pattern string) (int, error) {
	n := 0
	iter := c.rdb.Scan(ctx, 0, pattern, 1000).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if err := c.rdb.Del(ctx, key).Err(); err != nil {
			return n, fmt.Errorf("failed to delete key %s: %w", key, err)
		}
		n++
	}
	if err := iter.Err(); err != nil {
		return n, fmt.Errorf("scan error: %w", err)
	}
	return n, nil
}

// Invalidate bumps the generation of the given portals and drops their
// cached documents. Its signature matches store.ChangeHook; failures are
// logged, not returned.
func (c *Cache) Invalidate(ctx context.Context, portals []string) {
	if !c.enabled() {
		return
	}
	for _, p := range portals {
		gen, err := c.rdb.Incr(ctx, genKey(p)).Result()
		if err != nil {
			logger.Warn("document_cache_invalidate_failed", map[string]any{"portal": p, "error": err.Error()})
		}
		// Old generations are unreachable once the bump lands; deleting them
		// only frees memory ahead of the TTL.
		n, err := c.deleteMatching(ctx, docKeyPrefix+p+":*")
		if err != nil {
			logger.Warn("document_cache_invalidate_failed", map[string]any{"portal": p, "error": err.Error()})
			continue
		}
		logger.Debug("document_cache_invalidated", map[string]any{"portal": p, "generation": gen, "keys": n})
	}
}

// Flush removes every cached document. Generations are kept so a build
// racing the flush still lands under a superseded key.
func (c *Cache) Flush(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	n, err := c.deleteMatching(ctx, docKeyPrefix+"*")
	if err != nil {
		return err
	}
	logger.Info("document_cache_flushed", map[string]any{"keys": n})
	return nil
}
