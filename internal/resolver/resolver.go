// Package resolver renders portal documents from stored configuration and
// caches them per portal and environment.
package resolver

import (
	"context"
	"fmt"

	"MapLayerStore/internal/logger"
	"MapLayerStore/internal/model"
)

// SnapshotSource loads everything a portal document is built from.
type SnapshotSource interface {
	LoadSnapshot(ctx context.Context, portalCode, env string) (*model.PortalSnapshot, error)
}

type Resolver struct {
	src   SnapshotSource
	cache *Cache
}

// New returns a resolver; cache may be nil.
func New(src SnapshotSource, cache *Cache) *Resolver {
	return &Resolver{src: src, cache: cache}
}

// Document returns the cached document for portal and env, building and
// caching it on a miss. The generation is read before the snapshot, so a
// document built from data older than an invalidation is never served.
func (r *Resolver) Document(ctx context.Context, portal, env string) (*Document, error) {
	var gen int64
	cacheable := r.cache.enabled()
	if cacheable {
		var err error
		if gen, err = r.cache.generation(ctx, portal); err != nil {
			logger.Warn("document_cache_read_failed", map[string]any{"portal": portal, "env": env, "error": err.Error()})
			cacheable = false
		}
	}
	if cacheable {
		doc, err := r.cache.get(ctx, portal, gen, env)
		if err != nil {
			logger.Warn("document_cache_read_failed", map[string]any{"portal": portal, "env": env, "error": err.Error()})
		}
		if doc != nil {
			return doc, nil
		}
	}

	snap, err := r.src.LoadSnapshot(ctx, portal, env)
	if err != nil {
		return nil, err
	}
	doc, err := BuildDocument(snap, env)
	if err != nil {
		return nil, fmt.Errorf("build document for %q: %w", portal, err)
	}
	logger.Info("document_built", map[string]any{"portal": portal, "env": env, "layers": len(doc.Layers)})

	if cacheable {
		if err := r.cache.set(ctx, portal, gen, env, doc); err != nil {
			logger.Warn("document_cache_write_failed", map[string]any{"portal": portal, "env": env, "generation": gen, "error": err.Error()})
		}
	}
	return doc, nil
}

func (r *Resolver) EffectiveLayer(ctx context.Context, portal, key, env string) (map[string]any, error) {
	snap, err := r.src.LoadSnapshot(ctx, portal, env)
	if err != nil {
		return nil, err
	}
	return EffectiveLayer(snap, key, env)
}
