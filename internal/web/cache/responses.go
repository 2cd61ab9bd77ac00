package cache

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ResponseCache caches rendered list/get response bodies per entity.
// Keys combine the entity's external name with the full request URI, so
// different filter or pagination parameters cache separately. A nil
// ResponseCache is valid and disables caching.
type ResponseCache struct {
	backend Cache
	ttl     time.Duration
	logger  *zap.Logger
}

// NewResponseCache creates a response cache over a backend.
func NewResponseCache(backend Cache, ttl time.Duration, logger *zap.Logger) *ResponseCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResponseCache{backend: backend, ttl: ttl, logger: logger}
}

func (rc *ResponseCache) key(entity, requestURI string) string {
	return entity + ":" + requestURI
}

// Get returns the cached body for the request, or nil on a miss or any
// backend failure.
func (rc *ResponseCache) Get(ctx context.Context, entity, requestURI string) []byte {
	if rc == nil || rc.backend == nil {
		return nil
	}

	body, err := rc.backend.Get(ctx, rc.key(entity, requestURI))
	if err != nil {
		if !IsCacheMiss(err) {
			rc.logger.Warn("response cache read failed", zap.Error(err))
		}
		return nil
	}
	return body
}

// Set stores the rendered body. Failures are logged, not returned.
func (rc *ResponseCache) Set(ctx context.Context, entity, requestURI string, body []byte) {
	if rc == nil || rc.backend == nil {
		return
	}
	if err := rc.backend.Set(ctx, rc.key(entity, requestURI), body, rc.ttl); err != nil {
		rc.logger.Warn("response cache write failed", zap.Error(err))
	}
}

// Invalidate drops every cached response for the entity. Called after
// every successful create, update, or delete, including bulk and graph
// mutations.
func (rc *ResponseCache) Invalidate(ctx context.Context, entity string) {
	if rc == nil || rc.backend == nil {
		return
	}
	if err := rc.backend.DeleteByPrefix(ctx, entity+":"); err != nil {
		rc.logger.Warn("response cache invalidation failed",
			zap.String("entity", entity), zap.Error(err))
	}
}
