package views

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	applog "treetrack/internal/log"
)

// Canonical read-view paths. Mutations invalidate these; the read side
// caches rendered payloads under them.
const ListingPath = "/plants"

// DetailPath returns the per-record detail view path for a plant.
func DetailPath(plantID string) string {
	return "/plant/" + plantID
}

// Invalidator marks dependent read views stale after a mutation. Calls are
// idempotent and fire-and-forget.
type Invalidator interface {
	Invalidate(ctx context.Context, paths ...string)
}

// Cache stores rendered read-view payloads keyed by path until a mutation
// marks them stale or the TTL expires.
type Cache struct {
	store *cache.Cache
}

// NewCache builds a view cache whose entries expire after ttl even without
// an explicit invalidation.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{
		store: cache.New(ttl, 2*ttl),
	}
}

// Get returns the cached payload for path, if one is still fresh.
func (c *Cache) Get(path string) ([]byte, bool) {
	value, ok := c.store.Get(path)
	if !ok {
		return nil, false
	}
	payload, ok := value.([]byte)
	return payload, ok
}

// Put stores a rendered payload under path.
func (c *Cache) Put(path string, payload []byte) {
	c.store.Set(path, payload, cache.DefaultExpiration)
}

// Invalidate drops the cached payloads for the given paths. Unknown paths
// are ignored.
func (c *Cache) Invalidate(ctx context.Context, paths ...string) {
	for _, path := range paths {
		c.store.Delete(path)
		applog.Debug(ctx, "view marked stale", "path", path)
	}
}
