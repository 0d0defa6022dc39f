package cache

import (
	"sync"
	"time"

	"botgateway/internal/core"
)

// ModelsCache holds a single process-wide snapshot of the upstream
// model catalog. The snapshot is only ever replaced wholesale as a
// {capturedAt, models} pair, never mutated in place, so a concurrent
// reader can at worst observe one generation behind. Staleness within
// the TTL window is intended behavior, not a bug.
type ModelsCache struct {
	mu         sync.RWMutex
	capturedAt time.Time
	models     []core.Model
}

// NewModelsCache creates an empty cache. Data survives only as long as
// the process instance; callers must not assume durability.
func NewModelsCache() *ModelsCache {
	return &ModelsCache{}
}

// Get returns the cached snapshot when it is younger than ttl. The
// returned slice is the snapshot itself; it must not be mutated by
// callers (replacement is always wholesale).
func (c *ModelsCache) Get(ttl time.Duration) ([]core.Model, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.models == nil || time.Since(c.capturedAt) >= ttl {
		return nil, false
	}
	return c.models, true
}

// Set replaces the snapshot wholesale with the given models and the
// current time.
func (c *ModelsCache) Set(models []core.Model) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.capturedAt = time.Now()
	c.models = models
}

// Snapshot returns the current {capturedAt, models} pair regardless of
// TTL, for inspection and tests.
func (c *ModelsCache) Snapshot() (time.Time, []core.Model) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.capturedAt, c.models
}

// Clear drops the snapshot.
func (c *ModelsCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.capturedAt = time.Time{}
	c.models = nil
}
