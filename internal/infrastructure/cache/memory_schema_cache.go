package cache

import (
	"context"
	"strings"
	"time"

	"archie-core-forms-layer/internal/domain"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// defaultMemoryCacheSize bounds the number of (integration, object type) schemas held in process
const defaultMemoryCacheSize = 256

type memoryEntry struct {
	props     []domain.RemoteProperty
	expiresAt time.Time
}

// MemorySchemaCache is a process-local SchemaCache used when no Redis is configured.
// The LRU bounds memory; each entry also carries the ttl it was stored with.
type MemorySchemaCache struct {
	lru *expirable.LRU[string, memoryEntry]
	now func() time.Time
}

// NewMemorySchemaCache creates an empty in-memory schema cache
func NewMemorySchemaCache() *MemorySchemaCache {
	return newMemorySchemaCache(defaultMemoryCacheSize)
}

func newMemorySchemaCache(size int) *MemorySchemaCache {
	return &MemorySchemaCache{
		lru: expirable.NewLRU[string, memoryEntry](size, nil, 0),
		now: time.Now,
	}
}

func memoryKey(integrationID, objectType string) string {
	return integrationID + ":" + objectType
}

// Get retrieves a cached property list; expired entries are misses
func (c *MemorySchemaCache) Get(_ context.Context, integrationID, objectType string) ([]domain.RemoteProperty, bool, error) {
	key := memoryKey(integrationID, objectType)
	entry, ok := c.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && c.now().After(entry.expiresAt) {
		c.lru.Remove(key)
		return nil, false, nil
	}
	return append([]domain.RemoteProperty(nil), entry.props...), true, nil
}

// Set stores a property list; a zero ttl never expires
func (c *MemorySchemaCache) Set(_ context.Context, integrationID, objectType string, props []domain.RemoteProperty, ttl time.Duration) error {
	entry := memoryEntry{props: append([]domain.RemoteProperty(nil), props...)}
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}
	c.lru.Add(memoryKey(integrationID, objectType), entry)
	return nil
}

// Invalidate drops every cached object type of an integration
func (c *MemorySchemaCache) Invalidate(_ context.Context, integrationID string) error {
	prefix := integrationID + ":"
	for _, key := range c.lru.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.lru.Remove(key)
		}
	}
	return nil
}
