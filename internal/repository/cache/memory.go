package cache

import (
	"context"
	"time"

	"github.com/karlseguin/ccache/v3"

	"github.com/jaennil/guide_helper/backend/mapcore/pkg/logger"
)

// MemoryCache is a process-local LRU bounded by item count. Entries outlive their expiration
// until they are evicted.
type MemoryCache struct {
	cache  *ccache.Cache[*CacheItem]
	logger logger.Logger
}

func NewMemoryCache(maxItems int64, l logger.Logger) *MemoryCache {
	if maxItems <= 0 {
		maxItems = 10000
	}
	itemsToPrune := uint32(max(maxItems/10, 1))

	l.Info("memory cache initialized", "maxItems", maxItems)

	return &MemoryCache{
		cache:  ccache.New(ccache.Configure[*CacheItem]().MaxSize(maxItems).ItemsToPrune(itemsToPrune)),
		logger: l,
	}
}

var _ TileCache = (*MemoryCache)(nil)

func (c *MemoryCache) Get(_ context.Context, k TileCacheKey) (*CacheItem, bool, error) {
	item := c.cache.Get(k.String())
	if item == nil {
		return nil, false, nil
	}
	return item.Value(), true, nil
}

func (c *MemoryCache) Set(_ context.Context, k TileCacheKey, data []byte, expiration time.Time) error {
	c.logger.Debug("memory cache set", "key", k, "expiration", expiration)

	ttl := max(time.Until(expiration), 0)
	c.cache.Set(k.String(), &CacheItem{Data: data, Expiration: expiration}, ttl)
	return nil
}

func (c *MemoryCache) ItemCount() int {
	return c.cache.ItemCount()
}

func (c *MemoryCache) Close() error {
	c.cache.Stop()
	return nil
}
