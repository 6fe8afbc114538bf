// Package cache stores encoded tile payloads together with their expiration time.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrUnknownType = errors.New("unknown cache type")

// TileCacheKey identifies a tile of a layer. X is the wrapped column, so tiles repeated across the
// dateline share one entry.
type TileCacheKey struct {
	Layer string
	Z     int
	X     int
	Y     int
}

func (k TileCacheKey) String() string {
	return fmt.Sprintf("%s/%d/%d/%d", k.Layer, k.Z, k.X, k.Y)
}

type CacheItem struct {
	Data       []byte
	Expiration time.Time
}

// Expired reports whether the item is past its expiration at now.
func (i *CacheItem) Expired(now time.Time) bool {
	return !i.Expiration.After(now)
}

// TileCache is a persistent tile store. Get returns expired items as well; callers decide
// whether to use them.
type TileCache interface {
	Get(ctx context.Context, k TileCacheKey) (*CacheItem, bool, error)
	Set(ctx context.Context, k TileCacheKey, data []byte, expiration time.Time) error
}
