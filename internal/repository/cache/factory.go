package cache

import (
	"fmt"
	"io"
	"strings"

	"github.com/jaennil/guide_helper/backend/mapcore/pkg/config"
	"github.com/jaennil/guide_helper/backend/mapcore/pkg/logger"
)

// NewCache builds the store selected by cfg.Cache.Type. The type "none" returns a nil store and
// a no-op closer.
func NewCache(cfg *config.Config, l logger.Logger) (TileCache, io.Closer, error) {
	switch strings.ToLower(cfg.Cache.Type) {
	case "file", "filesystem":
		c, err := NewFilesystemCache(cfg.Cache.Dir, l)
		if err != nil {
			return nil, nil, err
		}
		return c, io.NopCloser(nil), nil
	case "sqlite":
		c, err := NewSQLiteCache(cfg.Cache.SQLitePath, l)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite cache: %w", err)
		}
		return c, c, nil
	case "redis":
		c, err := NewRedisCache(RedisConfig{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			Retention: cfg.Redis.Retention,
		}, l)
		if err != nil {
			return nil, nil, err
		}
		return c, c, nil
	case "memory":
		c := NewMemoryCache(cfg.Cache.MemoryMaxItems, l)
		return c, c, nil
	case "none", "":
		l.Info("tile cache disabled")
		return nil, io.NopCloser(nil), nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownType, cfg.Cache.Type)
	}
}
