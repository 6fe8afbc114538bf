package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jaennil/guide_helper/backend/mapcore/pkg/logger"
)

// FilesystemCache keeps one file per tile under <dir>/<layer>/<z>/<x>/<y>.
type FilesystemCache struct {
	dir    string
	logger logger.Logger
}

func NewFilesystemCache(dir string, l logger.Logger) (*FilesystemCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	l.Info("filesystem cache initialized", "dir", dir)

	return &FilesystemCache{
		dir:    dir,
		logger: l,
	}, nil
}

var _ TileCache = (*FilesystemCache)(nil)

func (c *FilesystemCache) path(k TileCacheKey) string {
	return filepath.Join(c.dir, sanitizeLayer(k.Layer), strconv.Itoa(k.Z), strconv.Itoa(k.X), strconv.Itoa(k.Y))
}

func (c *FilesystemCache) Get(_ context.Context, k TileCacheKey) (*CacheItem, bool, error) {
	path := c.path(k)
	c.logger.Debug("filesystem cache get", "key", k, "path", path)

	buf, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		c.logger.Error("filesystem cache get failed", "key", k, "error", err)
		return nil, false, err
	}

	item, err := DecodeEntry(buf)
	if err != nil {
		c.logger.Warn("corrupt cache file", "key", k, "path", path, "error", err)
		return nil, false, nil
	}

	return item, true, nil
}

func (c *FilesystemCache) Set(_ context.Context, k TileCacheKey, data []byte, expiration time.Time) error {
	path := c.path(k)
	c.logger.Debug("filesystem cache set", "key", k, "path", path, "expiration", expiration)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		c.logger.Error("filesystem cache set failed", "key", k, "error", err)
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tile-*")
	if err != nil {
		c.logger.Error("filesystem cache set failed", "key", k, "error", err)
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(EncodeEntry(data, expiration)); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		c.logger.Error("filesystem cache set failed", "key", k, "error", err)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		c.logger.Error("filesystem cache set failed", "key", k, "error", err)
		return err
	}

	return nil
}

// sanitizeLayer maps a layer name to a single path element.
func sanitizeLayer(name string) string {
	if name == "" || name == "." || name == ".." {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, name)
}
