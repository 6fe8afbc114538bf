package cache

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/jaennil/guide_helper/backend/mapcore/pkg/logger"
)

//go:embed migrations/*.sql
var migrations embed.FS

type SQLiteCache struct {
	db     *sql.DB
	logger logger.Logger
}

func NewSQLiteCache(path string, l logger.Logger) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}

	err = db.Ping()
	if err != nil {
		db.Close()
		return nil, err
	}

	c := &SQLiteCache{
		db:     db,
		logger: l,
	}

	err = c.runMigrations()
	if err != nil {
		db.Close()
		return nil, err
	}

	l.Info("sqlite cache initialized", "path", path)

	return c, nil
}

func (c *SQLiteCache) runMigrations() error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())

	err := goose.SetDialect("sqlite3")
	if err != nil {
		return err
	}

	err = goose.Up(c.db, "migrations")
	if err != nil {
		return err
	}

	return nil
}

var _ TileCache = (*SQLiteCache)(nil)

func (c *SQLiteCache) Get(ctx context.Context, k TileCacheKey) (*CacheItem, bool, error) {
	c.logger.Debug("sqlite cache get", "key", k)

	query := `SELECT tile_data, expires_at
	FROM tile_cache
	WHERE layer = ? AND z = ? AND x = ? AND y = ?`

	var (
		tileData  []byte
		expiresAt int64
	)
	err := c.db.QueryRowContext(ctx, query, k.Layer, k.Z, k.X, k.Y).Scan(&tileData, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		c.logger.Error("sqlite cache get failed", "key", k, "error", err)
		return nil, false, err
	}

	return &CacheItem{Data: tileData, Expiration: time.Unix(0, expiresAt).UTC()}, true, nil
}

func (c *SQLiteCache) Set(ctx context.Context, k TileCacheKey, data []byte, expiration time.Time) error {
	c.logger.Debug("sqlite cache set", "key", k, "expiration", expiration)

	query := `INSERT INTO tile_cache (layer, z, x, y, tile_data, expires_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(layer, z, x, y) DO UPDATE SET tile_data = excluded.tile_data, expires_at = excluded.expires_at`

	if data == nil {
		data = []byte{}
	}

	_, err := c.db.ExecContext(ctx, query, k.Layer, k.Z, k.X, k.Y, data, expiration.UnixNano())
	if err != nil {
		c.logger.Error("sqlite cache set failed", "key", k, "error", err)
		return err
	}

	return nil
}

// DeleteExpired removes entries that expired before the given time and returns their count.
func (c *SQLiteCache) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM tile_cache WHERE expires_at < ?`, before.UnixNano())
	if err != nil {
		c.logger.Error("sqlite cache cleanup failed", "error", err)
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	c.logger.Info("sqlite cache cleanup", "deleted", n)
	return n, nil
}

func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
