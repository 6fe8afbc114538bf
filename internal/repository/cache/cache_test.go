package cache

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaennil/guide_helper/backend/mapcore/pkg/config"
	"github.com/jaennil/guide_helper/backend/mapcore/pkg/logger"
)

func TestKeyString(t *testing.T) {
	assert.Equal(t, "osm/10/550/335", TileCacheKey{Layer: "osm", Z: 10, X: 550, Y: 335}.String())
}

func TestEncodeEntryLayout(t *testing.T) {
	exp := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	buf := EncodeEntry([]byte{1, 2, 3}, exp)

	require.Len(t, buf, 3+8+8)
	assert.Equal(t, []byte{1, 2, 3}, buf[:3])
	assert.Equal(t, "EXPIRES:", string(buf[3:11]))

	ticks := int64(binary.LittleEndian.Uint64(buf[11:]))
	assert.Equal(t, exp.Unix()*10000000+ticksAtUnixEpoch, ticks)
}

func TestDecodeEntry(t *testing.T) {
	exp := time.Date(2031, 7, 4, 8, 30, 15, 123456700, time.UTC)

	item, err := DecodeEntry(EncodeEntry([]byte("tile"), exp))
	require.NoError(t, err)
	assert.Equal(t, []byte("tile"), item.Data)
	assert.True(t, exp.Equal(item.Expiration))

	item, err = DecodeEntry(EncodeEntry(nil, exp))
	require.NoError(t, err)
	assert.Empty(t, item.Data)
	assert.True(t, exp.Equal(item.Expiration))

	_, err = DecodeEntry(nil)
	assert.Error(t, err)
}

func TestDecodeEntryMasksKindBits(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	buf := EncodeEntry([]byte{9}, exp)
	ticks := binary.LittleEndian.Uint64(buf[len(buf)-8:])
	binary.LittleEndian.PutUint64(buf[len(buf)-8:], ticks|0x4000000000000000)

	item, err := DecodeEntry(buf)
	require.NoError(t, err)
	assert.True(t, exp.Equal(item.Expiration))
}

func TestDecodeEntryWithoutTrailer(t *testing.T) {
	item, err := DecodeEntry([]byte("legacy png bytes"))
	require.NoError(t, err)
	assert.Equal(t, []byte("legacy png bytes"), item.Data)
	assert.True(t, item.Expired(time.Now()))
}

func TestCacheItemExpired(t *testing.T) {
	now := time.Now()
	assert.True(t, (&CacheItem{Expiration: now}).Expired(now))
	assert.True(t, (&CacheItem{Expiration: now.Add(-time.Second)}).Expired(now))
	assert.False(t, (&CacheItem{Expiration: now.Add(time.Second)}).Expired(now))
}

// testStore runs the behavior every TileCache backend shares.
func testStore(t *testing.T, c TileCache) {
	t.Helper()
	ctx := context.Background()
	key := TileCacheKey{Layer: "osm", Z: 3, X: 5, Y: 3}
	exp := time.Now().Add(time.Hour).Truncate(time.Millisecond)

	_, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, key, []byte("first"), exp))
	item, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("first"), item.Data)
	assert.WithinDuration(t, exp, item.Expiration, time.Millisecond)

	require.NoError(t, c.Set(ctx, key, []byte("second"), exp.Add(time.Hour)))
	item, ok, err = c.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("second"), item.Data)

	other := TileCacheKey{Layer: "satellite", Z: 3, X: 5, Y: 3}
	_, ok, err = c.Get(ctx, other)
	require.NoError(t, err)
	assert.False(t, ok, "layers must not share entries")

	expired := TileCacheKey{Layer: "osm", Z: 1, X: 0, Y: 0}
	require.NoError(t, c.Set(ctx, expired, []byte("old"), time.Now().Add(-time.Minute)))
	item, ok, err = c.Get(ctx, expired)
	require.NoError(t, err)
	require.True(t, ok, "expired entries are still returned")
	assert.True(t, item.Expired(time.Now()))

	empty := TileCacheKey{Layer: "osm", Z: 2, X: 1, Y: 1}
	require.NoError(t, c.Set(ctx, empty, nil, exp))
	item, ok, err = c.Get(ctx, empty)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, item.Data)
}

func TestFilesystemCache(t *testing.T) {
	dir := t.TempDir()
	c, err := NewFilesystemCache(dir, logger.NewNop())
	require.NoError(t, err)

	testStore(t, c)

	_, err = os.Stat(filepath.Join(dir, "osm", "3", "5", "3"))
	assert.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(dir, "osm", "3", "5"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestFilesystemCacheSanitizesLayer(t *testing.T) {
	assert.Equal(t, "osm", sanitizeLayer("osm"))
	assert.Equal(t, "_", sanitizeLayer(".."))
	assert.Equal(t, "a_b_c", sanitizeLayer("a/b\\c"))
	assert.Equal(t, "_", sanitizeLayer(""))
}

func TestSQLiteCache(t *testing.T) {
	c, err := NewSQLiteCache(filepath.Join(t.TempDir(), "tiles.db"), logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	testStore(t, c)

	n, err := c.DeleteExpired(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, ok, err := c.Get(context.Background(), TileCacheKey{Layer: "osm", Z: 1, X: 0, Y: 0})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteCacheReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiles.db")
	key := TileCacheKey{Layer: "osm", Z: 4, X: 2, Y: 7}
	exp := time.Now().Add(time.Hour)

	c, err := NewSQLiteCache(path, logger.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.Set(context.Background(), key, []byte("kept"), exp))
	require.NoError(t, c.Close())

	c, err = NewSQLiteCache(path, logger.NewNop())
	require.NoError(t, err)
	defer c.Close()

	item, ok, err := c.Get(context.Background(), key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("kept"), item.Data)
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(100, logger.NewNop())
	t.Cleanup(func() { c.Close() })

	testStore(t, c)
}

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	c, err := NewRedisCache(RedisConfig{Addr: addr, DB: 15}, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		c.client.FlushDB(context.Background())
		c.Close()
	})

	testStore(t, c)
}

func TestRedisTTL(t *testing.T) {
	c := &RedisCache{retention: 24 * time.Hour}
	now := time.Now()

	assert.Equal(t, 25*time.Hour, c.ttl(now.Add(time.Hour), now))
	assert.Equal(t, 24*time.Hour, c.ttl(now.Add(-time.Hour), now))
}

func TestNewCache(t *testing.T) {
	cfg := &config.Config{}
	cfg.Cache.Dir = t.TempDir()
	cfg.Cache.SQLitePath = filepath.Join(t.TempDir(), "tiles.db")
	cfg.Cache.MemoryMaxItems = 10

	for typ, want := range map[string]any{
		"file":   &FilesystemCache{},
		"sqlite": &SQLiteCache{},
		"memory": &MemoryCache{},
	} {
		cfg.Cache.Type = typ
		c, closer, err := NewCache(cfg, logger.NewNop())
		require.NoError(t, err, typ)
		assert.IsType(t, want, c, typ)
		assert.NoError(t, closer.Close())
	}

	cfg.Cache.Type = "none"
	c, closer, err := NewCache(cfg, logger.NewNop())
	require.NoError(t, err)
	assert.Nil(t, c)
	assert.NoError(t, closer.Close())

	cfg.Cache.Type = "s3"
	_, _, err = NewCache(cfg, logger.NewNop())
	assert.ErrorIs(t, err, ErrUnknownType)
}
