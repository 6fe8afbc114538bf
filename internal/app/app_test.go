package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaennil/guide_helper/backend/mapcore/internal/projection"
	"github.com/jaennil/guide_helper/backend/mapcore/internal/pyramid"
	"github.com/jaennil/guide_helper/backend/mapcore/internal/repository/cache"
	"github.com/jaennil/guide_helper/backend/mapcore/internal/tilesource"
	"github.com/jaennil/guide_helper/backend/mapcore/pkg/config"
	"github.com/jaennil/guide_helper/backend/mapcore/pkg/logger"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	chdir(t, t.TempDir())
	cfg, err := config.New()
	require.NoError(t, err)
	return cfg
}

func TestNewLayer(t *testing.T) {
	cfg := testConfig(t)

	layer, err := NewLayer(cfg.Layer)
	require.NoError(t, err)
	require.IsType(t, &pyramid.Layer{}, layer)
	assert.Equal(t, "osm", layer.Name())
	assert.True(t, layer.Options().IsBaseLayer)
	assert.Equal(t, tilesource.XYZ, layer.Source().(*tilesource.TemplateSource).Scheme())

	cfg.Layer.TileMatrixSet = "WebMercatorQuad"
	cfg.Layer.URLTemplate = "https://example.com/wmts/{TileMatrixSet}/{TileMatrix}/{TileCol}/{TileRow}.png"
	layer, err = NewLayer(cfg.Layer)
	require.NoError(t, err)
	assert.IsType(t, &pyramid.MatrixSetLayer{}, layer)

	cfg.Layer.TileMatrixSet = "NoSuchSet"
	_, err = NewLayer(cfg.Layer)
	assert.Error(t, err)

	cfg.Layer.TileMatrixSet = ""
	cfg.Layer.URLTemplate = "https://example.com/tiles.png"
	_, err = NewLayer(cfg.Layer)
	assert.ErrorIs(t, err, tilesource.ErrUnsupportedTemplate)
}

func TestNewMap(t *testing.T) {
	cfg := testConfig(t)
	cfg.Map.CenterLatitude = 52
	cfg.Map.CenterLongitude = 373
	cfg.Map.ZoomLevel = 25

	m, err := NewMap(cfg, nil, logger.NewNop())
	require.NoError(t, err)
	defer m.Close()

	view := m.View()
	assert.Equal(t, projection.WebMercatorCRS, view.CRS)
	assert.InDelta(t, 13, view.Center.Longitude, 1e-9)
	assert.Equal(t, cfg.Map.MaxZoom, view.ZoomLevel)

	states := m.LayerStates()
	require.Len(t, states, 1)
	assert.NotEmpty(t, states[0].Placements)

	cfg.Map.Projection = "EPSG:1234"
	_, err = NewMap(cfg, nil, logger.NewNop())
	assert.ErrorIs(t, err, projection.ErrUnknownCRS)
}

func TestPurgeExpired(t *testing.T) {
	store, err := cache.NewSQLiteCache(filepath.Join(t.TempDir(), "tiles.db"), logger.NewNop())
	require.NoError(t, err)
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	expired := cache.TileCacheKey{Layer: "osm", Z: 1, X: 0, Y: 0}
	fresh := cache.TileCacheKey{Layer: "osm", Z: 1, X: 1, Y: 0}
	require.NoError(t, store.Set(ctx, expired, []byte("old"), time.Now().Add(-2*time.Hour)))
	require.NoError(t, store.Set(ctx, fresh, []byte("new"), time.Now().Add(time.Hour)))

	go purgeExpired(ctx, store, 10*time.Millisecond, time.Hour, logger.NewNop())

	require.Eventually(t, func() bool {
		_, ok, err := store.Get(ctx, expired)
		return err == nil && !ok
	}, 2*time.Second, 10*time.Millisecond)

	_, ok, err := store.Get(ctx, fresh)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRunStopsOnCancel(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	defer upstream.Close()

	cfg := testConfig(t)
	cfg.HTTP.Server.Port = "0"
	cfg.Cache.Type = "memory"
	cfg.Logger.Level = "error"
	cfg.Layer.URLTemplate = upstream.URL + "/{z}/{x}/{y}.png"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunFailsOnUnknownCache(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.Type = "tape"
	cfg.Logger.Level = "error"

	err := Run(context.Background(), cfg)
	assert.ErrorIs(t, err, cache.ErrUnknownType)
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
