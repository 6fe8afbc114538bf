package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaennil/guide_helper/backend/mapcore/internal/infrastructure/http/v1/dto"
	"github.com/jaennil/guide_helper/backend/mapcore/internal/infrastructure/http/v1/handler"
	"github.com/jaennil/guide_helper/backend/mapcore/internal/mapview"
	"github.com/jaennil/guide_helper/backend/mapcore/internal/projection"
	"github.com/jaennil/guide_helper/backend/mapcore/internal/pyramid"
	"github.com/jaennil/guide_helper/backend/mapcore/internal/repository/cache"
	"github.com/jaennil/guide_helper/backend/mapcore/internal/tilesource"
	"github.com/jaennil/guide_helper/backend/mapcore/pkg/logger"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type fixture struct {
	router *gin.Engine
	store  *cache.MemoryCache
	view   *mapview.Map
}

// storeReader serves tiles straight from a cache store.
type storeReader struct {
	store cache.TileCache
}

func (s storeReader) CachedTile(ctx context.Context, key cache.TileCacheKey) (*cache.CacheItem, bool, error) {
	return s.store.Get(ctx, key)
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := cache.NewMemoryCache(100, logger.NewNop())
	t.Cleanup(func() { store.Close() })

	m := mapview.New(projection.WebMercator{}, nil, mapview.DefaultOptions(), logger.NewNop())
	t.Cleanup(m.Close)

	source, err := tilesource.New("https://tile.openstreetmap.org/{z}/{x}/{y}.png")
	require.NoError(t, err)
	opts := pyramid.DefaultOptions("osm")
	opts.UpdateInterval = time.Hour
	require.NoError(t, m.AddLayer(pyramid.NewLayer(source, opts)))

	h := handler.NewHandler(validator.New(), m, storeReader{store: store})
	return fixture{
		router: NewRouter(h, logger.NewNop(), "mapcore-test", false),
		store:  store,
		view:   m,
	}
}

func (f fixture) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	w, env := f.do(t, http.MethodGet, "/api/v1/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
	assert.Equal(t, "OK", env.Message)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestUpdateView(t *testing.T) {
	f := newFixture(t)

	w, env := f.do(t, http.MethodPut, "/api/v1/view", map[string]any{
		"latitude":  52.0,
		"longitude": 13.0,
		"zoomLevel": 10,
		"width":     800,
		"height":    600,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, env.Success)

	var view dto.ViewResponse
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, projection.WebMercatorCRS, view.Projection)
	assert.InDelta(t, 52, view.Latitude, 1e-9)
	assert.Equal(t, 800.0, view.Width)
	require.Len(t, view.Layers, 1)
	require.Len(t, view.Layers[0].Matrices, 1)
	assert.Equal(t, 10, view.Layers[0].Matrices[0].ZoomLevel)
	require.NotEmpty(t, view.Layers[0].Tiles)
	assert.Equal(t, "pending", view.Layers[0].Tiles[0].State)

	w, env = f.do(t, http.MethodGet, "/api/v1/view", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var again dto.ViewResponse
	require.NoError(t, json.Unmarshal(env.Data, &again))
	assert.Equal(t, view.Generation, again.Generation)
}

func TestUpdateViewChangesProjection(t *testing.T) {
	f := newFixture(t)

	w, _ := f.do(t, http.MethodPut, "/api/v1/view", map[string]any{
		"projection": "AUTO2:42003",
		"latitude":   40.0,
		"longitude":  -75.0,
		"zoomLevel":  3,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, projection.OrthographicCRS, f.view.View().CRS)

	w, _ = f.do(t, http.MethodPut, "/api/v1/view", map[string]any{
		"projection": "EPSG:1234",
		"latitude":   40.0,
		"longitude":  -75.0,
		"zoomLevel":  3,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestUpdateViewValidation(t *testing.T) {
	f := newFixture(t)

	w, env := f.do(t, http.MethodPut, "/api/v1/view", map[string]any{
		"latitude":  95.0,
		"zoomLevel": 3,
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.False(t, env.Success)

	var fields map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &fields))
	assert.Equal(t, "lte", fields["Latitude"])
	assert.Equal(t, "required", fields["Longitude"])

	req := httptest.NewRequest(http.MethodPut, "/api/v1/view", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTile(t *testing.T) {
	f := newFixture(t)
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\x0dIHDR")
	require.NoError(t, f.store.Set(context.Background(),
		cache.TileCacheKey{Layer: "osm", Z: 2, X: 3, Y: 1}, png, time.Now().Add(time.Hour)))

	w, _ := f.do(t, http.MethodGet, "/api/v1/tile/osm/2/3/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, png, w.Body.Bytes())
	assert.NotEmpty(t, w.Header().Get("Expires"))

	w, _ = f.do(t, http.MethodGet, "/api/v1/tile/osm/2/-1/1", nil)
	assert.Equal(t, http.StatusOK, w.Code, "wrapped column")

	w, _ = f.do(t, http.MethodGet, "/api/v1/tile/osm/2/0/1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = f.do(t, http.MethodGet, "/api/v1/tile/osm/two/0/1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetrics(t *testing.T) {
	f := newFixture(t)
	w, _ := f.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
