package usecase

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/pquerna/cachecontrol/cacheobject"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/jaennil/guide_helper/backend/mapcore/internal/repository/cache"
	"github.com/jaennil/guide_helper/backend/mapcore/internal/tiles"
	"github.com/jaennil/guide_helper/backend/mapcore/internal/tilesource"
	"github.com/jaennil/guide_helper/backend/mapcore/pkg/logger"
	"github.com/jaennil/guide_helper/backend/mapcore/pkg/metrics"
	"github.com/jaennil/guide_helper/backend/mapcore/pkg/telemetry"
)

type TileLoaderConfig struct {
	MaxWorkers             int64
	MinCacheExpiration     time.Duration
	DefaultCacheExpiration time.Duration
	// StalePlaceholder shows an expired cached image while the tile is fetched again.
	StalePlaceholder bool
}

func DefaultTileLoaderConfig() TileLoaderConfig {
	return TileLoaderConfig{
		MaxWorkers:             4,
		MinCacheExpiration:     time.Hour,
		DefaultCacheExpiration: 24 * time.Hour,
	}
}

// fetchHandle is the in-flight fetch of one tile. A completion only applies while its handle is
// still the one registered for the tile.
type fetchHandle struct {
	cancel context.CancelFunc
}

// TileLoader resolves the images of pending tiles from a tile cache or the network.
type TileLoader struct {
	cfg     TileLoaderConfig
	cache   cache.TileCache
	fetcher Fetcher
	decoder Decoder
	logger  logger.Logger
	now     func() time.Time

	sem   *semaphore.Weighted
	group singleflight.Group

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	fetches  map[string]map[*tiles.Tile]*fetchHandle
	onChange func(layer string, t *tiles.Tile)
	wg       sync.WaitGroup
}

// NewTileLoader creates a loader. store may be nil to disable caching; a nil fetcher or decoder
// falls back to plain HTTP GET and the standard image decoders.
func NewTileLoader(cfg TileLoaderConfig, store cache.TileCache, fetcher Fetcher, decoder Decoder, l logger.Logger) *TileLoader {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 4
	}
	if fetcher == nil {
		fetcher = NewHTTPFetcher(30*time.Second, "", l)
	}
	if decoder == nil {
		decoder = ImageDecoder{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &TileLoader{
		cfg:     cfg,
		cache:   store,
		fetcher: fetcher,
		decoder: decoder,
		logger:  l,
		now:     time.Now,
		sem:     semaphore.NewWeighted(cfg.MaxWorkers),
		ctx:     ctx,
		cancel:  cancel,
		fetches: make(map[string]map[*tiles.Tile]*fetchHandle),
	}
}

// OnTileChanged registers a callback invoked after a tile of a layer got its image or failed.
func (l *TileLoader) OnTileChanged(fn func(layer string, t *tiles.Tile)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = fn
}

// LoadTiles submits the current tile set of a layer. Fetches of tiles that are no longer in the
// set are canceled before fetches for pending tiles without one are started.
func (l *TileLoader) LoadTiles(layer string, source tilesource.Source, ts []*tiles.Tile) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ctx.Err() != nil {
		return
	}

	current := l.fetches[layer]
	if current == nil {
		current = make(map[*tiles.Tile]*fetchHandle)
		l.fetches[layer] = current
	}

	keep := make(map[*tiles.Tile]struct{}, len(ts))
	for _, t := range ts {
		keep[t] = struct{}{}
	}
	for t, h := range current {
		if _, ok := keep[t]; !ok {
			h.cancel()
			delete(current, t)
			metrics.FetchCanceled.WithLabelValues(layer).Inc()
			l.logger.Debug("canceled tile fetch", "layer", layer, "tile", t)
		}
	}

	for _, t := range ts {
		if !t.IsPending() {
			continue
		}
		if _, ok := current[t]; ok {
			continue
		}
		ctx, cancel := context.WithCancel(l.ctx)
		h := &fetchHandle{cancel: cancel}
		current[t] = h

		l.wg.Add(1)
		go l.load(ctx, h, layer, source, t)
	}
}

// CancelLayer cancels all fetches of a layer, e.g. when the layer is removed.
func (l *TileLoader) CancelLayer(layer string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, h := range l.fetches[layer] {
		h.cancel()
	}
	delete(l.fetches, layer)
}

// InFlight returns the number of fetches registered for a layer.
func (l *TileLoader) InFlight(layer string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.fetches[layer])
}

// Close cancels all fetches. It does not wait for them.
func (l *TileLoader) Close() {
	l.cancel()
}

// Wait blocks until all started fetch goroutines returned.
func (l *TileLoader) Wait() {
	l.wg.Wait()
}

// CachedTile returns the cached payload of a tile regardless of its expiration.
func (l *TileLoader) CachedTile(ctx context.Context, key cache.TileCacheKey) (*cache.CacheItem, bool, error) {
	if l.cache == nil {
		return nil, false, nil
	}
	return l.cache.Get(ctx, key)
}

func (l *TileLoader) load(ctx context.Context, h *fetchHandle, layer string, source tilesource.Source, t *tiles.Tile) {
	defer l.wg.Done()
	defer h.cancel()

	if err := l.sem.Acquire(ctx, 1); err != nil {
		l.complete(ctx, h, layer, t, nil, err)
		return
	}
	defer l.sem.Release(1)

	metrics.FetchesInFlight.Inc()
	defer metrics.FetchesInFlight.Dec()
	metrics.TileRequests.WithLabelValues(layer).Inc()

	ctx, span := telemetry.Tracer().Start(ctx, "tile.load")
	span.SetAttributes(telemetry.TileAttributes(layer, t.ZoomLevel, t.Column, t.Y)...)
	defer span.End()

	img, err := l.loadImage(ctx, h, layer, source, t)
	if err != nil && !errors.Is(err, context.Canceled) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	l.complete(ctx, h, layer, t, img, err)
}

// complete publishes the result of a fetch unless the fetch was superseded or canceled.
func (l *TileLoader) complete(ctx context.Context, h *fetchHandle, layer string, t *tiles.Tile, img image.Image, err error) {
	l.mu.Lock()
	if l.fetches[layer][t] != h {
		l.mu.Unlock()
		l.logger.Debug("discarding superseded tile fetch", "layer", layer, "tile", t)
		return
	}
	delete(l.fetches[layer], t)

	if ctx.Err() != nil {
		l.mu.Unlock()
		return
	}

	if err != nil {
		metrics.FetchFailures.WithLabelValues(layer).Inc()
		l.logger.Warn("failed to load tile", "layer", layer, "tile", t, "error", err)
		t.SetFailed()
	} else {
		t.SetImage(img)
	}
	onChange := l.onChange
	l.mu.Unlock()

	if onChange != nil {
		onChange(layer, t)
	}
}

// publishStale shows an expired image while the fetch of t is still authoritative.
func (l *TileLoader) publishStale(h *fetchHandle, layer string, t *tiles.Tile, img image.Image) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fetches[layer][t] == h {
		t.SetStale(img)
	}
}

func (l *TileLoader) loadImage(ctx context.Context, h *fetchHandle, layer string, source tilesource.Source, t *tiles.Tile) (image.Image, error) {
	uri, ok := source.URL(t.Column, t.Y, t.ZoomLevel)
	if !ok {
		l.logger.Debug("no tile address", "layer", layer, "tile", t)
		return nil, nil
	}

	if tilesource.IsLocal(uri) {
		data, err := os.ReadFile(tilesource.LocalPath(uri))
		if err != nil {
			return nil, fmt.Errorf("failed to read tile file %s: %w", uri, err)
		}
		return l.decode(data)
	}

	if l.cache == nil {
		resp, err := l.fetch(ctx, layer, uri)
		if err != nil {
			return nil, err
		}
		return l.decode(resp.Data)
	}

	key := cache.TileCacheKey{Layer: layer, Z: t.ZoomLevel, X: t.Column, Y: t.Y}

	item, ok, err := l.cache.Get(ctx, key)
	if err != nil {
		l.logger.Warn("cache lookup failed", "key", key, "error", err)
		ok = false
	}
	if ok && !item.Expired(l.now()) {
		metrics.CacheHits.WithLabelValues(layer).Inc()
		l.logger.Debug("cache hit", "key", key)
		return l.decode(item.Data)
	}
	metrics.CacheMisses.WithLabelValues(layer).Inc()

	if ok && l.cfg.StalePlaceholder && len(item.Data) > 0 {
		if img, err := l.decoder.Decode(item.Data); err == nil {
			l.publishStale(h, layer, t, img)
		}
	}

	// equivalent tiles on both sides of the dateline share one request
	ch := l.group.DoChan(key.String(), func() (any, error) {
		return l.fetchAndStore(l.ctx, layer, key, uri)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		img, _ := res.Val.(image.Image)
		return img, nil
	}
}

// fetchAndStore downloads a tile, decodes it and writes it back to the cache. An empty payload
// is cached as well and yields a nil image.
func (l *TileLoader) fetchAndStore(ctx context.Context, layer string, key cache.TileCacheKey, uri string) (any, error) {
	resp, err := l.fetch(ctx, layer, uri)
	if err != nil {
		return nil, err
	}

	var img image.Image
	if len(resp.Data) > 0 {
		img, err = l.decoder.Decode(resp.Data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", uri, err)
		}
	}

	now := l.now()
	expiration := now.Add(l.expiration(resp.Header, now))
	if err := l.cache.Set(ctx, key, resp.Data, expiration); err != nil {
		l.logger.Warn("failed to store tile in cache", "key", key, "error", err)
	} else {
		metrics.CacheStores.WithLabelValues(layer).Inc()
		l.logger.Debug("caching tile", "key", key, "expiration", expiration)
	}

	if img == nil {
		return nil, nil
	}
	return img, nil
}

func (l *TileLoader) fetch(ctx context.Context, layer, uri string) (*FetchResponse, error) {
	metrics.UpstreamRequests.WithLabelValues(layer).Inc()
	start := time.Now()

	resp, err := l.fetcher.Fetch(ctx, uri)
	metrics.UpstreamLatency.WithLabelValues(layer).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", uri, err)
	}
	return resp, nil
}

func (l *TileLoader) decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, nil
	}
	return l.decoder.Decode(data)
}

// expiration returns how long a fetched tile stays fresh: the max-age directive, else the
// Expires header, else the default; never less than the minimum.
func (l *TileLoader) expiration(header http.Header, now time.Time) time.Duration {
	ttl := l.cfg.DefaultCacheExpiration
	hinted := false

	if cc := header.Get("Cache-Control"); cc != "" {
		directives, err := cacheobject.ParseResponseCacheControl(cc)
		if err == nil && directives.MaxAge >= 0 {
			ttl = time.Duration(directives.MaxAge) * time.Second
			hinted = true
		}
	}
	if !hinted {
		if expires := header.Get("Expires"); expires != "" {
			if t, err := http.ParseTime(expires); err == nil {
				ttl = t.Sub(now)
			}
		}
	}

	return max(ttl, l.cfg.MinCacheExpiration)
}
