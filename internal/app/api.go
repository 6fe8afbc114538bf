package app

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jaennil/guide_helper/backend/mapcore/internal/geo"
	v1 "github.com/jaennil/guide_helper/backend/mapcore/internal/infrastructure/http/v1"
	"github.com/jaennil/guide_helper/backend/mapcore/internal/infrastructure/http/v1/handler"
	"github.com/jaennil/guide_helper/backend/mapcore/internal/mapview"
	"github.com/jaennil/guide_helper/backend/mapcore/internal/projection"
	"github.com/jaennil/guide_helper/backend/mapcore/internal/repository/cache"
	"github.com/jaennil/guide_helper/backend/mapcore/internal/tiles"
	"github.com/jaennil/guide_helper/backend/mapcore/internal/usecase"
	"github.com/jaennil/guide_helper/backend/mapcore/pkg/config"
	"github.com/jaennil/guide_helper/backend/mapcore/pkg/http_server"
	"github.com/jaennil/guide_helper/backend/mapcore/pkg/logger"
	"github.com/jaennil/guide_helper/backend/mapcore/pkg/telemetry"
)

// Run serves the map view until ctx is canceled, then shuts everything down.
func Run(ctx context.Context, cfg *config.Config) error {
	zl := logger.NewZapLogger(cfg.Logger.Level)
	defer zl.Sync() //nolint:errcheck
	var l logger.Logger = zl

	l.Info("app config", "cfg", cfg)

	ctx = logger.WithLogger(ctx, l)

	if cfg.Telemetry.Enabled {
		shutdownTelemetry, err := telemetry.InitTracer(telemetry.Config{
			ServiceName:    cfg.Telemetry.ServiceName,
			ServiceVersion: cfg.Telemetry.ServiceVersion,
			Environment:    cfg.Telemetry.Environment,
			OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
			Insecure:       cfg.Telemetry.Insecure,
		}, l)
		if err != nil {
			return fmt.Errorf("failed to initialize telemetry: %w", err)
		}
		defer func() {
			if err := shutdownTelemetry(context.Background()); err != nil {
				l.Error("failed to shutdown telemetry", "error", err)
			}
		}()
		l.Info("telemetry initialized", "service", cfg.Telemetry.ServiceName)
	}

	store, closer, err := cache.NewCache(cfg, l)
	if err != nil {
		return fmt.Errorf("failed to initialize tile cache: %w", err)
	}
	defer func() {
		if err := closer.Close(); err != nil {
			l.Error("failed to close tile cache", "error", err)
		}
	}()

	if sq, ok := store.(*cache.SQLiteCache); ok && cfg.Cache.CleanupInterval > 0 {
		go purgeExpired(ctx, sq, cfg.Cache.CleanupInterval, cfg.Cache.Retention, l)
	}

	loader := usecase.NewTileLoader(usecase.TileLoaderConfig{
		MaxWorkers:             cfg.Loader.MaxWorkers,
		MinCacheExpiration:     cfg.Loader.MinCacheExpiration,
		DefaultCacheExpiration: cfg.Loader.DefaultCacheExpiration,
		StalePlaceholder:       cfg.Loader.StalePlaceholder,
	}, store, usecase.NewHTTPFetcher(cfg.Loader.HTTPTimeout, cfg.Loader.UserAgent, l), usecase.ImageDecoder{}, l)
	defer loader.Close()

	loader.OnTileChanged(func(layer string, t *tiles.Tile) {
		l.Debug("tile changed", "layer", layer, "tile", t.String(), "state", t.State().String())
	})

	m, err := NewMap(cfg, loader, l)
	if err != nil {
		return err
	}
	defer m.Close()

	h := handler.NewHandler(validator.New(), m, loader)
	router := v1.NewRouter(h, l, cfg.Telemetry.ServiceName, cfg.Telemetry.Enabled)

	httpServer := http_server.NewServer(ctx, cfg.HTTP.Server, router)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- http_server.ListenAndServe(httpServer)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		l.Info("received shutdown signal")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	l.Info("shutting down http server...", "address", httpServer.Addr)
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		l.Error("http server shutdown failed", "error", err)
	} else {
		l.Info("http server shutdown completed")
	}

	l.Info("application shutdown completed")
	return nil
}

// NewMap creates the map view described by cfg.Map with the configured base layer. loader may be
// nil to compute tile sets without fetching them.
func NewMap(cfg *config.Config, loader mapview.TileSetLoader, l logger.Logger) (*mapview.Map, error) {
	p, err := projection.New(cfg.Map.Projection)
	if err != nil {
		return nil, err
	}

	m := mapview.New(p, loader, mapview.Options{
		MinZoomLevel: cfg.Map.MinZoom,
		MaxZoomLevel: cfg.Map.MaxZoom,
	}, l)
	m.SetSize(cfg.Map.Width, cfg.Map.Height)
	m.SetView(geo.Location{
		Latitude:  cfg.Map.CenterLatitude,
		Longitude: cfg.Map.CenterLongitude,
	}, cfg.Map.ZoomLevel, cfg.Map.Heading)

	layer, err := NewLayer(cfg.Layer)
	if err != nil {
		m.Close()
		return nil, err
	}
	if err := m.AddLayer(layer); err != nil {
		m.Close()
		return nil, err
	}
	return m, nil
}

// purgeExpired drops sqlite entries that expired more than retention ago.
func purgeExpired(ctx context.Context, store *cache.SQLiteCache, interval, retention time.Duration, l logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := store.DeleteExpired(ctx, now.Add(-retention))
			if err != nil {
				l.Error("failed to purge expired tiles", "error", err)
				continue
			}
			if n > 0 {
				l.Info("purged expired tiles", "count", n)
			}
		}
	}
}
