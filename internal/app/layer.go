package app

import (
	"fmt"
	"strings"

	"github.com/jaennil/guide_helper/backend/mapcore/internal/pyramid"
	"github.com/jaennil/guide_helper/backend/mapcore/internal/tilematrixset"
	"github.com/jaennil/guide_helper/backend/mapcore/internal/tilesource"
	"github.com/jaennil/guide_helper/backend/mapcore/pkg/config"
)

// NewLayer builds the base tile layer. Without a tile matrix set the template is a web tile
// template; with one it is a WMTS RESTful template. The set is either a bundled ID such as
// WebMercatorQuad or a path to a JSON file.
func NewLayer(cfg config.Layer) (pyramid.TileLayer, error) {
	opts := pyramid.Options{
		Name:                        cfg.Name,
		MinZoomLevel:                cfg.MinZoom,
		MaxZoomLevel:                cfg.MaxZoom,
		MaxBackgroundLevels:         cfg.MaxBackgroundLevels,
		UpdateInterval:              cfg.UpdateInterval,
		UpdateWhileViewportChanging: cfg.UpdateWhileViewportChanging,
		IsBaseLayer:                 true,
	}

	if cfg.TileMatrixSet == "" {
		source, err := tilesource.New(cfg.URLTemplate)
		if err != nil {
			return nil, fmt.Errorf("layer %s: %w", cfg.Name, err)
		}
		return pyramid.NewLayer(source, opts), nil
	}

	set, err := loadTileMatrixSet(cfg.TileMatrixSet)
	if err != nil {
		return nil, fmt.Errorf("layer %s: %w", cfg.Name, err)
	}
	source, err := tilesource.NewWMTS(cfg.URLTemplate, set)
	if err != nil {
		return nil, fmt.Errorf("layer %s: %w", cfg.Name, err)
	}
	return pyramid.NewMatrixSetLayer(source, opts, set), nil
}

func loadTileMatrixSet(ref string) (*tilematrixset.TileMatrixSet, error) {
	if strings.HasSuffix(strings.ToLower(ref), ".json") {
		return tilematrixset.Load(ref)
	}
	return tilematrixset.LoadEmbedded(ref)
}
