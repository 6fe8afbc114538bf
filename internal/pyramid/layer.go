// Package pyramid selects the tile matrices and tiles needed to cover a viewport.
//
// A layer keeps its current tile matrix and tile list between updates. Tiles that stay visible
// keep their identity, and with it their loaded image and pending state.
package pyramid

import (
	"math"
	"time"

	"github.com/go-spatial/geom"

	"github.com/jaennil/guide_helper/backend/mapcore/internal/geo"
	"github.com/jaennil/guide_helper/backend/mapcore/internal/projection"
	"github.com/jaennil/guide_helper/backend/mapcore/internal/tiles"
	"github.com/jaennil/guide_helper/backend/mapcore/internal/tilesource"
	"github.com/jaennil/guide_helper/backend/mapcore/internal/transform"
)

// zoomLevelEpsilon keeps a zoom level of 9.9999999 from selecting the tile matrix below.
const zoomLevelEpsilon = 0.001

// MapTopLeft is the planar origin of the standard web tile grid.
var MapTopLeft = geom.Point{-180 * geo.MetersPerDegree, 180 * geo.MetersPerDegree}

// Viewport is the state a layer update is computed from.
type Viewport struct {
	Transform  *transform.ViewTransform
	Projection projection.Projection
	Width      float64
	Height     float64
}

// Placement positions one tile. Rect is in layer pixels, relative to the origin of the render
// transform; ViewBounds is the axis-aligned view rectangle covered by the tile.
type Placement struct {
	Tile       *tiles.Tile
	Rect       geom.Extent
	ViewBounds geom.Extent
}

// TileLayer is implemented by the standard web tile layer and by the tile matrix set layer.
type TileLayer interface {
	Name() string
	Source() tilesource.Source
	Options() Options

	// Update recomputes the tile matrices for a viewport. It reports whether the tile set changed.
	Update(vp Viewport) bool
	// Reset drops all matrices and tiles.
	Reset()

	Matrices() []tiles.Matrix
	Tiles() []*tiles.Tile
	Placements(vt *transform.ViewTransform) []Placement
}

// Options configure a tile layer.
type Options struct {
	Name                        string
	MinZoomLevel                int
	MaxZoomLevel                int
	MaxBackgroundLevels         int
	UpdateInterval              time.Duration
	UpdateWhileViewportChanging bool
	// IsBaseLayer adds coarser background levels below the current zoom level.
	IsBaseLayer bool
}

func DefaultOptions(name string) Options {
	return Options{
		Name:                name,
		MinZoomLevel:        0,
		MaxZoomLevel:        19,
		MaxBackgroundLevels: 8,
		UpdateInterval:      200 * time.Millisecond,
	}
}

type tileKey struct {
	zoomLevel, x, y int
}

// tileIndex looks up the tiles of the previous update, by position and by wrapped identity.
type tileIndex struct {
	byPosition map[tileKey]*tiles.Tile
	loaded     map[tileKey]*tiles.Tile
}

func newTileIndex(ts []*tiles.Tile) tileIndex {
	idx := tileIndex{
		byPosition: make(map[tileKey]*tiles.Tile, len(ts)),
		loaded:     make(map[tileKey]*tiles.Tile),
	}
	for _, t := range ts {
		idx.byPosition[tileKey{t.ZoomLevel, t.X, t.Y}] = t
		if t.State() == tiles.Loaded {
			idx.loaded[tileKey{t.ZoomLevel, t.Column, t.Y}] = t
		}
	}
	return idx
}

// tile returns the existing tile at a position or creates a new one, taking over the image of
// an equivalent loaded tile.
func (idx tileIndex) tile(zoomLevel, x, y, columns int) *tiles.Tile {
	if t, ok := idx.byPosition[tileKey{zoomLevel, x, y}]; ok {
		return t
	}
	t := tiles.NewTile(zoomLevel, x, y, columns)
	if eq, ok := idx.loaded[tileKey{zoomLevel, t.Column, y}]; ok {
		t.SetImage(eq.Image())
	}
	return t
}

// Layer is a standard web tile layer: 256 pixel tiles in the web mercator grid, addressed by
// zoom level, column and row.
type Layer struct {
	opts   Options
	source tilesource.Source

	matrix *tiles.Matrix
	tiles  []*tiles.Tile
}

var _ TileLayer = (*Layer)(nil)

func NewLayer(source tilesource.Source, opts Options) *Layer {
	return &Layer{opts: opts, source: source}
}

func (l *Layer) Name() string              { return l.opts.Name }
func (l *Layer) Source() tilesource.Source { return l.source }
func (l *Layer) Options() Options          { return l.opts }
func (l *Layer) Tiles() []*tiles.Tile      { return l.tiles }

func (l *Layer) Matrices() []tiles.Matrix {
	if l.matrix == nil {
		return nil
	}
	return []tiles.Matrix{*l.matrix}
}

func (l *Layer) Reset() {
	l.matrix = nil
	l.tiles = nil
}

func (l *Layer) Update(vp Viewport) bool {
	if vp.Projection == nil || !vp.Projection.IsWebCompatible() || vp.Width <= 0 || vp.Height <= 0 {
		changed := l.matrix != nil || len(l.tiles) > 0
		l.Reset()
		return changed
	}

	zoomLevel := int(math.Floor(transform.ScaleToZoomLevel(vp.Transform.Scale()) + zoomLevelEpsilon))
	bounds := vp.Transform.TileMatrixBounds(transform.ZoomLevelToScale(float64(zoomLevel)), MapTopLeft, vp.Width, vp.Height)

	matrix := tiles.Matrix{
		ZoomLevel: zoomLevel,
		XMin:      int(math.Floor(bounds[0] / transform.TileSize)),
		YMin:      int(math.Floor(bounds[1] / transform.TileSize)),
		XMax:      int(math.Floor(bounds[2] / transform.TileSize)),
		YMax:      int(math.Floor(bounds[3] / transform.TileSize)),
	}

	if l.matrix != nil && l.matrix.Equal(matrix) {
		return false
	}
	l.matrix = &matrix
	l.updateTiles()
	return true
}

func (l *Layer) updateTiles() {
	m := *l.matrix
	maxZoomLevel := min(m.ZoomLevel, l.opts.MaxZoomLevel)
	minZoomLevel := maxZoomLevel
	if l.opts.IsBaseLayer {
		minZoomLevel = max(m.ZoomLevel-l.opts.MaxBackgroundLevels, l.opts.MinZoomLevel)
	}
	minZoomLevel = max(minZoomLevel, l.opts.MinZoomLevel, 0)

	idx := newTileIndex(l.tiles)
	var next []*tiles.Tile

	for z := minZoomLevel; z <= maxZoomLevel; z++ {
		factor := 1 << (m.ZoomLevel - z)
		columns := tiles.Columns(z)
		xMin := floorDiv(m.XMin, factor)
		xMax := floorDiv(m.XMax, factor)
		yMin := max(floorDiv(m.YMin, factor), 0)
		yMax := min(floorDiv(m.YMax, factor), columns-1)

		for y := yMin; y <= yMax; y++ {
			for x := xMin; x <= xMax; x++ {
				next = append(next, idx.tile(z, x, y, columns))
			}
		}
	}
	l.tiles = next
}

// RenderTransform returns the transform from layer pixels into the view.
func (l *Layer) RenderTransform(vt *transform.ViewTransform) transform.Affine {
	if l.matrix == nil {
		return transform.Identity()
	}
	return vt.TileLayerTransform(
		transform.ZoomLevelToScale(float64(l.matrix.ZoomLevel)),
		MapTopLeft,
		geom.Point{transform.TileSize * float64(l.matrix.XMin), transform.TileSize * float64(l.matrix.YMin)},
	)
}

func (l *Layer) Placements(vt *transform.ViewTransform) []Placement {
	if l.matrix == nil {
		return nil
	}
	m := *l.matrix
	render := l.RenderTransform(vt)
	placements := make([]Placement, 0, len(l.tiles))

	for _, t := range l.tiles {
		size := float64(int(transform.TileSize) << (m.ZoomLevel - t.ZoomLevel))
		x := size*float64(t.X) - transform.TileSize*float64(m.XMin)
		y := size*float64(t.Y) - transform.TileSize*float64(m.YMin)

		placements = append(placements, Placement{
			Tile:       t,
			Rect:       geom.Extent{x, y, x + size, y + size},
			ViewBounds: render.TransformBounds(x, y, size, size),
		})
	}
	return placements
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
