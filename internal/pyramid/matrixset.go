package pyramid

import (
	"math"

	"github.com/go-spatial/geom"

	"github.com/jaennil/guide_helper/backend/mapcore/internal/geo"
	"github.com/jaennil/guide_helper/backend/mapcore/internal/tilematrixset"
	"github.com/jaennil/guide_helper/backend/mapcore/internal/tiles"
	"github.com/jaennil/guide_helper/backend/mapcore/internal/tilesource"
	"github.com/jaennil/guide_helper/backend/mapcore/internal/transform"
)

// matrixLayer is the tile set of one tile matrix. Tiles use the matrix index as zoom level.
type matrixLayer struct {
	tileMatrix tilematrixset.TileMatrix
	matrix     tiles.Matrix
	tiles      []*tiles.Tile
}

// MatrixSetLayer is a tile layer driven by tile matrix sets, as served by WMTS. The set is
// selected by the CRS of the current projection.
type MatrixSetLayer struct {
	opts   Options
	source tilesource.Source
	sets   map[string]*tilematrixset.TileMatrixSet

	set    *tilematrixset.TileMatrixSet
	layers []matrixLayer
}

var _ TileLayer = (*MatrixSetLayer)(nil)

func NewMatrixSetLayer(source tilesource.Source, opts Options, sets ...*tilematrixset.TileMatrixSet) *MatrixSetLayer {
	l := &MatrixSetLayer{
		opts:   opts,
		source: source,
		sets:   make(map[string]*tilematrixset.TileMatrixSet, len(sets)),
	}
	for _, s := range sets {
		l.sets[s.CRS] = s
	}
	return l
}

func (l *MatrixSetLayer) Name() string              { return l.opts.Name }
func (l *MatrixSetLayer) Source() tilesource.Source { return l.source }
func (l *MatrixSetLayer) Options() Options          { return l.opts }

func (l *MatrixSetLayer) Reset() {
	l.set = nil
	l.layers = nil
}

func (l *MatrixSetLayer) Matrices() []tiles.Matrix {
	matrices := make([]tiles.Matrix, len(l.layers))
	for i, ml := range l.layers {
		matrices[i] = ml.matrix
	}
	return matrices
}

func (l *MatrixSetLayer) Tiles() []*tiles.Tile {
	var ts []*tiles.Tile
	for _, ml := range l.layers {
		ts = append(ts, ml.tiles...)
	}
	return ts
}

func (l *MatrixSetLayer) Update(vp Viewport) bool {
	var set *tilematrixset.TileMatrixSet
	if vp.Projection != nil {
		set = l.sets[vp.Projection.CRS()]
	}
	if set == nil || vp.Width <= 0 || vp.Height <= 0 {
		changed := len(l.layers) > 0
		l.Reset()
		return changed
	}

	if set != l.set {
		l.layers = nil
		l.set = set
	}

	candidates := l.selectMatrices(vp.Transform.Scale())
	next := make([]matrixLayer, 0, len(candidates))

	for _, i := range candidates {
		tm := set.TileMatrices[i]
		matrix, ok := visibleMatrix(vp, i, tm)
		if !ok {
			continue
		}
		next = append(next, matrixLayer{tileMatrix: tm, matrix: matrix})
	}

	if matricesEqual(l.layers, next) {
		return false
	}

	var previous []*tiles.Tile
	for _, ml := range l.layers {
		previous = append(previous, ml.tiles...)
	}
	idx := newTileIndex(previous)

	for i := range next {
		ml := &next[i]
		columns := ml.tileMatrix.MatrixWidth
		for y := ml.matrix.YMin; y <= ml.matrix.YMax; y++ {
			for x := ml.matrix.XMin; x <= ml.matrix.XMax; x++ {
				ml.tiles = append(ml.tiles, idx.tile(ml.matrix.ZoomLevel, x, y, columns))
			}
		}
	}
	l.layers = next
	return true
}

// selectMatrices returns the indexes of the tile matrices to display: those with a scale not
// above the view scale, at least the coarsest one.
func (l *MatrixSetLayer) selectMatrices(viewScale float64) []int {
	var indexes []int
	maxScale := viewScale * math.Exp2(zoomLevelEpsilon)
	for i, tm := range l.set.TileMatrices {
		if i == 0 || tm.Scale() <= maxScale {
			indexes = append(indexes, i)
		}
	}

	keep := 1
	if l.opts.IsBaseLayer {
		keep = l.opts.MaxBackgroundLevels + 1
	}
	if len(indexes) > keep {
		indexes = indexes[len(indexes)-keep:]
	}
	return indexes
}

func visibleMatrix(vp Viewport, index int, tm tilematrixset.TileMatrix) (tiles.Matrix, bool) {
	bounds := vp.Transform.TileMatrixBounds(tm.Scale(), tm.TopLeft(), vp.Width, vp.Height)
	tw, th := float64(tm.TileWidth), float64(tm.TileHeight)

	m := tiles.Matrix{
		ZoomLevel: index,
		XMin:      int(math.Floor(bounds[0] / tw)),
		YMin:      int(math.Floor(bounds[1] / th)),
		XMax:      int(math.Floor(bounds[2] / tw)),
		YMax:      int(math.Floor(bounds[3] / th)),
	}

	if !coversFullCircle(tm) {
		m.XMin = max(m.XMin, 0)
		m.XMax = min(m.XMax, tm.MatrixWidth-1)
	}
	m.YMin = max(m.YMin, 0)
	m.YMax = min(m.YMax, tm.MatrixHeight-1)

	return m, m.XMin <= m.XMax && m.YMin <= m.YMax
}

// coversFullCircle reports whether the matrix spans 360 degrees of longitude, so that columns
// may wrap around the dateline.
func coversFullCircle(tm tilematrixset.TileMatrix) bool {
	width := float64(tm.MatrixWidth*tm.TileWidth) / tm.Scale()
	return math.Abs(width/(360*geo.MetersPerDegree)-1) < 1e-6
}

func matricesEqual(a, b []matrixLayer) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].matrix.Equal(b[i].matrix) {
			return false
		}
	}
	return true
}

func (l *MatrixSetLayer) Placements(vt *transform.ViewTransform) []Placement {
	var placements []Placement
	for _, ml := range l.layers {
		tm := ml.tileMatrix
		tw, th := float64(tm.TileWidth), float64(tm.TileHeight)
		render := vt.TileLayerTransform(tm.Scale(), tm.TopLeft(),
			geom.Point{tw * float64(ml.matrix.XMin), th * float64(ml.matrix.YMin)})

		for _, t := range ml.tiles {
			x := tw * float64(t.X-ml.matrix.XMin)
			y := th * float64(t.Y-ml.matrix.YMin)
			placements = append(placements, Placement{
				Tile:       t,
				Rect:       geom.Extent{x, y, x + tw, y + th},
				ViewBounds: render.TransformBounds(x, y, tw, th),
			})
		}
	}
	return placements
}
