// Package transform maps between planar projection coordinates and view pixels.
package transform

import (
	"math"

	"github.com/go-spatial/geom"

	"github.com/jaennil/guide_helper/backend/mapcore/internal/geo"
)

// TileSize is the pixel size of a reference tile at integer zoom levels.
const TileSize = 256

// ZoomLevelToScale returns the view scale in pixels per meter for a zoom level.
func ZoomLevelToScale(zoomLevel float64) float64 {
	return TileSize * math.Exp2(zoomLevel) / (360 * geo.MetersPerDegree)
}

// ScaleToZoomLevel is the inverse of ZoomLevelToScale.
func ScaleToZoomLevel(scale float64) float64 {
	return math.Log2(scale * 360 * geo.MetersPerDegree / TileSize)
}

// ViewTransform holds the current view scale and rotation and the affine mappings between
// planar map coordinates and view coordinates. The view y axis points down.
//
// A ViewTransform is rebuilt as a whole by SetTransform and is not safe for concurrent mutation.
type ViewTransform struct {
	scale     float64
	rotation  float64
	mapToView Affine
	viewToMap Affine
}

func NewViewTransform() *ViewTransform {
	return &ViewTransform{scale: 1, mapToView: Identity(), viewToMap: Identity()}
}

// Scale is the number of view pixels per planar map unit.
func (t *ViewTransform) Scale() float64 {
	return t.scale
}

// Rotation in degrees, normalized into [0, 360).
func (t *ViewTransform) Rotation() float64 {
	return t.rotation
}

func (t *ViewTransform) MapToViewMatrix() Affine {
	return t.mapToView
}

func (t *ViewTransform) ViewToMapMatrix() Affine {
	return t.viewToMap
}

// SetTransform rebuilds the transform so that mapCenter is displayed at viewCenter.
// scale must be positive.
func (t *ViewTransform) SetTransform(mapCenter, viewCenter geom.Point, scale, rotation float64) {
	rotation = math.Mod(rotation, 360)
	if rotation < 0 {
		rotation += 360
	}

	m := NewAffine(scale, 0, 0, -scale, -scale*mapCenter.X(), scale*mapCenter.Y()).
		Rotate(rotation).
		Translate(viewCenter.X(), viewCenter.Y())

	inv, ok := m.Invert()
	if !ok {
		panic("transform: non-invertible view transform")
	}

	t.scale = scale
	t.rotation = rotation
	t.mapToView = m
	t.viewToMap = inv
}

func (t *ViewTransform) MapToView(p geom.Point) geom.Point {
	return t.mapToView.Transform(p)
}

func (t *ViewTransform) ViewToMap(p geom.Point) geom.Point {
	return t.viewToMap.Transform(p)
}

// ViewRectToMap returns the planar extent covered by a view rectangle.
func (t *ViewTransform) ViewRectToMap(x, y, width, height float64) geom.Extent {
	return t.viewToMap.TransformBounds(x, y, width, height)
}

// TileLayerTransform returns the transform from the pixel space of a tile matrix into the view.
// tileMatrixScale is the matrix scale in pixels per planar unit, tileMatrixTopLeft the planar
// position of the matrix's pixel origin and tileMatrixOrigin the pixel position of the first
// rendered tile within that matrix.
func (t *ViewTransform) TileLayerTransform(tileMatrixScale float64, tileMatrixTopLeft, tileMatrixOrigin geom.Point) Affine {
	s := t.scale / tileMatrixScale
	origin := t.MapToView(geom.Point{
		tileMatrixTopLeft.X() + tileMatrixOrigin.X()/tileMatrixScale,
		tileMatrixTopLeft.Y() - tileMatrixOrigin.Y()/tileMatrixScale,
	})

	return Identity().
		Scale(s, s).
		Rotate(t.rotation).
		Translate(origin.X(), origin.Y())
}

// TileMatrixBounds returns the pixel extent in tile matrix space that is covered by a view of
// the given size.
func (t *ViewTransform) TileMatrixBounds(tileMatrixScale float64, tileMatrixTopLeft geom.Point, viewWidth, viewHeight float64) geom.Extent {
	s := tileMatrixScale / t.scale
	origin := t.ViewToMap(geom.Point{0, 0})

	m := Identity().
		Scale(s, s).
		Rotate(-t.rotation).
		Translate(
			tileMatrixScale*(origin.X()-tileMatrixTopLeft.X()),
			tileMatrixScale*(tileMatrixTopLeft.Y()-origin.Y()),
		)

	return m.TransformBounds(0, 0, viewWidth, viewHeight)
}
