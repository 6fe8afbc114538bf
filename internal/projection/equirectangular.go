package projection

import (
	"math"

	"github.com/go-spatial/geom"

	"github.com/jaennil/guide_helper/backend/mapcore/internal/geo"
)

// Equirectangular is the plate carrée projection (EPSG:4326) scaled to meters at the equator.
type Equirectangular struct {
	center geo.Location
}

var _ Projection = Equirectangular{}

func (Equirectangular) CRS() string               { return EquirectangularCRS }
func (p Equirectangular) Center() geo.Location    { return p.center }
func (Equirectangular) IsCylindrical() bool       { return true }
func (Equirectangular) IsWebCompatible() bool     { return false }
func (Equirectangular) MaxLatitude() float64      { return 90 }
func (Equirectangular) WithCenter(c geo.Location) Projection {
	return Equirectangular{center: c}
}

func (Equirectangular) RelativeScale(location geo.Location) (float64, float64) {
	if math.Abs(location.Latitude) >= 90 {
		return math.Inf(1), 1
	}
	return 1 / math.Cos(geo.Radians(location.Latitude)), 1
}

func (Equirectangular) LocationToMap(location geo.Location) geom.Point {
	return geom.Point{
		geo.MetersPerDegree * location.Longitude,
		geo.MetersPerDegree * location.Latitude,
	}
}

func (Equirectangular) MapToLocation(point geom.Point) geo.Location {
	return geo.Location{
		Latitude:  point.Y() / geo.MetersPerDegree,
		Longitude: point.X() / geo.MetersPerDegree,
	}
}

func (p Equirectangular) BoundsToRect(bounds geo.Bounds) (geom.Extent, error) {
	return cylindricalBoundsToRect(p, bounds)
}

func (p Equirectangular) RectToBounds(rect geom.Extent) geo.Bounds {
	return cylindricalRectToBounds(p, rect)
}
