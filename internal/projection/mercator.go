package projection

import (
	"math"

	"github.com/go-spatial/geom"

	"github.com/jaennil/guide_helper/backend/mapcore/internal/geo"
)

const (
	worldMercatorMaxIterations = 10
	worldMercatorTolerance     = 1e-6
)

// WebMercator is the spherical Mercator projection used by web tile services (EPSG:3857).
type WebMercator struct {
	center geo.Location
}

var _ Projection = WebMercator{}

// WebMercatorMaxLatitude keeps the projected square within ±180 degrees of y.
var WebMercatorMaxLatitude = WebMercatorYToLatitude(180)

func (WebMercator) CRS() string                 { return WebMercatorCRS }
func (p WebMercator) Center() geo.Location      { return p.center }
func (WebMercator) IsCylindrical() bool         { return true }
func (WebMercator) IsWebCompatible() bool       { return true }
func (WebMercator) MaxLatitude() float64        { return WebMercatorMaxLatitude }
func (WebMercator) WithCenter(c geo.Location) Projection {
	return WebMercator{center: c}
}

func (WebMercator) RelativeScale(location geo.Location) (float64, float64) {
	if math.Abs(location.Latitude) >= 90 {
		return math.Inf(1), math.Inf(1)
	}
	k := 1 / math.Cos(geo.Radians(location.Latitude))
	return k, k
}

func (WebMercator) LocationToMap(location geo.Location) geom.Point {
	return geom.Point{
		geo.MetersPerDegree * location.Longitude,
		geo.MetersPerDegree * WebMercatorLatitudeToY(location.Latitude),
	}
}

func (WebMercator) MapToLocation(point geom.Point) geo.Location {
	return geo.Location{
		Latitude:  WebMercatorYToLatitude(point.Y() / geo.MetersPerDegree),
		Longitude: point.X() / geo.MetersPerDegree,
	}
}

func (p WebMercator) BoundsToRect(bounds geo.Bounds) (geom.Extent, error) {
	return cylindricalBoundsToRect(p, bounds)
}

func (p WebMercator) RectToBounds(rect geom.Extent) geo.Bounds {
	return cylindricalRectToBounds(p, rect)
}

// WebMercatorLatitudeToY returns the spherical Mercator y coordinate in degrees.
func WebMercatorLatitudeToY(latitude float64) float64 {
	if latitude <= -90 {
		return math.Inf(-1)
	}
	if latitude >= 90 {
		return math.Inf(1)
	}
	return math.Log(math.Tan(geo.Radians(latitude+90)/2)) * 180 / math.Pi
}

// WebMercatorYToLatitude is the inverse of WebMercatorLatitudeToY.
func WebMercatorYToLatitude(y float64) float64 {
	return geo.Degrees(math.Atan(math.Sinh(geo.Radians(y))))
}

// WorldMercator is the ellipsoidal Mercator projection (EPSG:3395).
type WorldMercator struct {
	center geo.Location
}

var _ Projection = WorldMercator{}

var worldMercatorMaxLatitude = WorldMercatorYToLatitude(180)

func (WorldMercator) CRS() string               { return WorldMercatorCRS }
func (p WorldMercator) Center() geo.Location    { return p.center }
func (WorldMercator) IsCylindrical() bool       { return true }
func (WorldMercator) IsWebCompatible() bool     { return false }
func (WorldMercator) MaxLatitude() float64      { return worldMercatorMaxLatitude }
func (WorldMercator) WithCenter(c geo.Location) Projection {
	return WorldMercator{center: c}
}

func (WorldMercator) RelativeScale(location geo.Location) (float64, float64) {
	if math.Abs(location.Latitude) >= 90 {
		return math.Inf(1), math.Inf(1)
	}
	lat := geo.Radians(location.Latitude)
	eSinLat := geo.Eccentricity * math.Sin(lat)
	k := math.Sqrt(1-eSinLat*eSinLat) / math.Cos(lat)
	return k, k
}

func (WorldMercator) LocationToMap(location geo.Location) geom.Point {
	return geom.Point{
		geo.MetersPerDegree * location.Longitude,
		geo.MetersPerDegree * WorldMercatorLatitudeToY(location.Latitude),
	}
}

func (WorldMercator) MapToLocation(point geom.Point) geo.Location {
	return geo.Location{
		Latitude:  WorldMercatorYToLatitude(point.Y() / geo.MetersPerDegree),
		Longitude: point.X() / geo.MetersPerDegree,
	}
}

func (p WorldMercator) BoundsToRect(bounds geo.Bounds) (geom.Extent, error) {
	return cylindricalBoundsToRect(p, bounds)
}

func (p WorldMercator) RectToBounds(rect geom.Extent) geo.Bounds {
	return cylindricalRectToBounds(p, rect)
}

// WorldMercatorLatitudeToY returns the ellipsoidal Mercator y coordinate in degrees.
func WorldMercatorLatitudeToY(latitude float64) float64 {
	if latitude <= -90 {
		return math.Inf(-1)
	}
	if latitude >= 90 {
		return math.Inf(1)
	}
	phi := geo.Radians(latitude)
	eSinPhi := geo.Eccentricity * math.Sin(phi)
	f := math.Pow((1-eSinPhi)/(1+eSinPhi), geo.Eccentricity/2)
	return math.Log(math.Tan(phi/2+math.Pi/4)*f) * 180 / math.Pi
}

// WorldMercatorYToLatitude inverts WorldMercatorLatitudeToY by fixed-point iteration on the
// conformal latitude, stopping at a relative change of 1e-6 or after 10 iterations.
func WorldMercatorYToLatitude(y float64) float64 {
	if math.IsInf(y, 0) {
		return math.Copysign(90, y)
	}
	t := math.Exp(-geo.Radians(y))
	phi := math.Pi/2 - 2*math.Atan(t)
	relChange := 1.0

	for i := 0; i < worldMercatorMaxIterations && relChange > worldMercatorTolerance; i++ {
		eSinPhi := geo.Eccentricity * math.Sin(phi)
		newPhi := math.Pi/2 - 2*math.Atan(t*math.Pow((1-eSinPhi)/(1+eSinPhi), geo.Eccentricity/2))
		if phi == 0 {
			relChange = math.Abs(newPhi)
		} else {
			relChange = math.Abs(1 - newPhi/phi)
		}
		phi = newPhi
	}
	return geo.Degrees(phi)
}
