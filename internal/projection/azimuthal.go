package projection

import (
	"fmt"
	"math"

	"github.com/go-spatial/geom"

	"github.com/jaennil/guide_helper/backend/mapcore/internal/geo"
)

// AzimuthalKind selects the radial distance function of an Azimuthal projection.
type AzimuthalKind int

const (
	Gnomonic AzimuthalKind = iota
	Stereographic
	Orthographic
	AzimuthalEquidistant
)

func (k AzimuthalKind) String() string {
	switch k {
	case Gnomonic:
		return "gnomonic"
	case Stereographic:
		return "stereographic"
	case Orthographic:
		return "orthographic"
	case AzimuthalEquidistant:
		return "azimuthal-equidistant"
	default:
		return fmt.Sprintf("AzimuthalKind(%d)", int(k))
	}
}

// Azimuthal is a projection onto a plane tangent to the sphere at its center.
// Map coordinates are meters relative to the center, which projects to the origin.
type Azimuthal struct {
	kind   AzimuthalKind
	center geo.Location
}

var _ Projection = Azimuthal{}

func NewGnomonic(center geo.Location) Azimuthal {
	return Azimuthal{kind: Gnomonic, center: center}
}

func NewStereographic(center geo.Location) Azimuthal {
	return Azimuthal{kind: Stereographic, center: center}
}

func NewOrthographic(center geo.Location) Azimuthal {
	return Azimuthal{kind: Orthographic, center: center}
}

func NewAzimuthalEquidistant(center geo.Location) Azimuthal {
	return Azimuthal{kind: AzimuthalEquidistant, center: center}
}

func (p Azimuthal) Kind() AzimuthalKind  { return p.kind }
func (p Azimuthal) Center() geo.Location { return p.center }
func (Azimuthal) IsCylindrical() bool    { return false }
func (Azimuthal) IsWebCompatible() bool  { return false }
func (Azimuthal) MaxLatitude() float64   { return 90 }

func (p Azimuthal) WithCenter(c geo.Location) Projection {
	return Azimuthal{kind: p.kind, center: c}
}

func (p Azimuthal) CRS() string {
	switch p.kind {
	case Stereographic:
		return StereographicCRS
	case Orthographic:
		return OrthographicCRS
	case AzimuthalEquidistant:
		return AzimuthalEquidistantCRS
	default:
		return GnomonicCRS
	}
}

// mapDistance converts an angular distance from the center into a planar distance.
func (p Azimuthal) mapDistance(distance float64) float64 {
	switch p.kind {
	case Stereographic:
		return 2 * geo.EquatorialRadius * math.Tan(distance/2)
	case Orthographic:
		if distance > math.Pi/2 {
			return math.NaN()
		}
		return geo.EquatorialRadius * math.Sin(distance)
	case AzimuthalEquidistant:
		return geo.EquatorialRadius * distance
	default:
		if distance >= math.Pi/2 {
			return math.Inf(1)
		}
		return geo.EquatorialRadius * math.Tan(distance)
	}
}

// angularDistance is the inverse of mapDistance.
func (p Azimuthal) angularDistance(mapDistance float64) float64 {
	switch p.kind {
	case Stereographic:
		return 2 * math.Atan(mapDistance/(2*geo.EquatorialRadius))
	case Orthographic:
		if mapDistance > geo.EquatorialRadius {
			return math.NaN()
		}
		return math.Asin(mapDistance / geo.EquatorialRadius)
	case AzimuthalEquidistant:
		return mapDistance / geo.EquatorialRadius
	default:
		return math.Atan(mapDistance / geo.EquatorialRadius)
	}
}

// principalScales returns the scale along the radius from the center and perpendicular to it.
func (p Azimuthal) principalScales(distance float64) (radial, tangential float64) {
	switch p.kind {
	case Stereographic:
		k := 1 / math.Pow(math.Cos(distance/2), 2)
		return k, k
	case Orthographic:
		return math.Cos(distance), 1
	case AzimuthalEquidistant:
		if distance == 0 {
			return 1, 1
		}
		return 1, distance / math.Sin(distance)
	default:
		c := math.Cos(distance)
		return 1 / (c * c), 1 / c
	}
}

func (p Azimuthal) LocationToMap(location geo.Location) geom.Point {
	if location.Equal(p.center) {
		return geom.Point{0, 0}
	}
	azimuth, distance := AzimuthDistance(p.center, location)
	d := p.mapDistance(distance)
	return geom.Point{d * math.Sin(azimuth), d * math.Cos(azimuth)}
}

func (p Azimuthal) MapToLocation(point geom.Point) geo.Location {
	if point.X() == 0 && point.Y() == 0 {
		return p.center
	}
	azimuth := math.Atan2(point.X(), point.Y())
	distance := p.angularDistance(math.Hypot(point.X(), point.Y()))
	loc := Destination(p.center, azimuth, distance)
	loc.Longitude = geo.NormalizeLongitude(loc.Longitude)
	return loc
}

// RelativeScale rotates the radial and tangential scales into the local east and north axes.
func (p Azimuthal) RelativeScale(location geo.Location) (float64, float64) {
	if location.Equal(p.center) {
		return 1, 1
	}
	back, distance := AzimuthDistance(location, p.center)
	radial, tangential := p.principalScales(distance)
	sinB, cosB := math.Sincos(back + math.Pi)

	kx := math.Sqrt(radial*radial*sinB*sinB + tangential*tangential*cosB*cosB)
	ky := math.Sqrt(radial*radial*cosB*cosB + tangential*tangential*sinB*sinB)
	return kx, ky
}

// BoundsToRect only accepts centered bounding boxes, since south/west/north/east corners
// have no meaning around the projection center.
func (p Azimuthal) BoundsToRect(bounds geo.Bounds) (geom.Extent, error) {
	b, ok := bounds.(geo.CenteredBoundingBox)
	if !ok {
		return geom.Extent{}, fmt.Errorf("%w: %T in %s projection", ErrUnsupportedBounds, bounds, p.kind)
	}
	return centeredRect(p, b), nil
}

func (p Azimuthal) RectToBounds(rect geom.Extent) geo.Bounds {
	center := p.MapToLocation(geom.Point{(rect[0] + rect[2]) / 2, (rect[1] + rect[3]) / 2})
	return geo.NewCenteredBoundingBox(center, rect[2]-rect[0], rect[3]-rect[1])
}
