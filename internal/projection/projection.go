// Package projection converts between geographic locations and planar map coordinates.
//
// Projections are immutable values. Azimuthal projections are centered on a tangent point;
// recentering one yields a new value through WithCenter instead of mutating shared state.
package projection

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-spatial/geom"

	"github.com/jaennil/guide_helper/backend/mapcore/internal/geo"
)

var (
	ErrUnknownCRS        = errors.New("unknown crs")
	ErrUnsupportedBounds = errors.New("bounds type not supported by projection")
)

// CRS identifiers of the supported projections.
const (
	WebMercatorCRS          = "EPSG:3857"
	WorldMercatorCRS        = "EPSG:3395"
	EquirectangularCRS      = "EPSG:4326"
	GnomonicCRS             = "AUTO2:97001"
	StereographicCRS        = "AUTO2:97002"
	OrthographicCRS         = "AUTO2:42003"
	AzimuthalEquidistantCRS = "AUTO2:97003"
)

// Projection is implemented by every map projection.
//
// LocationToMap and MapToLocation are mutual inverses over the valid domain. Outside of it
// they return ±Inf or NaN components, which callers discard instead of rendering.
type Projection interface {
	CRS() string
	Center() geo.Location
	WithCenter(center geo.Location) Projection

	IsCylindrical() bool
	IsWebCompatible() bool
	MaxLatitude() float64

	// RelativeScale returns the local linear scale factors in east and north direction.
	RelativeScale(location geo.Location) (kx, ky float64)

	LocationToMap(location geo.Location) geom.Point
	MapToLocation(point geom.Point) geo.Location

	BoundsToRect(bounds geo.Bounds) (geom.Extent, error)
	RectToBounds(rect geom.Extent) geo.Bounds
}

// New returns the projection for a CRS identifier.
func New(crs string) (Projection, error) {
	switch strings.ToUpper(strings.TrimSpace(crs)) {
	case WebMercatorCRS, "EPSG:900913":
		return WebMercator{}, nil
	case WorldMercatorCRS:
		return WorldMercator{}, nil
	case EquirectangularCRS:
		return Equirectangular{}, nil
	case GnomonicCRS:
		return NewGnomonic(geo.Location{}), nil
	case StereographicCRS:
		return NewStereographic(geo.Location{}), nil
	case OrthographicCRS:
		return NewOrthographic(geo.Location{}), nil
	case AzimuthalEquidistantCRS:
		return NewAzimuthalEquidistant(geo.Location{}), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCRS, crs)
	}
}

// Rect builds a normalized extent from two corner points.
func Rect(p1, p2 geom.Point) geom.Extent {
	return geom.Extent{
		math.Min(p1.X(), p2.X()),
		math.Min(p1.Y(), p2.Y()),
		math.Max(p1.X(), p2.X()),
		math.Max(p1.Y(), p2.Y()),
	}
}

// cylindricalBoundsToRect transforms the two corners of a geographic bounding box.
// Centered boxes are expanded around the projected center.
func cylindricalBoundsToRect(p Projection, bounds geo.Bounds) (geom.Extent, error) {
	switch b := bounds.(type) {
	case geo.BoundingBox:
		sw := p.LocationToMap(geo.Location{Latitude: b.South, Longitude: b.West})
		ne := p.LocationToMap(geo.Location{Latitude: b.North, Longitude: b.East})
		return Rect(sw, ne), nil
	case geo.CenteredBoundingBox:
		return centeredRect(p, b), nil
	default:
		return geom.Extent{}, fmt.Errorf("%w: %T", ErrUnsupportedBounds, bounds)
	}
}

func cylindricalRectToBounds(p Projection, rect geom.Extent) geo.Bounds {
	sw := p.MapToLocation(geom.Point{rect[0], rect[1]})
	ne := p.MapToLocation(geom.Point{rect[2], rect[3]})
	return geo.NewBoundingBox(sw.Latitude, sw.Longitude, ne.Latitude, ne.Longitude)
}

func centeredRect(p Projection, b geo.CenteredBoundingBox) geom.Extent {
	c := p.LocationToMap(b.Center())
	return geom.Extent{
		c.X() - b.Width()/2,
		c.Y() - b.Height()/2,
		c.X() + b.Width()/2,
		c.Y() + b.Height()/2,
	}
}
