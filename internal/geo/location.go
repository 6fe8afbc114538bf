// Package geo holds the geographic value types shared by projections, the view transform and
// the tile pyramid. Planar coordinates use github.com/go-spatial/geom types.
package geo

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// WGS84 reference ellipsoid.
const (
	EquatorialRadius = 6378137.0
	Flattening       = 1 / 298.257223563
	MetersPerDegree  = EquatorialRadius * math.Pi / 180
)

// Eccentricity of the WGS84 ellipsoid.
var Eccentricity = math.Sqrt((2 - Flattening) * Flattening)

// Location is a geographic position in degrees. Values are stored as given;
// consumers normalize the longitude and clamp the latitude before use.
type Location struct {
	Latitude  float64
	Longitude float64
}

func (l Location) Equal(o Location) bool {
	return l.Latitude == o.Latitude && l.Longitude == o.Longitude
}

func (l Location) String() string {
	return strconv.FormatFloat(l.Latitude, 'f', -1, 64) + "," + strconv.FormatFloat(l.Longitude, 'f', -1, 64)
}

// ParseLocation parses "latitude,longitude".
func ParseLocation(s string) (Location, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Location{}, fmt.Errorf("location must be formatted as latitude,longitude: %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Location{}, fmt.Errorf("invalid latitude %q: %w", parts[0], err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Location{}, fmt.Errorf("invalid longitude %q: %w", parts[1], err)
	}
	return Location{Latitude: lat, Longitude: lon}, nil
}

// NormalizeLongitude wraps a longitude into [-180, 180).
func NormalizeLongitude(longitude float64) float64 {
	if longitude < -180 || longitude >= 180 {
		longitude = math.Mod(longitude+180, 360)
		if longitude < 0 {
			longitude += 360
		}
		longitude -= 180
	}
	return longitude
}

// NearestLongitude returns the representation of longitude that is closest to reference,
// i.e. longitude plus a multiple of 360 within [reference-180, reference+180).
func NearestLongitude(longitude, reference float64) float64 {
	return reference + NormalizeLongitude(longitude-reference)
}

// ClampLatitude limits latitude to [-maxLatitude, maxLatitude].
func ClampLatitude(latitude, maxLatitude float64) float64 {
	return math.Min(math.Max(latitude, -maxLatitude), maxLatitude)
}

// Normalized returns the location with a normalized longitude and a latitude
// clamped to maxLatitude.
func (l Location) Normalized(maxLatitude float64) Location {
	return Location{
		Latitude:  ClampLatitude(l.Latitude, maxLatitude),
		Longitude: NormalizeLongitude(l.Longitude),
	}
}

func Radians(degrees float64) float64 {
	return degrees * math.Pi / 180
}

func Degrees(radians float64) float64 {
	return radians * 180 / math.Pi
}
