package projection

import (
	"math"

	"github.com/jaennil/guide_helper/backend/mapcore/internal/geo"
)

// AzimuthDistance returns the initial great-circle azimuth (clockwise from north) and the
// angular distance from one location to another, both in radians.
func AzimuthDistance(from, to geo.Location) (azimuth, distance float64) {
	lat1 := geo.Radians(from.Latitude)
	lat2 := geo.Radians(to.Latitude)
	dLon := geo.Radians(to.Longitude - from.Longitude)

	sinLat1, cosLat1 := math.Sincos(lat1)
	sinLat2, cosLat2 := math.Sincos(lat2)
	sinLon12, cosLon12 := math.Sincos(dLon)

	cosDistance := sinLat1*sinLat2 + cosLat1*cosLat2*cosLon12

	azimuth = math.Atan2(sinLon12*cosLat2, cosLat1*sinLat2-sinLat1*cosLat2*cosLon12)
	distance = math.Acos(math.Max(math.Min(cosDistance, 1), -1))
	return azimuth, distance
}

// Destination returns the location reached by travelling an angular distance (radians)
// along the great circle that leaves from at the given azimuth (radians).
func Destination(from geo.Location, azimuth, distance float64) geo.Location {
	lat1 := geo.Radians(from.Latitude)
	sinLat1, cosLat1 := math.Sincos(lat1)
	sinDistance, cosDistance := math.Sincos(distance)
	sinAzimuth, cosAzimuth := math.Sincos(azimuth)

	sinLat2 := sinLat1*cosDistance + cosLat1*sinDistance*cosAzimuth
	lat2 := math.Asin(math.Max(math.Min(sinLat2, 1), -1))
	dLon := math.Atan2(sinDistance*sinAzimuth, cosLat1*cosDistance-sinLat1*sinDistance*cosAzimuth)

	return geo.Location{
		Latitude:  geo.Degrees(lat2),
		Longitude: from.Longitude + geo.Degrees(dLon),
	}
}
