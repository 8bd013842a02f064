package geo

import "math"

// earthRadiusKm is the mean Earth radius used by the haversine formula.
const earthRadiusKm = 6371

// metersPerDegree approximates one degree of latitude.
const metersPerDegree = 111_000

// BoundingBox is a rectangular lat/long range used as a cheap pre-filter
// before exact distance computation. It may be a superset of the circle it
// approximates, never a subset.
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// DistanceKm returns the great-circle distance in kilometers between two
// points. Inputs are not validated; NaN propagates.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// BoxAround returns the bounding box containing every point within
// radiusMeters of the given center. Longitude span widens with latitude.
func BoxAround(lat, lon, radiusMeters float64) BoundingBox {
	latDelta := radiusMeters / metersPerDegree
	lonDelta := radiusMeters / (metersPerDegree * math.Cos(toRadians(lat)))
	return BoundingBox{
		MinLat: lat - latDelta,
		MaxLat: lat + latDelta,
		MinLon: lon - lonDelta,
		MaxLon: lon + lonDelta,
	}
}

// Contains reports whether the point lies within the box.
func (b BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// IsWithinZone reports whether the point falls inside a circular zone.
func IsWithinZone(lat, lon, zoneLat, zoneLon, zoneRadiusMeters float64) bool {
	return DistanceKm(lat, lon, zoneLat, zoneLon)*1000 <= zoneRadiusMeters
}

// ValidCoordinates reports whether lat/long are inside the WGS84 domain.
func ValidCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

func toRadians(degrees float64) float64 {
	return degrees * (math.Pi / 180)
}
