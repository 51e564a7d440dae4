// Package geo holds the great-circle distance and bounding-box helpers used by
// the study spot search.
package geo

import "math"

// EarthRadiusKm is the mean Earth radius used by Distance.
const EarthRadiusKm = 6371.0

// Distance returns the haversine distance in kilometers between two points
// given in degrees. Inputs are not validated.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := toRadians(lat1)
	lat2Rad := toRadians(lat2)
	deltaLat := toRadians(lat2 - lat1)
	deltaLon := toRadians(lon2 - lon1)

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)

	// rounding can push a marginally above 1 for antipodal points
	a = math.Min(1, math.Max(0, a))

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

func toRadians(degrees float64) float64 {
	return degrees * math.Pi / 180.0
}
