package geo

import "math"

const (
	kmPerDegreeLat = 110.574
	kmPerDegreeLon = 111.320

	// minCosLat keeps the longitude delta finite near the poles
	minCosLat = 1e-6
)

// BoundingBox is an inclusive latitude/longitude rectangle.
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// NewBoundingBox returns a box that contains every point within radiusKm of
// (lat, lon). It is a prefilter only; callers re-check with Distance.
//
// The deltas come from the flat degree-length approximation, widened to the
// spherical extent of the circle where that is larger. The box is clamped to
// valid coordinates; a circle touching a pole or crossing the antimeridian
// yields a box spanning every longitude.
func NewBoundingBox(lat, lon, radiusKm float64) BoundingBox {
	latDelta := radiusKm / kmPerDegreeLat
	lonDelta := radiusKm / (kmPerDegreeLon * math.Max(minCosLat, math.Cos(toRadians(lat))))

	angular := radiusKm / EarthRadiusKm
	latDelta = math.Max(latDelta, toDegrees(angular))

	fullLon := false
	if s, c := math.Sin(angular), math.Cos(toRadians(lat)); angular >= math.Pi/2 || s >= c {
		fullLon = true
	} else {
		lonDelta = math.Max(lonDelta, toDegrees(math.Asin(s/c)))
	}

	box := BoundingBox{
		MinLat: math.Max(-90, lat-latDelta),
		MaxLat: math.Min(90, lat+latDelta),
		MinLon: lon - lonDelta,
		MaxLon: lon + lonDelta,
	}

	if fullLon || box.MinLon < -180 || box.MaxLon > 180 {
		box.MinLon = -180
		box.MaxLon = 180
	}

	return box
}

// Contains reports whether the point lies inside the box, edges included.
func (b BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat &&
		lon >= b.MinLon && lon <= b.MaxLon
}

func toDegrees(radians float64) float64 {
	return radians * 180.0 / math.Pi
}
