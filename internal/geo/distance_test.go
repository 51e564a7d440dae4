package geo

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name       string
		lat1, lon1 float64
		lat2, lon2 float64
		want       float64
		tolerance  float64
	}{
		{name: "same point", lat1: 51.5074, lon1: -0.1278, lat2: 51.5074, lon2: -0.1278, want: 0, tolerance: 1e-9},
		{name: "0.02 degrees east at the equator", lat1: 0, lon1: 0, lat2: 0, lon2: 0.02, want: 2.2239, tolerance: 0.001},
		{name: "one degree of latitude", lat1: 0, lon1: 0, lat2: 1, lon2: 0, want: 111.195, tolerance: 0.001},
		{name: "London to Paris", lat1: 51.5074, lon1: -0.1278, lat2: 48.8566, lon2: 2.3522, want: 343.5, tolerance: 1.0},
		{name: "antipodal points", lat1: 0, lon1: 0, lat2: 0, lon2: 180, want: math.Pi * EarthRadiusKm, tolerance: 1e-6},
		{name: "across the antimeridian", lat1: 0, lon1: 179.99, lat2: 0, lon2: -179.99, want: 2.2239, tolerance: 0.001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			assert.InDelta(t, tt.want, got, tt.tolerance)
		})
	}
}

func TestDistance_SymmetricAndZero(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 1000; i++ {
		lat1, lon1 := randomCoordinate(rng)
		lat2, lon2 := randomCoordinate(rng)

		ab := Distance(lat1, lon1, lat2, lon2)
		ba := Distance(lat2, lon2, lat1, lon1)

		assert.InDelta(t, ab, ba, 1e-9, "distance must be symmetric")
		assert.GreaterOrEqual(t, ab, 0.0)
		assert.InDelta(t, 0, Distance(lat1, lon1, lat1, lon1), 1e-9)
	}
}

func randomCoordinate(rng *rand.Rand) (float64, float64) {
	return rng.Float64()*180 - 90, rng.Float64()*360 - 180
}
