package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"studyspot-backend/internal/apperror"
	"studyspot-backend/internal/geo"
	"studyspot-backend/internal/models"
	"studyspot-backend/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resultIDs(results []models.SpotResult) []int64 {
	ids := make([]int64, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	return ids
}

func TestSearchService_Radius(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.addSpot(t, "a", 0, 0)
	b := env.addSpot(t, "b", 0, 0.02)

	tests := []struct {
		name   string
		radius *float64
		want   []int64
	}{
		{"default radius", nil, []int64{a.ID}},
		{"one km", float(1), []int64{a.ID}},
		{"five km", float(5), []int64{a.ID, b.ID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := env.search.Search(ctx, SearchParams{
				Latitude:  float(0),
				Longitude: float(0),
				RadiusKm:  tt.radius,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, resultIDs(results))
			for _, r := range results {
				require.NotNil(t, r.DistanceKm)
			}
		})
	}
}

func TestSearchService_DistanceOrdering(t *testing.T) {
	env := newTestEnv(t)
	far := env.addSpot(t, "far", 0, 0.03)
	near := env.addSpot(t, "near", 0, 0.01)
	twinA := env.addSpot(t, "twin-a", 0.02, 0)
	twinB := env.addSpot(t, "twin-b", 0.02, 0)

	results, err := env.search.Search(context.Background(), SearchParams{
		Latitude:  float(0),
		Longitude: float(0),
		RadiusKm:  float(10),
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{near.ID, twinA.ID, twinB.ID, far.ID}, resultIDs(results))
	assert.InDelta(t, 1.112, *results[0].DistanceKm, 0.001)
	assert.Equal(t, *results[1].DistanceKm, *results[2].DistanceKm)
}

func TestSearchService_NoLocation(t *testing.T) {
	env := newTestEnv(t)
	a := env.addSpot(t, "a", 10, 10)
	b := env.addSpot(t, "b", -45, 170)

	results, err := env.search.Search(context.Background(), SearchParams{})
	require.NoError(t, err)

	assert.Equal(t, []int64{a.ID, b.ID}, resultIDs(results))
	for _, r := range results {
		assert.Nil(t, r.DistanceKm)
		assert.NotNil(t, r.Photos)
	}
}

func cappedSearch(env *testEnv, maxCandidates int) *SearchService {
	cfg := testSearchConfig()
	cfg.MaxCandidates = maxCandidates
	return NewSearchService(env.store.Spots, env.store.Checkins, env.photos, cfg, nil)
}

func TestSearchService_CandidateCapExceeded(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	const maxCandidates = 5

	// Corners of the 1 km box lie about 1.34 km from the center
	for i := 0; i <= maxCandidates; i++ {
		env.addSpot(t, fmt.Sprintf("corner-%d", i), 0.0085, 0.0085)
	}
	env.addSpot(t, "center", 0, 0)
	search := cappedSearch(env, maxCandidates)

	t.Run("located", func(t *testing.T) {
		results, err := search.Search(ctx, SearchParams{Latitude: float(0), Longitude: float(0)})
		require.ErrorIs(t, err, apperror.ErrUnprocessable)
		assert.Nil(t, results)

		var appErr *apperror.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, "radius_km", appErr.Field)
	})

	t.Run("no location", func(t *testing.T) {
		results, err := search.Search(ctx, SearchParams{})
		require.ErrorIs(t, err, apperror.ErrUnprocessable)
		assert.Nil(t, results)

		var appErr *apperror.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, "latitude", appErr.Field)
	})

	t.Run("narrower radius fits", func(t *testing.T) {
		results, err := search.Search(ctx, SearchParams{Latitude: float(0), Longitude: float(0), RadiusKm: float(0.5)})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "center", results[0].Name)
	})
}

func TestSearchService_CandidateCapAtLimit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	const maxCandidates = 5

	for i := 0; i < maxCandidates-1; i++ {
		env.addSpot(t, fmt.Sprintf("corner-%d", i), 0.0085, 0.0085)
	}
	center := env.addSpot(t, "center", 0, 0)

	results, err := cappedSearch(env, maxCandidates).Search(ctx, SearchParams{Latitude: float(0), Longitude: float(0)})
	require.NoError(t, err)
	assert.Equal(t, []int64{center.ID}, resultIDs(results))
}

func TestSearchService_DefaultCapRejectsDenseBox(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	maxCandidates := testSearchConfig().MaxCandidates

	for i := 0; i < maxCandidates; i++ {
		env.addSpot(t, fmt.Sprintf("corner-%d", i), 0.0085, 0.0085)
	}
	env.addSpot(t, "center", 0, 0)

	_, err := env.search.Search(ctx, SearchParams{Latitude: float(0), Longitude: float(0)})
	require.ErrorIs(t, err, apperror.ErrUnprocessable)
}

func TestSearchService_InvalidParams(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		params SearchParams
		field  string
	}{
		{"latitude only", SearchParams{Latitude: float(1)}, "latitude"},
		{"longitude only", SearchParams{Longitude: float(1)}, "latitude"},
		{"zero radius", SearchParams{Latitude: float(0), Longitude: float(0), RadiusKm: float(0)}, "radius_km"},
		{"negative radius", SearchParams{Latitude: float(0), Longitude: float(0), RadiusKm: float(-2)}, "radius_km"},
		{"radius above max", SearchParams{Latitude: float(0), Longitude: float(0), RadiusKm: float(101)}, "radius_km"},
		{"rating below range", SearchParams{MinAvgRating: float(0.5)}, "min_avg_rating"},
		{"rating above range", SearchParams{MinAvgRating: float(5.5)}, "min_avg_rating"},
		{"negative occupancy", SearchParams{MinActiveCheckins: integer(-1)}, "min_active_checkins"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.search.Search(context.Background(), tt.params)
			require.ErrorIs(t, err, apperror.ErrUnprocessable)

			var appErr *apperror.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.field, appErr.Field)
		})
	}
}

func TestSearchService_MinAvgRating(t *testing.T) {
	env := newTestEnv(t)
	rated := env.addSpot(t, "rated", 0, 0)
	env.addSpot(t, "unrated", 0, 0.001)
	env.review(t, env.addUser(t, "ann"), rated, 4)
	env.review(t, env.addUser(t, "bob"), rated, 5)

	tests := []struct {
		name string
		min  float64
		want []int64
	}{
		{"below average", 3, []int64{rated.ID}},
		{"equal to average", 4.5, []int64{rated.ID}},
		{"above average", 5, []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := env.search.Search(context.Background(), SearchParams{MinAvgRating: float(tt.min)})
			require.NoError(t, err)
			assert.Equal(t, tt.want, resultIDs(results))
		})
	}

	results, err := env.search.Search(context.Background(), SearchParams{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.NotNil(t, results[0].AvgRating)
	assert.Equal(t, 4.5, *results[0].AvgRating)
	assert.Nil(t, results[1].AvgRating)
}

func TestSearchService_MinActiveCheckins(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	busy := env.addSpot(t, "busy", 0, 0)
	quiet := env.addSpot(t, "quiet", 0, 0.001)

	_, err := env.checkins.SignIn(ctx, env.addUser(t, "ann").ID, busy.ID)
	require.NoError(t, err)
	_, err = env.checkins.SignIn(ctx, env.addUser(t, "bob").ID, busy.ID)
	require.NoError(t, err)

	results, err := env.search.Search(ctx, SearchParams{MinActiveCheckins: integer(2)})
	require.NoError(t, err)
	assert.Equal(t, []int64{busy.ID}, resultIDs(results))
	assert.Equal(t, 2, results[0].ActiveCheckins)

	results, err = env.search.Search(ctx, SearchParams{MinActiveCheckins: integer(0)})
	require.NoError(t, err)
	assert.Equal(t, []int64{busy.ID, quiet.ID}, resultIDs(results))
	assert.Equal(t, 0, results[1].ActiveCheckins)
}

func TestSearchService_OccupancyFailureReportsZero(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	spot := env.addSpot(t, "a", 0, 0)
	_, err := env.checkins.SignIn(ctx, env.addUser(t, "ann").ID, spot.ID)
	require.NoError(t, err)

	env.store.Checkins.(*memory.CheckinRepository).SetFailCounts(errors.New("connection reset"))

	results, err := env.search.Search(ctx, SearchParams{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 0, results[0].ActiveCheckins)

	results, err = env.search.Search(ctx, SearchParams{MinActiveCheckins: integer(1)})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchService_Photos(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	spot := env.addSpot(t, "a", 0, 0)

	upload, err := env.photos.RequestUpload(ctx, spot.ID, UploadRequest{
		Filename:    "front.png",
		ContentType: "image/png",
		IsPrimary:   true,
	})
	require.NoError(t, err)

	results, err := env.search.Search(ctx, SearchParams{})
	require.NoError(t, err)
	require.Len(t, results[0].Photos, 1)
	photo := results[0].Photos[0]
	assert.Equal(t, upload.Photo.ID, photo.ID)
	assert.True(t, photo.IsPrimary)
	assert.Equal(t, "https://signed.test/"+upload.Photo.Key+"?ttl=1h0m0s", photo.URL)

	env.signer.failGet = true
	results, err = env.search.Search(ctx, SearchParams{})
	require.NoError(t, err)
	assert.Equal(t, "https://bucket.test/"+upload.Photo.Key, results[0].Photos[0].URL)
}

func TestSearchService_Get(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	spot := env.addSpot(t, "a", 0, 0)
	env.review(t, env.addUser(t, "ann"), spot, 3)

	result, err := env.search.Get(ctx, spot.ID)
	require.NoError(t, err)
	assert.Equal(t, spot.Name, result.Name)
	assert.Equal(t, 3.0, *result.AvgRating)
	assert.Nil(t, result.DistanceKm)

	_, err = env.search.Get(ctx, 999)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

// Every spot within the radius is returned and nothing outside it.
func TestSearchService_MatchesBruteForce(t *testing.T) {
	env := newTestEnv(t)
	rng := rand.New(rand.NewSource(7))

	var spots []*models.StudySpot
	for i := 0; i < 300; i++ {
		lat := 48.85 + (rng.Float64()-0.5)*0.4
		lon := 2.35 + (rng.Float64()-0.5)*0.6
		spots = append(spots, env.addSpot(t, fmt.Sprintf("s%d", i), lat, lon))
	}

	for _, radius := range []float64{0.5, 2, 7.5, 20} {
		results, err := env.search.Search(context.Background(), SearchParams{
			Latitude:  float(48.85),
			Longitude: float(2.35),
			RadiusKm:  float(radius),
		})
		require.NoError(t, err)

		want := map[int64]bool{}
		for _, s := range spots {
			if geo.Distance(48.85, 2.35, s.Latitude, s.Longitude) <= radius {
				want[s.ID] = true
			}
		}

		assert.Len(t, results, len(want), "radius %g", radius)
		for i, r := range results {
			assert.True(t, want[r.ID], "radius %g returned spot %d", radius, r.ID)
			assert.LessOrEqual(t, *r.DistanceKm, radius)
			if i > 0 {
				assert.LessOrEqual(t, *results[i-1].DistanceKm, *r.DistanceKm)
			}
		}
	}
}
