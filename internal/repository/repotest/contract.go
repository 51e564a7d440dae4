// Package repotest holds the behaviour every repository backend must share.
// Each backend's tests call Run with a factory for an empty store.
package repotest

import (
	"context"
	"testing"
	"time"

	"studyspot-backend/internal/geo"
	"studyspot-backend/internal/models"
	"studyspot-backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run executes the contract against stores returned by newStore
func Run(t *testing.T, newStore func(t *testing.T) *repository.Store) {
	t.Run("Spots", func(t *testing.T) { testSpots(t, newStore(t)) })
	t.Run("Reviews", func(t *testing.T) { testReviews(t, newStore(t)) })
	t.Run("Checkins", func(t *testing.T) { testCheckins(t, newStore(t)) })
	t.Run("Photos", func(t *testing.T) { testPhotos(t, newStore(t)) })
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
}

func seedSpot(t *testing.T, s *repository.Store, placeID string, lat, lon float64) *models.StudySpot {
	t.Helper()
	spot := &models.StudySpot{Name: placeID, PlaceID: placeID, Latitude: lat, Longitude: lon}
	require.NoError(t, s.Spots.Create(context.Background(), spot))
	require.NotZero(t, spot.ID)
	return spot
}

func seedUser(t *testing.T, s *repository.Store, name string) *models.User {
	t.Helper()
	user := &models.User{Name: name, Email: name + "@example.com", PasswordHash: "hash"}
	require.NoError(t, s.Users.Create(context.Background(), user))
	require.NotZero(t, user.ID)
	return user
}

func seedReview(t *testing.T, s *repository.Store, user *models.User, spot *models.StudySpot, rating int) *models.Review {
	t.Helper()
	review := &models.Review{StudySpotID: spot.ID, UserID: user.ID, Rating: rating, CreatedAt: time.Now().UTC()}
	require.NoError(t, s.Reviews.Create(context.Background(), review))
	return review
}

func testSpots(t *testing.T, s *repository.Store) {
	ctx := context.Background()
	a := seedSpot(t, s, "a", 0, 0)
	b := seedSpot(t, s, "b", 0, 0.02)
	far := seedSpot(t, s, "far", 45, 90)

	err := s.Spots.Create(ctx, &models.StudySpot{Name: "dup", PlaceID: "a"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	got, err := s.Spots.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SpotStatusPending, got.Status)

	require.NoError(t, s.Spots.UpdateStatus(ctx, a.ID, models.SpotStatusActive))
	got, err = s.Spots.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SpotStatusActive, got.Status)

	_, err = s.Spots.GetByID(ctx, far.ID+1000)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, s.Spots.UpdateStatus(ctx, far.ID+1000, models.SpotStatusClosed), repository.ErrNotFound)

	all, err := s.Spots.ListWithRatings(ctx, repository.SpotQuery{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{a.ID, b.ID, far.ID}, []int64{all[0].ID, all[1].ID, all[2].ID})

	box := geo.NewBoundingBox(0, 0, 5)
	near, err := s.Spots.ListWithRatings(ctx, repository.SpotQuery{Box: &box})
	require.NoError(t, err)
	assert.Len(t, near, 2)

	limited, err := s.Spots.ListWithRatings(ctx, repository.SpotQuery{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, a.ID, limited[0].ID)

	ann, bob := seedUser(t, s, "ann"), seedUser(t, s, "bob")
	seedReview(t, s, ann, a, 4)
	seedReview(t, s, bob, a, 5)

	agg, err := s.Spots.GetWithRating(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, agg.AvgRating)
	assert.InDelta(t, 4.5, *agg.AvgRating, 1e-9)

	agg, err = s.Spots.GetWithRating(ctx, b.ID)
	require.NoError(t, err)
	assert.Nil(t, agg.AvgRating)
}

func testReviews(t *testing.T, s *repository.Store) {
	ctx := context.Background()
	spot := seedSpot(t, s, "library", 0, 0)
	other := seedSpot(t, s, "cafe", 0, 0)
	ann, bob := seedUser(t, s, "ann"), seedUser(t, s, "bob")

	first := seedReview(t, s, ann, spot, 3)
	seedReview(t, s, bob, spot, 4)
	seedReview(t, s, ann, other, 5)

	err := s.Reviews.Create(ctx, &models.Review{StudySpotID: spot.ID, UserID: ann.ID, Rating: 1, CreatedAt: time.Now()})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
	err = s.Reviews.Create(ctx, &models.Review{StudySpotID: other.ID + 1000, UserID: bob.ID, Rating: 1, CreatedAt: time.Now()})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	got, err := s.Reviews.GetByID(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, got.UserName)
	assert.Equal(t, "ann", *got.UserName)

	bySpot, err := s.Reviews.List(ctx, repository.ReviewFilter{StudySpotID: &spot.ID})
	require.NoError(t, err)
	assert.Len(t, bySpot, 2)
	assert.Greater(t, bySpot[0].ID, bySpot[1].ID)

	byUser, err := s.Reviews.List(ctx, repository.ReviewFilter{UserID: &ann.ID})
	require.NoError(t, err)
	assert.Len(t, byUser, 2)

	page, err := s.Reviews.List(ctx, repository.ReviewFilter{Limit: 1, Offset: 2})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, first.ID, page[0].ID)

	comment := "renovated"
	got.Rating = 5
	got.Comment = &comment
	require.NoError(t, s.Reviews.Update(ctx, got))
	got, err = s.Reviews.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Rating)
	assert.Equal(t, comment, *got.Comment)

	require.NoError(t, s.Reviews.Delete(ctx, first.ID))
	assert.ErrorIs(t, s.Reviews.Delete(ctx, first.ID), repository.ErrNotFound)
	_, err = s.Reviews.GetByID(ctx, first.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func testCheckins(t *testing.T, s *repository.Store) {
	ctx := context.Background()
	spot := seedSpot(t, s, "library", 0, 0)
	quiet := seedSpot(t, s, "cafe", 0, 0)
	ann, bob := seedUser(t, s, "ann"), seedUser(t, s, "bob")

	first, err := s.Checkins.Open(ctx, ann.ID, spot.ID, 100)
	require.NoError(t, err)
	assert.True(t, first.Open())

	_, err = s.Checkins.Open(ctx, ann.ID, spot.ID, 101)
	assert.ErrorIs(t, err, repository.ErrDuplicate)
	_, err = s.Checkins.Open(ctx, ann.ID, quiet.ID+1000, 101)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = s.Checkins.Open(ctx, bob.ID, spot.ID, 102)
	require.NoError(t, err)

	open, err := s.Checkins.HasOpen(ctx, ann.ID, spot.ID)
	require.NoError(t, err)
	assert.True(t, open)

	counts, err := s.Checkins.CountOpenBySpots(ctx, []int64{spot.ID, quiet.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, counts[spot.ID])
	assert.Equal(t, 0, counts[quiet.ID])

	closed, err := s.Checkins.CloseLatest(ctx, ann.ID, spot.ID, 200)
	require.NoError(t, err)
	assert.Equal(t, first.ID, closed.ID)
	require.NotNil(t, closed.CheckoutTimestamp)
	assert.Equal(t, 200.0, *closed.CheckoutTimestamp)

	_, err = s.Checkins.CloseLatest(ctx, ann.ID, spot.ID, 201)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	n, err := s.Checkins.CountOpen(ctx, spot.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	second, err := s.Checkins.Open(ctx, ann.ID, spot.ID, 300)
	require.NoError(t, err)

	history, err := s.Checkins.History(ctx, ann.ID, spot.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID)
	assert.Equal(t, first.ID, history[1].ID)
}

func testPhotos(t *testing.T, s *repository.Store) {
	ctx := context.Background()
	spot := seedSpot(t, s, "library", 0, 0)
	other := seedSpot(t, s, "cafe", 0, 0)
	now := time.Now().UTC().Truncate(time.Millisecond)

	a := &models.Photo{StudySpotID: spot.ID, Key: "a", URL: "u/a", IsPrimary: true, CreatedAt: now}
	require.NoError(t, s.Photos.Create(ctx, a))
	b := &models.Photo{StudySpotID: spot.ID, Key: "b", URL: "u/b", IsPrimary: true, CreatedAt: now.Add(time.Second)}
	require.NoError(t, s.Photos.Create(ctx, b))
	c := &models.Photo{StudySpotID: spot.ID, Key: "c", URL: "u/c", CreatedAt: now.Add(2 * time.Second)}
	require.NoError(t, s.Photos.Create(ctx, c))

	assert.ErrorIs(t, s.Photos.Create(ctx, &models.Photo{StudySpotID: other.ID + 1000, Key: "x", CreatedAt: now}),
		repository.ErrNotFound)

	grouped, err := s.Photos.ListBySpots(ctx, []int64{spot.ID, other.ID})
	require.NoError(t, err)
	require.Len(t, grouped[spot.ID], 3)
	assert.Equal(t, []string{"b", "c", "a"}, keys(grouped[spot.ID]))
	assert.Empty(t, grouped[other.ID])

	require.NoError(t, s.Photos.SetPrimary(ctx, spot.ID, a.ID))
	grouped, err = s.Photos.ListBySpots(ctx, []int64{spot.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "b"}, keys(grouped[spot.ID]))

	primaries := 0
	for _, p := range grouped[spot.ID] {
		if p.IsPrimary {
			primaries++
		}
	}
	assert.Equal(t, 1, primaries)

	assert.ErrorIs(t, s.Photos.SetPrimary(ctx, other.ID, a.ID), repository.ErrNotFound)
}

func testUsers(t *testing.T, s *repository.Store) {
	ctx := context.Background()
	ann := seedUser(t, s, "ann")
	bob := &models.User{Name: "bob", Email: "bob@example.com", Role: models.UserRoleBusiness, PasswordHash: "hash"}
	require.NoError(t, s.Users.Create(ctx, bob))

	err := s.Users.Create(ctx, &models.User{Name: "ann2", Email: "ann@example.com", PasswordHash: "hash"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	got, err := s.Users.GetByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, bob.ID, got.ID)
	assert.Equal(t, models.UserRoleBusiness, got.Role)
	assert.Equal(t, "hash", got.PasswordHash)

	_, err = s.Users.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = s.Users.GetByID(ctx, bob.ID+1000)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	users, err := s.Users.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, ann.ID, users[0].ID)
}

func keys(photos []models.Photo) []string {
	out := make([]string, len(photos))
	for i, p := range photos {
		out[i] = p.Key
	}
	return out
}
