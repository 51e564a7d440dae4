package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"studyspot-backend/internal/config"
	"studyspot-backend/internal/models"
	"studyspot-backend/internal/repository"
	"studyspot-backend/internal/repository/memory"

	"github.com/stretchr/testify/require"
)

var errSigner = errors.New("signer unavailable")

type fakeSigner struct {
	failGet bool
	failPut bool
}

func (f *fakeSigner) SignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	if f.failGet {
		return "", errSigner
	}
	return "https://signed.test/" + key + "?ttl=" + ttl.String(), nil
}

func (f *fakeSigner) SignPut(_ context.Context, key, _ string, _ time.Duration) (string, error) {
	if f.failPut {
		return "", errSigner
	}
	return "https://upload.test/" + key, nil
}

func (f *fakeSigner) CanonicalURL(key string) string {
	return "https://bucket.test/" + key
}

type recordingPublisher struct {
	mu      sync.Mutex
	updates []ActiveCount
}

func (p *recordingPublisher) PublishOccupancy(spotID int64, active int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, ActiveCount{StudySpotID: spotID, ActiveCheckins: active})
}

func (p *recordingPublisher) last() ActiveCount {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.updates[len(p.updates)-1]
}

type testEnv struct {
	store     *repository.Store
	signer    *fakeSigner
	publisher *recordingPublisher
	photos    *PhotoService
	search    *SearchService
	checkins  *CheckinService
	reviews   *ReviewService
	spots     *SpotService
}

func testSearchConfig() config.SearchConfig {
	return config.SearchConfig{
		DefaultRadiusKm: 1.0,
		MaxRadiusKm:     100,
		MaxCandidates:   1000,
		QueryTimeout:    time.Second,
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewStore()
	signer := &fakeSigner{}
	publisher := &recordingPublisher{}
	photos := NewPhotoService(store.Photos, store.Spots, signer, time.Hour, nil)

	return &testEnv{
		store:     store,
		signer:    signer,
		publisher: publisher,
		photos:    photos,
		search:    NewSearchService(store.Spots, store.Checkins, photos, testSearchConfig(), nil),
		checkins:  NewCheckinService(store.Checkins, store.Spots, store.Users, publisher, nil),
		reviews:   NewReviewService(store.Reviews, store.Spots, store.Users),
		spots:     NewSpotService(store.Spots),
	}
}

func (e *testEnv) addSpot(t *testing.T, name string, lat, lon float64) *models.StudySpot {
	t.Helper()
	spot, err := e.spots.Create(context.Background(), CreateSpotRequest{
		Name:      name,
		PlaceID:   "place-" + name,
		Latitude:  lat,
		Longitude: lon,
	})
	require.NoError(t, err)
	return spot
}

func (e *testEnv) addUser(t *testing.T, name string) *models.User {
	t.Helper()
	user := &models.User{Name: name, Email: name + "@example.com", PasswordHash: "x"}
	require.NoError(t, e.store.Users.Create(context.Background(), user))
	return user
}

func (e *testEnv) review(t *testing.T, user *models.User, spot *models.StudySpot, rating int) {
	t.Helper()
	_, err := e.reviews.Create(context.Background(), user.ID, ReviewRequest{StudySpotID: spot.ID, Rating: rating})
	require.NoError(t, err)
}

func float(v float64) *float64 { return &v }

func integer(v int) *int { return &v }
