package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"studyspot-backend/internal/models"
	"studyspot-backend/internal/repository"
	"studyspot-backend/internal/repository/repotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Contract(t *testing.T) {
	repotest.Run(t, func(t *testing.T) *repository.Store { return NewStore() })
}

// Concurrent sign-ins for the same pair leave exactly one open check-in
func TestCheckinRepository_ConcurrentOpen(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	spot := &models.StudySpot{Name: "library", PlaceID: "p"}
	require.NoError(t, store.Spots.Create(ctx, spot))
	user := &models.User{Name: "ann", Email: "ann@example.com"}
	require.NoError(t, store.Users.Create(ctx, user))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Checkins.Open(ctx, user.ID, spot.ID, 1)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, repository.ErrDuplicate)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	n, err := store.Checkins.CountOpen(ctx, spot.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCheckinRepository_FailCounts(t *testing.T) {
	store := NewStore()
	boom := errors.New("boom")
	store.Checkins.(*CheckinRepository).SetFailCounts(boom)

	_, err := store.Checkins.CountOpenBySpots(context.Background(), []int64{1})
	assert.ErrorIs(t, err, boom)
	_, err = store.Checkins.CountOpen(context.Background(), 1)
	assert.ErrorIs(t, err, boom)

	store.Checkins.(*CheckinRepository).SetFailCounts(nil)
	_, err = store.Checkins.CountOpen(context.Background(), 1)
	assert.NoError(t, err)
}

func TestCheckinRepository_SetFailCountsWhileCounting(t *testing.T) {
	store := NewStore()
	checkins := store.Checkins.(*CheckinRepository)
	boom := errors.New("boom")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, err := checkins.CountOpen(context.Background(), 1)
				if err != nil {
					assert.ErrorIs(t, err, boom)
				}
			}
		}()
	}
	for j := 0; j < 50; j++ {
		if j%2 == 0 {
			checkins.SetFailCounts(boom)
		} else {
			checkins.SetFailCounts(nil)
		}
	}
	wg.Wait()
}
