package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"studyspot-backend/internal/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckinService_Lifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	spot := env.addSpot(t, "library", 0, 0)
	user := env.addUser(t, "ann")

	clock := time.Unix(1700000000, 0)
	env.checkins.now = func() time.Time { return clock }

	status, err := env.checkins.Status(ctx, user.ID, spot.ID)
	require.NoError(t, err)
	assert.False(t, status.IsUserCheckin)

	first, err := env.checkins.SignIn(ctx, user.ID, spot.ID)
	require.NoError(t, err)
	assert.True(t, first.Open())
	assert.Equal(t, 1700000000.0, first.CheckinTimestamp)

	_, err = env.checkins.SignIn(ctx, user.ID, spot.ID)
	assert.ErrorIs(t, err, apperror.ErrConflict)

	status, err = env.checkins.Status(ctx, user.ID, spot.ID)
	require.NoError(t, err)
	assert.True(t, status.IsUserCheckin)

	count, err := env.checkins.ActiveCount(ctx, spot.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count.ActiveCheckins)

	clock = clock.Add(90 * time.Minute)
	closed, err := env.checkins.SignOut(ctx, user.ID, spot.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, closed.ID)
	require.NotNil(t, closed.CheckoutTimestamp)
	assert.Equal(t, 1700005400.0, *closed.CheckoutTimestamp)

	_, err = env.checkins.SignOut(ctx, user.ID, spot.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	count, err = env.checkins.ActiveCount(ctx, spot.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count.ActiveCheckins)

	clock = clock.Add(time.Hour)
	second, err := env.checkins.SignIn(ctx, user.ID, spot.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	history, err := env.checkins.History(ctx, user.ID, spot.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID)
	assert.True(t, history[0].Open())
	assert.Equal(t, first.ID, history[1].ID)
	assert.False(t, history[1].Open())
}

func TestCheckinService_SignInUnknownReferences(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	spot := env.addSpot(t, "library", 0, 0)
	user := env.addUser(t, "ann")

	_, err := env.checkins.SignIn(ctx, user.ID, 999)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = env.checkins.SignIn(ctx, 999, spot.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = env.checkins.ActiveCount(ctx, 999)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestCheckinService_StatusIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	spot := env.addSpot(t, "library", 0, 0)
	user := env.addUser(t, "ann")
	_, err := env.checkins.SignIn(ctx, user.ID, spot.ID)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		status, err := env.checkins.Status(ctx, user.ID, spot.ID)
		require.NoError(t, err)
		assert.Equal(t, &CheckinStatus{StudySpotID: spot.ID, UserID: user.ID, IsUserCheckin: true}, status)
	}

	history, err := env.checkins.History(ctx, user.ID, spot.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestCheckinService_UsersAreIndependent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	spot := env.addSpot(t, "library", 0, 0)
	other := env.addSpot(t, "cafe", 0, 0.01)
	ann := env.addUser(t, "ann")
	bob := env.addUser(t, "bob")

	_, err := env.checkins.SignIn(ctx, ann.ID, spot.ID)
	require.NoError(t, err)
	_, err = env.checkins.SignIn(ctx, bob.ID, spot.ID)
	require.NoError(t, err)
	_, err = env.checkins.SignIn(ctx, ann.ID, other.ID)
	require.NoError(t, err)

	_, err = env.checkins.SignOut(ctx, bob.ID, other.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	count, err := env.checkins.ActiveCount(ctx, spot.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count.ActiveCheckins)

	history, err := env.checkins.History(ctx, bob.ID, other.ID)
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)
}

func TestCheckinService_PublishesOccupancy(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	spot := env.addSpot(t, "library", 0, 0)
	ann := env.addUser(t, "ann")
	bob := env.addUser(t, "bob")

	_, err := env.checkins.SignIn(ctx, ann.ID, spot.ID)
	require.NoError(t, err)
	_, err = env.checkins.SignIn(ctx, bob.ID, spot.ID)
	require.NoError(t, err)
	_, err = env.checkins.SignIn(ctx, bob.ID, spot.ID)
	require.Error(t, err)
	_, err = env.checkins.SignOut(ctx, ann.ID, spot.ID)
	require.NoError(t, err)

	assert.Equal(t, []ActiveCount{
		{StudySpotID: spot.ID, ActiveCheckins: 1},
		{StudySpotID: spot.ID, ActiveCheckins: 2},
		{StudySpotID: spot.ID, ActiveCheckins: 1},
	}, env.publisher.updates)
}

func TestCheckinService_LastBroadcastMatchesConcurrentTransitions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	spot := env.addSpot(t, "library", 0, 0)

	const users = 24
	ids := make([]int64, users)
	for i := range ids {
		ids[i] = env.addUser(t, fmt.Sprintf("user%d", i)).ID
	}

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(leave bool, userID int64) {
			defer wg.Done()
			_, err := env.checkins.SignIn(ctx, userID, spot.ID)
			assert.NoError(t, err)
			if leave {
				_, err = env.checkins.SignOut(ctx, userID, spot.ID)
				assert.NoError(t, err)
			}
		}(i%2 == 1, id)
	}
	wg.Wait()

	count, err := env.checkins.ActiveCount(ctx, spot.ID)
	require.NoError(t, err)
	assert.Equal(t, users/2, count.ActiveCheckins)
	assert.Equal(t, ActiveCount{StudySpotID: spot.ID, ActiveCheckins: users / 2}, env.publisher.last())
}
