package memory

import (
	"context"
	"fmt"
	"sort"

	"studyspot-backend/internal/models"
	"studyspot-backend/internal/repository"
)

// CheckinRepository stores check-ins in memory
type CheckinRepository struct {
	d *data

	failCounts error // guarded by d.mu
}

var _ repository.CheckinRepository = (*CheckinRepository)(nil)

func (r *CheckinRepository) Open(ctx context.Context, userID, spotID int64, at float64) (*models.Checkin, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	if _, ok := r.d.spots[spotID]; !ok {
		return nil, fmt.Errorf("study spot %d: %w", spotID, repository.ErrNotFound)
	}
	if _, ok := r.d.users[userID]; !ok {
		return nil, fmt.Errorf("user %d: %w", userID, repository.ErrNotFound)
	}
	if r.openLocked(userID, spotID) != nil {
		return nil, fmt.Errorf("open check-in for user %d at spot %d: %w", userID, spotID, repository.ErrDuplicate)
	}

	checkin := &models.Checkin{
		ID:               r.d.nextID(),
		StudySpotID:      spotID,
		UserID:           userID,
		CheckinTimestamp: at,
	}
	r.d.checkins[checkin.ID] = checkin
	result := *checkin
	return &result, nil
}

func (r *CheckinRepository) CloseLatest(ctx context.Context, userID, spotID int64, at float64) (*models.Checkin, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	checkin := r.openLocked(userID, spotID)
	if checkin == nil {
		return nil, fmt.Errorf("open check-in for user %d at spot %d: %w", userID, spotID, repository.ErrNotFound)
	}
	checkin.CheckoutTimestamp = ptr(at)
	result := *checkin
	return &result, nil
}

func (r *CheckinRepository) HasOpen(ctx context.Context, userID, spotID int64) (bool, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	return r.openLocked(userID, spotID) != nil, nil
}

func (r *CheckinRepository) CountOpen(ctx context.Context, spotID int64) (int, error) {
	counts, err := r.CountOpenBySpots(ctx, []int64{spotID})
	if err != nil {
		return 0, err
	}
	return counts[spotID], nil
}

// SetFailCounts makes the count queries return err, for exercising degraded
// paths. A nil err restores normal counting. Safe while requests are in flight.
func (r *CheckinRepository) SetFailCounts(err error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	r.failCounts = err
}

func (r *CheckinRepository) CountOpenBySpots(ctx context.Context, spotIDs []int64) (map[int64]int, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	if r.failCounts != nil {
		return nil, r.failCounts
	}

	wanted := make(map[int64]bool, len(spotIDs))
	for _, id := range spotIDs {
		wanted[id] = true
	}

	counts := make(map[int64]int, len(spotIDs))
	for _, checkin := range r.d.checkins {
		if checkin.Open() && wanted[checkin.StudySpotID] {
			counts[checkin.StudySpotID]++
		}
	}
	return counts, nil
}

func (r *CheckinRepository) History(ctx context.Context, userID, spotID int64) ([]*models.Checkin, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	var history []*models.Checkin
	for _, checkin := range r.d.checkins {
		if checkin.UserID == userID && checkin.StudySpotID == spotID {
			result := *checkin
			history = append(history, &result)
		}
	}
	sortNewestFirst(history)
	return history, nil
}

// openLocked returns the most recent open check-in of the pair, or nil
func (r *CheckinRepository) openLocked(userID, spotID int64) *models.Checkin {
	var latest *models.Checkin
	for _, checkin := range r.d.checkins {
		if checkin.UserID != userID || checkin.StudySpotID != spotID || !checkin.Open() {
			continue
		}
		if latest == nil || newer(checkin, latest) {
			latest = checkin
		}
	}
	return latest
}

func newer(a, b *models.Checkin) bool {
	if a.CheckinTimestamp != b.CheckinTimestamp {
		return a.CheckinTimestamp > b.CheckinTimestamp
	}
	return a.ID > b.ID
}

func sortNewestFirst(checkins []*models.Checkin) {
	sort.Slice(checkins, func(i, j int) bool { return newer(checkins[i], checkins[j]) })
}
