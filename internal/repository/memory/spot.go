package memory

import (
	"context"
	"fmt"
	"sort"

	"studyspot-backend/internal/models"
	"studyspot-backend/internal/repository"
)

// SpotRepository stores study spots in memory
type SpotRepository struct {
	d *data
}

var _ repository.SpotRepository = (*SpotRepository)(nil)

func (r *SpotRepository) Create(ctx context.Context, spot *models.StudySpot) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	for _, existing := range r.d.spots {
		if existing.PlaceID == spot.PlaceID {
			return fmt.Errorf("place_id %q: %w", spot.PlaceID, repository.ErrDuplicate)
		}
	}

	spot.ID = r.d.nextID()
	stored := *spot
	r.d.spots[spot.ID] = &stored
	return nil
}

func (r *SpotRepository) GetByID(ctx context.Context, id int64) (*models.StudySpot, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	spot, ok := r.d.spots[id]
	if !ok {
		return nil, fmt.Errorf("study spot %d: %w", id, repository.ErrNotFound)
	}
	result := *spot
	return &result, nil
}

func (r *SpotRepository) UpdateStatus(ctx context.Context, id int64, status models.SpotStatus) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	spot, ok := r.d.spots[id]
	if !ok {
		return fmt.Errorf("study spot %d: %w", id, repository.ErrNotFound)
	}
	spot.Status = status
	return nil
}

func (r *SpotRepository) ListWithRatings(ctx context.Context, q repository.SpotQuery) ([]models.SpotAggregate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	ids := make([]int64, 0, len(r.d.spots))
	for id, spot := range r.d.spots {
		if q.Box != nil && !q.Box.Contains(spot.Latitude, spot.Longitude) {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if q.Limit > 0 && len(ids) > q.Limit {
		ids = ids[:q.Limit]
	}

	spots := make([]models.SpotAggregate, 0, len(ids))
	for _, id := range ids {
		spots = append(spots, r.aggregate(r.d.spots[id]))
	}
	return spots, nil
}

func (r *SpotRepository) GetWithRating(ctx context.Context, id int64) (*models.SpotAggregate, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	spot, ok := r.d.spots[id]
	if !ok {
		return nil, fmt.Errorf("study spot %d: %w", id, repository.ErrNotFound)
	}
	agg := r.aggregate(spot)
	return &agg, nil
}

// aggregate must be called with the read lock held
func (r *SpotRepository) aggregate(spot *models.StudySpot) models.SpotAggregate {
	var sum, n int
	for _, review := range r.d.reviews {
		if review.StudySpotID == spot.ID {
			sum += review.Rating
			n++
		}
	}

	agg := models.SpotAggregate{StudySpot: *spot}
	if n > 0 {
		agg.AvgRating = ptr(float64(sum) / float64(n))
	}
	return agg
}
