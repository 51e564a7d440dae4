package memory

import (
	"context"
	"fmt"
	"sort"

	"studyspot-backend/internal/models"
	"studyspot-backend/internal/repository"
)

// ReviewRepository stores reviews in memory
type ReviewRepository struct {
	d *data
}

var _ repository.ReviewRepository = (*ReviewRepository)(nil)

func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	if _, ok := r.d.spots[review.StudySpotID]; !ok {
		return fmt.Errorf("study spot %d: %w", review.StudySpotID, repository.ErrNotFound)
	}
	if _, ok := r.d.users[review.UserID]; !ok {
		return fmt.Errorf("user %d: %w", review.UserID, repository.ErrNotFound)
	}
	for _, existing := range r.d.reviews {
		if existing.UserID == review.UserID && existing.StudySpotID == review.StudySpotID {
			return fmt.Errorf("review by user %d for spot %d: %w", review.UserID, review.StudySpotID, repository.ErrDuplicate)
		}
	}

	review.ID = r.d.nextID()
	review.UserName = ptr(r.d.users[review.UserID].Name)
	stored := *review
	r.d.reviews[review.ID] = &stored
	return nil
}

func (r *ReviewRepository) GetByID(ctx context.Context, id int64) (*models.Review, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	review, ok := r.d.reviews[id]
	if !ok {
		return nil, fmt.Errorf("review %d: %w", id, repository.ErrNotFound)
	}
	return r.withUserName(review), nil
}

func (r *ReviewRepository) List(ctx context.Context, f repository.ReviewFilter) ([]*models.Review, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	var reviews []*models.Review
	for _, review := range r.d.reviews {
		if f.StudySpotID != nil && review.StudySpotID != *f.StudySpotID {
			continue
		}
		if f.UserID != nil && review.UserID != *f.UserID {
			continue
		}
		reviews = append(reviews, r.withUserName(review))
	}
	sort.Slice(reviews, func(i, j int) bool { return reviews[i].ID > reviews[j].ID })

	if f.Offset >= len(reviews) {
		return []*models.Review{}, nil
	}
	reviews = reviews[f.Offset:]
	if f.Limit > 0 && f.Limit < len(reviews) {
		reviews = reviews[:f.Limit]
	}
	return reviews, nil
}

func (r *ReviewRepository) Update(ctx context.Context, review *models.Review) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	existing, ok := r.d.reviews[review.ID]
	if !ok {
		return fmt.Errorf("review %d: %w", review.ID, repository.ErrNotFound)
	}
	existing.Rating = review.Rating
	existing.Comment = review.Comment
	return nil
}

func (r *ReviewRepository) Delete(ctx context.Context, id int64) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	if _, ok := r.d.reviews[id]; !ok {
		return fmt.Errorf("review %d: %w", id, repository.ErrNotFound)
	}
	delete(r.d.reviews, id)
	return nil
}

// withUserName must be called with the read lock held
func (r *ReviewRepository) withUserName(review *models.Review) *models.Review {
	result := *review
	result.UserName = nil
	if user, ok := r.d.users[review.UserID]; ok {
		result.UserName = ptr(user.Name)
	}
	return &result
}
