package memory

import (
	"context"
	"fmt"
	"sort"

	"studyspot-backend/internal/models"
	"studyspot-backend/internal/repository"
)

// PhotoRepository stores photos in memory
type PhotoRepository struct {
	d *data
}

var _ repository.PhotoRepository = (*PhotoRepository)(nil)

func (r *PhotoRepository) Create(ctx context.Context, photo *models.Photo) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	if _, ok := r.d.spots[photo.StudySpotID]; !ok {
		return fmt.Errorf("study spot %d: %w", photo.StudySpotID, repository.ErrNotFound)
	}
	if photo.IsPrimary {
		r.clearPrimaryLocked(photo.StudySpotID)
	}

	photo.ID = r.d.nextID()
	stored := *photo
	r.d.photos[photo.ID] = &stored
	return nil
}

func (r *PhotoRepository) SetPrimary(ctx context.Context, spotID, photoID int64) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	photo, ok := r.d.photos[photoID]
	if !ok || photo.StudySpotID != spotID {
		return fmt.Errorf("photo %d of study spot %d: %w", photoID, spotID, repository.ErrNotFound)
	}
	r.clearPrimaryLocked(spotID)
	photo.IsPrimary = true
	return nil
}

func (r *PhotoRepository) ListBySpots(ctx context.Context, spotIDs []int64) (map[int64][]models.Photo, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	wanted := make(map[int64]bool, len(spotIDs))
	for _, id := range spotIDs {
		wanted[id] = true
	}

	photos := make(map[int64][]models.Photo, len(spotIDs))
	for _, photo := range r.d.photos {
		if wanted[photo.StudySpotID] {
			photos[photo.StudySpotID] = append(photos[photo.StudySpotID], *photo)
		}
	}

	for _, list := range photos {
		sort.Slice(list, func(i, j int) bool {
			a, b := list[i], list[j]
			if a.IsPrimary != b.IsPrimary {
				return a.IsPrimary
			}
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.ID > b.ID
		})
	}
	return photos, nil
}

func (r *PhotoRepository) clearPrimaryLocked(spotID int64) {
	for _, photo := range r.d.photos {
		if photo.StudySpotID == spotID {
			photo.IsPrimary = false
		}
	}
}
