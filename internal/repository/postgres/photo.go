package postgres

import (
	"context"
	"fmt"

	"studyspot-backend/internal/models"
	"studyspot-backend/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PhotoRepository handles database operations for photos
type PhotoRepository struct {
	db *pgxpool.Pool
}

var _ repository.PhotoRepository = (*PhotoRepository)(nil)

// NewPhotoRepository creates a new photo repository
func NewPhotoRepository(db *pgxpool.Pool) *PhotoRepository {
	return &PhotoRepository{db: db}
}

// Create inserts a photo. When the photo is primary the previous primary of
// the spot is demoted in the same transaction.
func (r *PhotoRepository) Create(ctx context.Context, photo *models.Photo) error {
	return withTx(ctx, r.db, func(tx pgx.Tx) error {
		if photo.IsPrimary {
			if err := clearPrimary(ctx, tx, photo.StudySpotID); err != nil {
				return err
			}
		}

		query := `
			INSERT INTO photos (studyspot_id, url, key, is_primary, created_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`
		err := tx.QueryRow(ctx, query,
			photo.StudySpotID, photo.URL, photo.Key, photo.IsPrimary, photo.CreatedAt,
		).Scan(&photo.ID)
		if err != nil {
			return fmt.Errorf("failed to create photo: %w", classify(err))
		}
		return nil
	})
}

// SetPrimary makes photoID the only primary photo of spotID
func (r *PhotoRepository) SetPrimary(ctx context.Context, spotID, photoID int64) error {
	return withTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := clearPrimary(ctx, tx, spotID); err != nil {
			return err
		}

		result, err := tx.Exec(ctx,
			`UPDATE photos SET is_primary = true WHERE id = $1 AND studyspot_id = $2`,
			photoID, spotID,
		)
		if err != nil {
			return fmt.Errorf("failed to set primary photo: %w", classify(err))
		}
		if result.RowsAffected() == 0 {
			return fmt.Errorf("photo %d of study spot %d: %w", photoID, spotID, repository.ErrNotFound)
		}
		return nil
	})
}

// ListBySpots retrieves photos for several spots, primary first then newest
func (r *PhotoRepository) ListBySpots(ctx context.Context, spotIDs []int64) (map[int64][]models.Photo, error) {
	photos := make(map[int64][]models.Photo, len(spotIDs))
	if len(spotIDs) == 0 {
		return photos, nil
	}

	query := `
		SELECT id, studyspot_id, url, key, is_primary, created_at
		FROM photos
		WHERE studyspot_id = ANY($1)
		ORDER BY studyspot_id, is_primary DESC, created_at DESC, id DESC
	`
	rows, err := r.db.Query(ctx, query, spotIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get photos: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var photo models.Photo
		err := rows.Scan(
			&photo.ID, &photo.StudySpotID, &photo.URL, &photo.Key,
			&photo.IsPrimary, &photo.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		photos[photo.StudySpotID] = append(photos[photo.StudySpotID], photo)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating photos: %w", err)
	}

	return photos, nil
}

func clearPrimary(ctx context.Context, tx pgx.Tx, spotID int64) error {
	_, err := tx.Exec(ctx,
		`UPDATE photos SET is_primary = false WHERE studyspot_id = $1 AND is_primary`,
		spotID,
	)
	if err != nil {
		return fmt.Errorf("failed to clear primary photo: %w", err)
	}
	return nil
}
