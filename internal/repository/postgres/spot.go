package postgres

import (
	"context"
	"fmt"
	"strings"

	"studyspot-backend/internal/models"
	"studyspot-backend/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const spotColumns = `s.id, s.name, s.place_id, s.latitude, s.longitude, s.status, s.description`

// SpotRepository handles database operations for study spots
type SpotRepository struct {
	db *pgxpool.Pool
}

var _ repository.SpotRepository = (*SpotRepository)(nil)

// NewSpotRepository creates a new study spot repository
func NewSpotRepository(db *pgxpool.Pool) *SpotRepository {
	return &SpotRepository{db: db}
}

// Create inserts a study spot and fills in its ID
func (r *SpotRepository) Create(ctx context.Context, spot *models.StudySpot) error {
	query := `
		INSERT INTO study_spots (name, place_id, latitude, longitude, status, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query,
		spot.Name, spot.PlaceID, spot.Latitude, spot.Longitude, spot.Status.String(), spot.Description,
	).Scan(&spot.ID)
	if err != nil {
		return fmt.Errorf("failed to create study spot: %w", classify(err))
	}
	return nil
}

// GetByID retrieves a study spot by ID
func (r *SpotRepository) GetByID(ctx context.Context, id int64) (*models.StudySpot, error) {
	query := `SELECT ` + spotColumns + ` FROM study_spots s WHERE s.id = $1`
	spot, err := scanSpot(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get study spot %d: %w", id, classify(err))
	}
	return spot, nil
}

// UpdateStatus changes the lifecycle status of a study spot
func (r *SpotRepository) UpdateStatus(ctx context.Context, id int64, status models.SpotStatus) error {
	query := `UPDATE study_spots SET status = $1 WHERE id = $2`
	result, err := r.db.Exec(ctx, query, status.String(), id)
	if err != nil {
		return fmt.Errorf("failed to update study spot status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("study spot %d: %w", id, repository.ErrNotFound)
	}
	return nil
}

// ListWithRatings scans spots inside the optional bounding box, joined with
// their average rating
func (r *SpotRepository) ListWithRatings(ctx context.Context, q repository.SpotQuery) ([]models.SpotAggregate, error) {
	var (
		where []string
		args  []any
	)
	if q.Box != nil {
		args = append(args, q.Box.MinLat, q.Box.MaxLat, q.Box.MinLon, q.Box.MaxLon)
		where = append(where, `s.latitude BETWEEN $1 AND $2 AND s.longitude BETWEEN $3 AND $4`)
	}

	var sb strings.Builder
	sb.WriteString(`SELECT ` + spotColumns + `, AVG(r.rating)::float8
		FROM study_spots s
		LEFT JOIN reviews r ON r.studyspot_id = s.id`)
	if len(where) > 0 {
		sb.WriteString(` WHERE ` + strings.Join(where, ` AND `))
	}
	sb.WriteString(` GROUP BY s.id ORDER BY s.id`)
	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&sb, ` LIMIT $%d`, len(args))
	}

	rows, err := r.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list study spots: %w", err)
	}
	defer rows.Close()

	var spots []models.SpotAggregate
	for rows.Next() {
		agg, err := scanAggregate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan study spot: %w", err)
		}
		spots = append(spots, *agg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating study spots: %w", err)
	}

	return spots, nil
}

// GetWithRating retrieves one spot joined with its average rating
func (r *SpotRepository) GetWithRating(ctx context.Context, id int64) (*models.SpotAggregate, error) {
	query := `
		SELECT ` + spotColumns + `, AVG(r.rating)::float8
		FROM study_spots s
		LEFT JOIN reviews r ON r.studyspot_id = s.id
		WHERE s.id = $1
		GROUP BY s.id
	`
	agg, err := scanAggregate(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get study spot %d: %w", id, classify(err))
	}
	return agg, nil
}

func scanSpot(row pgx.Row) (*models.StudySpot, error) {
	var (
		spot   models.StudySpot
		status string
	)
	if err := row.Scan(
		&spot.ID, &spot.Name, &spot.PlaceID, &spot.Latitude, &spot.Longitude, &status, &spot.Description,
	); err != nil {
		return nil, err
	}
	parsed, err := models.ParseSpotStatus(status)
	if err != nil {
		return nil, err
	}
	spot.Status = parsed
	return &spot, nil
}

func scanAggregate(row pgx.Row) (*models.SpotAggregate, error) {
	var (
		agg    models.SpotAggregate
		status string
	)
	if err := row.Scan(
		&agg.ID, &agg.Name, &agg.PlaceID, &agg.Latitude, &agg.Longitude, &status, &agg.Description,
		&agg.AvgRating,
	); err != nil {
		return nil, err
	}
	parsed, err := models.ParseSpotStatus(status)
	if err != nil {
		return nil, err
	}
	agg.Status = parsed
	return &agg, nil
}
