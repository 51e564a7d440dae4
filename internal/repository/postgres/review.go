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

const reviewSelect = `
	SELECT r.id, r.studyspot_id, r.user_id, r.rating, r.comment, r.created_at, u.name
	FROM reviews r
	LEFT JOIN users u ON u.id = r.user_id
`

// ReviewRepository handles database operations for reviews
type ReviewRepository struct {
	db *pgxpool.Pool
}

var _ repository.ReviewRepository = (*ReviewRepository)(nil)

// NewReviewRepository creates a new review repository
func NewReviewRepository(db *pgxpool.Pool) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create inserts a review. The (user_id, studyspot_id) unique constraint is
// the only duplicate guard.
func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) error {
	query := `
		INSERT INTO reviews (studyspot_id, user_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query,
		review.StudySpotID, review.UserID, review.Rating, review.Comment, review.CreatedAt,
	).Scan(&review.ID)
	if err != nil {
		return fmt.Errorf("failed to create review: %w", classify(err))
	}

	var name *string
	if err := r.db.QueryRow(ctx, `SELECT name FROM users WHERE id = $1`, review.UserID).Scan(&name); err == nil {
		review.UserName = name
	}
	return nil
}

// GetByID retrieves a review by ID
func (r *ReviewRepository) GetByID(ctx context.Context, id int64) (*models.Review, error) {
	review, err := scanReview(r.db.QueryRow(ctx, reviewSelect+` WHERE r.id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get review %d: %w", id, classify(err))
	}
	return review, nil
}

// List retrieves reviews newest first, optionally for one spot or user
func (r *ReviewRepository) List(ctx context.Context, f repository.ReviewFilter) ([]*models.Review, error) {
	var (
		where []string
		args  []any
	)
	if f.StudySpotID != nil {
		args = append(args, *f.StudySpotID)
		where = append(where, fmt.Sprintf(`r.studyspot_id = $%d`, len(args)))
	}
	if f.UserID != nil {
		args = append(args, *f.UserID)
		where = append(where, fmt.Sprintf(`r.user_id = $%d`, len(args)))
	}

	var sb strings.Builder
	sb.WriteString(reviewSelect)
	if len(where) > 0 {
		sb.WriteString(` WHERE ` + strings.Join(where, ` AND `))
	}
	// LIMIT NULL is unbounded
	var limit any
	if f.Limit > 0 {
		limit = f.Limit
	}
	args = append(args, limit, f.Offset)
	fmt.Fprintf(&sb, ` ORDER BY r.id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []*models.Review
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, review)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reviews: %w", err)
	}

	return reviews, nil
}

// Update rewrites the rating and comment of a review
func (r *ReviewRepository) Update(ctx context.Context, review *models.Review) error {
	query := `UPDATE reviews SET rating = $1, comment = $2 WHERE id = $3`
	result, err := r.db.Exec(ctx, query, review.Rating, review.Comment, review.ID)
	if err != nil {
		return fmt.Errorf("failed to update review: %w", classify(err))
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("review %d: %w", review.ID, repository.ErrNotFound)
	}
	return nil
}

// Delete deletes a review by ID
func (r *ReviewRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("review %d: %w", id, repository.ErrNotFound)
	}
	return nil
}

func scanReview(row pgx.Row) (*models.Review, error) {
	var review models.Review
	if err := row.Scan(
		&review.ID, &review.StudySpotID, &review.UserID, &review.Rating,
		&review.Comment, &review.CreatedAt, &review.UserName,
	); err != nil {
		return nil, err
	}
	return &review, nil
}
