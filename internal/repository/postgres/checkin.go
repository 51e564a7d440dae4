package postgres

import (
	"context"
	"fmt"

	"studyspot-backend/internal/models"
	"studyspot-backend/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const checkinColumns = `checkin_id, studyspot_id, user_id, checkin_timestamp, checkout_timestamp`

// CheckinRepository handles database operations for check-ins
type CheckinRepository struct {
	db *pgxpool.Pool
}

var _ repository.CheckinRepository = (*CheckinRepository)(nil)

// NewCheckinRepository creates a new check-in repository
func NewCheckinRepository(db *pgxpool.Pool) *CheckinRepository {
	return &CheckinRepository{db: db}
}

// Open inserts an open check-in. The partial unique index uq_checkin_open
// rejects a second open row for the same pair.
func (r *CheckinRepository) Open(ctx context.Context, userID, spotID int64, at float64) (*models.Checkin, error) {
	query := `
		INSERT INTO checkin (studyspot_id, user_id, checkin_timestamp)
		VALUES ($1, $2, $3)
		RETURNING ` + checkinColumns
	checkin, err := scanCheckin(r.db.QueryRow(ctx, query, spotID, userID, at))
	if err != nil {
		return nil, fmt.Errorf("failed to open check-in: %w", classify(err))
	}
	return checkin, nil
}

// CloseLatest stamps the checkout of the most recent open check-in
func (r *CheckinRepository) CloseLatest(ctx context.Context, userID, spotID int64, at float64) (*models.Checkin, error) {
	query := `
		UPDATE checkin SET checkout_timestamp = $3
		WHERE checkin_id = (
			SELECT checkin_id FROM checkin
			WHERE user_id = $1 AND studyspot_id = $2 AND checkout_timestamp IS NULL
			ORDER BY checkin_timestamp DESC, checkin_id DESC
			LIMIT 1
			FOR UPDATE
		)
		RETURNING ` + checkinColumns
	checkin, err := scanCheckin(r.db.QueryRow(ctx, query, userID, spotID, at))
	if err != nil {
		return nil, fmt.Errorf("failed to close check-in: %w", classify(err))
	}
	return checkin, nil
}

// HasOpen reports whether the pair has an open check-in
func (r *CheckinRepository) HasOpen(ctx context.Context, userID, spotID int64) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM checkin
			WHERE user_id = $1 AND studyspot_id = $2 AND checkout_timestamp IS NULL
		)
	`
	var exists bool
	if err := r.db.QueryRow(ctx, query, userID, spotID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check open check-in: %w", err)
	}
	return exists, nil
}

// CountOpen counts open check-ins at a spot
func (r *CheckinRepository) CountOpen(ctx context.Context, spotID int64) (int, error) {
	query := `SELECT COUNT(*) FROM checkin WHERE studyspot_id = $1 AND checkout_timestamp IS NULL`
	var count int
	if err := r.db.QueryRow(ctx, query, spotID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count active check-ins: %w", err)
	}
	return count, nil
}

// CountOpenBySpots counts open check-ins for several spots in one query
func (r *CheckinRepository) CountOpenBySpots(ctx context.Context, spotIDs []int64) (map[int64]int, error) {
	counts := make(map[int64]int, len(spotIDs))
	if len(spotIDs) == 0 {
		return counts, nil
	}

	query := `
		SELECT studyspot_id, COUNT(*)
		FROM checkin
		WHERE studyspot_id = ANY($1) AND checkout_timestamp IS NULL
		GROUP BY studyspot_id
	`
	rows, err := r.db.Query(ctx, query, spotIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to count active check-ins: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			spotID int64
			count  int
		)
		if err := rows.Scan(&spotID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan active check-in count: %w", err)
		}
		counts[spotID] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating active check-in counts: %w", err)
	}

	return counts, nil
}

// History lists every check-in of the pair, newest first
func (r *CheckinRepository) History(ctx context.Context, userID, spotID int64) ([]*models.Checkin, error) {
	query := `
		SELECT ` + checkinColumns + `
		FROM checkin
		WHERE user_id = $1 AND studyspot_id = $2
		ORDER BY checkin_timestamp DESC, checkin_id DESC
	`
	rows, err := r.db.Query(ctx, query, userID, spotID)
	if err != nil {
		return nil, fmt.Errorf("failed to get check-in history: %w", err)
	}
	defer rows.Close()

	var history []*models.Checkin
	for rows.Next() {
		checkin, err := scanCheckin(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan check-in: %w", err)
		}
		history = append(history, checkin)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating check-ins: %w", err)
	}

	return history, nil
}

func scanCheckin(row pgx.Row) (*models.Checkin, error) {
	var checkin models.Checkin
	if err := row.Scan(
		&checkin.ID, &checkin.StudySpotID, &checkin.UserID,
		&checkin.CheckinTimestamp, &checkin.CheckoutTimestamp,
	); err != nil {
		return nil, err
	}
	return &checkin, nil
}
