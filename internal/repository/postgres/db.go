package postgres

import (
	"context"
	"errors"
	"fmt"

	"studyspot-backend/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            BIGSERIAL PRIMARY KEY,
	name          TEXT NOT NULL,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL DEFAULT 'student' CHECK (role IN ('student', 'business'))
);

CREATE TABLE IF NOT EXISTS study_spots (
	id          BIGSERIAL PRIMARY KEY,
	name        TEXT NOT NULL,
	place_id    TEXT NOT NULL UNIQUE,
	latitude    DOUBLE PRECISION NOT NULL,
	longitude   DOUBLE PRECISION NOT NULL,
	status      TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'active', 'closed')),
	description TEXT
);
CREATE INDEX IF NOT EXISTS idx_study_spots_lat_lon ON study_spots (latitude, longitude);

CREATE TABLE IF NOT EXISTS reviews (
	id           BIGSERIAL PRIMARY KEY,
	studyspot_id BIGINT NOT NULL REFERENCES study_spots (id) ON DELETE CASCADE,
	user_id      BIGINT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
	rating       INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
	comment      TEXT,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (user_id, studyspot_id)
);
CREATE INDEX IF NOT EXISTS idx_reviews_studyspot ON reviews (studyspot_id);

CREATE TABLE IF NOT EXISTS checkin (
	checkin_id         BIGSERIAL PRIMARY KEY,
	studyspot_id       BIGINT NOT NULL REFERENCES study_spots (id) ON DELETE CASCADE,
	user_id            BIGINT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
	checkin_timestamp  DOUBLE PRECISION NOT NULL,
	checkout_timestamp DOUBLE PRECISION
);
CREATE UNIQUE INDEX IF NOT EXISTS uq_checkin_open ON checkin (user_id, studyspot_id) WHERE checkout_timestamp IS NULL;
CREATE INDEX IF NOT EXISTS idx_checkin_spot_open ON checkin (studyspot_id) WHERE checkout_timestamp IS NULL;

CREATE TABLE IF NOT EXISTS photos (
	id           BIGSERIAL PRIMARY KEY,
	studyspot_id BIGINT NOT NULL REFERENCES study_spots (id) ON DELETE CASCADE,
	url          TEXT NOT NULL,
	key          TEXT NOT NULL,
	is_primary   BOOLEAN NOT NULL DEFAULT false,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS uq_photos_primary ON photos (studyspot_id) WHERE is_primary;
`

// Connect opens a pool, verifies connectivity and applies the schema.
func Connect(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

// Migrate creates the tables and indexes if they do not exist
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// NewStore wires every Postgres repository onto one pool
func NewStore(db *pgxpool.Pool) *repository.Store {
	return &repository.Store{
		Spots:    NewSpotRepository(db),
		Reviews:  NewReviewRepository(db),
		Checkins: NewCheckinRepository(db),
		Photos:   NewPhotoRepository(db),
		Users:    NewUserRepository(db),
		Close:    db.Close,
	}
}

// withTx runs fn in a transaction, rolling back on error
func withTx(ctx context.Context, db *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// classify maps constraint violations onto repository sentinels
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return fmt.Errorf("%w: %s", repository.ErrDuplicate, pgErr.ConstraintName)
		case foreignKeyViolation:
			return fmt.Errorf("%w: %s", repository.ErrNotFound, pgErr.ConstraintName)
		}
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	return err
}
