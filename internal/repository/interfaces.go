package repository

import (
	"context"
	"errors"

	"studyspot-backend/internal/geo"
	"studyspot-backend/internal/models"
)

var (
	// ErrNotFound is returned when a row, or a row it references, does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert or update violates a uniqueness constraint.
	ErrDuplicate = errors.New("duplicate record")
)

// SpotQuery narrows the candidate scan of a search
type SpotQuery struct {
	Box   *geo.BoundingBox // nil disables the location prefilter
	Limit int              // <= 0 means unbounded
}

// ReviewFilter selects reviews for listing
type ReviewFilter struct {
	StudySpotID *int64
	UserID      *int64
	Limit       int
	Offset      int
}

type SpotRepository interface {
	Create(ctx context.Context, spot *models.StudySpot) error
	GetByID(ctx context.Context, id int64) (*models.StudySpot, error)
	UpdateStatus(ctx context.Context, id int64, status models.SpotStatus) error
	// ListWithRatings returns spots ordered by id with their average rating.
	ListWithRatings(ctx context.Context, q SpotQuery) ([]models.SpotAggregate, error)
	GetWithRating(ctx context.Context, id int64) (*models.SpotAggregate, error)
}

type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	GetByID(ctx context.Context, id int64) (*models.Review, error)
	// List returns reviews newest id first.
	List(ctx context.Context, f ReviewFilter) ([]*models.Review, error)
	Update(ctx context.Context, review *models.Review) error
	Delete(ctx context.Context, id int64) error
}

type CheckinRepository interface {
	// Open inserts an open check-in. ErrDuplicate if the pair already has one.
	Open(ctx context.Context, userID, spotID int64, at float64) (*models.Checkin, error)
	// CloseLatest sets the checkout of the most recent open check-in. ErrNotFound if none.
	CloseLatest(ctx context.Context, userID, spotID int64, at float64) (*models.Checkin, error)
	HasOpen(ctx context.Context, userID, spotID int64) (bool, error)
	CountOpen(ctx context.Context, spotID int64) (int, error)
	// CountOpenBySpots omits spots without open check-ins.
	CountOpenBySpots(ctx context.Context, spotIDs []int64) (map[int64]int, error)
	// History returns every check-in of the pair, newest first.
	History(ctx context.Context, userID, spotID int64) ([]*models.Checkin, error)
}

type PhotoRepository interface {
	// Create inserts a photo. A primary photo demotes the others of its spot atomically.
	Create(ctx context.Context, photo *models.Photo) error
	SetPrimary(ctx context.Context, spotID, photoID int64) error
	// ListBySpots returns photos grouped by spot, primary first then newest.
	ListBySpots(ctx context.Context, spotIDs []int64) (map[int64][]models.Photo, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
}

// Store bundles the repositories of one backend.
type Store struct {
	Spots    SpotRepository
	Reviews  ReviewRepository
	Checkins CheckinRepository
	Photos   PhotoRepository
	Users    UserRepository
	Close    func()
}
