// Package memory implements the repository interfaces on in-process maps.
// It backs local runs without Postgres and the service and handler tests,
// and enforces the same uniqueness constraints as the SQL schema.
package memory

import (
	"sync"

	"studyspot-backend/internal/models"
	"studyspot-backend/internal/repository"
)

type data struct {
	mu sync.RWMutex

	lastID   int64
	users    map[int64]*models.User
	spots    map[int64]*models.StudySpot
	reviews  map[int64]*models.Review
	checkins map[int64]*models.Checkin
	photos   map[int64]*models.Photo
}

func (d *data) nextID() int64 {
	d.lastID++
	return d.lastID
}

// NewStore creates an empty in-memory store
func NewStore() *repository.Store {
	d := &data{
		users:    make(map[int64]*models.User),
		spots:    make(map[int64]*models.StudySpot),
		reviews:  make(map[int64]*models.Review),
		checkins: make(map[int64]*models.Checkin),
		photos:   make(map[int64]*models.Photo),
	}
	return &repository.Store{
		Spots:    &SpotRepository{d: d},
		Reviews:  &ReviewRepository{d: d},
		Checkins: &CheckinRepository{d: d},
		Photos:   &PhotoRepository{d: d},
		Users:    &UserRepository{d: d},
		Close:    func() {},
	}
}

func ptr[T any](v T) *T {
	return &v
}
