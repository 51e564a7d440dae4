package memory

import (
	"context"
	"fmt"
	"sort"

	"studyspot-backend/internal/models"
	"studyspot-backend/internal/repository"
)

// UserRepository stores users in memory
type UserRepository struct {
	d *data
}

var _ repository.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	for _, existing := range r.d.users {
		if existing.Email == user.Email {
			return fmt.Errorf("email %q: %w", user.Email, repository.ErrDuplicate)
		}
	}

	user.ID = r.d.nextID()
	stored := *user
	r.d.users[user.ID] = &stored
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	user, ok := r.d.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, repository.ErrNotFound)
	}
	result := *user
	return &result, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	for _, user := range r.d.users {
		if user.Email == email {
			result := *user
			return &result, nil
		}
	}
	return nil, fmt.Errorf("user with email %q: %w", email, repository.ErrNotFound)
}

func (r *UserRepository) List(ctx context.Context) ([]*models.User, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	users := make([]*models.User, 0, len(r.d.users))
	for _, user := range r.d.users {
		result := *user
		users = append(users, &result)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}
