package postgres

import (
	"context"
	"fmt"

	"studyspot-backend/internal/models"
	"studyspot-backend/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, name, email, role, password_hash`

// UserRepository handles database operations for users
type UserRepository struct {
	db *pgxpool.Pool
}

var _ repository.UserRepository = (*UserRepository)(nil)

// NewUserRepository creates a new user repository
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a user. Email uniqueness is enforced by the table.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (name, email, role, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query, user.Name, user.Email, user.Role.String(), user.PasswordHash).Scan(&user.ID)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", classify(err))
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", id, classify(err))
	}
	return user, nil
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", classify(err))
	}
	return user, nil
}

// List retrieves all users ordered by ID
func (r *UserRepository) List(ctx context.Context) ([]*models.User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	var (
		user models.User
		role string
	)
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &role, &user.PasswordHash); err != nil {
		return nil, err
	}
	parsed, err := models.ParseUserRole(role)
	if err != nil {
		return nil, err
	}
	user.Role = parsed
	return &user, nil
}
