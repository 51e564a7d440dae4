package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"studyspot-backend/internal/apperror"
	"studyspot-backend/internal/models"
	"studyspot-backend/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 72 // bcrypt ignores anything longer
)

// UserService handles user-related business logic
type UserService struct {
	users      repository.UserRepository
	jwtSecret  string
	jwtTTL     time.Duration
	bcryptCost int
	now        func() time.Time
}

// NewUserService creates a new user service
func NewUserService(users repository.UserRepository, jwtSecret string, jwtTTL time.Duration) *UserService {
	return &UserService{
		users:      users,
		jwtSecret:  jwtSecret,
		jwtTTL:     jwtTTL,
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
	}
}

// RegisterRequest represents a request to create a user
type RegisterRequest struct {
	Name     string          `json:"name"`
	Email    string          `json:"email"`
	Password string          `json:"password"`
	Role     models.UserRole `json:"role"`
}

// LoginRequest carries user credentials
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the issued bearer token
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// GenerateJWT generates a JWT token for a user
func (s *UserService) GenerateJWT(userID int64) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.jwtTTL)
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     expiresAt.Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// ValidateJWT validates a JWT token and returns the user ID
func (s *UserService) ValidateJWT(tokenString string) (int64, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	}, jwt.WithTimeFunc(s.now))

	if err != nil {
		return 0, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return 0, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, fmt.Errorf("invalid token claims")
	}

	// JSON numbers decode as float64
	raw, ok := claims["user_id"].(float64)
	if !ok || raw <= 0 {
		return 0, fmt.Errorf("user_id not found in token")
	}

	return int64(raw), nil
}

// Register creates a user with a hashed password
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.Unprocessable("name", "name is required")
	}
	addr, err := mail.ParseAddress(req.Email)
	if err != nil || addr.Address != strings.TrimSpace(req.Email) {
		return nil, apperror.Unprocessable("email", "email is not a valid address")
	}
	if len(req.Password) < minPasswordLength || len(req.Password) > maxPasswordLength {
		return nil, apperror.Unprocessable("password",
			fmt.Sprintf("password must be between %d and %d characters", minPasswordLength, maxPasswordLength))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Name:         name,
		Email:        strings.ToLower(addr.Address),
		Role:         req.Role,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperror.Conflict("Email already registered")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Login checks the credentials and issues a token
func (s *UserService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	invalid := apperror.Unauthorized("Invalid email or password")

	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, invalid
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, invalid
	}

	token, expiresAt, err := s.GenerateJWT(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &LoginResponse{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Get returns a user by id
func (s *UserService) Get(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, userLookupError(id, err)
	}
	return user, nil
}

// List returns every user ordered by id
func (s *UserService) List(ctx context.Context) ([]*models.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	if users == nil {
		users = []*models.User{}
	}
	return users, nil
}
