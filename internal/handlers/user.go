package handlers

import (
	"net/http"

	"studyspot-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// CreateUser handles POST /api/v1/users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondServiceError(w, r, err, "decode user")
		return
	}

	user, err := h.userService.Register(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, err, "create user")
		return
	}

	log.Info().
		Int64("user_id", user.ID).
		Str("role", user.Role.String()).
		Msg("User created")

	respondJSON(w, user, http.StatusCreated)
}

// ListUsers handles GET /api/v1/users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		respondServiceError(w, r, err, "list users")
		return
	}
	respondJSON(w, users, http.StatusOK)
}

// Login handles POST /api/v1/users/login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req services.LoginRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondServiceError(w, r, err, "decode login")
		return
	}

	resp, err := h.userService.Login(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, err, "log in")
		return
	}

	log.Info().Int64("user_id", resp.User.ID).Msg("User logged in")
	respondJSON(w, resp, http.StatusOK)
}
