package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"studyspot-backend/internal/apperror"
	"studyspot-backend/internal/models"
	"studyspot-backend/internal/repository"
)

// SpotService handles study spot registration and lifecycle
type SpotService struct {
	spots repository.SpotRepository
}

// NewSpotService creates a new spot service
func NewSpotService(spots repository.SpotRepository) *SpotService {
	return &SpotService{spots: spots}
}

// CreateSpotRequest represents a request to register a study spot
type CreateSpotRequest struct {
	Name        string             `json:"name"`
	PlaceID     string             `json:"place_id"`
	Latitude    float64            `json:"latitude"`
	Longitude   float64            `json:"longitude"`
	Status      *models.SpotStatus `json:"status"`
	Description *string            `json:"description"`
}

// UpdateStatusRequest changes the lifecycle state of a spot
type UpdateStatusRequest struct {
	Status models.SpotStatus `json:"status"`
}

// Create registers a study spot. New spots are pending unless a status is given.
func (s *SpotService) Create(ctx context.Context, req CreateSpotRequest) (*models.StudySpot, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.Unprocessable("name", "name is required")
	}
	placeID := strings.TrimSpace(req.PlaceID)
	if placeID == "" {
		return nil, apperror.Unprocessable("place_id", "place_id is required")
	}
	if math.IsNaN(req.Latitude) || req.Latitude < -90 || req.Latitude > 90 {
		return nil, apperror.Unprocessable("latitude", "latitude must be between -90 and 90")
	}
	if math.IsNaN(req.Longitude) || req.Longitude < -180 || req.Longitude > 180 {
		return nil, apperror.Unprocessable("longitude", "longitude must be between -180 and 180")
	}

	spot := &models.StudySpot{
		Name:        name,
		PlaceID:     placeID,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Status:      models.SpotStatusPending,
		Description: req.Description,
	}
	if req.Status != nil {
		spot.Status = *req.Status
	}

	if err := s.spots.Create(ctx, spot); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperror.Conflict("Study spot with this place_id already exists")
		}
		return nil, fmt.Errorf("failed to create study spot: %w", err)
	}
	return spot, nil
}

// UpdateStatus moves the spot to status and returns the updated spot
func (s *SpotService) UpdateStatus(ctx context.Context, id int64, status models.SpotStatus) (*models.StudySpot, error) {
	if err := s.spots.UpdateStatus(ctx, id, status); err != nil {
		return nil, spotLookupError(id, err)
	}
	spot, err := s.spots.GetByID(ctx, id)
	if err != nil {
		return nil, spotLookupError(id, err)
	}
	return spot, nil
}
