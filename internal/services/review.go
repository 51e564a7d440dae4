package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"studyspot-backend/internal/apperror"
	"studyspot-backend/internal/models"
	"studyspot-backend/internal/repository"
)

const (
	DefaultReviewLimit = 100
	MaxReviewLimit     = 1000
)

// ReviewService handles review-related business logic
type ReviewService struct {
	reviews repository.ReviewRepository
	spots   repository.SpotRepository
	users   repository.UserRepository
	now     func() time.Time
}

// NewReviewService creates a new review service
func NewReviewService(
	reviews repository.ReviewRepository,
	spots repository.SpotRepository,
	users repository.UserRepository,
) *ReviewService {
	return &ReviewService{
		reviews: reviews,
		spots:   spots,
		users:   users,
		now:     time.Now,
	}
}

// ReviewRequest carries the writable fields of a review
type ReviewRequest struct {
	StudySpotID int64   `json:"studyspot_id"`
	Rating      int     `json:"rating"`
	Comment     *string `json:"comment"`
}

func validateRating(rating int) error {
	if rating < 1 || rating > 5 {
		return apperror.Unprocessable("rating", "rating must be between 1 and 5")
	}
	return nil
}

// Create stores userID's review of a spot. A user reviews each spot at most once.
func (s *ReviewService) Create(ctx context.Context, userID int64, req ReviewRequest) (*models.Review, error) {
	if err := validateRating(req.Rating); err != nil {
		return nil, err
	}
	if _, err := s.spots.GetByID(ctx, req.StudySpotID); err != nil {
		return nil, spotLookupError(req.StudySpotID, err)
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, userLookupError(userID, err)
	}

	review := &models.Review{
		StudySpotID: req.StudySpotID,
		UserID:      userID,
		Rating:      req.Rating,
		Comment:     req.Comment,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, apperror.Conflict("User already reviewed this study spot")
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperror.NotFoundf("Study spot %d or user %d not found", req.StudySpotID, userID)
		}
		return nil, fmt.Errorf("failed to create review: %w", err)
	}
	return review, nil
}

// Get returns a review by id
func (s *ReviewService) Get(ctx context.Context, id int64) (*models.Review, error) {
	review, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("Review", id)
		}
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	return review, nil
}

// List pages through all reviews, newest first
func (s *ReviewService) List(ctx context.Context, limit, offset int) ([]*models.Review, error) {
	if limit < 1 || limit > MaxReviewLimit {
		return nil, apperror.Unprocessable("limit", fmt.Sprintf("limit must be between 1 and %d", MaxReviewLimit))
	}
	if offset < 0 {
		return nil, apperror.Unprocessable("offset", "offset must not be negative")
	}
	return s.list(ctx, repository.ReviewFilter{Limit: limit, Offset: offset})
}

// ListBySpot returns the reviews of a spot, newest first
func (s *ReviewService) ListBySpot(ctx context.Context, spotID int64) ([]*models.Review, error) {
	if _, err := s.spots.GetByID(ctx, spotID); err != nil {
		return nil, spotLookupError(spotID, err)
	}
	return s.list(ctx, repository.ReviewFilter{StudySpotID: &spotID})
}

// ListByUser returns the reviews written by a user, newest first
func (s *ReviewService) ListByUser(ctx context.Context, userID int64) ([]*models.Review, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, userLookupError(userID, err)
	}
	return s.list(ctx, repository.ReviewFilter{UserID: &userID})
}

// Update replaces the rating and comment of a review
func (s *ReviewService) Update(ctx context.Context, id int64, req ReviewRequest) (*models.Review, error) {
	if err := validateRating(req.Rating); err != nil {
		return nil, err
	}
	review, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	review.Rating = req.Rating
	review.Comment = req.Comment
	if err := s.reviews.Update(ctx, review); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("Review", id)
		}
		return nil, fmt.Errorf("failed to update review: %w", err)
	}
	return review, nil
}

// Delete removes a review
func (s *ReviewService) Delete(ctx context.Context, id int64) error {
	if err := s.reviews.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.NotFound("Review", id)
		}
		return fmt.Errorf("failed to delete review: %w", err)
	}
	return nil
}

func (s *ReviewService) list(ctx context.Context, f repository.ReviewFilter) ([]*models.Review, error) {
	reviews, err := s.reviews.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	if reviews == nil {
		reviews = []*models.Review{}
	}
	return reviews, nil
}
