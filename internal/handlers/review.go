package handlers

import (
	"net/http"

	"studyspot-backend/internal/middleware"
	"studyspot-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// ReviewHandler handles review HTTP requests
type ReviewHandler struct {
	reviewService *services.ReviewService
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(reviewService *services.ReviewService) *ReviewHandler {
	return &ReviewHandler{
		reviewService: reviewService,
	}
}

// CreateReview handles POST /api/v1/reviews
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req services.ReviewRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondServiceError(w, r, err, "decode review")
		return
	}

	review, err := h.reviewService.Create(r.Context(), userID, req)
	if err != nil {
		respondServiceError(w, r, err, "create review")
		return
	}

	log.Info().
		Int64("review_id", review.ID).
		Int64("user_id", userID).
		Int64("studyspot_id", review.StudySpotID).
		Int("rating", review.Rating).
		Msg("Review created")

	respondJSON(w, review, http.StatusCreated)
}

// ListReviews handles GET /api/v1/reviews
func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	limit, offset := services.DefaultReviewLimit, 0
	if v, err := queryInt(r, "limit"); err != nil {
		respondServiceError(w, r, err, "parse limit")
		return
	} else if v != nil {
		limit = *v
	}
	if v, err := queryInt(r, "offset"); err != nil {
		respondServiceError(w, r, err, "parse offset")
		return
	} else if v != nil {
		offset = *v
	}

	reviews, err := h.reviewService.List(r.Context(), limit, offset)
	if err != nil {
		respondServiceError(w, r, err, "list reviews")
		return
	}
	respondJSON(w, reviews, http.StatusOK)
}

// ListBySpot handles GET /api/v1/reviews/by-spot/{spot_id}
func (h *ReviewHandler) ListBySpot(w http.ResponseWriter, r *http.Request) {
	spotID, err := pathID(r, "spot_id")
	if err != nil {
		respondServiceError(w, r, err, "parse spot id")
		return
	}

	reviews, err := h.reviewService.ListBySpot(r.Context(), spotID)
	if err != nil {
		respondServiceError(w, r, err, "list spot reviews")
		return
	}
	respondJSON(w, reviews, http.StatusOK)
}

// ListByUser handles GET /api/v1/reviews/by-user/{user_id}
func (h *ReviewHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "user_id")
	if err != nil {
		respondServiceError(w, r, err, "parse user id")
		return
	}

	reviews, err := h.reviewService.ListByUser(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err, "list user reviews")
		return
	}
	respondJSON(w, reviews, http.StatusOK)
}

// UpdateReview handles PUT /api/v1/reviews/{review_id}
func (h *ReviewHandler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	reviewID, err := pathID(r, "review_id")
	if err != nil {
		respondServiceError(w, r, err, "parse review id")
		return
	}

	var req services.ReviewRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondServiceError(w, r, err, "decode review")
		return
	}

	review, err := h.reviewService.Update(r.Context(), reviewID, req)
	if err != nil {
		respondServiceError(w, r, err, "update review")
		return
	}
	respondJSON(w, review, http.StatusOK)
}

// DeleteReview handles DELETE /api/v1/reviews/{review_id}
func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	reviewID, err := pathID(r, "review_id")
	if err != nil {
		respondServiceError(w, r, err, "parse review id")
		return
	}

	if err := h.reviewService.Delete(r.Context(), reviewID); err != nil {
		respondServiceError(w, r, err, "delete review")
		return
	}

	log.Info().Int64("review_id", reviewID).Msg("Review deleted")
	w.WriteHeader(http.StatusNoContent)
}
