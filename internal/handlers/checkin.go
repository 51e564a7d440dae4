package handlers

import (
	"net/http"

	"studyspot-backend/internal/apperror"
	"studyspot-backend/internal/middleware"
	"studyspot-backend/internal/services"
)

// CheckinHandler handles check-in HTTP requests
type CheckinHandler struct {
	checkinService *services.CheckinService
}

// NewCheckinHandler creates a new check-in handler
func NewCheckinHandler(checkinService *services.CheckinService) *CheckinHandler {
	return &CheckinHandler{
		checkinService: checkinService,
	}
}

// CheckinRequest names the spot of a sign-in or sign-out
type CheckinRequest struct {
	StudySpotID int64 `json:"studyspot_id"`
}

func decodeCheckin(w http.ResponseWriter, r *http.Request) (int64, error) {
	var req CheckinRequest
	if err := decodeBody(w, r, &req); err != nil {
		return 0, err
	}
	if req.StudySpotID <= 0 {
		return 0, apperror.ValidationFailed("studyspot_id", "studyspot_id must be a positive integer")
	}
	return req.StudySpotID, nil
}

// Checkin handles POST /api/v1/checkins
func (h *CheckinHandler) Checkin(w http.ResponseWriter, r *http.Request) {
	spotID, err := decodeCheckin(w, r)
	if err != nil {
		respondServiceError(w, r, err, "decode check-in")
		return
	}

	checkin, err := h.checkinService.SignIn(r.Context(), middleware.GetUserID(r.Context()), spotID)
	if err != nil {
		respondServiceError(w, r, err, "check in")
		return
	}
	respondJSON(w, checkin, http.StatusCreated)
}

// Checkout handles POST /api/v1/checkins/checkout
func (h *CheckinHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	spotID, err := decodeCheckin(w, r)
	if err != nil {
		respondServiceError(w, r, err, "decode check-out")
		return
	}

	checkin, err := h.checkinService.SignOut(r.Context(), middleware.GetUserID(r.Context()), spotID)
	if err != nil {
		respondServiceError(w, r, err, "check out")
		return
	}
	respondJSON(w, checkin, http.StatusOK)
}

// Status handles GET /api/v1/checkins/status?studyspot_id=
func (h *CheckinHandler) Status(w http.ResponseWriter, r *http.Request) {
	spotID, err := queryID(r, "studyspot_id")
	if err != nil {
		respondServiceError(w, r, err, "parse spot id")
		return
	}

	status, err := h.checkinService.Status(r.Context(), middleware.GetUserID(r.Context()), spotID)
	if err != nil {
		respondServiceError(w, r, err, "get check-in status")
		return
	}
	respondJSON(w, status, http.StatusOK)
}

// History handles GET /api/v1/checkins/history?studyspot_id=
func (h *CheckinHandler) History(w http.ResponseWriter, r *http.Request) {
	spotID, err := queryID(r, "studyspot_id")
	if err != nil {
		respondServiceError(w, r, err, "parse spot id")
		return
	}

	history, err := h.checkinService.History(r.Context(), middleware.GetUserID(r.Context()), spotID)
	if err != nil {
		respondServiceError(w, r, err, "get check-in history")
		return
	}
	respondJSON(w, history, http.StatusOK)
}

// ActiveCount handles GET /api/v1/checkins/active/{studyspot_id}
func (h *CheckinHandler) ActiveCount(w http.ResponseWriter, r *http.Request) {
	spotID, err := pathID(r, "studyspot_id")
	if err != nil {
		respondServiceError(w, r, err, "parse spot id")
		return
	}

	count, err := h.checkinService.ActiveCount(r.Context(), spotID)
	if err != nil {
		respondServiceError(w, r, err, "count active check-ins")
		return
	}
	respondJSON(w, count, http.StatusOK)
}
