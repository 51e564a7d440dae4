package handlers

import (
	"net/http"

	"studyspot-backend/internal/middleware"
	"studyspot-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// PhotoHandler handles photo-related HTTP requests
type PhotoHandler struct {
	photoService *services.PhotoService
}

// NewPhotoHandler creates a new photo handler
func NewPhotoHandler(photoService *services.PhotoService) *PhotoHandler {
	return &PhotoHandler{
		photoService: photoService,
	}
}

// UploadPhoto handles POST /api/v1/studyspots/{spot_id}/photos
func (h *PhotoHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	spotID, err := pathID(r, "spot_id")
	if err != nil {
		respondServiceError(w, r, err, "parse spot id")
		return
	}

	var req services.UploadRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondServiceError(w, r, err, "decode upload request")
		return
	}

	resp, err := h.photoService.RequestUpload(r.Context(), spotID, req)
	if err != nil {
		respondServiceError(w, r, err, "request photo upload")
		return
	}

	log.Info().
		Int64("user_id", middleware.GetUserID(r.Context())).
		Int64("studyspot_id", spotID).
		Int64("photo_id", resp.Photo.ID).
		Msg("Pre-signed URL generated")

	respondJSON(w, resp, http.StatusCreated)
}

// SetPrimary handles PUT /api/v1/studyspots/{spot_id}/photos/{photo_id}/primary
func (h *PhotoHandler) SetPrimary(w http.ResponseWriter, r *http.Request) {
	spotID, err := pathID(r, "spot_id")
	if err != nil {
		respondServiceError(w, r, err, "parse spot id")
		return
	}
	photoID, err := pathID(r, "photo_id")
	if err != nil {
		respondServiceError(w, r, err, "parse photo id")
		return
	}

	if err := h.photoService.SetPrimary(r.Context(), spotID, photoID); err != nil {
		respondServiceError(w, r, err, "set primary photo")
		return
	}

	log.Info().
		Int64("studyspot_id", spotID).
		Int64("photo_id", photoID).
		Msg("Primary photo updated")

	w.WriteHeader(http.StatusNoContent)
}
