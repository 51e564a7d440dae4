package handlers

import (
	"net/http"

	"studyspot-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// SpotHandler handles study spot HTTP requests
type SpotHandler struct {
	spotService   *services.SpotService
	searchService *services.SearchService
}

// NewSpotHandler creates a new spot handler
func NewSpotHandler(spotService *services.SpotService, searchService *services.SearchService) *SpotHandler {
	return &SpotHandler{
		spotService:   spotService,
		searchService: searchService,
	}
}

// CreateSpot handles POST /api/v1/studyspots
func (h *SpotHandler) CreateSpot(w http.ResponseWriter, r *http.Request) {
	var req services.CreateSpotRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondServiceError(w, r, err, "decode study spot")
		return
	}

	spot, err := h.spotService.Create(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, err, "create study spot")
		return
	}

	log.Info().
		Int64("studyspot_id", spot.ID).
		Str("place_id", spot.PlaceID).
		Msg("Study spot created")

	respondJSON(w, spot, http.StatusCreated)
}

// SearchSpots handles GET /api/v1/studyspots
func (h *SpotHandler) SearchSpots(w http.ResponseWriter, r *http.Request) {
	var (
		params services.SearchParams
		err    error
	)
	if params.Latitude, err = queryFloat(r, "lat"); err != nil {
		respondServiceError(w, r, err, "parse search")
		return
	}
	if params.Longitude, err = queryFloat(r, "lon"); err != nil {
		respondServiceError(w, r, err, "parse search")
		return
	}
	if params.RadiusKm, err = queryFloat(r, "radius_km"); err != nil {
		respondServiceError(w, r, err, "parse search")
		return
	}
	if params.MinAvgRating, err = queryFloat(r, "min_avg_rating"); err != nil {
		respondServiceError(w, r, err, "parse search")
		return
	}
	if params.MinActiveCheckins, err = queryInt(r, "min_active_checkins"); err != nil {
		respondServiceError(w, r, err, "parse search")
		return
	}

	results, err := h.searchService.Search(r.Context(), params)
	if err != nil {
		respondServiceError(w, r, err, "search study spots")
		return
	}

	respondJSON(w, results, http.StatusOK)
}

// GetSpot handles GET /api/v1/studyspots/{spot_id}
func (h *SpotHandler) GetSpot(w http.ResponseWriter, r *http.Request) {
	spotID, err := pathID(r, "spot_id")
	if err != nil {
		respondServiceError(w, r, err, "parse spot id")
		return
	}

	spot, err := h.searchService.Get(r.Context(), spotID)
	if err != nil {
		respondServiceError(w, r, err, "get study spot")
		return
	}

	respondJSON(w, spot, http.StatusOK)
}

// UpdateStatus handles PATCH /api/v1/studyspots/{spot_id}/status
func (h *SpotHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	spotID, err := pathID(r, "spot_id")
	if err != nil {
		respondServiceError(w, r, err, "parse spot id")
		return
	}

	var req services.UpdateStatusRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondServiceError(w, r, err, "decode status")
		return
	}

	spot, err := h.spotService.UpdateStatus(r.Context(), spotID, req.Status)
	if err != nil {
		respondServiceError(w, r, err, "update study spot status")
		return
	}

	log.Info().
		Int64("studyspot_id", spot.ID).
		Str("status", spot.Status.String()).
		Msg("Study spot status updated")

	respondJSON(w, spot, http.StatusOK)
}
