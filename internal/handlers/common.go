package handlers

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"studyspot-backend/internal/apperror"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const maxBodyBytes = 1 << 20

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// respondJSON writes v with the given status
func respondJSON(w http.ResponseWriter, v any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, ErrorResponse{Error: message}, statusCode)
}

// respondServiceError maps an error returned by a service onto a status code.
// Unclassified errors are logged and hidden behind a generic message.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error, action string) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Failed to " + action)
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperror.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, apperror.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, apperror.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperror.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, apperror.ErrUnprocessable):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, apperror.ErrUpstream):
		status = http.StatusBadGateway
	}

	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Failed to " + action)
	}
	respondJSON(w, ErrorResponse{Error: appErr.Message, Field: appErr.Field}, status)
}

// decodeBody reads a JSON request body into v, rejecting unknown fields
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperror.ValidationFailed("body", "Invalid request body")
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.ValidationFailed(name, name+" must be a positive integer")
	}
	return id, nil
}

func queryID(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, apperror.ValidationFailed(name, name+" is required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.ValidationFailed(name, name+" must be a positive integer")
	}
	return id, nil
}

// queryFloat returns nil when the parameter is absent
func queryFloat(r *http.Request, name string) (*float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, apperror.ValidationFailed(name, name+" must be a number")
	}
	return &v, nil
}

// queryInt returns nil when the parameter is absent
func queryInt(r *http.Request, name string) (*int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, apperror.ValidationFailed(name, name+" must be an integer")
	}
	return &v, nil
}
