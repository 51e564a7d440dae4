package services

import (
	"errors"
	"fmt"

	"studyspot-backend/internal/apperror"
	"studyspot-backend/internal/repository"
)

func spotLookupError(id int64, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.NotFound("Study spot", id)
	}
	return fmt.Errorf("failed to get study spot: %w", err)
}

func userLookupError(id int64, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.NotFound("User", id)
	}
	return fmt.Errorf("failed to get user: %w", err)
}
