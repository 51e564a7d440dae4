package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"studyspot-backend/internal/apperror"
	"studyspot-backend/internal/metrics"
	"studyspot-backend/internal/models"
	"studyspot-backend/internal/repository"

	"github.com/rs/zerolog/log"
)

// OccupancyPublisher is told the new open check-in count of a spot after every transition
type OccupancyPublisher interface {
	PublishOccupancy(spotID int64, active int)
}

// CheckinService tracks which users are present at which study spots
type CheckinService struct {
	checkins  repository.CheckinRepository
	spots     repository.SpotRepository
	users     repository.UserRepository
	publisher OccupancyPublisher
	now       func() time.Time
	metrics   *metrics.Metrics

	// spot id -> *sync.Mutex, orders count reads with their broadcasts
	publishLocks sync.Map
}

// NewCheckinService creates a new check-in service. publisher may be nil.
func NewCheckinService(
	checkins repository.CheckinRepository,
	spots repository.SpotRepository,
	users repository.UserRepository,
	publisher OccupancyPublisher,
	m *metrics.Metrics,
) *CheckinService {
	return &CheckinService{
		checkins:  checkins,
		spots:     spots,
		users:     users,
		publisher: publisher,
		now:       time.Now,
		metrics:   m,
	}
}

// CheckinStatus reports whether a user is currently checked in at a spot
type CheckinStatus struct {
	StudySpotID   int64 `json:"studyspot_id"`
	UserID        int64 `json:"user_id"`
	IsUserCheckin bool  `json:"is_user_checkin"`
}

// ActiveCount is the number of open check-ins at a spot
type ActiveCount struct {
	StudySpotID    int64 `json:"studyspot_id"`
	ActiveCheckins int   `json:"active_checkins"`
}

// SignIn opens a check-in for the pair. It fails with a conflict while one is already open.
func (s *CheckinService) SignIn(ctx context.Context, userID, spotID int64) (*models.Checkin, error) {
	if err := s.requirePair(ctx, userID, spotID); err != nil {
		s.metrics.CheckinTransition("sign_in", "not_found")
		return nil, err
	}

	checkin, err := s.checkins.Open(ctx, userID, spotID, s.timestamp())
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			s.metrics.CheckinTransition("sign_in", "conflict")
			return nil, apperror.Conflict("User already checked in at this studyspot")
		case errors.Is(err, repository.ErrNotFound):
			s.metrics.CheckinTransition("sign_in", "not_found")
			return nil, apperror.NotFoundf("Study spot %d or user %d not found", spotID, userID)
		}
		return nil, fmt.Errorf("failed to open check-in: %w", err)
	}

	s.metrics.CheckinTransition("sign_in", "ok")
	log.Info().
		Int64("user_id", userID).
		Int64("studyspot_id", spotID).
		Int64("checkin_id", checkin.ID).
		Msg("User checked in")

	s.publish(ctx, spotID)
	return checkin, nil
}

// SignOut closes the most recent open check-in of the pair
func (s *CheckinService) SignOut(ctx context.Context, userID, spotID int64) (*models.Checkin, error) {
	checkin, err := s.checkins.CloseLatest(ctx, userID, spotID, s.timestamp())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.metrics.CheckinTransition("sign_out", "not_found")
			return nil, apperror.NotFoundf("User has no active checkin at this studyspot")
		}
		return nil, fmt.Errorf("failed to close check-in: %w", err)
	}

	s.metrics.CheckinTransition("sign_out", "ok")
	log.Info().
		Int64("user_id", userID).
		Int64("studyspot_id", spotID).
		Int64("checkin_id", checkin.ID).
		Msg("User checked out")

	s.publish(ctx, spotID)
	return checkin, nil
}

// Status reports whether the user is checked in. It never changes state.
func (s *CheckinService) Status(ctx context.Context, userID, spotID int64) (*CheckinStatus, error) {
	open, err := s.checkins.HasOpen(ctx, userID, spotID)
	if err != nil {
		return nil, fmt.Errorf("failed to get check-in status: %w", err)
	}
	return &CheckinStatus{StudySpotID: spotID, UserID: userID, IsUserCheckin: open}, nil
}

// ActiveCount returns the number of open check-ins at spotID
func (s *CheckinService) ActiveCount(ctx context.Context, spotID int64) (*ActiveCount, error) {
	if _, err := s.spots.GetByID(ctx, spotID); err != nil {
		return nil, spotLookupError(spotID, err)
	}
	n, err := s.checkins.CountOpen(ctx, spotID)
	if err != nil {
		return nil, fmt.Errorf("failed to count check-ins: %w", err)
	}
	return &ActiveCount{StudySpotID: spotID, ActiveCheckins: n}, nil
}

// History returns every check-in of the pair, newest first
func (s *CheckinService) History(ctx context.Context, userID, spotID int64) ([]*models.Checkin, error) {
	history, err := s.checkins.History(ctx, userID, spotID)
	if err != nil {
		return nil, fmt.Errorf("failed to get check-in history: %w", err)
	}
	if history == nil {
		history = []*models.Checkin{}
	}
	return history, nil
}

func (s *CheckinService) requirePair(ctx context.Context, userID, spotID int64) error {
	if _, err := s.spots.GetByID(ctx, spotID); err != nil {
		return spotLookupError(spotID, err)
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return userLookupError(userID, err)
	}
	return nil
}

// publish is best effort, the transition has already been committed. The
// count is read and sent under a per-spot lock, so the last broadcast for a
// spot always reflects every committed transition.
func (s *CheckinService) publish(ctx context.Context, spotID int64) {
	if s.publisher == nil {
		return
	}
	lock, _ := s.publishLocks.LoadOrStore(spotID, &sync.Mutex{})
	mu := lock.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()

	n, err := s.checkins.CountOpen(ctx, spotID)
	if err != nil {
		log.Warn().Err(err).Int64("studyspot_id", spotID).Msg("Failed to count check-ins for broadcast")
		return
	}
	s.publisher.PublishOccupancy(spotID, n)
}

func (s *CheckinService) timestamp() float64 {
	return float64(s.now().UnixNano()) / float64(time.Second)
}
