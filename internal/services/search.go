package services

import (
	"context"
	"fmt"
	"sort"

	"studyspot-backend/internal/apperror"
	"studyspot-backend/internal/config"
	"studyspot-backend/internal/geo"
	"studyspot-backend/internal/metrics"
	"studyspot-backend/internal/models"
	"studyspot-backend/internal/repository"

	"github.com/rs/zerolog/log"
)

// SearchParams are the optional filters of a study spot search. Latitude and
// Longitude must be both set or both nil.
type SearchParams struct {
	Latitude          *float64
	Longitude         *float64
	RadiusKm          *float64
	MinAvgRating      *float64
	MinActiveCheckins *int
}

// SearchService answers study spot searches
type SearchService struct {
	spots    repository.SpotRepository
	checkins repository.CheckinRepository
	photos   *PhotoService
	cfg      config.SearchConfig
	metrics  *metrics.Metrics
}

// NewSearchService creates a new search service
func NewSearchService(
	spots repository.SpotRepository,
	checkins repository.CheckinRepository,
	photos *PhotoService,
	cfg config.SearchConfig,
	m *metrics.Metrics,
) *SearchService {
	return &SearchService{
		spots:    spots,
		checkins: checkins,
		photos:   photos,
		cfg:      cfg,
		metrics:  m,
	}
}

func (s *SearchService) validate(p SearchParams) error {
	if (p.Latitude == nil) != (p.Longitude == nil) {
		return apperror.Unprocessable("latitude", "latitude and longitude must be provided together")
	}
	if p.RadiusKm != nil && (*p.RadiusKm <= 0 || *p.RadiusKm > s.cfg.MaxRadiusKm) {
		return apperror.Unprocessable("radius_km",
			fmt.Sprintf("radius_km must be greater than 0 and at most %g", s.cfg.MaxRadiusKm))
	}
	if p.MinAvgRating != nil && (*p.MinAvgRating < 1 || *p.MinAvgRating > 5) {
		return apperror.Unprocessable("min_avg_rating", "min_avg_rating must be between 1 and 5")
	}
	if p.MinActiveCheckins != nil && *p.MinActiveCheckins < 0 {
		return apperror.Unprocessable("min_active_checkins", "min_active_checkins must not be negative")
	}
	return nil
}

// Search returns the spots matching every provided filter. With a location
// the results are nearest first, otherwise they are ordered by id.
func (s *SearchService) Search(ctx context.Context, p SearchParams) ([]models.SpotResult, error) {
	if err := s.validate(p); err != nil {
		return nil, err
	}

	if s.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.QueryTimeout)
		defer cancel()
	}

	located := p.Latitude != nil
	radius := s.cfg.DefaultRadiusKm
	if p.RadiusKm != nil {
		radius = *p.RadiusKm
	}

	// One row past the cap tells a full scan apart from a truncated one
	var query repository.SpotQuery
	if s.cfg.MaxCandidates > 0 {
		query.Limit = s.cfg.MaxCandidates + 1
	}
	if located {
		box := geo.NewBoundingBox(*p.Latitude, *p.Longitude, radius)
		query.Box = &box
	}

	candidates, err := s.spots.ListWithRatings(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list study spots: %w", err)
	}
	if s.cfg.MaxCandidates > 0 && len(candidates) > s.cfg.MaxCandidates {
		log.Warn().
			Bool("located", located).
			Float64("radius_km", radius).
			Int("max_candidates", s.cfg.MaxCandidates).
			Msg("Search candidate cap exceeded")
		if located {
			return nil, apperror.Unprocessable("radius_km", "too many candidates, narrow the search")
		}
		return nil, apperror.Unprocessable("latitude", "too many study spots, search near a location")
	}

	results := make([]models.SpotResult, 0, len(candidates))
	for _, c := range candidates {
		result := models.SpotResult{StudySpot: c.StudySpot, AvgRating: c.AvgRating}

		if located {
			d := geo.Distance(*p.Latitude, *p.Longitude, c.Latitude, c.Longitude)
			if d > radius {
				continue
			}
			result.DistanceKm = &d
		}

		if p.MinAvgRating != nil && (c.AvgRating == nil || *c.AvgRating < *p.MinAvgRating) {
			continue
		}

		results = append(results, result)
	}

	counts := s.occupancyOrZero(ctx, spotIDs(results))
	kept := results[:0]
	for _, result := range results {
		result.ActiveCheckins = counts[result.ID]
		if p.MinActiveCheckins != nil && result.ActiveCheckins < *p.MinActiveCheckins {
			continue
		}
		kept = append(kept, result)
	}
	results = kept

	if err := s.attachPhotos(ctx, results); err != nil {
		return nil, err
	}

	if located {
		sort.SliceStable(results, func(i, j int) bool {
			a, b := results[i], results[j]
			if *a.DistanceKm != *b.DistanceKm {
				return *a.DistanceKm < *b.DistanceKm
			}
			return a.ID < b.ID
		})
	}

	s.metrics.ObserveSearch(located, len(results))
	return results, nil
}

// Get returns one spot annotated like a search result without a distance
func (s *SearchService) Get(ctx context.Context, id int64) (*models.SpotResult, error) {
	agg, err := s.spots.GetWithRating(ctx, id)
	if err != nil {
		return nil, spotLookupError(id, err)
	}

	results := []models.SpotResult{{StudySpot: agg.StudySpot, AvgRating: agg.AvgRating}}
	results[0].ActiveCheckins = s.occupancyOrZero(ctx, []int64{id})[id]
	if err := s.attachPhotos(ctx, results); err != nil {
		return nil, err
	}
	return &results[0], nil
}

// occupancyOrZero returns the open check-in count per spot. A failed lookup
// counts every spot as empty so the search still answers.
func (s *SearchService) occupancyOrZero(ctx context.Context, ids []int64) map[int64]int {
	if len(ids) == 0 {
		return map[int64]int{}
	}
	counts, err := s.checkins.CountOpenBySpots(ctx, ids)
	if err != nil {
		s.metrics.OccupancyFallback()
		log.Warn().Err(err).Int("spots", len(ids)).Msg("Occupancy lookup failed, reporting zero")
		return map[int64]int{}
	}
	return counts
}

func (s *SearchService) attachPhotos(ctx context.Context, results []models.SpotResult) error {
	if len(results) == 0 {
		return nil
	}
	photos, err := s.photos.ForSpots(ctx, spotIDs(results))
	if err != nil {
		return err
	}
	for i := range results {
		results[i].Photos = photos[results[i].ID]
	}
	return nil
}

func spotIDs(results []models.SpotResult) []int64 {
	ids := make([]int64, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	return ids
}
