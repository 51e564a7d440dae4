package handlers

import (
	"net/http"

	"studyspot-backend/internal/metrics"
	"studyspot-backend/internal/middleware"
	"studyspot-backend/internal/services"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Services bundles what the HTTP layer calls into
type Services struct {
	Users    *services.UserService
	Spots    *services.SpotService
	Search   *services.SearchService
	Reviews  *services.ReviewService
	Checkins *services.CheckinService
	Photos   *services.PhotoService
	Hub      *services.OccupancyHub
}

// NewRouter wires every route of the API
func NewRouter(svc Services, m *metrics.Metrics, gatherer prometheus.Gatherer) http.Handler {
	userHandler := NewUserHandler(svc.Users)
	spotHandler := NewSpotHandler(svc.Spots, svc.Search)
	reviewHandler := NewReviewHandler(svc.Reviews)
	checkinHandler := NewCheckinHandler(svc.Checkins)
	photoHandler := NewPhotoHandler(svc.Photos)
	wsHandler := NewWebSocketHandler(svc.Hub, svc.Checkins)

	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.Metrics(m))
	r.Use(corsMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/users", userHandler.CreateUser)
		r.Get("/users", userHandler.ListUsers)
		r.Post("/users/login", userHandler.Login)

		r.Post("/studyspots", spotHandler.CreateSpot)
		r.Get("/studyspots", spotHandler.SearchSpots)
		r.Get("/studyspots/{spot_id}", spotHandler.GetSpot)
		r.Patch("/studyspots/{spot_id}/status", spotHandler.UpdateStatus)

		r.Get("/checkins/active/{studyspot_id}", checkinHandler.ActiveCount)

		r.Get("/reviews", reviewHandler.ListReviews)
		r.Get("/reviews/by-spot/{spot_id}", reviewHandler.ListBySpot)
		r.Get("/reviews/by-user/{user_id}", reviewHandler.ListByUser)
		r.Put("/reviews/{review_id}", reviewHandler.UpdateReview)
		r.Delete("/reviews/{review_id}", reviewHandler.DeleteReview)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(svc.Users))
			r.Post("/studyspots/{spot_id}/photos", photoHandler.UploadPhoto)
			r.Put("/studyspots/{spot_id}/photos/{photo_id}/primary", photoHandler.SetPrimary)

			r.Post("/checkins", checkinHandler.Checkin)
			r.Post("/checkins/checkout", checkinHandler.Checkout)
			r.Get("/checkins/status", checkinHandler.Status)
			r.Get("/checkins/history", checkinHandler.History)

			r.Post("/reviews", reviewHandler.CreateReview)
		})
	})

	// WebSocket route
	r.Get("/ws/spots/{spot_id}", wsHandler.HandleWebSocket)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return r
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
