// Package metrics exposes the Prometheus collectors of the service. All
// methods are safe on a nil *Metrics so tests can omit instrumentation.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	requests         *prometheus.HistogramVec
	searches         *prometheus.CounterVec
	searchResults    prometheus.Histogram
	checkins         *prometheus.CounterVec
	occupancyDegrade prometheus.Counter
	signingDegrade   prometheus.Counter
}

// New registers the collectors on reg
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		requests: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "studyspot",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		searches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studyspot",
			Name:      "searches_total",
			Help:      "Study spot searches by mode.",
		}, []string{"mode"}),
		searchResults: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "studyspot",
			Name:      "search_results",
			Help:      "Number of spots returned per search.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 1000},
		}),
		checkins: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studyspot",
			Name:      "checkin_transitions_total",
			Help:      "Check-in state transitions by action and outcome.",
		}, []string{"action", "outcome"}),
		occupancyDegrade: f.NewCounter(prometheus.CounterOpts{
			Namespace: "studyspot",
			Name:      "occupancy_fallbacks_total",
			Help:      "Searches whose occupancy counts fell back to zero.",
		}),
		signingDegrade: f.NewCounter(prometheus.CounterOpts{
			Namespace: "studyspot",
			Name:      "photo_signing_fallbacks_total",
			Help:      "Photo URLs served unsigned because signing failed.",
		}),
	}
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveSearch(geo bool, results int) {
	if m == nil {
		return
	}
	mode := "list"
	if geo {
		mode = "geo"
	}
	m.searches.WithLabelValues(mode).Inc()
	m.searchResults.Observe(float64(results))
}

func (m *Metrics) CheckinTransition(action, outcome string) {
	if m == nil {
		return
	}
	m.checkins.WithLabelValues(action, outcome).Inc()
}

func (m *Metrics) OccupancyFallback() {
	if m == nil {
		return
	}
	m.occupancyDegrade.Inc()
}

func (m *Metrics) SigningFallback() {
	if m == nil {
		return
	}
	m.signingDegrade.Inc()
}
