package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveSearch(true, 3)
	m.ObserveSearch(false, 0)
	m.ObserveSearch(true, 1)
	m.CheckinTransition("sign_in", "conflict")
	m.OccupancyFallback()
	m.SigningFallback()
	m.SigningFallback()
	m.ObserveRequest("GET", "/api/v1/studyspots", 200, 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.searches.WithLabelValues("geo")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.searches.WithLabelValues("list")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.checkins.WithLabelValues("sign_in", "conflict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.occupancyDegrade))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.signingDegrade))
	assert.Equal(t, 1, testutil.CollectAndCount(m.requests))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveSearch(true, 1)
		m.CheckinTransition("sign_out", "ok")
		m.OccupancyFallback()
		m.SigningFallback()
		m.ObserveRequest("GET", "/", 200, time.Second)
	})
}
