package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheus_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := NewPrometheus(reg)
	require.NoError(t, err)

	p.CacheHit("rooms", false)
	p.CacheHit("rooms", true)
	p.CacheHit("rooms", true)
	p.CacheMiss("bookings")
	p.Refresh("bookings", true, errors.New("boom"))
	p.Refresh("bookings", false, nil)
	p.EventPublished("bookings", "created")

	assert.Equal(t, 1.0, testutil.ToFloat64(p.hits.WithLabelValues("rooms", "false")))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.hits.WithLabelValues("rooms", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.misses.WithLabelValues("bookings")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.refreshes.WithLabelValues("bookings", "background", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.refreshes.WithLabelValues("bookings", "foreground", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.events.WithLabelValues("bookings", "created")))
}

func TestNewPrometheus_DoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheus(reg)
	require.NoError(t, err)

	_, err = NewPrometheus(reg)
	assert.Error(t, err)
}
