package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCache_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCache(reg, "test")

	m.Hit()
	m.Hit()
	m.Miss()
	m.Write()
	m.Invalidated(2)
	m.Error("get")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Requests.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Writes))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Invalidations))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Errors.WithLabelValues("get")))
}

func TestCache_NilIsNoop(t *testing.T) {
	var m *Cache
	assert.NotPanics(t, func() {
		m.Hit()
		m.Miss()
		m.Write()
		m.Invalidated(3)
		m.Error("put")
	})
}

func TestNewCache_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCache(reg, "dup")
	assert.Panics(t, func() { NewCache(reg, "dup") })
}
