package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache holds the Prometheus collectors for repository cache traffic.
// A nil *Cache is valid and records nothing.
type Cache struct {
	Requests      *prometheus.CounterVec
	Writes        prometheus.Counter
	Invalidations prometheus.Counter
	Errors        *prometheus.CounterVec
}

// NewCache registers the cache collectors with reg under the given namespace.
// Pass prometheus.DefaultRegisterer to expose them on the default handler.
func NewCache(reg prometheus.Registerer, namespace string) *Cache {
	factory := promauto.With(reg)

	return &Cache{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "repository_cache_requests_total",
			Help:      "Cached repository reads by result (hit or miss)",
		}, []string{"result"}),

		Writes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "repository_cache_writes_total",
			Help:      "Values stored after a cache miss",
		}),

		Invalidations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "repository_cache_invalidated_keys_total",
			Help:      "Cache keys forgotten after mutations",
		}),

		Errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "repository_cache_errors_total",
			Help:      "Cache backend and codec failures by operation",
		}, []string{"op"}),
	}
}

func (m *Cache) Hit() {
	if m != nil {
		m.Requests.WithLabelValues("hit").Inc()
	}
}

func (m *Cache) Miss() {
	if m != nil {
		m.Requests.WithLabelValues("miss").Inc()
	}
}

func (m *Cache) Write() {
	if m != nil {
		m.Writes.Inc()
	}
}

func (m *Cache) Invalidated(n int) {
	if m != nil {
		m.Invalidations.Add(float64(n))
	}
}

func (m *Cache) Error(op string) {
	if m != nil {
		m.Errors.WithLabelValues(op).Inc()
	}
}
