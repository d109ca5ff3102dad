// Package metrics exposes Prometheus collectors for the cache, the NASA
// upstream and the analysis provider.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the service collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	cacheLookups     *prometheus.CounterVec
	cacheEvictions   prometheus.Counter
	cacheEntries     prometheus.Gauge
	upstreamRequests *prometheus.CounterVec
	circuitState     *prometheus.GaugeVec
	analyses         *prometheus.CounterVec
}

// Option customizes metric construction
type Option func(*config)

type config struct {
	registerer prometheus.Registerer
}

// WithRegisterer overrides the default Prometheus registerer
func WithRegisterer(r prometheus.Registerer) Option {
	return func(cfg *config) {
		cfg.registerer = r
	}
}

// New constructs and registers the collectors
func New(opts ...Option) *Metrics {
	cfg := config{registerer: prometheus.DefaultRegisterer}
	for _, opt := range opts {
		opt(&cfg)
	}

	m := &Metrics{
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "neows_cache_lookups_total",
			Help: "Response cache lookups by result (hit, miss).",
		}, []string{"result"}),
		cacheEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "neows_cache_evictions_total",
			Help: "Expired response cache entries removed.",
		}),
		cacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "neows_cache_entries",
			Help: "Entries currently held by the response cache.",
		}),
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "neows_upstream_requests_total",
			Help: "NASA NeoWs requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		circuitState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "neows_circuit_state",
			Help: "Upstream circuit breaker state. 0=closed, 1=half-open, 2=open.",
		}, []string{"name"}),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "neows_analyses_total",
			Help: "Asteroid analyses by outcome (ok, degraded, failed).",
		}, []string{"outcome"}),
	}

	if cfg.registerer != nil {
		cfg.registerer.MustRegister(
			m.cacheLookups,
			m.cacheEvictions,
			m.cacheEntries,
			m.upstreamRequests,
			m.circuitState,
			m.analyses,
		)
	}
	return m
}

// CacheHit records a fresh cache read
func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues("hit").Inc()
}

// CacheMiss records an absent or expired cache read
func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
}

// CacheEvicted records n expired entries being removed
func (m *Metrics) CacheEvicted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.cacheEvictions.Add(float64(n))
}

// CacheSize publishes the current number of entries
func (m *Metrics) CacheSize(n int) {
	if m == nil {
		return
	}
	m.cacheEntries.Set(float64(n))
}

// Upstream records the outcome of one NASA request
func (m *Metrics) Upstream(endpoint, outcome string) {
	if m == nil {
		return
	}
	m.upstreamRequests.WithLabelValues(endpoint, outcome).Inc()
}

// CircuitState publishes a breaker state
func (m *Metrics) CircuitState(name string, state float64) {
	if m == nil {
		return
	}
	m.circuitState.WithLabelValues(name).Set(state)
}

// Analysis records the outcome of one analysis
func (m *Metrics) Analysis(outcome string) {
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(outcome).Inc()
}
