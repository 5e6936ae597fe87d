package edusession

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one counter or histogram in the in-process metrics
// system.
type MetricID uint16

const (
	// MetricLoginSuccess counts successful password logins.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts rejected or failed password logins.
	MetricLoginFailure
	// MetricLoginThrottled counts logins stopped by the local throttle.
	MetricLoginThrottled
	// MetricRegisterSuccess counts successful registrations.
	MetricRegisterSuccess
	// MetricRegisterFailure counts rejected or failed registrations.
	MetricRegisterFailure
	// MetricRefreshSuccess counts successful token exchanges.
	MetricRefreshSuccess
	// MetricRefreshFailure counts failed token exchanges.
	MetricRefreshFailure
	// MetricLogout counts logout calls (local teardown always succeeds).
	MetricLogout
	// MetricSessionCleared counts store-clearing transitions to the
	// unauthenticated state, whatever triggered them.
	MetricSessionCleared
	// MetricCurrentUserSuccess counts confirmed token validations.
	MetricCurrentUserSuccess
	// MetricCurrentUserRejected counts token validations the backend
	// rejected.
	MetricCurrentUserRejected
	// MetricInitAuthenticated counts init checks that restored a session.
	MetricInitAuthenticated
	// MetricInitUnauthenticated counts init checks that resolved to the
	// anonymous sentinel.
	MetricInitUnauthenticated
	// MetricCacheAdopted counts optimistic adoptions of the cached user by
	// the guard before the init check resolved.
	MetricCacheAdopted
	// MetricStaleResultDropped counts async results discarded because the
	// session epoch moved on (logout raced the response).
	MetricStaleResultDropped
	// MetricGuardAllowed counts guarded requests that rendered.
	MetricGuardAllowed
	// MetricGuardRedirectLogin counts guard redirects to the login entry.
	MetricGuardRedirectLogin
	// MetricGuardRedirectHome counts guard redirects to the home entry on
	// role mismatch.
	MetricGuardRedirectHome
	// MetricInitLatency is the histogram of init-check durations.
	MetricInitLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds atomic counters and an optional init-latency histogram.
// A nil or disabled Metrics turns every operation into a no-op.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time deep copy of all metrics.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates a [Metrics] instance configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the init-latency histogram is recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc increments the counter for id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records a duration sample. Only MetricInitLatency is histogrammed.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricInitLatency {
		return
	}
	atomic.AddUint64(&m.histograms[id].buckets[bucketIndex(d)], 1)
}

// Value returns the current counter value for id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot deep-copies all counters and histograms.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := range buckets {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricInitLatency].buckets[i])
		}
		s.Histograms[MetricInitLatency] = buckets
	}

	return s
}

// bucketIndex maps a duration into exponential buckets:
// <1ms, <4ms, <16ms, <64ms, <256ms, <1s, <4s, rest.
func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()
	switch {
	case ms < 1:
		return 0
	case ms < 4:
		return 1
	case ms < 16:
		return 2
	case ms < 64:
		return 3
	case ms < 256:
		return 4
	case ms < 1000:
		return 5
	case ms < 4000:
		return 6
	default:
		return 7
	}
}
