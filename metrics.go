package goSession

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one engine counter.
type MetricID uint16

const (
	// MetricSessionCreated counts successful CreateSession calls.
	MetricSessionCreated MetricID = iota
	// MetricSessionEvicted counts same-platform sessions displaced by a login.
	MetricSessionEvicted
	// MetricSessionDeleted counts single-session logouts that removed a record.
	MetricSessionDeleted
	// MetricSessionsDeletedAll counts DeleteAllUserSessions calls.
	MetricSessionsDeletedAll
	// MetricSessionsDeletedOthers counts DeleteOtherSessions calls.
	MetricSessionsDeletedOthers
	// MetricSessionWriteFailure counts write-path calls that failed on a backend.
	MetricSessionWriteFailure
	// MetricGuardAccepted counts requests admitted by Authenticate.
	MetricGuardAccepted
	// MetricGuardUnauthenticated counts requests without a usable ticket.
	MetricGuardUnauthenticated
	// MetricGuardInvalidated counts requests carrying a known-dead session.
	MetricGuardInvalidated
	// MetricGuardLedgerHit counts rejections decided by the invalidation ledger.
	MetricGuardLedgerHit
	// MetricGuardDegraded counts requests admitted fail-open after a backend error.
	MetricGuardDegraded
	// MetricGuardInfraRejected counts requests rejected fail-closed after a backend error.
	MetricGuardInfraRejected
	// MetricActivityTouched counts lastActivityAt updates.
	MetricActivityTouched
	// MetricCleanupRemoved counts registry records removed by cleanup sweeps.
	MetricCleanupRemoved
	// MetricGuardLatency is the Authenticate latency histogram.
	MetricGuardLatency
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

// Metrics holds lock-free engine counters and the guard latency histogram.
// A nil or disabled *Metrics accepts every call and records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters. Histograms holds
// one slice of non-cumulative bucket counts per latency
// metric.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns metrics configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to id.
func (m *Metrics) Inc(id MetricID) {
	m.Add(id, 1)
}

// Add adds n to id.
func (m *Metrics) Add(id MetricID, n uint64) {
	if m == nil || !m.enabled || id >= metricIDCount || n == 0 {
		return
	}
	atomic.AddUint64(&m.counters[id].value, n)
}

// Observe records d in the histogram for id. Only MetricGuardLatency has a
// histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || id != MetricGuardLatency {
		return
	}
	atomic.AddUint64(&m.histograms[id].buckets[bucketIndex(d)], 1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies the current counter values.
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
		if id == MetricGuardLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := range buckets {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricGuardLatency].buckets[i])
		}
		s.Histograms[MetricGuardLatency] = buckets
	}
	return s
}

// LatencyBucketBounds returns the upper bounds of the finite histogram
// buckets. The last bucket is unbounded.
func LatencyBucketBounds() []time.Duration {
	return []time.Duration{
		5 * time.Millisecond,
		10 * time.Millisecond,
		25 * time.Millisecond,
		50 * time.Millisecond,
		100 * time.Millisecond,
		250 * time.Millisecond,
		500 * time.Millisecond,
	}
}

func bucketIndex(d time.Duration) int {
	for i, bound := range LatencyBucketBounds() {
		if d <= bound {
			return i
		}
	}
	return histBucketCount - 1
}
