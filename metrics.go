package goToken

import (
	"sync/atomic"
	"time"
)

// MetricID identifies a TokenService counter or histogram.
type MetricID uint16

const (
	// MetricTokenIssued counts tokens returned by Issue.
	MetricTokenIssued MetricID = iota
	// MetricTokenVerified counts tokens accepted by Verify.
	MetricTokenVerified
	// MetricTokenRejected counts tokens rejected for any reason other than expiry.
	MetricTokenRejected
	// MetricTokenExpired counts otherwise well-formed tokens rejected because exp had passed.
	MetricTokenExpired
	// MetricInsecureSecret counts services built on the development fallback secret.
	MetricInsecureSecret
	// MetricVerifyLatency is the Verify latency histogram.
	MetricVerifyLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

// verifyLatencyBounds are the inclusive upper bounds of all but the last
// Verify latency bucket. Verify is a microsecond-scale operation, so they are
// much finer than a typical request histogram.
var verifyLatencyBounds = [histBucketCount - 1]time.Duration{
	10 * time.Microsecond,
	25 * time.Microsecond,
	50 * time.Microsecond,
	100 * time.Microsecond,
	250 * time.Microsecond,
	500 * time.Microsecond,
	time.Millisecond,
}

// VerifyLatencyBounds returns the upper bounds of the Verify latency buckets
// in order. The histogram has one more bucket collecting everything slower
// than the last bound.
func VerifyLatencyBounds() []time.Duration {
	out := make([]time.Duration, len(verifyLatencyBounds))
	copy(out, verifyLatencyBounds[:])
	return out
}

type metricHistogram struct {
	buckets [histBucketCount]uint64
	sumNs   uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free counters and an optional Verify latency histogram.
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all metric values.
//
// Histograms holds per-bucket (non-cumulative) counts and HistogramSums the
// total observed duration of the same histogram.
type MetricsSnapshot struct {
	Counters      map[MetricID]uint64
	Histograms    map[MetricID][]uint64
	HistogramSums map[MetricID]time.Duration
}

// NewMetrics returns a Metrics configured by cfg.
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

// LatencyEnabled reports whether the latency histogram is recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to the counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram id. Only MetricVerifyLatency has a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricVerifyLatency {
		return
	}

	if d < 0 {
		d = 0
	}
	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
	atomic.AddUint64(&m.histograms[id].sumNs, uint64(d))
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter and, when enabled, the latency histogram.
// Disabled metrics yield empty maps.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:      map[MetricID]uint64{},
			Histograms:    map[MetricID][]uint64{},
			HistogramSums: map[MetricID]time.Duration{},
		}
	}

	s := MetricsSnapshot{
		Counters:      make(map[MetricID]uint64, int(metricIDCount)),
		Histograms:    make(map[MetricID][]uint64, 1),
		HistogramSums: make(map[MetricID]time.Duration, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricVerifyLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricVerifyLatency].buckets[i])
		}
		s.Histograms[MetricVerifyLatency] = buckets
		s.HistogramSums[MetricVerifyLatency] = time.Duration(atomic.LoadUint64(&m.histograms[MetricVerifyLatency].sumNs))
	}

	return s
}

func bucketIndex(d time.Duration) int {
	for i, bound := range verifyLatencyBounds {
		if d <= bound {
			return i
		}
	}
	return histBucketCount - 1
}
