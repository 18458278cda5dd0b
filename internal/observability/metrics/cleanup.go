package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CleanupMetrics contains Prometheus metrics for media garbage collection
type CleanupMetrics struct {
	registry *prometheus.Registry

	runsTotal         *prometheus.CounterVec
	itemsTotal        *prometheus.CounterVec
	reachableMedia    prometheus.Gauge
	durationSeconds   *prometheus.HistogramVec
	bytesDefragmented prometheus.Counter
}

// NewCleanupMetrics creates and registers new cleanup metrics
func NewCleanupMetrics(registry *prometheus.Registry) (*CleanupMetrics, error) {
	m := &CleanupMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *CleanupMetrics) initMetrics() {
	m.runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cleaner_runs_total",
			Help: "Total number of cleanup runs",
		},
		[]string{"status"}, // status: success, error
	)

	m.itemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cleaner_items_total",
			Help: "Total number of media items and data providers processed by cleanup",
		},
		[]string{"item", "action"}, // action: deleted, defragmented, failed
	)

	m.reachableMedia = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cleaner_reachable_media",
		Help: "Number of distinct media items marked reachable in the last run",
	})

	m.durationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cleaner_phase_duration_seconds",
			Help:    "Time taken by each cleanup phase",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount10), // 1ms to ~1s
		},
		[]string{"phase"},
	)

	m.bytesDefragmented = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cleaner_bytes_defragmented_total",
		Help: "Total PCM bytes copied while defragmenting audio",
	})
}

// Describe implements the Collector interface
func (m *CleanupMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.runsTotal.Describe(ch)
	m.itemsTotal.Describe(ch)
	m.reachableMedia.Describe(ch)
	m.durationSeconds.Describe(ch)
	m.bytesDefragmented.Describe(ch)
}

// Collect implements the Collector interface
func (m *CleanupMetrics) Collect(ch chan<- prometheus.Metric) {
	m.runsTotal.Collect(ch)
	m.itemsTotal.Collect(ch)
	m.reachableMedia.Collect(ch)
	m.durationSeconds.Collect(ch)
	m.bytesDefragmented.Collect(ch)
}

// RecordRun records a finished cleanup run
func (m *CleanupMetrics) RecordRun(status string) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(status).Inc()
}

// RecordItem records one processed media item or data provider
func (m *CleanupMetrics) RecordItem(item, action string) {
	if m == nil {
		return
	}
	m.itemsTotal.WithLabelValues(item, action).Inc()
}

// SetReachableMedia records the size of the reachable set
func (m *CleanupMetrics) SetReachableMedia(count int) {
	if m == nil {
		return
	}
	m.reachableMedia.Set(float64(count))
}

// RecordPhaseDuration records the duration of a cleanup phase in seconds
func (m *CleanupMetrics) RecordPhaseDuration(phase string, seconds float64) {
	if m == nil {
		return
	}
	m.durationSeconds.WithLabelValues(phase).Observe(seconds)
}

// RecordBytesDefragmented records PCM bytes copied by defragmentation
func (m *CleanupMetrics) RecordBytesDefragmented(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.bytesDefragmented.Add(float64(n))
}
