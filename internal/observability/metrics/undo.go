// Package metrics provides Prometheus collectors for the editing core
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// UndoMetrics contains Prometheus metrics for undo/redo operations
type UndoMetrics struct {
	registry *prometheus.Registry

	operationsTotal  *prometheus.CounterVec
	undoStackDepth   prometheus.Gauge
	redoStackDepth   prometheus.Gauge
	transactionDepth prometheus.Gauge
	leavesPerOpHist  prometheus.Histogram
}

// NewUndoMetrics creates and registers new undo metrics
func NewUndoMetrics(registry *prometheus.Registry) (*UndoMetrics, error) {
	m := &UndoMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *UndoMetrics) initMetrics() {
	m.operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "undo_operations_total",
			Help: "Total number of undo manager operations",
		},
		[]string{"operation", "status"},
	)

	m.undoStackDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "undo_stack_depth",
		Help: "Number of commands on the undo stack",
	})

	m.redoStackDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "undo_redo_stack_depth",
		Help: "Number of commands on the redo stack",
	})

	m.transactionDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "undo_transaction_depth",
		Help: "Number of nested transactions currently open",
	})

	m.leavesPerOpHist = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "undo_leaf_commands_per_operation",
		Help:    "Number of leaf commands affected by one undo manager operation",
		Buckets: prometheus.ExponentialBuckets(1, BucketFactor2, BucketCount10), // 1 to 512
	})
}

// Describe implements the Collector interface
func (m *UndoMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.operationsTotal.Describe(ch)
	m.undoStackDepth.Describe(ch)
	m.redoStackDepth.Describe(ch)
	m.transactionDepth.Describe(ch)
	m.leavesPerOpHist.Describe(ch)
}

// Collect implements the Collector interface
func (m *UndoMetrics) Collect(ch chan<- prometheus.Metric) {
	m.operationsTotal.Collect(ch)
	m.undoStackDepth.Collect(ch)
	m.redoStackDepth.Collect(ch)
	m.transactionDepth.Collect(ch)
	m.leavesPerOpHist.Collect(ch)
}

// RecordOperation records an undo manager operation and the number of leaf
// commands it affected. Safe to call on a nil receiver.
func (m *UndoMetrics) RecordOperation(operation, status string, leaves int) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(operation, status).Inc()
	if status == StatusSuccess && leaves > 0 {
		m.leavesPerOpHist.Observe(float64(leaves))
	}
}

// UpdateStacks records the current stack and transaction depths.
func (m *UndoMetrics) UpdateStacks(undoDepth, redoDepth, transactionDepth int) {
	if m == nil {
		return
	}
	m.undoStackDepth.Set(float64(undoDepth))
	m.redoStackDepth.Set(float64(redoDepth))
	m.transactionDepth.Set(float64(transactionDepth))
}
