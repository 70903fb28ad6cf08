package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// LockMetrics contains all Prometheus metrics related to image locks.
type LockMetrics struct {
	AcquireTotal *prometheus.CounterVec
	ActiveLocks  prometheus.Gauge

	registry *prometheus.Registry
}

// NewLockMetrics creates a new instance of LockMetrics.
func NewLockMetrics(registry *prometheus.Registry) (*LockMetrics, error) {
	m := &LockMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register lock metrics: %w", err)
	}
	return m, nil
}

func (m *LockMetrics) initMetrics() {
	m.AcquireTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aerolabel_lock_acquisitions_total",
			Help: "Total lock acquisition attempts partitioned by outcome.",
		},
		[]string{"outcome"},
	)
	m.ActiveLocks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "aerolabel_active_locks",
			Help: "Number of currently live image locks.",
		},
	)
}

// RecordAcquire increments the acquisition counter, outcome is acquired
// or contended.
func (m *LockMetrics) RecordAcquire(outcome string) {
	m.AcquireTotal.WithLabelValues(outcome).Inc()
}

// SetActiveLocks updates the live lock gauge.
func (m *LockMetrics) SetActiveLocks(count int) {
	m.ActiveLocks.Set(float64(count))
}

// Describe implements the prometheus.Collector interface.
func (m *LockMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.AcquireTotal.Describe(ch)
	ch <- m.ActiveLocks.Desc()
}

// Collect implements the prometheus.Collector interface.
func (m *LockMetrics) Collect(ch chan<- prometheus.Metric) {
	m.AcquireTotal.Collect(ch)
	ch <- m.ActiveLocks
}
