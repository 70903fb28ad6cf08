package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// ReviewMetrics contains all Prometheus metrics related to label commits.
type ReviewMetrics struct {
	CommitTotal  *prometheus.CounterVec
	CommitErrors prometheus.Counter
	RejectTotal  prometheus.Counter

	registry *prometheus.Registry
}

// NewReviewMetrics creates a new instance of ReviewMetrics.
func NewReviewMetrics(registry *prometheus.Registry) (*ReviewMetrics, error) {
	m := &ReviewMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register review metrics: %w", err)
	}
	return m, nil
}

func (m *ReviewMetrics) initMetrics() {
	m.CommitTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aerolabel_commits_total",
			Help: "Total number of committed labels partitioned by review status.",
		},
		[]string{"status"},
	)
	m.CommitErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "aerolabel_commit_errors_total",
			Help: "Total number of failed label commits.",
		},
	)
	m.RejectTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "aerolabel_rejects_total",
			Help: "Total number of rejected predictions.",
		},
	)
}

// RecordCommit increments the commit counter for a review status.
func (m *ReviewMetrics) RecordCommit(status string) {
	m.CommitTotal.WithLabelValues(status).Inc()
}

// RecordCommitError increments the failed commit counter.
func (m *ReviewMetrics) RecordCommitError() {
	m.CommitErrors.Inc()
}

// RecordReject increments the rejected prediction counter.
func (m *ReviewMetrics) RecordReject() {
	m.RejectTotal.Inc()
}

// Describe implements the prometheus.Collector interface.
func (m *ReviewMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.CommitTotal.Describe(ch)
	ch <- m.CommitErrors.Desc()
	ch <- m.RejectTotal.Desc()
}

// Collect implements the prometheus.Collector interface.
func (m *ReviewMetrics) Collect(ch chan<- prometheus.Metric) {
	m.CommitTotal.Collect(ch)
	ch <- m.CommitErrors
	ch <- m.RejectTotal
}
