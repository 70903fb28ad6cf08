// Package metrics provides custom Prometheus metrics for the annotation
// pipeline.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PredictionMetrics contains all Prometheus metrics related to image scoring.
type PredictionMetrics struct {
	PredictionTotal    *prometheus.CounterVec
	PredictionDuration prometheus.Histogram
	CollaboratorErrors *prometheus.CounterVec
	OutliersFlagged    prometheus.Counter

	registry *prometheus.Registry
}

// NewPredictionMetrics creates a new instance of PredictionMetrics.
func NewPredictionMetrics(registry *prometheus.Registry) (*PredictionMetrics, error) {
	m := &PredictionMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register prediction metrics: %w", err)
	}
	return m, nil
}

func (m *PredictionMetrics) initMetrics() {
	m.PredictionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aerolabel_predictions_total",
			Help: "Total number of image predictions partitioned by outcome.",
		},
		[]string{"status"},
	)
	m.PredictionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aerolabel_prediction_duration_seconds",
			Help:    "Time taken to score a single image.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)
	m.CollaboratorErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aerolabel_collaborator_errors_total",
			Help: "Scoring collaborator failures partitioned by collaborator.",
		},
		[]string{"collaborator"},
	)
	m.OutliersFlagged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "aerolabel_outliers_flagged_total",
			Help: "Total number of predictions flagged as new-class candidates.",
		},
	)
}

// RecordPrediction increments the prediction counter for the given outcome
// and observes the scoring duration.
func (m *PredictionMetrics) RecordPrediction(status string, duration time.Duration) {
	m.PredictionTotal.WithLabelValues(status).Inc()
	m.PredictionDuration.Observe(duration.Seconds())
}

// RecordCollaboratorError increments the failure counter for a collaborator.
func (m *PredictionMetrics) RecordCollaboratorError(collaborator string) {
	m.CollaboratorErrors.WithLabelValues(collaborator).Inc()
}

// RecordOutliers adds to the flagged outlier counter.
func (m *PredictionMetrics) RecordOutliers(count int) {
	m.OutliersFlagged.Add(float64(count))
}

// Describe implements the prometheus.Collector interface.
func (m *PredictionMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.PredictionTotal.Describe(ch)
	ch <- m.PredictionDuration.Desc()
	m.CollaboratorErrors.Describe(ch)
	ch <- m.OutliersFlagged.Desc()
}

// Collect implements the prometheus.Collector interface.
func (m *PredictionMetrics) Collect(ch chan<- prometheus.Metric) {
	m.PredictionTotal.Collect(ch)
	ch <- m.PredictionDuration
	m.CollaboratorErrors.Collect(ch)
	ch <- m.OutliersFlagged
}
