// Package observability provides metrics collection for the annotation
// pipeline.
package observability

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"

	"github.com/aerolabel/aerolabel-go/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry   *prometheus.Registry
	Prediction *metrics.PredictionMetrics
	Review     *metrics.ReviewMetrics
	Lock       *metrics.LockMetrics
}

// NewMetrics creates a new instance of Metrics, initializing all metric
// collectors. It returns an error if any metric collector fails to register.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	predictionMetrics, err := metrics.NewPredictionMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create prediction metrics: %w", err)
	}

	reviewMetrics, err := metrics.NewReviewMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create review metrics: %w", err)
	}

	lockMetrics, err := metrics.NewLockMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create lock metrics: %w", err)
	}

	return &Metrics{
		registry:   registry,
		Prediction: predictionMetrics,
		Review:     reviewMetrics,
		Lock:       lockMetrics,
	}, nil
}

// RegisterHandlers registers the metrics endpoint with the provided mux.
func (m *Metrics) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/metrics", m.metricsHandler)
}

// metricsHandler is the HTTP handler for the /metrics endpoint.
func (m *Metrics) metricsHandler(w http.ResponseWriter, r *http.Request) {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      log.New(os.Stderr, "metrics handler: ", log.LstdFlags),
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
	h.ServeHTTP(w, r)
}

// Gather exposes the underlying registry's gather function, used in tests.
func (m *Metrics) Gather() ([]*dto.MetricFamily, error) {
	return m.registry.Gather()
}
