// Package observability provides metrics collection for the signal analysis
// server.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/siglab/siglab-go/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry *prometheus.Registry
	HTTP     *metrics.HTTPMetrics
	DSP      *metrics.DSPMetrics
}

// NewMetrics creates a new instance of Metrics, initializing all metric
// collectors on a private registry.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	httpMetrics, err := metrics.NewHTTPMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP metrics: %w", err)
	}

	dspMetrics, err := metrics.NewDSPMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create DSP metrics: %w", err)
	}

	return &Metrics{
		registry: registry,
		HTTP:     httpMetrics,
		DSP:      dspMetrics,
	}, nil
}

// Handler returns an http.Handler that serves the metrics in Prometheus
// exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
