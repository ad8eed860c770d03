package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DSPMetrics contains Prometheus metrics for signal processing operations
type DSPMetrics struct {
	registry *prometheus.Registry

	resampleOpsTotal   *prometheus.CounterVec
	resampleDuration   *prometheus.HistogramVec
	resampleErrors     *prometheus.CounterVec
	resampleRatio      prometheus.Histogram
	aliasingDetections *prometheus.CounterVec

	analysisOpsTotal *prometheus.CounterVec
	analysisDuration *prometheus.HistogramVec
	analysisErrors   *prometheus.CounterVec

	samplesProcessed *prometheus.CounterVec
}

// NewDSPMetrics creates and registers new signal processing metrics
func NewDSPMetrics(registry *prometheus.Registry) (*DSPMetrics, error) {
	m := &DSPMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, err
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *DSPMetrics) initMetrics() error {
	m.resampleOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dsp_resample_operations_total",
			Help: "Total number of resampling operations",
		},
		[]string{"mode", "status"}, // mode: playback, download
	)

	m.resampleDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dsp_resample_duration_seconds",
			Help:    "Time taken for resampling operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	m.resampleErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dsp_resample_errors_total",
			Help: "Total number of resampling errors",
		},
		[]string{"mode", "error_type"},
	)

	m.resampleRatio = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dsp_resample_ratio",
			Help:    "Ratio of target rate to original rate",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8},
		},
	)

	m.aliasingDetections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dsp_aliasing_detections_total",
			Help: "Total number of resample requests flagged as aliasing",
		},
		[]string{"aliasing"}, // aliasing: true, false
	)

	m.analysisOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dsp_analysis_operations_total",
			Help: "Total number of signal analysis operations",
		},
		[]string{"analyzer", "status"}, // analyzer: doppler, drone, ecg, eeg, sar
	)

	m.analysisDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dsp_analysis_duration_seconds",
			Help:    "Time taken for signal analysis operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"analyzer"},
	)

	m.analysisErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dsp_analysis_errors_total",
			Help: "Total number of signal analysis errors",
		},
		[]string{"analyzer", "error_type"},
	)

	m.samplesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dsp_samples_processed_total",
			Help: "Total number of samples processed",
		},
		[]string{"analyzer"},
	)

	return nil
}

func (m *DSPMetrics) getCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.resampleOpsTotal,
		m.resampleDuration,
		m.resampleErrors,
		m.resampleRatio,
		m.aliasingDetections,
		m.analysisOpsTotal,
		m.analysisDuration,
		m.analysisErrors,
		m.samplesProcessed,
	}
}

// Describe implements the prometheus.Collector interface
func (m *DSPMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.getCollectors() {
		collector.Describe(ch)
	}
}

// Collect implements the prometheus.Collector interface
func (m *DSPMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.getCollectors() {
		collector.Collect(ch)
	}
}

// RecordResample records a completed resampling operation
func (m *DSPMetrics) RecordResample(mode, status string, duration, ratio float64) {
	m.resampleOpsTotal.WithLabelValues(mode, status).Inc()
	m.resampleDuration.WithLabelValues(mode).Observe(duration)
	if ratio > 0 {
		m.resampleRatio.Observe(ratio)
	}
}

// RecordResampleError records a resampling error
func (m *DSPMetrics) RecordResampleError(mode, errorType string) {
	m.resampleErrors.WithLabelValues(mode, errorType).Inc()
}

// RecordAliasingDetection records an aliasing heuristic outcome
func (m *DSPMetrics) RecordAliasingDetection(aliasing bool) {
	if aliasing {
		m.aliasingDetections.WithLabelValues("true").Inc()
	} else {
		m.aliasingDetections.WithLabelValues("false").Inc()
	}
}

// RecordAnalysis records a completed analysis operation
func (m *DSPMetrics) RecordAnalysis(analyzer, status string, duration float64) {
	m.analysisOpsTotal.WithLabelValues(analyzer, status).Inc()
	m.analysisDuration.WithLabelValues(analyzer).Observe(duration)
}

// RecordAnalysisError records a signal analysis error
func (m *DSPMetrics) RecordAnalysisError(analyzer, errorType string) {
	m.analysisErrors.WithLabelValues(analyzer, errorType).Inc()
}

// RecordSamplesProcessed adds to the processed sample count for an analyzer
func (m *DSPMetrics) RecordSamplesProcessed(analyzer string, n int) {
	m.samplesProcessed.WithLabelValues(analyzer).Add(float64(n))
}
