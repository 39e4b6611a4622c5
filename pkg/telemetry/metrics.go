package telemetry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for secretspec. A disabled instance
// accepts every call and records nothing.
type Metrics struct {
	config MetricsConfig

	// Resolution metrics
	resolutions        *prometheus.CounterVec
	resolutionDuration *prometheus.HistogramVec
	fragmentsResolved  prometheus.Histogram
	fragmentFetches    *prometheus.CounterVec
	activeResolutions  prometheus.Gauge

	// Validation metrics
	secretsClassified *prometheus.CounterVec

	// Backend metrics
	backendCalls    *prometheus.CounterVec
	backendDuration *prometheus.HistogramVec
	backendErrors   *prometheus.CounterVec

	// Error metrics
	errorsByClass *prometheus.CounterVec
	errorsByCode  *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolutions_total",
				Help:      "Total number of configuration resolutions",
			},
			[]string{"status"},
		),
		resolutionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "resolution_duration_seconds",
				Help:      "Duration of configuration resolution in seconds",
				Buckets:   buckets,
			},
			[]string{"status"},
		),
		fragmentsResolved: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fragments_per_resolution",
				Help:      "Number of fragments in each resolved inheritance graph",
				Buckets:   []float64{1, 2, 4, 8, 16, 32, 64},
			},
		),
		fragmentFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fragment_fetches_total",
				Help:      "Total number of fragment fetches",
			},
			[]string{"status"},
		),
		activeResolutions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_resolutions",
				Help:      "Current number of resolutions in progress",
			},
		),

		secretsClassified: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "secrets_classified_total",
				Help:      "Total number of secrets classified during validation",
			},
			[]string{"status"},
		),

		backendCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "backend_operations_total",
				Help:      "Total number of backend operations",
			},
			[]string{"backend", "operation"},
		),
		backendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "backend_operation_duration_seconds",
				Help:      "Duration of backend operations in seconds",
				Buckets:   buckets,
			},
			[]string{"backend", "operation"},
		),
		backendErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "backend_errors_total",
				Help:      "Total number of failed backend operations",
			},
			[]string{"backend", "operation"},
		),

		errorsByClass: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_class_total",
				Help:      "Total number of errors by error class",
			},
			[]string{"class"},
		),
		errorsByCode: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_code_total",
				Help:      "Total number of errors by error code",
			},
			[]string{"code"},
		),
	}

	registry.MustRegister(
		m.resolutions,
		m.resolutionDuration,
		m.fragmentsResolved,
		m.fragmentFetches,
		m.activeResolutions,
		m.secretsClassified,
		m.backendCalls,
		m.backendDuration,
		m.backendErrors,
		m.errorsByClass,
		m.errorsByCode,
	)

	return m, nil
}

// Registry returns the private registry, or nil when metrics are disabled.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Resolution Metrics

// RecordResolutionStarted marks a resolution as in progress.
func (m *Metrics) RecordResolutionStarted() {
	if m.activeResolutions == nil {
		return
	}
	m.activeResolutions.Inc()
}

// RecordResolutionCompleted records a finished resolution.
func (m *Metrics) RecordResolutionCompleted(status string, duration time.Duration, fragments int) {
	if m.resolutions == nil {
		return
	}
	m.resolutions.WithLabelValues(status).Inc()
	m.resolutionDuration.WithLabelValues(status).Observe(duration.Seconds())
	if fragments > 0 {
		m.fragmentsResolved.Observe(float64(fragments))
	}
	m.activeResolutions.Dec()
}

// RecordFragmentFetch records one fragment fetch outcome.
func (m *Metrics) RecordFragmentFetch(status string) {
	if m.fragmentFetches == nil {
		return
	}
	m.fragmentFetches.WithLabelValues(status).Inc()
}

// Validation Metrics

// RecordSecretStatus counts n secrets classified with status.
func (m *Metrics) RecordSecretStatus(status string, n int) {
	if m.secretsClassified == nil || n <= 0 {
		return
	}
	m.secretsClassified.WithLabelValues(status).Add(float64(n))
}

// Backend Metrics

// RecordBackendCall records a backend operation with its duration.
func (m *Metrics) RecordBackendCall(backend, operation string, duration time.Duration) {
	if m.backendCalls == nil {
		return
	}
	m.backendCalls.WithLabelValues(backend, operation).Inc()
	m.backendDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
}

// RecordBackendError records a failed backend operation.
func (m *Metrics) RecordBackendError(backend, operation string) {
	if m.backendErrors == nil {
		return
	}
	m.backendErrors.WithLabelValues(backend, operation).Inc()
}

// Error Metrics

// RecordError records an error by class and optionally by code.
func (m *Metrics) RecordError(errorClass, errorCode string) {
	if m.errorsByClass == nil {
		return
	}
	m.errorsByClass.WithLabelValues(errorClass).Inc()
	if errorCode != "" {
		m.errorsByCode.WithLabelValues(errorCode).Inc()
	}
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// WriteTextfile writes the current metrics in the node_exporter textfile
// format. One-shot commands use this instead of serving HTTP.
func (m *Metrics) WriteTextfile(path string) error {
	if m.registry == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}

// ServeMetrics serves the metrics endpoint until ctx is canceled.
func (m *Metrics) ServeMetrics(ctx context.Context, logger *Logger) error {
	if !m.config.Enabled || m.config.ListenAddress == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("Metrics server shutdown failed")
		}
	}()

	logger.Infof("Serving metrics on %s%s", m.config.ListenAddress, m.config.Path)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
