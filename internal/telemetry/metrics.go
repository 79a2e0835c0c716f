// Package telemetry holds the Prometheus metrics and OpenTelemetry tracer
// shared by the workflow, the tree walker and the canvas feed.
//
// Every Metrics method is safe on a nil receiver, so components accept an
// optional *Metrics and record unconditionally.
package telemetry

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures the Prometheus metrics.
type Config struct {
	// Namespace is the metrics namespace (default: "uiforge").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for operation duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the Prometheus metrics.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "uiforge",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the uiforge Prometheus collectors.
type Metrics struct {
	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	filesScanned      prometheus.Counter
	filesChanged      prometheus.Counter
	filesFailed       prometheus.Counter
	mutations         *prometheus.CounterVec
	corrections       prometheus.Counter
	feedClients       prometheus.Gauge
}

// New registers a fresh set of collectors. Registering twice against the
// same registry panics; use Default for the process-wide instance.
func New(opts ...Option) *Metrics {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "operations_total",
			Help:        "Total number of workflow operations by kind and status",
			ConstLabels: config.ConstLabels,
		}, []string{"operation", "status"}),

		operationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "operation_duration_seconds",
			Help:        "Workflow operation duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"operation"}),

		filesScanned: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "walk_files_scanned_total",
			Help:        "Total number of files visited by tree passes",
			ConstLabels: config.ConstLabels,
		}),

		filesChanged: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "walk_files_changed_total",
			Help:        "Total number of files rewritten by tree passes",
			ConstLabels: config.ConstLabels,
		}),

		filesFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "walk_files_failed_total",
			Help:        "Total number of files a tree pass could not read or write",
			ConstLabels: config.ConstLabels,
		}),

		mutations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "mutations_total",
			Help:        "Total number of reference sites rewritten by kind and op",
			ConstLabels: config.ConstLabels,
		}, []string{"kind", "op"}),

		corrections: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "structural_corrections_total",
			Help:        "Total number of automatic brace corrections",
			ConstLabels: config.ConstLabels,
		}),

		feedClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "canvas_feed_clients",
			Help:        "Number of connected canvas feed clients",
			ConstLabels: config.ConstLabels,
		}),
	}
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// Default returns the process-wide Metrics registered on the default
// Prometheus registerer.
func Default() *Metrics {
	defaultMetricsOnce.Do(func() {
		defaultMetrics = New()
	})
	return defaultMetrics
}

// ObserveOperation records one workflow operation.
func (m *Metrics) ObserveOperation(operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.operations.WithLabelValues(operation, status).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// FileScanned counts a visited file.
func (m *Metrics) FileScanned() {
	if m == nil {
		return
	}
	m.filesScanned.Inc()
}

// FileChanged counts a rewritten file.
func (m *Metrics) FileChanged() {
	if m == nil {
		return
	}
	m.filesChanged.Inc()
}

// FileFailed counts a file that could not be read or written.
func (m *Metrics) FileFailed() {
	if m == nil {
		return
	}
	m.filesFailed.Inc()
}

// Mutation counts one rewritten reference site.
func (m *Metrics) Mutation(kind, op string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(kind, op).Inc()
}

// Corrections counts automatic structural corrections.
func (m *Metrics) Corrections(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.corrections.Add(float64(n))
}

// FeedClients sets the number of connected canvas feed clients.
func (m *Metrics) FeedClients(n int) {
	if m == nil {
		return
	}
	m.feedClients.Set(float64(n))
}
