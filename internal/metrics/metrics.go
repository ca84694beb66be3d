// Package metrics exports mutation counters, latencies and in-flight gauges
// to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/julianstephens/calgrid/internal/constants"
	"github.com/julianstephens/calgrid/internal/events"
)

// Config configures the Recorder.
type Config struct {
	// Namespace is the metrics namespace (default: "calgrid").
	Namespace string

	// Buckets are the histogram buckets for mutation duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: a fresh registry
	Registry *prometheus.Registry
}

// Option configures the Recorder.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: constants.AppName,
		Buckets:   prometheus.DefBuckets,
	}
}

// Recorder implements events.Recorder.
type Recorder struct {
	registry  *prometheus.Registry
	mutations *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	inFlight  *prometheus.GaugeVec
}

var _ events.Recorder = (*Recorder)(nil)

// New registers the mutation metrics.
func New(opts ...Option) *Recorder {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Registry == nil {
		config.Registry = prometheus.NewRegistry()
	}
	factory := promauto.With(config.Registry)

	r := &Recorder{
		registry: config.Registry,
		mutations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "mutations_total",
			Help:      "Total number of settled event mutations",
		}, []string{"kind", "outcome"}),

		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "mutation_duration_seconds",
			Help:      "Time from optimistic apply to resolution in seconds",
			Buckets:   config.Buckets,
		}, []string{"kind"}),

		inFlight: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Name:      "mutations_in_flight",
			Help:      "Mutations awaiting a remote result",
		}, []string{"kind"}),
	}

	// Pre-populate so every kind is exported at zero.
	for _, kind := range events.Kinds {
		r.inFlight.WithLabelValues(string(kind))
		r.duration.WithLabelValues(string(kind))
	}
	return r
}

func (r *Recorder) MutationStarted(kind events.Kind) {
	r.inFlight.WithLabelValues(string(kind)).Inc()
}

func (r *Recorder) MutationSettled(kind events.Kind, outcome events.Outcome, elapsed time.Duration) {
	r.inFlight.WithLabelValues(string(kind)).Dec()
	r.mutations.WithLabelValues(string(kind), string(outcome)).Inc()
	r.duration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
}

// Registry returns the registry the metrics live in.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
