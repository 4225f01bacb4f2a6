package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "embedding_service"
)

// Metrics holds all Prometheus metrics for the embedding service.
// Collectors live on their own registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	// Request metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Encoder metrics
	EncodeDuration *prometheus.HistogramVec
	EncodedTexts   *prometheus.CounterVec
	EncodeErrors   *prometheus.CounterVec

	// Cache metrics
	CacheLookups *prometheus.CounterVec
}

// New creates a new Metrics instance with all collectors registered
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),

		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),

		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Number of HTTP requests currently being served",
			},
		),

		// Remote inference is slow; buckets run from 10ms to 30s.
		EncodeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "encode_duration_seconds",
				Help:      "Duration of encoder backend calls in seconds",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"model", "status"},
		),

		EncodedTexts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "encoded_texts_total",
				Help:      "Total number of texts sent to the encoder backend",
			},
			[]string{"model"},
		),

		EncodeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "encode_errors_total",
				Help:      "Total number of failed encoder backend calls",
			},
			[]string{"model"},
		),

		CacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "embedding_cache_lookups_total",
				Help:      "Embedding cache lookups by result",
			},
			[]string{"result"},
		),
	}
}

// InFlight adjusts the in-flight request gauge by delta.
func (m *Metrics) InFlight(delta int) {
	m.RequestsInFlight.Add(float64(delta))
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	code := strconv.Itoa(status)
	m.RequestsTotal.WithLabelValues(method, route, code).Inc()
	m.RequestDuration.WithLabelValues(method, route, code).Observe(elapsed.Seconds())
}

// ObserveEncode records one call into the encoder backend.
func (m *Metrics) ObserveEncode(model string, texts int, elapsed time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
		m.EncodeErrors.WithLabelValues(model).Inc()
	}
	m.EncodeDuration.WithLabelValues(model, status).Observe(elapsed.Seconds())
	m.EncodedTexts.WithLabelValues(model).Add(float64(texts))
}

// ObserveCache records the outcome of the cache lookups for one batch.
func (m *Metrics) ObserveCache(hits, misses int) {
	if hits > 0 {
		m.CacheLookups.WithLabelValues("hit").Add(float64(hits))
	}
	if misses > 0 {
		m.CacheLookups.WithLabelValues("miss").Add(float64(misses))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
