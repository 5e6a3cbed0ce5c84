// internal/metrics/metrics.go

package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the service metrics on a private registry
type Collector struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	uploadsTotal        *prometheus.CounterVec
	normalizeDuration   prometheus.Histogram
	parseWarnings       prometheus.Counter
	memoLookups         *prometheus.CounterVec
	datasetsLoaded      prometheus.Gauge
}

// New creates and registers the metrics
func New(namespace string) *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}

	c.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
	c.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	c.uploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Uploaded datasets by kind and result",
		},
		[]string{"kind", "result"},
	)
	c.normalizeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "normalize_duration_seconds",
			Help:      "Time spent normalizing uploads",
			Buckets:   prometheus.DefBuckets,
		},
	)
	c.parseWarnings = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_warnings_total",
			Help:      "Recovered row-level parse problems",
		},
	)
	c.memoLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "normalize_cache_lookups_total",
			Help:      "Normalization cache lookups by result",
		},
		[]string{"result"},
	)
	c.datasetsLoaded = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "datasets_loaded",
			Help:      "Datasets currently held in memory",
		},
	)

	c.registry.MustRegister(
		c.httpRequestsTotal,
		c.httpRequestDuration,
		c.uploadsTotal,
		c.normalizeDuration,
		c.parseWarnings,
		c.memoLookups,
		c.datasetsLoaded,
		collectors.NewGoCollector(),
	)
	return c
}

// Upload records one upload attempt
func (c *Collector) Upload(kind string, ok bool, warnings int, elapsed time.Duration) {
	result := "ok"
	if !ok {
		result = "error"
	}
	c.uploadsTotal.WithLabelValues(kind, result).Inc()
	c.normalizeDuration.Observe(elapsed.Seconds())
	c.parseWarnings.Add(float64(warnings))
}

// MemoHit records a normalization cache hit
func (c *Collector) MemoHit() {
	c.memoLookups.WithLabelValues("hit").Inc()
}

// MemoMiss records a normalization cache miss
func (c *Collector) MemoMiss() {
	c.memoLookups.WithLabelValues("miss").Inc()
}

// SetDatasets sets the number of datasets held
func (c *Collector) SetDatasets(n int) {
	c.datasetsLoaded.Set(float64(n))
}

// Middleware records request counts and durations by chi route pattern
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		c.httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		c.httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades pass through the middleware
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return h.Hijack()
}
