package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tphummel/logsheet/internal/models"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logsheet_http_requests_total",
			Help: "Total number of HTTP requests by method, route, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "logsheet_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds by method and route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "logsheet_http_requests_in_flight",
		Help: "Current number of HTTP requests being processed.",
	})

	exportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logsheet_exports_total",
			Help: "Report exports by format and result.",
		},
		[]string{"format", "result"},
	)
)

// Unassigned labels readings whose equipment is in no directory group.
const Unassigned = "unassigned"

// ReadingSource is the subset of readings.Store needed to count readings.
type ReadingSource interface {
	All() []models.Reading
}

// Membership resolves the group of an equipment id.
type Membership interface {
	GroupOf(id string) (string, bool)
}

// RegistrySource is the subset of registry.Registry needed to size it.
type RegistrySource interface {
	Len() int
}

// storeCollector reads the in-memory stores on each scrape.
type storeCollector struct {
	readings ReadingSource
	groups   Membership
	registry RegistrySource

	readingsDesc *prometheus.Desc
	registryDesc *prometheus.Desc
}

func (c *storeCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.readingsDesc
	ch <- c.registryDesc
}

func (c *storeCollector) Collect(ch chan<- prometheus.Metric) {
	counts := map[string]int{}
	for _, r := range c.readings.All() {
		group, ok := c.groups.GroupOf(r.UID)
		if !ok {
			group = Unassigned
		}
		counts[group]++
	}
	for group, n := range counts {
		ch <- prometheus.MustNewConstMetric(c.readingsDesc, prometheus.GaugeValue, float64(n), group)
	}
	ch <- prometheus.MustNewConstMetric(c.registryDesc, prometheus.GaugeValue, float64(c.registry.Len()))
}

// Register registers all metrics with reg. Call once at startup after the
// stores are open.
func Register(reg prometheus.Registerer, readings ReadingSource, groups Membership, registry RegistrySource) {
	reg.MustRegister(
		// Standard Go runtime and process metrics
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),

		// HTTP service metrics
		httpRequestsTotal,
		httpRequestDuration,
		httpRequestsInFlight,

		// Application metrics
		exportsTotal,
		&storeCollector{
			readings: readings,
			groups:   groups,
			registry: registry,
			readingsDesc: prometheus.NewDesc(
				"logsheet_readings_total",
				"Number of stored readings, partitioned by equipment group.",
				[]string{"group"},
				nil,
			),
			registryDesc: prometheus.NewDesc(
				"logsheet_registry_entries",
				"Number of equipment ids named in the registry.",
				nil,
				nil,
			),
		},
	)
}

// ObserveExport counts one report export.
func ObserveExport(format string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	exportsTotal.WithLabelValues(format, result).Inc()
}

// Handler returns the Prometheus HTTP handler for the given gatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// responseWriter wraps http.ResponseWriter to capture the response status code.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware wraps an http.Handler to record HTTP metrics.
// pattern should be the mux pattern (e.g. "DELETE /api/v1/readings/{id}")
// so the path label has bounded cardinality.
func Middleware(pattern string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpRequestsInFlight.Inc()

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			httpRequestsInFlight.Dec()
			status := strconv.Itoa(rw.status)
			httpRequestsTotal.WithLabelValues(r.Method, pattern, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
		}()

		next.ServeHTTP(rw, r)
	})
}
