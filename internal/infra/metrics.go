package infra

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the service's Prometheus collectors. A nil *Metrics is a no-op.
type Metrics struct {
	registry      *prometheus.Registry
	requests      *prometheus.CounterVec
	rateLimited   *prometheus.CounterVec
	providerCalls *prometheus.HistogramVec
	images        *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "productshoot",
			Name:      "http_requests_total",
			Help:      "Generation endpoint requests by endpoint and status code.",
		}, []string{"endpoint", "status"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "productshoot",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the fixed-window limiter.",
		}, []string{"scope"}),
		providerCalls: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "productshoot",
			Name:      "provider_call_seconds",
			Help:      "Latency of image provider calls.",
			Buckets:   []float64{0.05, 0.25, 1, 2.5, 5, 10, 20, 40, 80},
		}, []string{"engine", "mode", "outcome"}),
		images: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "productshoot",
			Name:      "images_generated_total",
			Help:      "Image references returned to clients.",
		}, []string{"engine"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.rateLimited, m.providerCalls, m.images,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(endpoint string, status int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
}

func (m *Metrics) ObserveRateLimited(scope string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(scope).Inc()
}

func (m *Metrics) ObserveProviderCall(engine string, mock bool, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	mode, outcome := "live", "ok"
	if mock {
		mode = "mock"
	}
	if err != nil {
		outcome = "error"
	}
	m.providerCalls.WithLabelValues(engine, mode, outcome).Observe(elapsed.Seconds())
}

func (m *Metrics) AddImages(engine string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.images.WithLabelValues(engine).Add(float64(n))
}
