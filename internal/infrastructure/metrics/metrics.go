package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

var Module = fx.Module("metrics",
	fx.Provide(New),
)

// Metrics owns a private registry, not the global default one
type Metrics struct {
	registry *prometheus.Registry

	flowTransitions  *prometheus.CounterVec
	resolutions      *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec
	rateLimited      *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		flowTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xnema",
			Subsystem: "recovery",
			Name:      "transitions_total",
			Help:      "Recovery flow state transitions by target state.",
		}, []string{"state"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xnema",
			Subsystem: "recovery",
			Name:      "resolutions_total",
			Help:      "Post-reset resolutions by tier.",
		}, []string{"tier"}),
		providerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "xnema",
			Subsystem: "identity",
			Name:      "request_duration_seconds",
			Help:      "Latency of identity provider calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xnema",
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}, []string{"scope"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.flowTransitions,
		m.resolutions,
		m.providerDuration,
		m.rateLimited,
	)

	return m
}

func (m *Metrics) FlowTransition(state string) {
	m.flowTransitions.WithLabelValues(state).Inc()
}

func (m *Metrics) Resolution(tier string) {
	m.resolutions.WithLabelValues(tier).Inc()
}

func (m *Metrics) ProviderCall(method, path string, status int, d time.Duration) {
	m.providerDuration.WithLabelValues(method, path, strconv.Itoa(status)).Observe(d.Seconds())
}

func (m *Metrics) RateLimited(scope string) {
	m.rateLimited.WithLabelValues(scope).Inc()
}

// Registry exposes the underlying registry for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
