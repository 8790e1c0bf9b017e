package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var registry = prometheus.NewRegistry()

var registerer = prometheus.WrapRegistererWith(nil, registry)

var (
	routeLabels   = []string{"method", "route", "status"}
	backendLabels = []string{"backend"}

	// Latency buckets in milliseconds, from fast local responses up to
	// the request-timeout ceiling.
	latencyBuckets = []float64{
		5, 10, 25,
		50, 100, 250,
		500, 1000, 2500,
		5000, 10000, 30000,
	}

	RequestTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "nimbusvault_requests_total",
			Help: "Total number of requests processed by the gateway",
		},
		routeLabels,
	)

	RequestLatency = promauto.With(registerer).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nimbusvault_request_latency_ms",
			Help:    "Request latency in milliseconds",
			Buckets: latencyBuckets,
		},
		[]string{"route"},
	)

	RateLimitedTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "nimbusvault_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"route"},
	)

	BackendUp = promauto.With(registerer).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nimbusvault_backend_up",
			Help: "Whether the backend's last liveness probe succeeded (1) or failed (0)",
		},
		backendLabels,
	)

	ProbeLatency = promauto.With(registerer).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nimbusvault_probe_latency_ms",
			Help:    "Backend liveness probe latency in milliseconds",
			Buckets: latencyBuckets,
		},
		backendLabels,
	)
)

func Initialize() {
	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	prometheus.DefaultRegisterer = registry
	prometheus.DefaultGatherer = registry
}
