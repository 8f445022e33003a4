package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics (serve mode)
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sshtunnel_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sshtunnel_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	HttpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sshtunnel_http_requests_in_flight",
			Help: "Current number of HTTP requests being processed",
		},
	)

	// Serve-mode process health
	SystemUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sshtunnel_uptime_seconds",
			Help: "Seconds since the serve process started",
		},
	)

	SystemGoroutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sshtunnel_goroutines",
			Help: "Number of goroutines in the serve process",
		},
	)

	SystemMemoryUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sshtunnel_memory_alloc_bytes",
			Help: "Bytes of allocated heap objects in the serve process",
		},
	)

	// Tunnel lifecycle
	TunnelStartsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sshtunnel_tunnel_starts_total",
			Help: "Tunnel start attempts by outcome",
		},
		[]string{"config", "status"},
	)

	TunnelStopsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sshtunnel_tunnel_stops_total",
			Help: "Tunnel stop attempts by outcome",
		},
		[]string{"config", "status"},
	)

	TunnelsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sshtunnel_tunnels_active",
			Help: "Number of PID files whose process answers a liveness probe",
		},
	)

	// Connectivity probes
	ProbesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sshtunnel_probes_total",
			Help: "Connectivity probes by target kind and outcome",
		},
		[]string{"kind", "status"},
	)

	ProbeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sshtunnel_probe_duration_seconds",
			Help:    "Connectivity probe duration in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 2},
		},
		[]string{"kind"},
	)

	// History store
	HistoryWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sshtunnel_history_writes_total",
			Help: "Check reports written to the history store by outcome",
		},
		[]string{"status"},
	)
)

func ObserveProbe(kind string, duration time.Duration, ok bool) {
	status := "down"
	if ok {
		status = "up"
	}
	ProbesTotal.WithLabelValues(kind, status).Inc()
	ProbeDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

func RecordTunnelStart(config string, err error) {
	TunnelStartsTotal.WithLabelValues(config, outcome(err)).Inc()
}

func RecordTunnelStop(config string, err error) {
	TunnelStopsTotal.WithLabelValues(config, outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
