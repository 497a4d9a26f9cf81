package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ServerMetrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
}

func NewServerMetrics(service string) *ServerMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shoplab",
		Subsystem: service,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"handler", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "shoplab",
		Subsystem: service,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"handler"})

	prometheus.MustRegister(requests, latency)
	return &ServerMetrics{Requests: requests, LatencyMS: latency}
}

// CheckoutMetrics counts pipeline outcomes. The status label is either
// "committed" or the failure kind.
type CheckoutMetrics struct {
	Attempts   *prometheus.CounterVec
	DurationMS prometheus.Histogram
}

func NewCheckoutMetrics(service string) *CheckoutMetrics {
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shoplab",
		Subsystem: service,
		Name:      "checkout_attempts_total",
		Help:      "Checkout attempts by outcome.",
	}, []string{"status"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "shoplab",
		Subsystem: service,
		Name:      "checkout_duration_ms",
		Help:      "Checkout pipeline duration in milliseconds.",
		Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250},
	})

	prometheus.MustRegister(attempts, duration)
	return &CheckoutMetrics{Attempts: attempts, DurationMS: duration}
}

func Handler() http.Handler {
	return promhttp.Handler()
}
