package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "credential"

var (
	// Credential flows

	FlowsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "flow_total",
		Help:      "Credential flows finished, by flow and outcome.",
	}, []string{"flow", "outcome"})

	HashDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "hash_duration_seconds",
		Help:      "Time spent hashing or verifying secrets, including waiting for a slot.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"op"})

	HashSlotsInUse = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "hash_slots_in_use",
		Help:      "Number of hashing slots currently held.",
	})

	// Email delivery

	MailDeliveriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mail_deliveries_total",
		Help:      "Outbound email deliveries, by outcome.",
	}, []string{"outcome"})

	// Code sweeper

	SweptCodesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sweeper_deleted_codes_total",
		Help:      "Expired verification codes removed by the sweeper.",
	})

	SweepCycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "sweeper_cycle_duration_seconds",
		Help:      "Time taken for one sweeper cycle.",
		Buckets:   prometheus.DefBuckets,
	})

	// HTTP metrics

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests.",
	}, []string{"method", "path", "status"})
)

func Register() {
	prometheus.MustRegister(
		FlowsTotal,
		HashDuration,
		HashSlotsInUse,
		MailDeliveriesTotal,
		SweptCodesTotal,
		SweepCycleDuration,
		HTTPRequestDuration,
		HTTPRequestsTotal,
	)
}

// HealthReporter is satisfied by *health.Checker.
type HealthReporter interface {
	LivenessHandler() http.Handler
	ReadinessHandler() http.Handler
}

func NewServer(addr string, health HealthReporter) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", health.LivenessHandler())
	mux.Handle("/readyz", health.ReadinessHandler())
	return &http.Server{Addr: addr, Handler: mux}
}
