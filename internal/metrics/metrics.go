package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Checkouts
	CheckoutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkouts_total",
			Help: "Checkouts started, by origin",
		},
		[]string{"source"}, // single|cart
	)

	// Gateway notifications
	SettlementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlements_total",
			Help: "Payment notifications handled, by outcome",
		},
		[]string{"outcome"},
	)

	EnrollmentsGranted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "enrollments_granted_total",
			Help: "Enrollments created from settled payments",
		},
	)
	CertificatesIssued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "certificates_issued_total",
			Help: "Certificates issued",
		},
	)
	BestEffortFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "best_effort_failures_total",
			Help: "Downstream side effects that failed and were skipped",
		},
		[]string{"effect"},
	)

	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Current worker queue depth",
		},
	)

	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_requests_latency_seconds",
			Help:    "Latency of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

var Handler = promhttp.Handler

func Init() {
	prometheus.MustRegister(CheckoutsTotal)
	prometheus.MustRegister(SettlementsTotal)
	prometheus.MustRegister(EnrollmentsGranted)
	prometheus.MustRegister(CertificatesIssued)
	prometheus.MustRegister(BestEffortFailures)
	prometheus.MustRegister(WorkerQueueDepth)
	prometheus.MustRegister(HTTPLatency)
}
