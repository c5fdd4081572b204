package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Account metrics
	AccountOperations *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	DebitFees         *prometheus.CounterVec

	// Event metrics
	EventsPublished *prometheus.CounterVec

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	HTTPInFlight prometheus.Gauge

	// Authentication metrics
	AuthFailures *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitHits prometheus.Counter
}

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Account metrics
		AccountOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goaccount_account_operations_total",
				Help: "Total account operations by type and outcome",
			},
			[]string{"operation", "outcome"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "goaccount_account_operation_duration_seconds",
				Help:    "Duration of account operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		DebitFees: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goaccount_debit_fees_total",
				Help: "Sum of debit fees charged, in major currency units",
			},
			[]string{"currency"},
		),

		// Event metrics
		EventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goaccount_events_published_total",
				Help: "Domain events handed to the event sink",
			},
			[]string{"event_type", "status"},
		),

		// API metrics
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goaccount_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "goaccount_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "goaccount_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		}),

		// Authentication metrics
		AuthFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goaccount_auth_failures_total",
				Help: "Total authentication failures",
			},
			[]string{"reason"},
		),

		// Rate limiting metrics
		RateLimitHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "goaccount_rate_limit_hits_total",
			Help: "Total requests rejected by the rate limiter",
		}),
	}
}

// ObserveOperation records one account operation.
func (m *Metrics) ObserveOperation(operation, outcome string, duration time.Duration) {
	m.AccountOperations.WithLabelValues(operation, outcome).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveFee adds a charged debit fee.
func (m *Metrics) ObserveFee(currency string, fee float64) {
	m.DebitFees.WithLabelValues(currency).Add(fee)
}

// ObservePublish records one event delivery attempt.
func (m *Metrics) ObservePublish(eventType string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.EventsPublished.WithLabelValues(eventType, status).Inc()
}
