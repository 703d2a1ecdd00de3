package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all scheduler and delivery metrics
type Metrics struct {
	RemindersMatched   prometheus.Counter
	PushesSent         prometheus.Counter
	PushesFailed       prometheus.Counter
	TokensPruned       prometheus.Counter
	MissedDoseAlerts   prometheus.Counter
	ReportsSent        prometheus.Counter
	SweepDuration      prometheus.Histogram
	SchedulerRunErrors *prometheus.CounterVec

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace, subsystem string) *Metrics {
	return &Metrics{
		RemindersMatched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "reminders_matched_total",
			Help:      "Total number of reminders matching the current minute",
		}),
		PushesSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "pushes_sent_total",
			Help:      "Total number of push deliveries confirmed by the provider",
		}),
		PushesFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "pushes_failed_total",
			Help:      "Total number of failed push deliveries",
		}),
		TokensPruned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "tokens_pruned_total",
			Help:      "Total number of delivery tokens removed as invalid",
		}),
		MissedDoseAlerts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "missed_dose_alerts_total",
			Help:      "Total number of missed-dose alert emails sent",
		}),
		ReportsSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "reports_sent_total",
			Help:      "Total number of daily report emails sent",
		}),
		SweepDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sweep_duration_seconds",
			Help:      "Time spent in one per-minute scheduler sweep",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		SchedulerRunErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "run_errors_total",
			Help:      "Total number of aborted scheduler runs",
		}, []string{"phase"}),
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}

// NewTestMetrics creates unregistered metrics for use in tests.
func NewTestMetrics() *Metrics {
	return &Metrics{
		RemindersMatched: prometheus.NewCounter(prometheus.CounterOpts{Name: "test_reminders_matched_total"}),
		PushesSent:       prometheus.NewCounter(prometheus.CounterOpts{Name: "test_pushes_sent_total"}),
		PushesFailed:     prometheus.NewCounter(prometheus.CounterOpts{Name: "test_pushes_failed_total"}),
		TokensPruned:     prometheus.NewCounter(prometheus.CounterOpts{Name: "test_tokens_pruned_total"}),
		MissedDoseAlerts: prometheus.NewCounter(prometheus.CounterOpts{Name: "test_missed_dose_alerts_total"}),
		ReportsSent:      prometheus.NewCounter(prometheus.CounterOpts{Name: "test_reports_sent_total"}),
		SweepDuration:    prometheus.NewHistogram(prometheus.HistogramOpts{Name: "test_sweep_duration_seconds"}),
		SchedulerRunErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "test_run_errors_total",
		}, []string{"phase"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "test_http_requests_total",
		}, []string{"method", "path", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "test_http_request_duration_seconds",
		}, []string{"method", "path"}),
	}
}
