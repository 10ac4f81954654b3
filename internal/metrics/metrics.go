package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChecksTotal counts health checks by resulting status (up/down).
	ChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sitemonitor_checks_total",
		Help: "Number of health checks performed, by result status",
	}, []string{"status"})

	// CheckDuration observes probe round-trip time in seconds.
	CheckDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sitemonitor_check_duration_seconds",
		Help:    "Health check round-trip time",
		Buckets: prometheus.DefBuckets,
	})

	// AlertsTotal counts alert notifications dispatched, by new status.
	AlertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sitemonitor_alerts_total",
		Help: "Number of alert notifications dispatched, by status",
	}, []string{"status"})

	// ReportsTotal counts periodic reports dispatched, by run type.
	ReportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sitemonitor_reports_total",
		Help: "Number of periodic reports dispatched, by run type",
	}, []string{"type"})

	// NotifyFailures counts failed notification deliveries, by channel.
	NotifyFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sitemonitor_notify_failures_total",
		Help: "Number of failed notification deliveries, by channel",
	}, []string{"channel"})
)
