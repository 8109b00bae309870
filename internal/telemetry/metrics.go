package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTPRequestDuration tracks HTTP request latency by route and status.
var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "tacedge",
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "path", "status"},
)

// MessagesSentTotal counts accepted sends by precedence and terminal routing outcome.
var MessagesSentTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "tacedge",
		Subsystem: "gateway",
		Name:      "messages_sent_total",
		Help:      "Total number of messages accepted by the pipeline, by precedence and status.",
	},
	[]string{"precedence", "status"},
)

// MessagesDequeuedTotal counts successful drain-worker deliveries by precedence.
var MessagesDequeuedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "tacedge",
		Subsystem: "queue",
		Name:      "messages_dequeued_total",
		Help:      "Total number of entries the drain worker delivered, by precedence.",
	},
	[]string{"precedence"},
)

// MessagesExpiredTotal counts entries dropped by TTL, by precedence.
var MessagesExpiredTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "tacedge",
		Subsystem: "queue",
		Name:      "messages_expired_total",
		Help:      "Total number of entries dropped on TTL expiry, by precedence.",
	},
	[]string{"precedence"},
)

// AuditAlertsTotal counts audit write failures.
var AuditAlertsTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "tacedge",
		Subsystem: "audit",
		Name:      "alerts_total",
		Help:      "Total number of audit append failures that raised an alert.",
	},
)

// CryptoDegradedTotal counts sends that used the degraded (unencrypted) path.
var CryptoDegradedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "tacedge",
		Subsystem: "crypto",
		Name:      "degraded_total",
		Help:      "Total number of sends that degraded to the unencrypted marker.",
	},
)

// All returns all gateway-specific metrics for registration.
func All() []prometheus.Collector {
	return []prometheus.Collector{
		HTTPRequestDuration,
		MessagesSentTotal,
		MessagesDequeuedTotal,
		MessagesExpiredTotal,
		AuditAlertsTotal,
		CryptoDegradedTotal,
	}
}

// NewMetricsRegistry creates a Prometheus registry with Go/process collectors
// plus the gateway's own collectors.
func NewMetricsRegistry(extra ...prometheus.Collector) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	for _, c := range extra {
		reg.MustRegister(c)
	}
	return reg
}
