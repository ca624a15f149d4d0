// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus collectors for the wallet core. Registered once on the default
// registry; the /metrics route exposes them via promhttp.
var (
	LedgerAppends = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sparkwallet_ledger_appends_total",
			Help: "Total ledger append attempts by transaction type and result",
		},
		[]string{"transaction_type", "result"},
	)

	SpendRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sparkwallet_spend_rejections_total",
			Help: "Spend attempts rejected for insufficient credits",
		},
	)

	EntitlementActivations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sparkwallet_entitlement_activations_total",
			Help: "Successful premium-action activations by action",
		},
		[]string{"action"},
	)

	WebhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sparkwallet_webhook_events_total",
			Help: "Provider webhook deliveries by kind and result",
		},
		[]string{"kind", "result"},
	)
)

// Result label values for LedgerAppends and WebhookEvents.
const (
	ResultOK        = "ok"
	ResultRejected  = "rejected"
	ResultError     = "error"
	ResultDuplicate = "duplicate"
)
