// Package metrics exposes the bridge's Prometheus instrumentation: broker
// connection state, pending-order count, resubmissions, and signal outcomes.
package metrics

import (
	"net/http"

	"tradingbridge/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ConnectionState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tradingbridge_connection_state",
		Help: "Current broker link connection state (0=DISCONNECTED 1=CONNECTING 2=CONNECTED 3=BACKOFF).",
	})

	PendingOrders = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tradingbridge_pending_orders",
		Help: "Number of orders currently awaiting a fill.",
	})

	Resubmissions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradingbridge_resubmissions_total",
		Help: "Total number of order resubmissions performed.",
	})

	SignalOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradingbridge_signal_outcomes_total",
		Help: "Inbound signal outcomes by result.",
	}, []string{"outcome"})
)

// connectionStateValue maps the connection-state enum to the gauge's
// numeric encoding.
func connectionStateValue(s models.ConnectionState) float64 {
	switch s {
	case models.Disconnected:
		return 0
	case models.Connecting:
		return 1
	case models.Connected:
		return 2
	case models.Backoff:
		return 3
	default:
		return -1
	}
}

// SetConnectionState records the broker link's current state.
func SetConnectionState(s models.ConnectionState) {
	ConnectionState.Set(connectionStateValue(s))
}

// RecordSignalOutcome increments the outcome counter for a processed signal.
func RecordSignalOutcome(outcome string) {
	SignalOutcomes.WithLabelValues(outcome).Inc()
}

// Handler returns the HTTP handler that serves the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
