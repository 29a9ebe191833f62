package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WebSocket Hub Metrics
var (
	// HubConnectedClients tracks the number of connected WebSocket clients
	HubConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_connected_clients",
			Help: "Number of connected WebSocket clients",
		},
	)

	// HubSlowClientsEvicted tracks slow clients evicted due to full buffers
	HubSlowClientsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_slow_clients_evicted_total",
			Help: "Total number of slow WebSocket clients evicted due to buffer full",
		},
	)

	// HubMessagesBroadcast tracks broadcast messages fanned out to clients
	HubMessagesBroadcast = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_messages_broadcast_total",
			Help: "Total broadcast messages fanned out to WebSocket clients",
		},
	)
)

// Session Metrics
var (
	// SessionsActive tracks the number of live operator sessions
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sessions_active",
			Help: "Number of live operator sessions",
		},
	)

	// SessionLoginsTotal tracks login attempts by outcome
	SessionLoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_logins_total",
			Help: "Total login attempts by outcome (success/failure)",
		},
		[]string{"outcome"},
	)
)

// Action Dispatcher Metrics
var (
	// ActionsTotal tracks control actions by name and status
	ActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "actions_total",
			Help: "Total control actions by action name and status",
		},
		[]string{"action", "status"},
	)

	// ForwardedRequestsTotal tracks reverse-proxied requests by upstream host type
	ForwardedRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forwarded_requests_total",
			Help: "Total reverse-proxied requests by upstream host type and status",
		},
		[]string{"host_type", "status"},
	)
)

// Miner Metrics
var (
	// PlotfilesTotal tracks the number of enumerated plot files
	PlotfilesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "plotfiles_total",
			Help: "Number of enumerated plot files",
		},
	)

	// PlotRescansTotal tracks plot directory rescans
	PlotRescansTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "plot_rescans_total",
			Help: "Total plot directory rescans",
		},
	)

	// PlotChecksTotal tracks plot integrity checks by result
	PlotChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plot_checks_total",
			Help: "Total plot file integrity checks by result (ok/corrupt/error)",
		},
		[]string{"result"},
	)
)
