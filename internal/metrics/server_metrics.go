// Package metrics exposes the Prometheus collectors the transport layer
// and its server harness update as connections come and go.
package metrics

// file: internal/metrics/server_metrics.go

import "github.com/prometheus/client_golang/prometheus"

// ActiveConnections tracks how many peer Connections are currently open.
var ActiveConnections = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: "kestrel",
	Name:      "active_connections",
	Help:      "Number of currently open peer connections.",
})

// MessagesSent counts frames handed to a writer worker, by wire.Kind.
var MessagesSent = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "kestrel",
	Name:      "messages_sent_total",
	Help:      "Total number of framed messages written to peers.",
}, []string{"kind"})

// MessagesReceived counts frames decoded by a reader worker, by wire.Kind.
var MessagesReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "kestrel",
	Name:      "messages_received_total",
	Help:      "Total number of framed messages decoded from peers.",
}, []string{"kind"})

// DecodeErrors counts fatal frame decode failures, by rpcerr.Category.
var DecodeErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "kestrel",
	Name:      "decode_errors_total",
	Help:      "Total number of fatal frame decode errors.",
}, []string{"category"})

// ShutdownsCompleted counts finished Shutdown/Exit handshakes, by
// outcome: "terminated" (the machine reached StateTerminated or
// StateExiting) or "timeout" (no Exit arrived before the wait ended or
// the channel closed).
var ShutdownsCompleted = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "kestrel",
	Name:      "shutdowns_completed_total",
	Help:      "Total number of completed shutdown handshakes, by outcome.",
}, []string{"outcome"})

// QueueDepth reports the current occupancy of a connection's bounded
// inbound/outbound channel, by direction ("inbound", "outbound").
var QueueDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "kestrel",
	Name:      "queue_depth",
	Help:      "Current occupancy of a connection's bounded message queue.",
}, []string{"direction"})

func init() {
	prometheus.MustRegister(
		ActiveConnections,
		MessagesSent,
		MessagesReceived,
		DecodeErrors,
		ShutdownsCompleted,
		QueueDepth,
	)
}
