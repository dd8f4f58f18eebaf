package exchangews

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	activeConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "triarb_ws_active_connections",
		Help: "Number of active WebSocket connections, by stream",
	}, []string{"stream"})

	reconnectAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "triarb_ws_reconnect_attempts_total",
		Help: "Total number of WebSocket reconnection attempts",
	})

	reconnectFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "triarb_ws_reconnect_failures_total",
		Help: "Total number of WebSocket reconnection failures",
	})

	messagesReceivedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "triarb_ws_messages_received_total",
		Help: "Total number of WebSocket messages received, by stream",
	}, []string{"stream"})

	messagesDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "triarb_ws_messages_dropped_total",
		Help: "Total number of WebSocket messages dropped due to full channel, by stream",
	}, []string{"stream"})

	subscriptionCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "triarb_ws_subscription_count",
		Help: "Number of currently subscribed symbols on the public stream",
	})
)
