package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	legsPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "triarb_dispatch_legs_placed_total",
		Help: "Total number of order legs accepted by the exchange",
	})

	legsRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "triarb_dispatch_legs_rejected_total",
		Help: "Total number of order legs that ended in a synthetic cancel",
	})

	legRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "triarb_dispatch_leg_retries_total",
		Help: "Total number of transient-error retries across all legs",
	})

	legPlacementDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "triarb_dispatch_leg_placement_duration_seconds",
		Help:    "Time from dispatch to a leg's final placement outcome, including retries",
		Buckets: prometheus.DefBuckets,
	})

	changeChannelDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "triarb_dispatch_change_channel_dropped_total",
		Help: "Total number of synthetic OrderChangeEvents dropped due to a full channel",
	})
)
