package arbitrage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	chancesEmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "triarb_detector_chances_emitted_total",
		Help: "Total number of ChanceEvents emitted",
	})

	chanceProfitBPS = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "triarb_detector_chance_profit_bps",
		Help:    "Expected profit of emitted chances, in basis points of notional",
		Buckets: []float64{10, 25, 50, 100, 200, 500, 1000, 2000},
	})

	chanceNotional = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "triarb_detector_chance_notional",
		Help:    "Notional size of emitted chances, in settlement units",
		Buckets: prometheus.ExponentialBuckets(10, 2, 10),
	})

	detectionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "triarb_detector_tick_duration_seconds",
		Help:    "Time to recompute all cycles touched by one TopOfBookChanged event",
		Buckets: prometheus.DefBuckets,
	})

	chancesSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "triarb_detector_chances_skipped_total",
		Help: "Total number of cycle re-evaluations that did not produce a ChanceEvent, by reason",
	}, []string{"reason"})
)
