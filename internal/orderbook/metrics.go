package orderbook

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	deltasTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "triarb_orderbook_deltas_total",
		Help: "Total number of delta events applied, by outcome",
	}, []string{"outcome"})

	gapsDetectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "triarb_orderbook_gaps_detected_total",
		Help: "Total number of sequence gaps detected",
	})

	snapshotsInstalledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "triarb_orderbook_snapshots_installed_total",
		Help: "Total number of REST snapshots installed",
	})

	snapshotRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "triarb_orderbook_snapshot_request_duration_seconds",
		Help:    "Latency of REST snapshot requests, including retries",
		Buckets: prometheus.DefBuckets,
	})

	topOfBookDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "triarb_orderbook_top_of_book_dropped_total",
		Help: "Total number of TopOfBookChanged events dropped due to a full channel",
	})

	deltaApplyDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "triarb_orderbook_delta_apply_duration_seconds",
		Help:    "Time to apply one delta to the shared FullOrderbook",
		Buckets: []float64{0.0001, 0.0002, 0.0005, 0.001, 0.002, 0.005, 0.01, 0.025, 0.05},
	})

	trackedSymbols = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "triarb_orderbook_tracked_symbols",
		Help: "Number of symbols with an installed book",
	})
)
