package gatekeeper

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	chancesAdmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "triarb_gatekeeper_chances_admitted_total",
		Help: "Total number of ChanceEvents admitted to the dispatcher",
	})

	chancesRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "triarb_gatekeeper_chances_rejected_total",
		Help: "Total number of ChanceEvents rejected at admission, by reason",
	}, []string{"reason"})

	forcedEvictionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "triarb_gatekeeper_forced_evictions_total",
		Help: "Total number of in-flight cycles force-evicted on ack timeout",
	})

	inFlightNotional = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "triarb_gatekeeper_in_flight_notional",
		Help: "Sum of unacknowledged notional currently in flight",
	})

	inFlightCycles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "triarb_gatekeeper_in_flight_cycles",
		Help: "Number of cycles currently in flight",
	})
)
