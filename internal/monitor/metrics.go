package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var rateGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "triarb_monitor_counter_rate",
	Help: "Per-second rate of a named pipeline counter over the last sample interval",
}, []string{"counter"})
