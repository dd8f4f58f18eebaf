package exchangerest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// restRequestsTotal tracks signed REST calls by path, method and outcome.
	restRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triarb_rest_requests_total",
			Help: "Total number of signed REST requests",
		},
		[]string{"path", "method", "status"},
	)

	// restRequestDuration tracks signed REST call latency.
	restRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "triarb_rest_request_duration_seconds",
			Help:    "Signed REST request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)
)
