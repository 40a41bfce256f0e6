package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"strconv"
)

var inboundCalls = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "roaming",
	Name:      "inbound_calls_total",
	Help:      "Inbound OICP calls by operation and HTTP status.",
}, []string{"operation", "status"})

var inboundDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "roaming",
	Name:      "inbound_call_seconds",
	Help:      "Time spent in the inbound handler.",
	Buckets:   prometheus.DefBuckets,
}, []string{"operation"})

func observeCall(operation string, status int, seconds float64) {
	if len(operation) == 0 {
		return
	}
	inboundCalls.With(prometheus.Labels{"operation": operation, "status": strconv.Itoa(status)}).Inc()
	inboundDuration.With(prometheus.Labels{"operation": operation}).Observe(seconds)
}
