package apisvc

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const outcomeOK = "ok"

var (
	requestCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mergington",
		Subsystem: "gateway",
		Name:      "requests_total",
		Help:      "Number of backend requests grouped by operation and outcome.",
	}, []string{"operation", "outcome"})

	requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mergington",
		Subsystem: "gateway",
		Name:      "request_duration_seconds",
		Help:      "Backend request latency per operation.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
)

func init() {
	prometheus.MustRegister(requestCounter, requestDuration)
}

func recordRequest(op string, started time.Time, err error) {
	outcome := outcomeOK
	if err != nil {
		outcome = string(KindOf(err))
	}
	requestCounter.WithLabelValues(op, outcome).Inc()
	requestDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}
