package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	StoreOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "people", Name: "store_operations_total", Help: "Person store operations by operation and result (ok|absent|error)."},
		[]string{"op", "result"},
	)
	StoreDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: "people", Name: "store_operation_duration_seconds", Help: "Latency of person store operations.", Buckets: prometheus.DefBuckets},
		[]string{"op"},
	)
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "people", Name: "cache_lookups_total", Help: "Find-by-id cache lookups by result (hit|miss)."},
		[]string{"result"},
	)
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "people", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "people", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(StoreOperations)
	reg.MustRegister(StoreDuration)
	reg.MustRegister(CacheLookups)
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
}
