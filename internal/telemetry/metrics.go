package telemetry

import "github.com/prometheus/client_golang/prometheus"

var CacheHitsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "koreagate",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total number of cache hits by type.",
	},
	[]string{"type"},
)

var CacheMissesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "koreagate",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total number of cache misses by type.",
	},
	[]string{"type"},
)

var CacheEvictionsTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "koreagate",
		Subsystem: "cache",
		Name:      "evictions_total",
		Help:      "Total number of LRU evictions.",
	},
)

var CacheMemoryUsageBytes = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "koreagate",
		Subsystem: "cache",
		Name:      "memory_usage_bytes",
		Help:      "Current cumulative computed size of cached entries.",
	},
)

var RateLimitDecisionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "koreagate",
		Subsystem: "ratelimit",
		Name:      "decisions_total",
		Help:      "Total number of rate-limit decisions by tier and outcome.",
	},
	[]string{"tier", "allowed"},
)

var RateLimitActiveBuckets = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "koreagate",
		Subsystem: "ratelimit",
		Name:      "active_buckets",
		Help:      "Current number of live token buckets.",
	},
)

var UpstreamRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "koreagate",
		Subsystem: "upstream",
		Name:      "requests_total",
		Help:      "Total number of upstream requests by outcome.",
	},
	[]string{"outcome"},
)

var UpstreamRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "koreagate",
		Subsystem: "upstream",
		Name:      "request_duration_seconds",
		Help:      "Upstream request duration in seconds, including retries.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	},
	[]string{"endpoint"},
)

var CoordinateTransformsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "koreagate",
		Subsystem: "coordinate",
		Name:      "transforms_total",
		Help:      "Total number of coordinate transforms by source/target system pair.",
	},
	[]string{"from", "to"},
)

var APIKeysExpiringSoon = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "koreagate",
		Subsystem: "apikey",
		Name:      "expiring_soon",
		Help:      "Number of API keys expiring within 30 days.",
	},
)

var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "koreagate",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route", "status"},
)

// All returns every gateway metric for registration.
func All() []prometheus.Collector {
	return []prometheus.Collector{
		CacheHitsTotal,
		CacheMissesTotal,
		CacheEvictionsTotal,
		CacheMemoryUsageBytes,
		RateLimitDecisionsTotal,
		RateLimitActiveBuckets,
		UpstreamRequestsTotal,
		UpstreamRequestDuration,
		CoordinateTransformsTotal,
		APIKeysExpiringSoon,
		HTTPRequestDuration,
	}
}
