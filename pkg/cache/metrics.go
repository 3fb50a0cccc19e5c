package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	tierPrimary  = "redis"
	tierFallback = "memory"
)

var (
	cacheRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pricing_cache_requests_total",
		Help: "Cache lookups by cache, tier and result",
	}, []string{"cache", "tier", "result"})

	cacheUnavailableTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pricing_cache_unavailable_total",
		Help: "Distributed cache failures that were served from the in-process tier",
	}, []string{"cache", "operation"})

	cacheInvalidationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pricing_cache_invalidations_total",
		Help: "Prefix invalidations by cache and origin",
	}, []string{"cache", "origin"})

	pendingInvalidations = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pricing_cache_pending_invalidations",
		Help: "Prefixes whose distributed invalidation failed and is awaiting retry",
	}, []string{"cache"})

	cacheEntries = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pricing_cache_memory_entries",
		Help: "Entries held by the in-process tier after the last sweep",
	}, []string{"cache"})
)

func recordLookup(cache, tier string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheRequestsTotal.WithLabelValues(cache, tier, result).Inc()
}

func recordUnavailable(cache, operation string) {
	cacheUnavailableTotal.WithLabelValues(cache, operation).Inc()
}

func recordInvalidation(cache, origin string) {
	cacheInvalidationsTotal.WithLabelValues(cache, origin).Inc()
}

func recordSize(cache string, n int) {
	cacheEntries.WithLabelValues(cache).Set(float64(n))
}
