package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	backendMemory = "memory"
	backendRedis  = "redis"
)

var (
	// CacheHits tracks cache hits by backend
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insight_cache_hits_total",
			Help: "Total number of result cache hits",
		},
		[]string{"backend"}, // "memory", "redis"
	)

	// CacheMisses tracks cache misses by backend
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insight_cache_misses_total",
			Help: "Total number of result cache misses",
		},
		[]string{"backend"},
	)

	// CacheEntries tracks the number of live entries held in process
	CacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "insight_cache_entries",
			Help: "Current number of entries in the result cache",
		},
		[]string{"backend"},
	)

	// CacheEvictions tracks removed entries by reason
	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insight_cache_evictions_total",
			Help: "Total number of expired entries removed from the result cache",
		},
		[]string{"reason"}, // "read", "sweep"
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insight_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
