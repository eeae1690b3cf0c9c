package controller

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// cacheHits counts fresh responses served from the cache.
	cacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "httpcache_hits_total",
			Help: "Total number of responses served from the cache",
		},
	)

	// cacheMisses counts lookups that could not be satisfied, by cause.
	cacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpcache_misses_total",
			Help: "Total number of cache misses by reason",
		},
		[]string{"reason"}, // "absent", "vary", "decode"
	)

	// revalidations counts conditional-request decisions issued.
	revalidations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "httpcache_revalidations_total",
			Help: "Total number of conditional revalidation decisions",
		},
	)

	// notModifiedMerges counts 304 responses merged into stored entries.
	notModifiedMerges = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "httpcache_not_modified_merges_total",
			Help: "Total number of 304 Not Modified responses merged into the cache",
		},
	)

	// entriesStored counts newly persisted entries.
	entriesStored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "httpcache_entries_stored_total",
			Help: "Total number of cache entries persisted",
		},
	)

	// storeVetoes counts responses rejected from storage, by reason.
	storeVetoes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpcache_store_vetoes_total",
			Help: "Total number of responses vetoed from storage by reason",
		},
		[]string{"reason"},
	)

	// invalidations counts entries removed after successful unsafe methods.
	invalidations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "httpcache_invalidations_total",
			Help: "Total number of entries invalidated by unsafe methods",
		},
	)

	// storeErrors counts swallowed storage faults by operation.
	storeErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpcache_store_errors_total",
			Help: "Total number of cache store operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
