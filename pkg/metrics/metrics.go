// Package metrics provides the centralized Prometheus metrics registry
// for the cache engine. The metrics themselves are defined next to the
// code that records them (pkg/controller) to avoid circular
// dependencies; this package documents them in one place.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the cache engine.
// All metrics are automatically registered via promauto where they are
// defined.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Lookup Metrics (pkg/controller):
//   - httpcache_hits_total (Counter): Fresh responses served from the store
//   - httpcache_misses_total{reason} (Counter): Misses by reason (absent, vary, decode)
//   - httpcache_revalidations_total (Counter): Conditional revalidations issued
//   - httpcache_not_modified_merges_total (Counter): 304 responses merged into stored entries
//
// Storage Metrics (pkg/controller):
//   - httpcache_entries_stored_total (Counter): New entries written to the store
//   - httpcache_store_vetoes_total{reason} (Counter): Responses refused storage by reason
//   - httpcache_invalidations_total (Counter): Entries removed after unsafe methods
//   - httpcache_store_errors_total{operation} (Counter): Backend store failures by operation (get, set, delete)
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(httpcache_hits_total[5m])) /
//   (sum(rate(httpcache_hits_total[5m])) + sum(rate(httpcache_misses_total[5m])))
//
//   # Revalidation Effectiveness (304s per conditional request)
//   rate(httpcache_not_modified_merges_total[5m]) /
//   rate(httpcache_revalidations_total[5m])
//
//   # Backend Health
//   rate(httpcache_store_errors_total[5m])
