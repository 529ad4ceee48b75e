// Package metrics exposes the Prometheus registry shared by the caching
// packages. Metrics are defined next to the code that records them
// (httpcache, cachehash, variants) and registered via promauto.
//
// This package provides the scrape handler and the metric catalogue.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the caching packages.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler serves the default gatherer in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Policy Metrics (pkg/httpcache):
//   - http_cache_decisions_total{outcome} (Counter): Caching decisions by outcome
//     (disabled, no_context, maintenance, not_found, cart_error, unsafe_method,
//     no_directive, handler_no_store, state_invalidated, cacheable)
//
// Context Hash Metrics (pkg/cachehash):
//   - http_cache_hash_cookie_total{action} (Counter): Hash cookie outcomes
//     (set, unchanged, cleared, not_required)
//
// Variant Metrics (pkg/variants):
//   - http_cache_variant_observations_total (Counter): Hashes accepted into the buffer
//   - http_cache_variant_dropped_total (Counter): Hashes dropped (buffer full or tracker closed)
//   - http_cache_variant_flush_errors_total (Counter): Failed Redis flushes
//
// Example Prometheus Queries:
//
//   # Cacheable share of responses
//   sum(rate(http_cache_decisions_total{outcome="cacheable"}[5m])) /
//   sum(rate(http_cache_decisions_total[5m]))
//
//   # Cart loader failures
//   rate(http_cache_decisions_total{outcome="cart_error"}[5m])
//
//   # Hash churn (cookies rewritten per second)
//   rate(http_cache_hash_cookie_total{action="set"}[5m])
//
//   # Variant tracker overload
//   rate(http_cache_variant_dropped_total[5m]) > 0
