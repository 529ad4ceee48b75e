package variants

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// VariantObservations tracks context hashes accepted into the buffer
	VariantObservations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "http_cache_variant_observations_total",
			Help: "Total number of context hash observations buffered",
		},
	)

	// VariantsDropped tracks observations lost to a full buffer or a closed tracker
	VariantsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "http_cache_variant_dropped_total",
			Help: "Total number of context hash observations dropped",
		},
	)

	// FlushErrors tracks failed Redis flushes
	FlushErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "http_cache_variant_flush_errors_total",
			Help: "Total number of failed variant flushes",
		},
	)
)
