package httpcache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var decisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_cache_decisions_total",
		Help: "Response caching decisions by outcome",
	},
	[]string{"outcome"},
)
