package cachehash

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var hashCookieTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_cache_hash_cookie_total",
		Help: "Context hash cookie outcomes by action",
	},
	[]string{"action"}, // "set", "unchanged", "cleared", "not_required"
)
