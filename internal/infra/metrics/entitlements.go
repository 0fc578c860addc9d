package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		entitlementsGrantedTotal,
		cacheResyncTotal,
	)
}

var (
	entitlementsGrantedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entitlements_granted_total",
			Help: "Subscriptions and boosts granted, by kind and source.",
		},
		[]string{"kind", "source"},
	)

	cacheResyncTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entitlement_cache_resync_total",
			Help: "Denormalized caches found out of sync with the ledger and rewritten.",
		},
		[]string{"cache"}, // 'user_plan', 'listing_boost'
	)
)

func IncEntitlement(kind, source string) {
	if source == "" {
		source = "unknown"
	}
	entitlementsGrantedTotal.WithLabelValues(norm(kind), norm(source)).Inc()
}

func IncCacheResync(cache string) {
	cacheResyncTotal.WithLabelValues(norm(cache)).Inc()
}
