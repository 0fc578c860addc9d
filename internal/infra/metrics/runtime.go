package metrics

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(buildInfo, dbConns, dbAcquireWait, cacheLookups) }

var buildInfo = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "billing_build_info",
		Help: "Always 1; labels carry the running build.",
	},
	[]string{"version", "commit", "go_version"},
)

// SetBuildInfo publishes the build labels once at startup.
func SetBuildInfo(version, commit string) {
	buildInfo.WithLabelValues(version, commit, runtime.Version()).Set(1)
}

var dbConns = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "billing_db_connections",
		Help: "Postgres pool connections by state.",
	},
	[]string{"state"}, // total|idle|acquired|max
)

var dbAcquireWait = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "billing_db_empty_acquires",
	Help: "Acquires that had to wait because the pool was exhausted (cumulative, from pgxpool).",
})

// SetDBPoolStats mirrors a pgxpool.Stat snapshot.
func SetDBPoolStats(total, idle, acquired, max int32, emptyAcquires int64) {
	dbConns.WithLabelValues("total").Set(float64(total))
	dbConns.WithLabelValues("idle").Set(float64(idle))
	dbConns.WithLabelValues("acquired").Set(float64(acquired))
	dbConns.WithLabelValues("max").Set(float64(max))
	dbAcquireWait.Set(float64(emptyAcquires))
}

var cacheLookups = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "billing_catalog_cache_lookups_total",
		Help: "Package catalog cache lookups by key family and result.",
	},
	[]string{"cache", "result"}, // result: hit|miss
)

func IncCacheRequest(cacheName, result string) {
	cacheLookups.WithLabelValues(norm(cacheName), norm(result)).Inc()
}
