// File: internal/infra/metrics/metrics.go
package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(gatewayCallLatency) }

var gatewayCallLatency = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "gateway_call_duration_seconds",
		Help:    "Latency of payment gateway and receipt store calls.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
	},
	[]string{"provider", "op", "success"},
)

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// ObserveGatewayCall records one outbound call started at started.
func ObserveGatewayCall(provider, op string, started time.Time, err error) {
	success := "true"
	if err != nil {
		success = "false"
	}
	gatewayCallLatency.WithLabelValues(norm(provider), norm(op), success).
		Observe(time.Since(started).Seconds())
}
