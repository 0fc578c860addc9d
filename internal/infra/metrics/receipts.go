package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(receiptVerifyTotal) }

// outcome: granted|duplicate|mock|error
var receiptVerifyTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "receipt_verify_total",
		Help: "Mobile receipt verifications by outcome.",
	},
	[]string{"outcome"},
)

func IncReceipt(outcome string) {
	receiptVerifyTotal.WithLabelValues(norm(outcome)).Inc()
}
