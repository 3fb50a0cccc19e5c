package payments

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var settlementDriftTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "payments_settlement_drift_total",
		Help: "Settlements whose payable amount did not reverse to the quoted net",
	},
	[]string{"payment_type"},
)
