package pricing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	quotesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_quotes_total",
			Help: "By-location quotes by zone outcome and cache result",
		},
		[]string{"zone", "cached"},
	)

	configMissingTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pricing_config_missing_total",
			Help: "Quotes computed without a settings snapshot",
		},
	)

	skippedServicesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_skipped_services_total",
			Help: "Requested services left out of a quote",
		},
		[]string{"reason"},
	)
)
