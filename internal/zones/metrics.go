package zones

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	resolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zone_resolutions_total",
			Help: "Zone resolutions by engine and outcome",
		},
		[]string{"method", "outcome"},
	)

	spatialFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "zone_spatial_engine_failures_total",
			Help: "Spatial query failures that fell back to the point locator",
		},
	)

	polygonParseErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "zone_polygon_parse_errors_total",
			Help: "Zones loaded with an unusable polygon",
		},
	)

	invalidZonesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "zone_invalid_definitions_total",
			Help: "Zone rows skipped because their definition failed validation",
		},
	)
)

func recordResolution(method Method, zone *Zone) {
	outcome := "matched"
	if zone == nil {
		outcome = "none"
	}
	resolutionsTotal.WithLabelValues(string(method), outcome).Inc()
}
