package resilience

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
)

const (
	outcomeSuccess      = "success"
	outcomeFailure      = "failure"
	outcomeShortCircuit = "short_circuit"
)

var (
	dependencyCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pricing_dependency_calls_total",
		Help: "Calls to guarded dependencies by outcome",
	}, []string{"dependency", "outcome"})

	dependencyOpen = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pricing_dependency_breaker_open",
		Help: "1 while the dependency's breaker rejects or probes calls",
	}, []string{"dependency"})

	dependencyTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pricing_dependency_breaker_transitions_total",
		Help: "Breaker transitions by target state",
	}, []string{"dependency", "to"})
)

func recordCall(dependency, outcome string) {
	dependencyCallsTotal.WithLabelValues(dependency, outcome).Inc()
}

func recordTransition(dependency string, to gobreaker.State) {
	dependencyTransitionsTotal.WithLabelValues(dependency, to.String()).Inc()
	open := 0.0
	if to != gobreaker.StateClosed {
		open = 1
	}
	dependencyOpen.WithLabelValues(dependency).Set(open)
}
