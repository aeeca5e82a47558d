package compiler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	compilesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "graphtraversal",
		Subsystem: "compiler",
		Name:      "compiles_total",
		Help:      "number of traversals compiled, by execution mode and whether the result was cached",
	}, []string{"mode", "cached"})

	compileErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "graphtraversal",
		Subsystem: "compiler",
		Name:      "compile_errors_total",
		Help:      "number of compilations that failed, by the strategy that rejected the traversal",
	}, []string{"strategy"})

	strategyApplicationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "graphtraversal",
		Subsystem: "compiler",
		Name:      "strategy_applications_total",
		Help:      "number of times each strategy was applied",
	}, []string{"strategy"})
)

func modeLabel(computer bool) string {
	if computer {
		return "computer"
	}
	return "standalone"
}
