package evaluator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	executionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "graphtraversal",
		Subsystem: "evaluator",
		Name:      "executions_total",
		Help:      "number of traversals executed, by outcome",
	}, []string{"outcome"})

	repeatIterationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "graphtraversal",
		Subsystem: "evaluator",
		Name:      "repeat_iterations_total",
		Help:      "number of repeat() body iterations run",
	})
)
