package evaluator

import (
	"time"

	"github.com/authzed/graphtraversal/pkg/traversal"
)

// StepMetrics are the metrics profile() records for one step of the root
// traversal.
type StepMetrics struct {
	Step       string
	Traversers int
	Count      int64
	Duration   time.Duration
}

type profiler struct {
	metrics []StepMetrics
}

func (p *profiler) record(s traversal.Step, out []*traversal.Traverser, elapsed time.Duration) {
	var count int64
	for _, t := range out {
		count += t.Bulk()
	}
	p.metrics = append(p.metrics, StepMetrics{
		Step:       s.String(),
		Traversers: len(out),
		Count:      count,
		Duration:   elapsed,
	})
}
