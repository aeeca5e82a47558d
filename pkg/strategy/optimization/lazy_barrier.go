package optimization

import (
	"github.com/authzed/graphtraversal/pkg/strategy"
	"github.com/authzed/graphtraversal/pkg/traversal"
)

// bigStartSize is the number of start ids above which a graph step is
// considered to produce many traversers.
const bigStartSize = 5

// LazyBarrier adds a bounded barrier after every step expanding its input,
// once an earlier step already did, so that the traversers reaching the
// following steps are bulked:
//
//	V().out().out()  -> V().out().barrier(2500).out()
//
// Barriers are not added while labeled path elements must stay apart, in trees
// needing full paths, or in trees dropping elements.
type LazyBarrier struct {
	strategy.Base
	barrierSize int
}

func NewLazyBarrier(barrierSize int) *LazyBarrier {
	return &LazyBarrier{barrierSize: barrierSize}
}

func (*LazyBarrier) ID() strategy.ID             { return strategy.LazyBarrierID }
func (*LazyBarrier) Category() strategy.Category { return strategy.Optimization }

func (*LazyBarrier) Prior() []strategy.ID {
	return []strategy.ID{
		strategy.CountID,
		strategy.PathRetractionID,
		strategy.IncidentToAdjacentID,
		strategy.AdjacentToIncidentID,
		strategy.FilterRankingID,
		strategy.InlineFilterID,
		strategy.MatchPredicateID,
		strategy.EarlyLimitID,
		strategy.RepeatUnrollID,
	}
}

func (s *LazyBarrier) Configuration() strategy.Configuration {
	return strategy.ConfigurationFor(s.ID()).With("barrierSize", s.barrierSize)
}

func (s *LazyBarrier) Apply(ctx *strategy.Context, root *traversal.Traversal) error {
	if ctx.OnComputer() ||
		root.Requirements().Has(traversal.RequirePath) ||
		traversal.HasStepOfRecursively[*traversal.DropStep](root) {
		return nil
	}

	return traversal.ApplyRecursively(root, func(t *traversal.Traversal) error {
		if !t.IsShortcut() {
			s.addBarriers(t)
		}
		return nil
	})
}

func (s *LazyBarrier) addBarriers(t *traversal.Traversal) {
	foundExpansion := false
	labeledPath := false
	for i := 0; i < t.Len(); i++ {
		step := t.Step(i)

		// Without path data left, traversers can be bulked again.
		if processor, ok := step.(traversal.PathProcessor); ok {
			if keep := processor.KeepLabels(); keep != nil && keep.IsEmpty() {
				labeledPath = false
			}
		}

		if expands(step, i) {
			if foundExpansion && !labeledPath && barrierMayFollow(step) {
				barrier := traversal.NewNoOpBarrierStep(s.barrierSize)
				traversal.CopyLabels(step, barrier, true)
				t.InsertAfter(barrier, step)
			} else {
				foundExpansion = true
			}
		}

		if len(step.Labels()) > 0 {
			labeledPath = true
		}
	}
}

// expands returns true for steps that may produce many outputs per input.
// Walks to incident edges are excluded as edges rarely bulk.
func expands(s traversal.Step, index int) bool {
	switch step := s.(type) {
	case *traversal.VertexStep:
		return step.ReturnsVertex()
	case traversal.FlatMapStep:
		return true
	case *traversal.GraphStep:
		if index > 0 || len(step.IDs()) >= bigStartSize {
			return true
		}
		_, filtered := step.Next().(*traversal.HasStep)
		return len(step.IDs()) == 0 && !filtered
	default:
		return false
	}
}

// barrierMayFollow returns false at the end of a traversal and before steps
// that already gather their input.
func barrierMayFollow(s traversal.Step) bool {
	switch s.Next().(type) {
	case nil, traversal.Barrier, *traversal.NoneStep, *traversal.ProfileSideEffectStep:
		return false
	default:
		return true
	}
}
