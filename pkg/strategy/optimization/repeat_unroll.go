package optimization

import (
	"github.com/authzed/graphtraversal/pkg/strategy"
	"github.com/authzed/graphtraversal/pkg/traversal"
)

// RepeatUnroll replaces a repeat() looping a fixed number of times by copies
// of its body:
//
//	repeat(out()).times(3)  -> out().barrier(2500).out().barrier(2500).out().barrier(2500)
//
// Barriers are only added when LazyBarrier is installed. Bodies that dedup,
// read the loop counter or run lambdas behave differently once copied and
// are kept as loops.
type RepeatUnroll struct {
	strategy.Base
	barrierSize int
}

func NewRepeatUnroll(barrierSize int) *RepeatUnroll {
	return &RepeatUnroll{barrierSize: barrierSize}
}

func (*RepeatUnroll) ID() strategy.ID             { return strategy.RepeatUnrollID }
func (*RepeatUnroll) Category() strategy.Category { return strategy.Optimization }

func (*RepeatUnroll) Prior() []strategy.ID { return []strategy.ID{strategy.IdentityRemovalID} }

// Post lists the passes rewriting the unrolled copies of loop bodies.
func (*RepeatUnroll) Post() []strategy.ID {
	return []strategy.ID{
		strategy.EarlyLimitID,
		strategy.InlineFilterID,
		strategy.IncidentToAdjacentID,
		strategy.AdjacentToIncidentID,
		strategy.ByModulatorOptimizationID,
		strategy.FilterRankingID,
		strategy.MatchPredicateID,
		strategy.CountID,
	}
}

func (s *RepeatUnroll) Configuration() strategy.Configuration {
	return strategy.ConfigurationFor(s.ID()).With("barrierSize", s.barrierSize)
}

func (s *RepeatUnroll) Apply(ctx *strategy.Context, root *traversal.Traversal) error {
	if ctx.OnComputer() {
		return nil
	}

	withBarriers := ctx.Installed(strategy.LazyBarrierID)
	return traversal.ApplyRecursively(root, func(t *traversal.Traversal) error {
		if t.IsShortcut() {
			return nil
		}
		for _, repeat := range traversal.StepsOf[*traversal.RepeatStep](t) {
			if loops, ok := unrollable(repeat); ok {
				s.unroll(t, repeat, loops, withBarriers)
			}
		}
		return nil
	})
}

// unrollable returns the number of loops of a repeat that can be unrolled.
func unrollable(repeat *traversal.RepeatStep) (int64, bool) {
	body := repeat.RepeatTraversal()
	until := repeat.UntilTraversal()
	if body == nil || repeat.EmitTraversal() != nil || until == nil {
		return 0, false
	}
	if until.Kind() != traversal.KindLoop || until.MaxLoops() <= 0 {
		return 0, false
	}

	invalidating := traversal.AnyStepRecursively(body, func(s traversal.Step) bool {
		switch s.(type) {
		case *traversal.DedupGlobalStep, *traversal.LoopsStep, traversal.LambdaHolder:
			return true
		default:
			return false
		}
	})
	return until.MaxLoops(), !invalidating
}

func (s *RepeatUnroll) unroll(t *traversal.Traversal, repeat *traversal.RepeatStep, loops int64, withBarriers bool) {
	body := repeat.RepeatTraversal().Clone()
	if _, ok := body.EndStep().(*traversal.RepeatEndStep); ok {
		body.RemoveStepAt(body.Len() - 1)
	}

	last := traversal.Step(repeat)
	for i := int64(0); i < loops; i++ {
		last = t.InsertTraversal(last, body.Clone())
		if !withBarriers {
			continue
		}

		// The barrier after the final copy is left to a following barrier.
		if _, isBarrier := last.(*traversal.NoOpBarrierStep); isBarrier {
			continue
		}
		if _, nextIsBarrier := last.Next().(traversal.Barrier); i == loops-1 && nextIsBarrier {
			continue
		}
		barrier := traversal.NewNoOpBarrierStep(s.barrierSize)
		t.InsertAfter(barrier, last)
		last = barrier
	}

	if last != traversal.Step(repeat) {
		traversal.CopyLabels(repeat, last, false)
	}
	t.RemoveStep(repeat)
}
