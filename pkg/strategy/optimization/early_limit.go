package optimization

import (
	"github.com/authzed/graphtraversal/pkg/strategy"
	"github.com/authzed/graphtraversal/pkg/traversal"
)

// EarlyLimit moves range steps ahead of the map and side-effect steps
// preceding them, and merges ranges that end up next to each other:
//
//	out().id().range(0, 5)             -> out().range(0, 5).id()
//	range(2, 10).id().range(1, 3)      -> range(3, 5).id()
//	range(0, 2).id().range(5, 10)      -> none()
//
// A range never moves past a step writing a side effect, so such steps keep
// seeing every traverser they saw before.
type EarlyLimit struct {
	strategy.Base
}

func NewEarlyLimit() *EarlyLimit { return &EarlyLimit{} }

func (*EarlyLimit) ID() strategy.ID             { return strategy.EarlyLimitID }
func (*EarlyLimit) Category() strategy.Category { return strategy.Optimization }

func (s *EarlyLimit) Configuration() strategy.Configuration {
	return strategy.ConfigurationFor(s.ID())
}

func (s *EarlyLimit) Apply(_ *strategy.Context, root *traversal.Traversal) error {
	return traversal.ApplyRecursively(root, func(t *traversal.Traversal) error {
		if !t.IsShortcut() {
			limitEarly(t)
		}
		return nil
	})
}

// rangePassable returns true for steps a range can be moved in front of.
func rangePassable(s traversal.Step) bool {
	if _, ok := s.(traversal.SideEffectCapable); ok {
		return false
	}
	switch s.(type) {
	case traversal.MapStep, traversal.SideEffectStep:
		return true
	default:
		return false
	}
}

func limitEarly(t *traversal.Traversal) {
	var insertAfter traversal.Step
	for i := 0; i < t.Len(); i++ {
		step := t.Step(i)
		r, isRange := step.(*traversal.RangeGlobalStep)
		switch {
		case isRange && insertAfter != nil:
			moved := moveRange(t, r, insertAfter)
			if _, ok := moved.(*traversal.NoneStep); ok {
				truncateAfter(t, moved)
				return
			}
			insertAfter = moved
			i = t.IndexOf(moved)

		case !rangePassable(step):
			insertAfter = step
		}
	}
}

// moveRange moves the range right after the step, merging it into a range
// found there. It returns the range now in place, or a NoneStep if the
// merged range is empty.
func moveRange(t *traversal.Traversal, r *traversal.RangeGlobalStep, after traversal.Step) traversal.Step {
	if other, ok := after.(*traversal.RangeGlobalStep); ok && len(other.Labels()) == 0 {
		merged := mergeRanges(other, r)
		t.ReplaceStep(other, merged)
		traversal.CopyLabels(r, r.Previous(), true)
		t.RemoveStep(r)
		return merged
	}

	if r.Previous() == after {
		return r
	}

	traversal.CopyLabels(r, r.Previous(), true)
	t.InsertAfter(r, after)
	return r
}

// mergeRanges returns the range applying inner to the output of outer, or a
// NoneStep if nothing passes both.
func mergeRanges(outer, inner *traversal.RangeGlobalStep) traversal.Step {
	low := outer.Low() + inner.Low()
	switch {
	case outer.High() == -1 && inner.High() == -1:
		return traversal.NewRangeGlobalStep(low, -1)

	case outer.High() == -1:
		return traversal.NewRangeGlobalStep(low, outer.Low()+inner.High())

	case inner.High() == -1:
		high := outer.High() - outer.Low() - inner.Low() + low
		if low >= high {
			return traversal.NewNoneStep()
		}
		return traversal.NewRangeGlobalStep(low, high)

	default:
		high := min(outer.Low()+inner.High(), outer.High())
		if high <= low {
			return traversal.NewNoneStep()
		}
		return traversal.NewRangeGlobalStep(low, high)
	}
}

// truncateAfter removes the steps following a NoneStep, except for those
// reporting side effects.
func truncateAfter(t *traversal.Traversal, none traversal.Step) {
	for next := none.Next(); next != nil; {
		following := next.Next()
		switch next.(type) {
		case *traversal.SideEffectCapStep, *traversal.ProfileSideEffectStep:
		default:
			t.RemoveStep(next)
		}
		next = following
	}
}
