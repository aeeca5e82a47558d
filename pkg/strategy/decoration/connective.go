// Package decoration holds the strategies shaping a traversal before it is
// optimized.
package decoration

import (
	"github.com/authzed/graphtraversal/pkg/strategy"
	"github.com/authzed/graphtraversal/pkg/traversal"
)

// Connective turns the infix and() and or() markers of a traversal into
// connective steps owning the steps on either side:
//
//	V().has(a).or().has(b).has(c)       -> V().or(has(a), has(b).has(c))
//	V().has(a).and().has(b).or().has(c) -> V().or(and(has(a), has(b)), has(c))
//
// and() binds tighter than or(). A marker is a connective step without
// children; labels on a marker are bound at the start of its right side.
type Connective struct {
	strategy.Base
}

func NewConnective() *Connective { return &Connective{} }

func (*Connective) ID() strategy.ID             { return strategy.ConnectiveID }
func (*Connective) Category() strategy.Category { return strategy.Decoration }

func (s *Connective) Configuration() strategy.Configuration {
	return strategy.ConfigurationFor(s.ID())
}

func (s *Connective) Apply(_ *strategy.Context, root *traversal.Traversal) error {
	return traversal.ApplyRecursively(root, func(t *traversal.Traversal) error {
		if !traversal.HasStepOf[traversal.Connective](t) {
			return nil
		}
		if err := processMarkers[*traversal.OrStep](t); err != nil {
			return err
		}
		return processMarkers[*traversal.AndStep](t)
	})
}

// partOfOperand returns true for steps that can be moved into an operand.
func partOfOperand(s traversal.Step) bool {
	switch step := s.(type) {
	case *traversal.ProfileSideEffectStep, *traversal.EndStep:
		return false
	case *traversal.StartStep:
		return len(step.Labels()) > 0
	case *traversal.GraphStep:
		return !step.IsStartStep()
	default:
		return true
	}
}

func isMarker[M traversal.Connective](s traversal.Step) (M, bool) {
	marker, ok := s.(M)
	return marker, ok && len(marker.LocalChildren()) == 0
}

func processMarkers[M traversal.Connective](t *traversal.Traversal) error {
	for i := 0; i < t.Len(); i++ {
		marker, ok := isMarker[M](t.Step(i))
		if !ok {
			continue
		}

		left := traversal.New()
		for prev := marker.Previous(); prev != nil && partOfOperand(prev); prev = marker.Previous() {
			left.InsertStep(0, prev)
		}
		if err := marker.AddLocalChild(left); err != nil {
			return err
		}

		right := operand(marker)
		if err := marker.AddLocalChild(right); err != nil {
			return err
		}
		marker.ClearLabels()

		for next := marker.Next(); next != nil && partOfOperand(next); next = marker.Next() {
			if following, ok := isMarker[M](next); ok {
				right = operand(following)
				if err := marker.AddLocalChild(right); err != nil {
					return err
				}
				t.RemoveStep(next)
				continue
			}
			right.AddStep(next)
		}
		i = t.IndexOf(marker)
	}
	return nil
}

// operand returns the traversal of the right side of a marker, binding the
// labels of the marker at its start.
func operand(marker traversal.Step) *traversal.Traversal {
	right := traversal.New()
	if labels := marker.Labels(); len(labels) > 0 {
		start := traversal.NewStartStep()
		for _, label := range labels {
			start.AddLabel(label)
		}
		right.AddStep(start)
	}
	return right
}
