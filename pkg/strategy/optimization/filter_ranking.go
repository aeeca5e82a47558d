package optimization

import (
	"github.com/authzed/graphtraversal/pkg/genutil/mapz"
	"github.com/authzed/graphtraversal/pkg/strategy"
	"github.com/authzed/graphtraversal/pkg/traversal"
)

// FilterRanking reorders adjacent filters so that cheaper filters run first.
// A filter never moves ahead of a step whose labels it references, and labels
// of a step are moved forward onto a ranked filter following it so that they
// stay attached to the same position in the traversal.
type FilterRanking struct {
	strategy.Base
}

func NewFilterRanking() *FilterRanking { return &FilterRanking{} }

func (*FilterRanking) ID() strategy.ID             { return strategy.FilterRankingID }
func (*FilterRanking) Category() strategy.Category { return strategy.Optimization }
func (*FilterRanking) Prior() []strategy.ID        { return []strategy.ID{strategy.IdentityRemovalID} }

func (s *FilterRanking) Configuration() strategy.Configuration {
	return strategy.ConfigurationFor(s.ID())
}

func (s *FilterRanking) Apply(_ *strategy.Context, root *traversal.Traversal) error {
	return traversal.ApplyRecursively(root, func(t *traversal.Traversal) error {
		if t.IsShortcut() {
			return nil
		}
		return strategy.RunToFixedPoint(func() int { return rankingMeasure(t) }, func() (bool, error) {
			return rankFilters(t), nil
		})
	})
}

func rankFilters(t *traversal.Traversal) bool {
	modified := false
	for i := 0; i < t.Len()-1; i++ {
		step := t.Step(i)
		next := t.Step(i + 1)

		labels := mapz.NewSet(step.Labels()...)
		if usesLabels(next, labels) {
			continue
		}

		nextRank := StepRank(next)
		if nextRank == 0 {
			continue
		}

		if !labels.IsEmpty() {
			traversal.CopyLabels(step, next, true)
			modified = true
		}
		if StepRank(step) > nextRank {
			t.RemoveStep(next)
			t.InsertStep(i, next)
			modified = true
		}
	}
	return modified
}

// rankingMeasure strictly decreases with every swap of an out-of-order pair
// and with every forward move of labels.
func rankingMeasure(t *traversal.Traversal) int {
	steps := t.Steps()
	ranks := make([]int, len(steps))
	totalLabels := 0
	for i, s := range steps {
		ranks[i] = StepRank(s)
		totalLabels += len(s.Labels())
	}

	inversions := 0
	for i := range ranks {
		for j := i + 1; j < len(ranks); j++ {
			if ranks[i] != 0 && ranks[j] != 0 && ranks[i] > ranks[j] {
				inversions++
			}
		}
	}

	potential := 0
	for i, s := range steps {
		potential += (len(steps) - i) * len(s.Labels())
	}
	return inversions*(len(steps)*totalLabels+1) + potential
}

// StepRank returns the cost rank of a filter step, from 1 (cheapest) to 10.
// Steps that are not rankable filters have rank 0 and are never moved. The
// rank of a filter with children is the highest rank found among them.
func StepRank(s traversal.Step) int {
	var rank int
	switch step := s.(type) {
	case *traversal.IsStep:
		rank = 1
	case *traversal.HasStep:
		rank = 2
	case *traversal.WherePredicateStep:
		if len(step.LocalChildren()) == 0 {
			rank = 3
		} else {
			rank = 8
		}
	case *traversal.TraversalFilterStep, *traversal.NotStep:
		rank = 4
	case *traversal.WhereTraversalStep:
		rank = 5
	case *traversal.OrStep:
		rank = 6
	case *traversal.AndStep:
		rank = 7
	case *traversal.DedupGlobalStep:
		rank = 9
	case *traversal.OrderGlobalStep:
		rank = 10
	default:
		return 0
	}

	parent, ok := s.(traversal.TraversalParent)
	if !ok {
		return rank
	}
	for _, child := range parent.LocalChildren() {
		for _, childStep := range child.Steps() {
			if childRank := StepRank(childStep); childRank > rank {
				rank = childRank
			}
		}
	}
	return rank
}

// usesLabels returns true if the step, or any step within its children,
// could read one of the labels.
func usesLabels(s traversal.Step, labels *mapz.Set[string]) bool {
	if _, ok := s.(traversal.LambdaHolder); ok {
		return true
	}
	if scoping, ok := s.(traversal.Scoping); ok {
		for _, key := range scoping.ScopeKeys() {
			if labels.Has(key) {
				return true
			}
		}
	}
	if parent, ok := s.(traversal.TraversalParent); ok {
		return traversal.AnyChildStep(parent, func(child traversal.Step) bool {
			return usesLabels(child, labels)
		})
	}
	return false
}
