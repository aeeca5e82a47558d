package optimization

import (
	"slices"

	"github.com/authzed/graphtraversal/pkg/genutil/mapz"
	"github.com/authzed/graphtraversal/pkg/strategy"
	"github.com/authzed/graphtraversal/pkg/traversal"
)

// retractionSkipped marks traversals whose path labels must not be retracted.
const retractionSkipped = "pathRetraction.skipped"

// PathRetraction computes, for every path processor, the labels that must
// survive it. Labels referenced by steps after the processor, by the steps
// of enclosing traversals or by sibling branches are kept; every other label
// can be dropped from the path. Trees with lambdas or steps needing the full
// path are left untouched.
//
// With LazyBarrier installed, a barrier is added after path processors to
// bulk the traversers whose paths were just shortened.
type PathRetraction struct {
	strategy.Base
	barrierSize int
}

func NewPathRetraction(barrierSize int) *PathRetraction {
	return &PathRetraction{barrierSize: barrierSize}
}

func (*PathRetraction) ID() strategy.ID             { return strategy.PathRetractionID }
func (*PathRetraction) Category() strategy.Category { return strategy.Optimization }

func (*PathRetraction) Prior() []strategy.ID {
	return []strategy.ID{strategy.RepeatUnrollID, strategy.MatchPredicateID, strategy.PathProcessorID}
}

func (s *PathRetraction) Configuration() strategy.Configuration {
	return strategy.ConfigurationFor(s.ID()).With("barrierSize", s.barrierSize)
}

func (s *PathRetraction) Apply(ctx *strategy.Context, root *traversal.Traversal) error {
	if retractionNotApplicable(root) {
		_ = traversal.ApplyRecursively(root, func(t *traversal.Traversal) error {
			ctx.Mark(t, retractionSkipped)
			return nil
		})
	}

	return traversal.ApplyRecursively(root, func(t *traversal.Traversal) error {
		if ctx.Marked(t, retractionSkipped) {
			ctx.Unmark(t, retractionSkipped)
			return nil
		}
		if t.IsShortcut() {
			return nil
		}
		s.retract(ctx, t)
		return nil
	})
}

// retractionNotApplicable returns true if some step needs the whole path or
// could read any label.
func retractionNotApplicable(root *traversal.Traversal) bool {
	return traversal.AnyStepRecursively(root, func(s traversal.Step) bool {
		if _, ok := s.(traversal.LambdaHolder); ok {
			return true
		}
		return s.Requirements().Has(traversal.RequirePath)
	})
}

func (s *PathRetraction) retract(ctx *strategy.Context, t *traversal.Traversal) {
	withBarriers := ctx.Installed(strategy.LazyBarrierID) && !ctx.OnComputer()
	enclosingMatch, inMatch := t.Parent().(*traversal.MatchStep)

	found := mapz.NewSet[string]()
	keep := mapz.NewSet[string]()
	steps := t.Steps()
	for i := len(steps) - 1; i >= 0; i-- {
		current := steps[i]

		// A label referenced twice, or referenced by a later step, is kept.
		keep.Merge(found)
		for _, label := range traversal.ReferencedLabels(current).AsSlice() {
			if !found.Add(label) {
				keep.Add(label)
			}
		}

		processor, ok := current.(traversal.PathProcessor)
		if !ok {
			continue
		}

		if match, ok := current.(*traversal.MatchStep); ok {
			processor.SetKeepLabels(matchLabels(match))
		} else {
			addKeepLabels(processor, keep)
		}
		if inMatch {
			processor.SetKeepLabels(matchLabels(enclosingMatch))
		}

		if withBarriers && barrierFollowsProcessor(current) {
			t.InsertAfter(traversal.NewNoOpBarrierStep(s.barrierSize), current)
		}
	}
	keep.Merge(found)

	var ancestors []traversal.Step
	for parent := traversal.ParentStepOf(t); parent != nil; parent = traversal.ParentStepOf(parent.Traversal()) {
		ancestors = append(ancestors, parent)
	}
	slices.Reverse(ancestors)

	hasRepeat := false
	trail := mapz.NewSet[string]()
	for _, ancestor := range ancestors {
		levelLabels := traversal.ReferencedLabels(ancestor)
		levelLabels.Merge(traversal.ReferencedLabelsAfter(ancestor))

		if _, ok := ancestor.(*traversal.RepeatStep); ok {
			hasRepeat = true
		}

		// Any of several children may be the one producing a kept label.
		if parent, ok := ancestor.(traversal.TraversalParent); ok {
			children := childrenOf(parent)
			if len(children) > 1 {
				keepInChildren(children, keep)
			}
		}

		// Kept labels must survive the steps leading up to the ancestor.
		for prev := ancestor.Previous(); prev != nil; prev = prev.Previous() {
			if processor, ok := prev.(traversal.PathProcessor); ok {
				addKeepLabels(processor, keep)
			}
			if parent, ok := prev.(traversal.TraversalParent); ok {
				keepInChildren(childrenOf(parent), keep)
			}
		}

		// Labels referenced by later steps of the ancestor's traversal must
		// survive the processors between.
		for next := ancestor.Next(); next != nil; next = next.Next() {
			processor, ok := next.(traversal.PathProcessor)
			if !ok {
				continue
			}
			referenced := traversal.ReferencedLabelsAfter(next)
			addKeepLabels(processor, referenced.Intersect(levelLabels))
		}

		trail.Merge(levelLabels)
	}

	for _, processor := range traversal.StepsOf[traversal.PathProcessor](t) {
		addKeepLabels(processor, trail)
		if hasRepeat {
			addKeepLabels(processor, keep)
		}
	}
}

// barrierFollowsProcessor returns true if a barrier can be added after the
// path processor without splitting an existing barrier or a match.
func barrierFollowsProcessor(s traversal.Step) bool {
	if _, ok := s.(*traversal.MatchStep); ok {
		return false
	}
	if _, ok := s.(traversal.Barrier); ok {
		return false
	}
	if _, ok := s.Traversal().Parent().(*traversal.MatchStep); ok {
		return false
	}

	switch s.Next().(type) {
	case nil, traversal.Barrier, *traversal.NoneStep:
		return false
	default:
		return true
	}
}

func matchLabels(match *traversal.MatchStep) *mapz.Set[string] {
	labels := match.MatchStartLabels()
	labels.Merge(match.MatchEndLabels())
	return labels
}

func childrenOf(parent traversal.TraversalParent) []*traversal.Traversal {
	return append(parent.GlobalChildren(), parent.LocalChildren()...)
}

// keepInChildren adds the labels to every path processor within the children.
func keepInChildren(children []*traversal.Traversal, labels *mapz.Set[string]) {
	for _, child := range children {
		_ = traversal.ApplyRecursively(child, func(t *traversal.Traversal) error {
			for _, processor := range traversal.StepsOf[traversal.PathProcessor](t) {
				addKeepLabels(processor, labels)
			}
			return nil
		})
	}
}

// addKeepLabels adds the labels to the keep labels of the processor.
func addKeepLabels(processor traversal.PathProcessor, labels *mapz.Set[string]) {
	keep := mapz.NewSet[string]()
	if current := processor.KeepLabels(); current != nil {
		keep = current.Copy()
	}
	keep.Merge(labels)
	processor.SetKeepLabels(keep)
}
