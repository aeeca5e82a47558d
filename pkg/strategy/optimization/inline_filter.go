package optimization

import (
	"github.com/authzed/graphtraversal/pkg/genutil/slicez"
	"github.com/authzed/graphtraversal/pkg/predicate"
	"github.com/authzed/graphtraversal/pkg/strategy"
	"github.com/authzed/graphtraversal/pkg/traversal"
)

// InlineFilter pulls filters out of the child traversals of filter steps and
// into the traversal itself, where later strategies (and graph providers) can
// see them:
//
//	has(a).has(b)                 -> has(a, b)
//	outE().hasLabel("knows")      -> outE("knows")
//	filter(has(a).is(b))          -> has(a).is(b)
//	and(has(a), has(b))           -> has(a).has(b)
//	or(has("k", 1), has("k", 2))  -> has("k", or(eq(1), eq(2)))
//	V().as("a").match(as("a").has(b)) -> V().as("a").has(b)@[a]
type InlineFilter struct {
	strategy.Base
}

func NewInlineFilter() *InlineFilter { return &InlineFilter{} }

func (*InlineFilter) ID() strategy.ID             { return strategy.InlineFilterID }
func (*InlineFilter) Category() strategy.Category { return strategy.Optimization }

func (*InlineFilter) Prior() []strategy.ID {
	return []strategy.ID{strategy.FilterRankingID, strategy.IdentityRemovalID, strategy.MatchPredicateID}
}

func (*InlineFilter) Post() []strategy.ID {
	return []strategy.ID{strategy.PathRetractionID, strategy.AdjacentToIncidentID}
}

func (s *InlineFilter) Configuration() strategy.Configuration {
	return strategy.ConfigurationFor(s.ID())
}

// Apply inlines bottom-up. With FilterRanking installed, the filters of each
// traversal are ranked again once inlined, and the two alternate until
// neither changes the traversal.
func (s *InlineFilter) Apply(ctx *strategy.Context, root *traversal.Traversal) error {
	ranking := ctx.Installed(strategy.FilterRankingID)
	return traversal.ApplyBottomUp(root, func(t *traversal.Traversal) error {
		if t.IsShortcut() {
			return nil
		}
		for {
			if err := strategy.RunToFixedPoint(func() int { return inlineMeasure(t) }, func() (bool, error) {
				return inlineOnce(t), nil
			}); err != nil {
				return err
			}
			if !ranking {
				return nil
			}

			ranked := false
			if err := strategy.RunToFixedPoint(func() int { return rankingMeasure(t) }, func() (bool, error) {
				changed := rankFilters(t)
				ranked = ranked || changed
				return changed, nil
			}); err != nil {
				return err
			}
			if !ranked {
				return nil
			}
		}
	})
}

// inlineMeasure counts the steps and has containers of the tree, both of
// which every inlining reduces.
func inlineMeasure(t *traversal.Traversal) int {
	total := 0
	_ = traversal.ApplyRecursively(t, func(child *traversal.Traversal) error {
		for _, s := range child.Steps() {
			total++
			if holder, ok := s.(traversal.HasContainerHolder); ok {
				total += len(holder.HasContainers())
			}
		}
		return nil
	})
	return total
}

func inlineOnce(t *traversal.Traversal) bool {
	for _, step := range traversal.StepsOf[traversal.FilterStep](t) {
		var changed bool
		switch s := step.(type) {
		case *traversal.HasStep:
			changed = inlineHasStep(t, s)
		case *traversal.TraversalFilterStep:
			changed = inlineTraversalFilter(t, s)
		case *traversal.OrStep:
			changed = inlineOrStep(t, s)
		case *traversal.AndStep:
			changed = inlineAndStep(t, s)
		}
		if changed {
			return true
		}
	}

	if t.IsRoot() {
		for _, match := range traversal.StepsOf[*traversal.MatchStep](t) {
			if inlineMatchStep(t, match) {
				return true
			}
		}
	}
	return false
}

func inlineHasStep(t *traversal.Traversal, step *traversal.HasStep) bool {
	switch previous := step.Previous().(type) {
	case *traversal.HasStep:
		for _, hc := range step.HasContainers() {
			previous.AddHasContainer(hc)
		}
		traversal.CopyLabels(step, previous, false)
		t.RemoveStep(step)
		return true

	case *traversal.VertexStep:
		if !previous.ReturnsEdge() || len(previous.EdgeLabels()) > 0 {
			return false
		}

		edgeLabels := foldEdgeLabels(step)
		if len(edgeLabels) == 0 {
			return false
		}

		replacement := traversal.NewVertexStep(false, previous.Direction(), edgeLabels...)
		traversal.CopyLabels(previous, replacement, false)
		t.ReplaceStep(previous, replacement)
		if len(step.HasContainers()) == 0 {
			traversal.CopyLabels(step, replacement, false)
			t.RemoveStep(step)
		}
		return true

	default:
		return false
	}
}

// foldEdgeLabels removes the label containers of the has step that can be
// expressed as edge labels, returning those labels.
func foldEdgeLabels(step *traversal.HasStep) []string {
	var edgeLabels []string
	for _, hc := range step.HasContainers() {
		if hc.Key != traversal.LabelKey {
			continue
		}

		p := hc.Predicate
		switch {
		case p.Biz() == predicate.Eq && len(edgeLabels) == 0:
			label, ok := p.Value().(string)
			if !ok {
				continue
			}
			edgeLabels = append(edgeLabels, label)
			step.RemoveHasContainer(hc)

		case p.Biz() == predicate.Within:
			labels, ok := slicez.TypedValues[string](p.Values())
			if !ok {
				continue
			}
			if len(edgeLabels) == 0 {
				edgeLabels = slicez.Unique(labels)
				step.RemoveHasContainer(hc)
				continue
			}
			// A within() holding every label already folded is implied.
			if slicez.ContainsAll(labels, edgeLabels) {
				step.RemoveHasContainer(hc)
			}

		case p.Biz() == predicate.Or && len(edgeLabels) == 0:
			var labels []string
			for _, child := range p.Predicates() {
				label, ok := child.Value().(string)
				if child.Biz() != predicate.Eq || !ok {
					labels = nil
					break
				}
				labels = append(labels, label)
			}
			if len(labels) > 0 {
				edgeLabels = slicez.Unique(labels)
				step.RemoveHasContainer(hc)
			}
		}
	}
	return edgeLabels
}

// isInlinableFilterTraversal returns true if the traversal consists only of
// filters that behave the same when inlined into their parent traversal.
func isInlinableFilterTraversal(child *traversal.Traversal) bool {
	if child.IsShortcut() {
		return false
	}
	for _, s := range child.Steps() {
		if _, ok := s.(traversal.FilterStep); !ok {
			return false
		}
		switch s.(type) {
		case *traversal.DropStep, *traversal.RangeGlobalStep, *traversal.DedupGlobalStep, traversal.LambdaHolder:
			return false
		}
	}
	return true
}

func inlineTraversalFilter(t *traversal.Traversal, step *traversal.TraversalFilterStep) bool {
	child := step.Child()
	if !isInlinableFilterTraversal(child) || child.IsEmpty() {
		return false
	}

	final := child.EndStep()
	t.InsertTraversal(step, child)
	traversal.CopyLabels(step, final, false)
	t.RemoveStep(step)
	return true
}

func inlineAndStep(t *traversal.Traversal, step *traversal.AndStep) bool {
	children := step.LocalChildren()
	if len(children) == 0 {
		return false
	}

	var final traversal.Step
	for _, child := range children {
		if !isInlinableFilterTraversal(child) {
			return false
		}
		if !child.IsEmpty() {
			final = child.EndStep()
		}
	}
	if final == nil {
		return false
	}

	var after traversal.Step = step
	for _, child := range children {
		after = t.InsertTraversal(after, child)
	}
	traversal.CopyLabels(step, final, false)
	t.RemoveStep(step)
	return true
}

func inlineOrStep(t *traversal.Traversal, step *traversal.OrStep) bool {
	children := step.LocalChildren()
	if len(children) == 0 {
		return false
	}

	var (
		key      string
		combined *predicate.P
		labels   []string
	)
	for _, child := range children {
		if child.IsShortcut() || child.IsEmpty() {
			return false
		}

		var childPredicate *predicate.P
		for _, childStep := range child.Steps() {
			has, ok := childStep.(*traversal.HasStep)
			if !ok || len(has.HasContainers()) == 0 {
				return false
			}
			for _, hc := range has.HasContainers() {
				if key == "" {
					key = hc.Key
				} else if hc.Key != key {
					return false
				}
				if childPredicate == nil {
					childPredicate = hc.Predicate
				} else {
					childPredicate = childPredicate.And(hc.Predicate)
				}
			}
			labels = append(labels, has.Labels()...)
		}

		if combined == nil {
			combined = childPredicate
		} else {
			combined = combined.Or(childPredicate)
		}
	}

	replacement := traversal.NewHasStep(&traversal.HasContainer{Key: key, Predicate: combined})
	traversal.CopyLabels(step, replacement, false)
	for _, label := range labels {
		replacement.AddLabel(label)
	}
	t.ReplaceStep(step, replacement)
	return true
}

func inlineMatchStep(t *traversal.Traversal, match *traversal.MatchStep) bool {
	if match.Previous() == nil {
		return false
	}

	startLabel := match.ComputedStartLabel()
	changed := false
	for _, pattern := range match.GlobalChildren() {
		start, ok := pattern.StartStep().(*traversal.MatchStartStep)
		if !ok || start.SelectKey() != startLabel || pattern.Len() < 3 {
			continue
		}

		onlyHas := true
		for _, s := range pattern.Steps() {
			switch s.(type) {
			case *traversal.HasStep, *traversal.MatchStartStep, *traversal.MatchEndStep:
			default:
				onlyHas = false
			}
		}
		if !onlyHas {
			continue
		}

		end, ok := pattern.EndStep().(*traversal.MatchEndStep)
		if !ok {
			continue
		}

		match.RemoveGlobalChild(pattern)
		pattern.RemoveStep(start)
		pattern.RemoveStep(end)

		last := pattern.EndStep()
		last.AddLabel(startLabel)
		if endLabel, ok := end.MatchKey(); ok {
			last.AddLabel(endLabel)
		}
		t.InsertTraversal(match.Previous(), pattern)
		changed = true
	}

	if len(match.GlobalChildren()) == 0 {
		t.RemoveStep(match)
	}
	return changed
}
