package optimization

import (
	"github.com/authzed/graphtraversal/pkg/predicate"
	"github.com/authzed/graphtraversal/pkg/strategy"
	"github.com/authzed/graphtraversal/pkg/traversal"
)

// Count bounds the number of elements counted by a count().is(p) pair to
// what the predicate needs to decide, or drops the count entirely when the
// predicate only tests for emptiness:
//
//	outE().count().is(lt(3))             -> outE().range(0, 3).count().is(lt(3))
//	filter(outE().count().is(0))         -> not(outE())
//	filter(outE().count().is(gt(0)))     -> filter(outE())
//
// A range written right before the count is left alone. Where the count is
// itself emitted, the emitted value is the capped one: count().is(gt(7))
// over 30 elements emits 8, not 30.
type Count struct {
	strategy.Base
}

func NewCount() *Count { return &Count{} }

func (*Count) ID() strategy.ID             { return strategy.CountID }
func (*Count) Category() strategy.Category { return strategy.Optimization }

// Count runs ahead of the passes ranking and moving filters, as it turns
// where() steps into cheaper not() steps and adds ranges.
func (*Count) Post() []strategy.ID {
	return []strategy.ID{strategy.FilterRankingID, strategy.EarlyLimitID}
}

func (s *Count) Configuration() strategy.Configuration {
	return strategy.ConfigurationFor(s.ID())
}

var countRewrites = []strategy.StepRewrite{
	strategy.WrapRewrite(rewriteCount),
}

func (s *Count) Apply(ctx *strategy.Context, root *traversal.Traversal) error {
	_, err := strategy.ApplyRewrites(ctx, root, countRewrites)
	return err
}

// countBound is what the predicate of an is() step following a count needs.
type countBound struct {
	high int64
	ok   bool

	// emptiness is set when the predicate holds exactly for a count of zero.
	emptiness bool

	// existence is set when the predicate holds exactly for a count above zero.
	existence bool
}

// boundFor computes the smallest count above which the predicate result no
// longer changes. Scalar eq, neq, lte and gt need one more element than
// their operand; within and without need one more than their largest member.
func boundFor(p *predicate.P) countBound {
	predicates := []*predicate.P{p}
	if p.Biz().IsConnective() {
		predicates = p.Predicates()
	}

	var bound countBound
	for _, child := range predicates {
		var candidate int64
		switch {
		case child.Biz().IsCompare():
			ceiled, ok := predicate.Ceil(child.Value())
			if !ok {
				continue
			}
			candidate = ceiled
			switch child.Biz() {
			case predicate.Eq, predicate.Neq, predicate.Lte, predicate.Gt:
				candidate++
			}

		case child.Biz().IsContains():
			highest, ok := predicate.Max(child.Values())
			if !ok {
				continue
			}
			ceiled, ok := predicate.Ceil(highest)
			if !ok {
				continue
			}
			candidate = ceiled + 1

		default:
			continue
		}

		if bound.ok && candidate <= bound.high {
			continue
		}
		bound = countBound{high: candidate, ok: true}
		if p.Biz().IsConnective() || !child.Biz().IsCompare() {
			continue
		}

		switch child.Biz() {
		case predicate.Eq, predicate.Lt, predicate.Lte:
			bound.emptiness = candidate == 1
		case predicate.Gt, predicate.Gte:
			bound.existence = candidate == 1
		}
	}
	return bound
}

// countApplies returns true for a count directly followed by an is() step,
// unless a range precedes it or the count result matters to the parent.
func countApplies(count *traversal.CountGlobalStep) (*traversal.IsStep, bool) {
	is, ok := count.Next().(*traversal.IsStep)
	if !ok {
		return nil, false
	}
	if _, ok := count.Previous().(*traversal.RangeGlobalStep); ok {
		return nil, false
	}

	parent := traversal.ParentStepOf(count.Traversal())
	if parent == nil {
		return is, true
	}
	if _, isFilter := parent.(traversal.FilterStep); !isFilter && len(parent.Labels()) > 0 {
		return nil, false
	}
	if end, ok := parent.Next().(*traversal.MatchEndStep); ok {
		if _, hasKey := end.MatchKey(); hasKey {
			return nil, false
		}
	}
	return is, true
}

// testsExistence returns true if the traversal only decides whether its
// parent passes an input, so that the number of results it produces beyond
// the first does not matter.
func testsExistence(t *traversal.Traversal) bool {
	switch parent := t.Parent().(type) {
	case nil:
		return false
	case *traversal.RepeatStep:
		return t == parent.UntilTraversal() || t == parent.EmitTraversal()
	case *traversal.WhereTraversalStep:
		return parent.StartKey() == "" && parent.EndKey() == ""
	case *traversal.TraversalFilterStep, *traversal.NotStep, traversal.Connective, traversal.SideEffectStep:
		return true
	default:
		return false
	}
}

func rewriteCount(_ *strategy.Context, count *traversal.CountGlobalStep) (bool, error) {
	is, ok := countApplies(count)
	if !ok {
		return false, nil
	}

	bound := boundFor(is.Predicate())
	if !bound.ok {
		return false, nil
	}

	t := count.Traversal()
	final := len(count.Labels()) == 0 && len(is.Labels()) == 0 && is.Next() == nil && testsExistence(t)
	switch {
	case final && bound.emptiness:
		prev := count.Previous()
		t.RemoveStep(is)
		t.RemoveStep(count)
		negateChild(t, prev)
	case final && bound.existence:
		t.RemoveStep(is)
		t.RemoveStep(count)
		if t.IsEmpty() {
			dismissChild(t)
		}
	default:
		t.InsertBefore(traversal.NewRangeGlobalStep(0, bound.high), count)
	}
	return true, nil
}

// negateChild turns the remaining steps of an existence-testing traversal
// into a test for their absence.
func negateChild(t *traversal.Traversal, prev traversal.Step) {
	parent := t.Parent()
	switch parent.(type) {
	case *traversal.TraversalFilterStep, *traversal.WhereTraversalStep:
		replaceParent(parent, traversal.NewNotStep(childOrIdentity(t)))
		return
	case *traversal.NotStep:
		replaceParent(parent, traversal.NewTraversalFilterStep(childOrIdentity(t)))
		return
	}

	if prev == nil {
		t.AddStep(traversal.NewNotStep(traversal.NewIdentityTraversal()))
		return
	}

	// Pull the filters and side effects before the count into the negated
	// traversal, along with the first step producing what they filter.
	start := prev
	for {
		pp := start.Previous()
		if pp == nil {
			break
		}
		if _, ok := pp.(*traversal.GraphStep); ok {
			break
		}
		_, isFilter := start.(traversal.FilterStep)
		_, isSideEffect := start.(traversal.SideEffectStep)
		if !isFilter && !isSideEffect {
			break
		}
		start = pp
	}

	index := start.Traversal().IndexOf(start)
	inner := traversal.New()
	traversal.RemoveToTraversal(start, prev.Next(), inner)
	t.InsertStep(index, traversal.NewNotStep(inner))
}

// dismissChild handles an existence-testing traversal left without steps,
// which passes every input.
func dismissChild(t *traversal.Traversal) {
	switch parent := t.Parent().(type) {
	case *traversal.RepeatStep:
		_ = traversal.ReplaceLocalChild(parent, t, traversal.NewIdentityTraversal())
	case *traversal.AndStep:
		if len(parent.LocalChildren()) > 1 {
			_ = parent.RemoveLocalChild(t)
			return
		}
		dismissParent(parent)
	case *traversal.NotStep:
		replaceParent(parent, traversal.NewNoneStep())
	default:
		dismissParent(parent)
	}
}

// dismissParent removes a parent that passes every input, as IdentityRemoval
// would once it is replaced by an identity.
func dismissParent(parent traversal.TraversalParent) {
	identity := traversal.NewIdentityStep()
	replaceParent(parent, identity)
	if t := identity.Traversal(); t.Len() > 1 {
		removeIdentity(t, identity)
	}
}

func childOrIdentity(t *traversal.Traversal) *traversal.Traversal {
	if t.IsEmpty() {
		return traversal.NewIdentityTraversal()
	}
	return t
}

func replaceParent(parent traversal.TraversalParent, replacement traversal.Step) {
	traversal.CopyLabels(parent, replacement, false)
	parent.Traversal().ReplaceStep(parent, replacement)
}
