package optimization

import (
	"github.com/authzed/graphtraversal/pkg/genutil/mapz"
	"github.com/authzed/graphtraversal/pkg/strategy"
	"github.com/authzed/graphtraversal/pkg/traversal"
)

// MatchPredicate folds the filters following a match() into it, so that the
// match can evaluate them as soon as their labels are bound:
//
//	match(...).select("a").where("a", neq("b"))  -> match(..., where("a", neq("b"))).select("a")
//	match(...).dedup("a", "b")                   -> match(...)@dedup[a, b]
//
// Keyed dedups are only folded outside of graph computers. Folding stops at a
// where() without a start key.
type MatchPredicate struct {
	strategy.Base
}

func NewMatchPredicate() *MatchPredicate { return &MatchPredicate{} }

func (*MatchPredicate) ID() strategy.ID             { return strategy.MatchPredicateID }
func (*MatchPredicate) Category() strategy.Category { return strategy.Optimization }
func (*MatchPredicate) Prior() []strategy.ID        { return []strategy.ID{strategy.IdentityRemovalID} }
func (*MatchPredicate) Post() []strategy.ID         { return []strategy.ID{strategy.FilterRankingID} }

func (s *MatchPredicate) Configuration() strategy.Configuration {
	return strategy.ConfigurationFor(s.ID())
}

func (s *MatchPredicate) Apply(ctx *strategy.Context, root *traversal.Traversal) error {
	return traversal.ApplyRecursively(root, func(t *traversal.Traversal) error {
		for _, match := range traversal.StepsOf[*traversal.MatchStep](t) {
			if err := foldIntoMatch(ctx, t, match); err != nil {
				return err
			}
		}
		return nil
	})
}

func foldIntoMatch(ctx *strategy.Context, t *traversal.Traversal, match *traversal.MatchStep) error {
	next := match.Next()
	for next != nil {
		switch step := next.(type) {
		case *traversal.WherePredicateStep, *traversal.WhereTraversalStep:
			// Without a start key, a where() tests the current object, which
			// within the match is the match start rather than its output.
			if len(step.Labels()) > 0 || step.(interface{ StartKey() string }).StartKey() == "" {
				return nil
			}
			t.RemoveStep(step)
			if err := match.AddGlobalChild(traversal.New(step)); err != nil {
				return err
			}
			next = match.Next()

		case *traversal.DedupGlobalStep:
			keys := step.ScopeKeys()
			if len(keys) == 0 || step.By() != nil {
				return nil
			}
			if ctx.OnComputer() {
				next = passUnlabeled(step)
				continue
			}
			t.RemoveStep(step)
			match.SetDedupLabels(mapz.NewSet(keys...))
			next = match.Next()

		case *traversal.SelectStep:
			if len(step.LocalChildren()) > 0 {
				return nil
			}
			next = passUnlabeled(step)

		case *traversal.SelectOneStep:
			if step.By() != nil {
				return nil
			}
			next = passUnlabeled(step)

		default:
			return nil
		}
	}
	return nil
}

// passUnlabeled returns the step after an unlabeled step, or nil to stop.
func passUnlabeled(s traversal.Step) traversal.Step {
	if len(s.Labels()) > 0 {
		return nil
	}
	return s.Next()
}
