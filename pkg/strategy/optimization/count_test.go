package optimization

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/authzed/graphtraversal/pkg/predicate"
	"github.com/authzed/graphtraversal/pkg/strategy"
	"github.com/authzed/graphtraversal/pkg/traversal"
)

func TestBoundFor(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		name     string
		p        *predicate.P
		expected countBound
	}{
		{"eq zero", predicate.EqP(0), countBound{high: 1, ok: true, emptiness: true}},
		{"eq", predicate.EqP(3), countBound{high: 4, ok: true}},
		{"neq", predicate.NeqP(3), countBound{high: 4, ok: true}},
		{"lt one", predicate.LtP(1), countBound{high: 1, ok: true, emptiness: true}},
		{"lt", predicate.LtP(3), countBound{high: 3, ok: true}},
		{"lte zero", predicate.LteP(0), countBound{high: 1, ok: true, emptiness: true}},
		{"gt zero", predicate.GtP(0), countBound{high: 1, ok: true, existence: true}},
		{"gte one", predicate.GteP(1), countBound{high: 1, ok: true, existence: true}},
		{"gte", predicate.GteP(4), countBound{high: 4, ok: true}},
		{"fractional", predicate.LtP(2.5), countBound{high: 3, ok: true}},
		{"within", predicate.WithinP(2, 5), countBound{high: 6, ok: true}},
		{"without", predicate.WithoutP(1, 3), countBound{high: 4, ok: true}},
		{"or takes the largest", predicate.OrP(predicate.LtP(2), predicate.GtP(5)), countBound{high: 6, ok: true}},
		{"and of emptiness", predicate.AndP(predicate.EqP(0), predicate.LtP(1)), countBound{high: 1, ok: true}},
		{"non-numeric", predicate.EqP("a"), countBound{}},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.expected, boundFor(tc.p))
		})
	}
}

func TestCount(t *testing.T) {
	t.Parallel()

	filter := func(steps ...traversal.Step) traversal.Step {
		return traversal.NewTraversalFilterStep(traversal.New(steps...))
	}
	not := func(steps ...traversal.Step) traversal.Step {
		return traversal.NewNotStep(traversal.New(steps...))
	}

	runRewriteCases(t, NewCount(), func() *strategy.Context { return standalone() }, []rewriteCase{
		{
			"bounded by the predicate",
			func() *traversal.Traversal { return traversal.New(v(), outE(), count(), is(predicate.LtP(3))) },
			func() *traversal.Traversal {
				return traversal.New(v(), outE(), rng(0, 3), count(), is(predicate.LtP(3)))
			},
		},
		{
			"emitted emptiness keeps the count",
			func() *traversal.Traversal { return traversal.New(v(), outE(), count(), is(predicate.EqP(0))) },
			func() *traversal.Traversal {
				return traversal.New(v(), outE(), rng(0, 1), count(), is(predicate.EqP(0)))
			},
		},
		{
			"within",
			func() *traversal.Traversal {
				return traversal.New(v(), outE(), count(), is(predicate.WithinP(2, 5)))
			},
			func() *traversal.Traversal {
				return traversal.New(v(), outE(), rng(0, 6), count(), is(predicate.WithinP(2, 5)))
			},
		},
		{
			"emptiness test",
			func() *traversal.Traversal { return traversal.New(v(), filter(outE(), count(), is(predicate.EqP(0)))) },
			func() *traversal.Traversal { return traversal.New(v(), not(outE())) },
		},
		{
			"existence test",
			func() *traversal.Traversal { return traversal.New(v(), filter(outE(), count(), is(predicate.GtP(0)))) },
			func() *traversal.Traversal { return traversal.New(v(), filter(outE())) },
		},
		{
			"negated emptiness test",
			func() *traversal.Traversal { return traversal.New(v(), not(outE(), count(), is(predicate.EqP(0)))) },
			func() *traversal.Traversal { return traversal.New(v(), filter(outE())) },
		},
		{
			"trivial existence test",
			func() *traversal.Traversal { return traversal.New(v(), filter(count(), is(predicate.GteP(1)))) },
			func() *traversal.Traversal { return traversal.New(v()) },
		},
		{
			"trivial existence test keeps labels",
			func() *traversal.Traversal {
				return traversal.New(v(), as(filter(count(), is(predicate.GteP(1))), "a"))
			},
			func() *traversal.Traversal { return traversal.New(as(v(), "a")) },
		},
		{
			"trivial emptiness test",
			func() *traversal.Traversal { return traversal.New(v(), filter(count(), is(predicate.EqP(0)))) },
			func() *traversal.Traversal {
				return traversal.New(v(), traversal.NewNotStep(traversal.NewIdentityTraversal()))
			},
		},
		{
			"emptiness within and",
			func() *traversal.Traversal {
				return traversal.New(v(), traversal.NewAndStep(
					traversal.New(outE(), count(), is(predicate.EqP(0))),
					traversal.New(has("a", predicate.EqP(1))),
				))
			},
			func() *traversal.Traversal {
				return traversal.New(v(), traversal.NewAndStep(
					traversal.New(not(outE())),
					traversal.New(has("a", predicate.EqP(1))),
				))
			},
		},
		{
			"filters before the count are negated with it",
			func() *traversal.Traversal {
				return traversal.New(v(), traversal.NewOrStep(
					traversal.New(out(), has("a", predicate.EqP(1)), count(), is(predicate.LtP(1))),
					traversal.New(has("b", predicate.EqP(2))),
				))
			},
			func() *traversal.Traversal {
				return traversal.New(v(), traversal.NewOrStep(
					traversal.New(not(out(), has("a", predicate.EqP(1)))),
					traversal.New(has("b", predicate.EqP(2))),
				))
			},
		},
		{
			"labeled filters are kept",
			func() *traversal.Traversal {
				return traversal.New(v(), as(filter(outE(), count(), is(predicate.EqP(0))), "x"))
			},
			func() *traversal.Traversal { return traversal.New(v(), as(not(outE()), "x")) },
		},
		unchanged("range before the count", func() *traversal.Traversal {
			return traversal.New(v(), outE(), rng(0, 10), count(), is(predicate.LtP(3)))
		}),
		unchanged("count without is", func() *traversal.Traversal {
			return traversal.New(v(), outE(), count())
		}),
		unchanged("count mapped by a labeled parent", func() *traversal.Traversal {
			return traversal.New(v(), as(traversal.NewLocalStep(traversal.New(outE(), count(), is(predicate.LtP(3)))), "x"))
		}),
	})
}
