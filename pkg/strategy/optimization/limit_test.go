package optimization

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/authzed/graphtraversal/pkg/strategy"
	"github.com/authzed/graphtraversal/pkg/traversal"
)

func TestEarlyLimit(t *testing.T) {
	t.Parallel()

	none := func() traversal.Step { return traversal.NewNoneStep() }

	runRewriteCases(t, NewEarlyLimit(), func() *strategy.Context { return standalone() }, []rewriteCase{
		{
			"ahead of maps",
			func() *traversal.Traversal { return traversal.New(v(), out(), id(), rng(0, 5)) },
			func() *traversal.Traversal { return traversal.New(v(), out(), rng(0, 5), id()) },
		},
		{
			"range labels stay in place",
			func() *traversal.Traversal { return traversal.New(v(), out(), id(), as(rng(0, 5), "a")) },
			func() *traversal.Traversal { return traversal.New(v(), out(), rng(0, 5), as(id(), "a")) },
		},
		{
			"merged ranges",
			func() *traversal.Traversal { return traversal.New(v(), rng(2, 10), id(), rng(1, 3)) },
			func() *traversal.Traversal { return traversal.New(v(), rng(3, 5), id()) },
		},
		{
			"adjacent ranges",
			func() *traversal.Traversal { return traversal.New(v(), out(), rng(2, 10), as(rng(1, 3), "a")) },
			func() *traversal.Traversal { return traversal.New(v(), out(), as(rng(3, 5), "a")) },
		},
		{
			"merged unbounded ranges",
			func() *traversal.Traversal { return traversal.New(v(), rng(2, -1), id(), rng(1, -1)) },
			func() *traversal.Traversal { return traversal.New(v(), rng(3, -1), id()) },
		},
		{
			"disjoint ranges",
			func() *traversal.Traversal { return traversal.New(v(), rng(0, 2), id(), rng(5, 10), out()) },
			func() *traversal.Traversal { return traversal.New(v(), none()) },
		},
		{
			"caps survive disjoint ranges",
			func() *traversal.Traversal {
				return traversal.New(v(), rng(0, 2), id(), rng(5, 10), traversal.NewSideEffectCapStep("x"))
			},
			func() *traversal.Traversal {
				return traversal.New(v(), none(), traversal.NewSideEffectCapStep("x"))
			},
		},
		{
			"side effects are not skipped",
			func() *traversal.Traversal {
				return traversal.New(v(), out(), traversal.NewAggregateGlobalStep("x"), id(), rng(0, 5))
			},
			func() *traversal.Traversal {
				return traversal.New(v(), out(), traversal.NewAggregateGlobalStep("x"), rng(0, 5), id())
			},
		},
		unchanged("after a flat map", func() *traversal.Traversal {
			return traversal.New(v(), out(), rng(0, 5))
		}),
		unchanged("labeled ranges are not merged", func() *traversal.Traversal {
			return traversal.New(v(), as(rng(2, 10), "a"), rng(1, 3))
		}),
	})
}

func TestMergeRanges(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		name         string
		outer, inner [2]int64
		expected     string
	}{
		{"nested", [2]int64{2, 10}, [2]int64{1, 3}, "RangeGlobalStep(3,5)"},
		{"inner past outer", [2]int64{0, 5}, [2]int64{2, 10}, "RangeGlobalStep(2,5)"},
		{"unbounded outer", [2]int64{2, -1}, [2]int64{1, 3}, "RangeGlobalStep(3,5)"},
		{"unbounded inner", [2]int64{2, 10}, [2]int64{1, -1}, "RangeGlobalStep(3,10)"},
		{"both unbounded", [2]int64{2, -1}, [2]int64{1, -1}, "RangeGlobalStep(3,-1)"},
		{"empty", [2]int64{0, 2}, [2]int64{5, 10}, "NoneStep"},
		{"empty with unbounded inner", [2]int64{0, 2}, [2]int64{2, -1}, "NoneStep"},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			outer := traversal.NewRangeGlobalStep(tc.outer[0], tc.outer[1])
			inner := traversal.NewRangeGlobalStep(tc.inner[0], tc.inner[1])
			require.Equal(t, tc.expected, mergeRanges(outer, inner).String())
		})
	}
}

func TestOrderLimit(t *testing.T) {
	t.Parallel()

	build := func(between ...traversal.Step) (*traversal.Traversal, *traversal.OrderGlobalStep) {
		order := traversal.NewOrderGlobalStep()
		steps := append([]traversal.Step{v(), order}, between...)
		return traversal.New(append(steps, rng(0, 10))...), order
	}

	t.Run("on computer", func(t *testing.T) {
		t.Parallel()

		root, order := build(id(), traversal.NewLabelStep())
		require.NoError(t, NewOrderLimit().Apply(onComputer(), root))
		require.Equal(t, int64(10), order.Limit())
	})

	t.Run("standalone", func(t *testing.T) {
		t.Parallel()

		root, order := build()
		require.NoError(t, NewOrderLimit().Apply(standalone(), root))
		require.Equal(t, int64(-1), order.Limit())
	})

	t.Run("past a flat map", func(t *testing.T) {
		t.Parallel()

		root, order := build(out())
		require.NoError(t, NewOrderLimit().Apply(onComputer(), root))
		require.Equal(t, int64(-1), order.Limit())
	})
}
