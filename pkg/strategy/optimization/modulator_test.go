package optimization

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/authzed/graphtraversal/pkg/strategy"
	"github.com/authzed/graphtraversal/pkg/structure"
	"github.com/authzed/graphtraversal/pkg/traversal"
)

// by adds the modulators to the step in order.
func by[S traversal.ByModulating](s S, modulators ...*traversal.Traversal) S {
	for _, m := range modulators {
		if err := s.ModulateBy(m); err != nil {
			panic(err)
		}
	}
	return s
}

func bypassed(key string) *traversal.Traversal {
	value := traversal.NewValueTraversal(key)
	value.SetBypass(traversal.New(traversal.NewCoalesceStep(
		traversal.NewValueTraversal(key),
		traversal.NewConstantTraversal(nil),
	)))
	return value
}

func TestByModulatorOptimization(t *testing.T) {
	t.Parallel()

	runRewriteCases(t, NewByModulatorOptimization(), func() *strategy.Context { return standalone() }, []rewriteCase{
		{
			"property values",
			func() *traversal.Traversal {
				return traversal.New(v(), by(traversal.NewOrderGlobalStep(), traversal.New(values("name"))))
			},
			func() *traversal.Traversal {
				return traversal.New(v(), by(traversal.NewOrderGlobalStep(), traversal.NewValueTraversal("name")))
			},
		},
		{
			"group key and folded value",
			func() *traversal.Traversal {
				group := by(traversal.NewGroupStep(),
					traversal.New(traversal.NewLabelStep()),
					traversal.New(values("age"), traversal.NewFoldStep()),
				)
				return traversal.New(v(), group)
			},
			func() *traversal.Traversal {
				group := by(traversal.NewGroupStep(),
					traversal.NewTokenTraversal(structure.TLabel),
					traversal.NewValueTraversal("age"),
				)
				return traversal.New(v(), group)
			},
		},
		{
			"ids",
			func() *traversal.Traversal {
				return traversal.New(v(), by(traversal.NewDedupGlobalStep(), traversal.New(id())))
			},
			func() *traversal.Traversal {
				return traversal.New(v(), by(traversal.NewDedupGlobalStep(), traversal.NewTokenTraversal(structure.TID)))
			},
		},
		{
			"identity",
			func() *traversal.Traversal {
				return traversal.New(v(), by(traversal.NewDedupGlobalStep(), traversal.New(traversal.NewIdentityStep())))
			},
			func() *traversal.Traversal {
				return traversal.New(v(), by(traversal.NewDedupGlobalStep(), traversal.NewIdentityTraversal()))
			},
		},
		{
			"nested modulators",
			func() *traversal.Traversal {
				inner := by(traversal.NewOrderGlobalStep(), traversal.New(traversal.NewLabelStep()))
				return traversal.New(v(), traversal.NewLocalStep(traversal.New(out(), inner)))
			},
			func() *traversal.Traversal {
				inner := by(traversal.NewOrderGlobalStep(), traversal.NewTokenTraversal(structure.TLabel))
				return traversal.New(v(), traversal.NewLocalStep(traversal.New(out(), inner)))
			},
		},
		unchanged("default group value", func() *traversal.Traversal {
			return traversal.New(v(), by(traversal.NewGroupStep(), traversal.NewTokenTraversal(structure.TLabel)))
		}),
		unchanged("multiple steps", func() *traversal.Traversal {
			return traversal.New(v(), by(traversal.NewOrderGlobalStep(), traversal.New(out(), values("name"))))
		}),
		unchanged("not a simple step", func() *traversal.Traversal {
			return traversal.New(v(), by(traversal.NewOrderGlobalStep(), traversal.New(out())))
		}),
		unchanged("several keys", func() *traversal.Traversal {
			return traversal.New(v(), by(traversal.NewOrderGlobalStep(), traversal.New(values("name", "age"))))
		}),
		unchanged("labeled steps", func() *traversal.Traversal {
			return traversal.New(v(), by(traversal.NewOrderGlobalStep(), traversal.New(as(values("name"), "a"))))
		}),
	})
}

func TestProductiveBy(t *testing.T) {
	t.Parallel()

	runRewriteCases(t, NewProductiveBy(), func() *strategy.Context { return standalone() }, []rewriteCase{
		{
			"traversals fall back to nil",
			func() *traversal.Traversal {
				return traversal.New(v(), by(traversal.NewOrderGlobalStep(), traversal.New(out(), values("name"))))
			},
			func() *traversal.Traversal {
				coalesce := traversal.NewCoalesceStep(traversal.New(out(), values("name")), traversal.NewConstantTraversal(nil))
				return traversal.New(v(), by(traversal.NewOrderGlobalStep(), traversal.New(coalesce)))
			},
		},
		{
			"value traversals are bypassed",
			func() *traversal.Traversal {
				return traversal.New(v(), by(traversal.NewOrderGlobalStep(), traversal.NewValueTraversal("name")))
			},
			func() *traversal.Traversal {
				return traversal.New(v(), by(traversal.NewOrderGlobalStep(), bypassed("name")))
			},
		},
		unchanged("reducing modulators", func() *traversal.Traversal {
			return traversal.New(v(), by(traversal.NewOrderGlobalStep(), traversal.New(out(), count())))
		}),
		unchanged("tokens", func() *traversal.Traversal {
			return traversal.New(v(), by(traversal.NewDedupGlobalStep(), traversal.NewTokenTraversal(structure.TID)))
		}),
		unchanged("default group value", func() *traversal.Traversal {
			return traversal.New(v(), by(traversal.NewGroupStep(), traversal.NewTokenTraversal(structure.TLabel)))
		}),
	})

	runRewriteCases(t, NewProductiveBy("name"), func() *strategy.Context { return standalone() }, []rewriteCase{
		unchanged("productive keys", func() *traversal.Traversal {
			return traversal.New(v(), by(traversal.NewOrderGlobalStep(), traversal.NewValueTraversal("name")))
		}),
		{
			"other keys",
			func() *traversal.Traversal {
				return traversal.New(v(), by(traversal.NewOrderGlobalStep(), traversal.NewValueTraversal("age")))
			},
			func() *traversal.Traversal {
				return traversal.New(v(), by(traversal.NewOrderGlobalStep(), bypassed("age")))
			},
		},
	})
}

func TestProductiveByConfiguration(t *testing.T) {
	t.Parallel()

	config := NewProductiveBy("name", "age").Configuration()
	require.Equal(t, strategy.ProductiveByID, config.Strategy)

	restored, err := ProductiveByFromConfiguration(config)
	require.NoError(t, err)
	require.Equal(t, []string{"name", "age"}, restored.(*ProductiveBy).ProductiveKeys())

	_, err = ProductiveByFromConfiguration(strategy.ConfigurationFor(strategy.ProductiveByID).With(productiveKeysSetting, 3))
	require.Error(t, err)
}

func TestPathRetraction(t *testing.T) {
	t.Parallel()

	keepLabels := func(p traversal.PathProcessor) []string {
		require.NotNil(t, p.KeepLabels())
		return p.KeepLabels().AsSlice()
	}

	t.Run("unreferenced labels are dropped", func(t *testing.T) {
		t.Parallel()

		sel := traversal.NewSelectOneStep(traversal.PopLast, "a")
		root := traversal.New(as(v(), "a"), as(out(), "b"), sel)
		require.NoError(t, NewPathRetraction(2500).Apply(standalone(), root))
		require.Empty(t, keepLabels(sel))
	})

	t.Run("later references are kept", func(t *testing.T) {
		t.Parallel()

		first := traversal.NewSelectStep(traversal.PopLast, "a")
		second := traversal.NewSelectStep(traversal.PopLast, "b")
		root := traversal.New(as(v(), "a"), as(out(), "b"), first, out(), second)
		require.NoError(t, NewPathRetraction(2500).Apply(standalone(), root))
		require.ElementsMatch(t, []string{"b"}, keepLabels(first))
		require.Empty(t, keepLabels(second))
		require.Equal(t, 5, root.Len())
	})

	t.Run("barriers follow processors", func(t *testing.T) {
		t.Parallel()

		first := traversal.NewSelectStep(traversal.PopLast, "a")
		second := traversal.NewSelectStep(traversal.PopLast, "b")
		root := traversal.New(as(v(), "a"), as(out(), "b"), first, out(), second)
		s := NewPathRetraction(2500)
		require.NoError(t, s.Apply(standalone(strategy.LazyBarrierID), root))

		expected := traversal.New(
			as(v(), "a"), as(out(), "b"),
			traversal.NewSelectStep(traversal.PopLast, "a"), barrier(), out(),
			traversal.NewSelectStep(traversal.PopLast, "b"),
		)
		require.Equal(t, expected.String(), root.String())

		require.NoError(t, s.Apply(standalone(strategy.LazyBarrierID), root))
		require.Equal(t, expected.String(), root.String())
	})

	t.Run("labels used by enclosing traversals are kept", func(t *testing.T) {
		t.Parallel()

		inner := traversal.NewSelectOneStep(traversal.PopLast, "a")
		root := traversal.New(
			as(v(), "a"),
			traversal.NewLocalStep(traversal.New(as(out(), "b"), inner)),
			traversal.NewSelectOneStep(traversal.PopLast, "b"),
		)
		require.NoError(t, NewPathRetraction(2500).Apply(standalone(), root))
		require.Contains(t, keepLabels(inner), "b")
	})

	t.Run("lambdas disable retraction", func(t *testing.T) {
		t.Parallel()

		sel := traversal.NewSelectOneStep(traversal.PopLast, "a")
		root := traversal.New(as(v(), "a"), sel, traversal.NewLambdaMapStep("f", nil))
		ctx := standalone()
		require.NoError(t, NewPathRetraction(2500).Apply(ctx, root))
		require.Nil(t, sel.KeepLabels())
		require.False(t, ctx.Marked(root, retractionSkipped))
	})

	t.Run("full paths disable retraction", func(t *testing.T) {
		t.Parallel()

		sel := traversal.NewSelectOneStep(traversal.PopLast, "a")
		root := traversal.New(as(v(), "a"), sel, traversal.NewPathStep())
		require.NoError(t, NewPathRetraction(2500).Apply(standalone(), root))
		require.Nil(t, sel.KeepLabels())
	})
}
