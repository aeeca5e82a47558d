package dsl

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/authzed/graphtraversal/pkg/predicate"
	"github.com/authzed/graphtraversal/pkg/structure"
	"github.com/authzed/graphtraversal/pkg/traversal"
)

func labeled[S traversal.Step](s S, labels ...string) S {
	for _, label := range labels {
		s.AddLabel(label)
	}
	return s
}

func TestBuild(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		name     string
		built    *Traversal
		expected func() *traversal.Traversal
	}{
		{
			"adjacency",
			V().Out("knows").As("a").In(),
			func() *traversal.Traversal {
				return traversal.New(
					traversal.NewGraphStep(true),
					labeled(traversal.NewVertexStep(true, structure.Out, "knows"), "a"),
					traversal.NewVertexStep(true, structure.In),
				)
			},
		},
		{
			"has and values",
			V(1).Has("age", predicate.GtP(30)).HasLabel("person").Values("name"),
			func() *traversal.Traversal {
				return traversal.New(
					traversal.NewGraphStep(true, 1),
					traversal.NewHasStep(&traversal.HasContainer{Key: "age", Predicate: predicate.GtP(30)}),
					traversal.NewHasStep(&traversal.HasContainer{Key: traversal.LabelKey, Predicate: predicate.EqP("person")}),
					traversal.NewPropertiesStep(true, "name"),
				)
			},
		},
		{
			"has ids",
			E().HasID(1, 2),
			func() *traversal.Traversal {
				return traversal.New(
					traversal.NewGraphStep(false),
					traversal.NewHasStep(&traversal.HasContainer{Key: traversal.IDKey, Predicate: predicate.WithinP(1, 2)}),
				)
			},
		},
		{
			"limit and skip",
			Inject(1, 2, 3).Skip(1).Limit(1),
			func() *traversal.Traversal {
				return traversal.New(
					traversal.NewInjectStep(1, 2, 3),
					traversal.NewRangeGlobalStep(1, -1),
					traversal.NewRangeGlobalStep(0, 1),
				)
			},
		},
		{
			"select one and many",
			V().As("a").Select("a").Select("a", "b"),
			func() *traversal.Traversal {
				return traversal.New(
					labeled(traversal.NewGraphStep(true), "a"),
					traversal.NewSelectOneStep(traversal.PopLast, "a"),
					traversal.NewSelectStep(traversal.PopLast, "a", "b"),
				)
			},
		},
		{
			"where traversal with scoped keys",
			V().As("a").Out().Where(Anon().As("a").Out().As("b")),
			func() *traversal.Traversal {
				return traversal.New(
					labeled(traversal.NewGraphStep(true), "a"),
					traversal.NewVertexStep(true, structure.Out),
					traversal.NewWhereTraversalStep("a", traversal.New(traversal.NewVertexStep(true, structure.Out)), "b"),
				)
			},
		},
		{
			"where traversal without scoped keys",
			V().Where(Anon().Out()),
			func() *traversal.Traversal {
				return traversal.New(
					traversal.NewGraphStep(true),
					traversal.NewTraversalFilterStep(traversal.New(traversal.NewVertexStep(true, structure.Out))),
				)
			},
		},
		{
			"where predicate",
			V().As("a").Out().Where(predicate.NeqP("a")),
			func() *traversal.Traversal {
				return traversal.New(
					labeled(traversal.NewGraphStep(true), "a"),
					traversal.NewVertexStep(true, structure.Out),
					traversal.NewWherePredicateStep("", predicate.NeqP("a")),
				)
			},
		},
		{
			"repeat times",
			V().Repeat(Anon().Out()).Times(2),
			func() *traversal.Traversal {
				repeat := traversal.NewRepeatStep()
				repeat.SetRepeatTraversal(traversal.New(traversal.NewVertexStep(true, structure.Out)))
				repeat.SetUntilTraversal(traversal.NewLoopTraversal(2))
				return traversal.New(traversal.NewGraphStep(true), repeat)
			},
		},
		{
			"emit and until before repeat",
			V().Emit().Until(Anon().HasLabel("x")).Repeat(Anon().Out()),
			func() *traversal.Traversal {
				repeat := traversal.NewRepeatStep()
				repeat.SetUntilTraversal(traversal.New(
					traversal.NewHasStep(&traversal.HasContainer{Key: traversal.LabelKey, Predicate: predicate.EqP("x")}),
				))
				repeat.SetEmitTraversal(traversal.NewIdentityTraversal())
				repeat.SetRepeatTraversal(traversal.New(traversal.NewVertexStep(true, structure.Out)))
				return traversal.New(traversal.NewGraphStep(true), repeat)
			},
		},
		{
			"order by",
			V().Order().ByOrder("age", traversal.Desc).By(structure.TID),
			func() *traversal.Traversal {
				order := traversal.NewOrderGlobalStep()
				require.NoError(t, order.ModulateByOrder(traversal.NewValueTraversal("age"), traversal.Desc))
				require.NoError(t, order.ModulateByOrder(traversal.NewTokenTraversal(structure.TID), traversal.Asc))
				return traversal.New(traversal.NewGraphStep(true), order)
			},
		},
		{
			"group by label and count",
			V().Group().By(structure.TLabel).By(Anon().Count()),
			func() *traversal.Traversal {
				group := traversal.NewGroupStep()
				require.NoError(t, group.ModulateBy(traversal.NewTokenTraversal(structure.TLabel)))
				require.NoError(t, group.ModulateBy(traversal.New(traversal.NewCountGlobalStep())))
				return traversal.New(traversal.NewGraphStep(true), group)
			},
		},
		{
			"infix and",
			V().Has("a", 1).And().Has("b", 2),
			func() *traversal.Traversal {
				return traversal.New(
					traversal.NewGraphStep(true),
					traversal.NewHasStep(&traversal.HasContainer{Key: "a", Predicate: predicate.EqP(1)}),
					traversal.NewAndStep(),
					traversal.NewHasStep(&traversal.HasContainer{Key: "b", Predicate: predicate.EqP(2)}),
				)
			},
		},
		{
			"branches",
			V().Union(Anon().Out(), Anon().In()).Coalesce(Anon().Values("x"), Anon().Constant("none")),
			func() *traversal.Traversal {
				return traversal.New(
					traversal.NewGraphStep(true),
					traversal.NewUnionStep(
						traversal.New(traversal.NewVertexStep(true, structure.Out)),
						traversal.New(traversal.NewVertexStep(true, structure.In)),
					),
					traversal.NewCoalesceStep(
						traversal.New(traversal.NewPropertiesStep(true, "x")),
						traversal.New(traversal.NewConstantStep("none")),
					),
				)
			},
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			built, err := tc.built.Build()
			require.NoError(t, err)
			if diff := cmp.Diff(tc.expected().String(), built.String()); diff != "" {
				t.Fatalf("unexpected traversal (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMatch(t *testing.T) {
	t.Parallel()

	built, err := V().Match(
		Anon().As("a").Out("knows").As("b"),
		Anon().As("b").Out("created").As("c"),
	).Select("c").Build()
	require.NoError(t, err)

	match, ok := built.Step(1).(*traversal.MatchStep)
	require.True(t, ok)
	require.Equal(t, "a", match.ComputedStartLabel())
	require.ElementsMatch(t, []string{"a", "b"}, match.MatchStartLabels().AsSlice())
}

func TestBuildErrors(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		name  string
		built *Traversal
	}{
		{"by without a step", Anon().By("name")},
		{"by on a step without modulators", V().Out().By("name")},
		{"unsupported modulator", V().Order().By(42)},
		{"select without keys", V().Select()},
		{"dangling until", V().Until(Anon().Out())},
		{"match pattern without start", V().Match(Anon().Out())},
		{"error in child", V().Local(Anon().Select())},
		{"unsupported where filter", V().Where("a")},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := tc.built.Build()
			require.Error(t, err)
			require.Panics(t, func() { tc.built.MustBuild() })
		})
	}
}
