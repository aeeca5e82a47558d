package evaluator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/authzed/graphtraversal/internal/dsl"
	"github.com/authzed/graphtraversal/internal/graphstore"
	"github.com/authzed/graphtraversal/pkg/predicate"
	"github.com/authzed/graphtraversal/pkg/structure"
	"github.com/authzed/graphtraversal/pkg/testutil"
	"github.com/authzed/graphtraversal/pkg/traversal"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, testutil.GoLeakIgnores()...)
}

func modern(t testing.TB) *graphstore.Graph {
	g, err := graphstore.NewModern()
	require.NoError(t, err)
	return g
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	g := modern(t)
	tcs := []struct {
		name      string
		traversal *dsl.Traversal
		expected  []any
	}{
		{"count vertices", dsl.V().Count(), []any{int64(6)}},
		{"count edges", dsl.E().Count(), []any{int64(6)}},
		{"count nothing", dsl.V().HasLabel("robot").Count(), []any{int64(0)}},
		{"out", dsl.V(1).Out().Values("name"), []any{"vadas", "josh", "lop"}},
		{"out by label", dsl.V(1).Out("knows").Values("name"), []any{"vadas", "josh"}},
		{"in", dsl.V(3).In("created").Values("name"), []any{"marko", "josh", "peter"}},
		{"both", dsl.V(4).Both().Values("name"), []any{"marko", "ripple", "lop"}},
		{"incident", dsl.V(1).OutE("knows").InV().Values("name"), []any{"vadas", "josh"}},
		{"other vertex", dsl.V(1).OutE("knows").OtherV().Values("name"), []any{"vadas", "josh"}},
		{"edge vertices", dsl.E(7).BothV().Values("name"), []any{"marko", "vadas"}},
		{"has", dsl.V().Has("age", predicate.GtP(30)).Values("name"), []any{"josh", "peter"}},
		{"has label", dsl.V().HasLabel("software").Values("name"), []any{"lop", "ripple"}},
		{"has id", dsl.V().HasID(2, 5).Values("name"), []any{"vadas", "ripple"}},
		{"is", dsl.V().Values("age").Is(predicate.LteP(29)), []any{29, 27}},
		{"id", dsl.V().HasLabel("software").ID(), []any{3, 5}},
		{"label", dsl.V(1).OutE().Label(), []any{"knows", "knows", "created"}},
		{"properties", dsl.V(3).Properties().Key(), []any{"lang", "name"}},
		{"property values", dsl.V(3).Properties("name").Value(), []any{"lop"}},
		{"constant", dsl.V(1, 2).Constant("x"), []any{"x", "x"}},
		{"inject", dsl.Inject(1, 2).Is(2), []any{2}},
		{"range", dsl.V().Range(1, 3).ID(), []any{2, 3}},
		{"skip", dsl.V().Skip(4).ID(), []any{5, 6}},
		{"dedup", dsl.V().Both().Dedup().Count(), []any{int64(6)}},
		{"no dedup", dsl.V().Both().Count(), []any{int64(12)}},
		{
			"dedup by label",
			dsl.V().As("a").Out().As("b").Dedup("a").Select("a").Values("name"),
			[]any{"marko", "josh", "peter"},
		},
		{"simple path", dsl.V(1).Both().Both().SimplePath().Count(), []any{int64(4)}},
		{"cyclic path", dsl.V(1).Both().Both().CyclicPath().Count(), []any{int64(3)}},
		{
			"path by",
			dsl.V(1).Out("knows").Path().By("name"),
			[]any{[]any{"marko", "vadas"}, []any{"marko", "josh"}},
		},
		{"where predicate", dsl.V(1).As("a").Out("created").In("created").Where(predicate.NeqP("a")).Values("name"), []any{"josh", "peter"}},
		{
			"where start key",
			dsl.V().As("a").Out("created").Where(dsl.Anon().As("a").Values("name").Is("josh")).Values("name"),
			[]any{"ripple", "lop"},
		},
		{
			"where end key",
			dsl.V().As("a").Out("knows").Out("created").Where(dsl.Anon().In("created").As("a")).Values("name"),
			[]any{"lop"},
		},
		{"filter", dsl.V().Filter(dsl.Anon().Out("knows")).Values("name"), []any{"marko"}},
		{"not", dsl.V().HasLabel("person").Not(dsl.Anon().Out()).Values("name"), []any{"vadas"}},
		{"and", dsl.V().And(dsl.Anon().Out("knows"), dsl.Anon().Out("created")).Values("name"), []any{"marko"}},
		{"or", dsl.V().Or(dsl.Anon().Out("knows"), dsl.Anon().In("created")).Values("name"), []any{"marko", "lop", "ripple"}},
		{"map", dsl.V(1).Map(dsl.Anon().Out("knows").Values("name")), []any{"vadas"}},
		{"local", dsl.V(1, 4).Local(dsl.Anon().Out().Count()), []any{int64(3), int64(2)}},
		{"optional", dsl.V(2, 4).Optional(dsl.Anon().Out("created")).Values("name"), []any{"vadas", "ripple", "lop"}},
		{"union", dsl.V(4).Union(dsl.Anon().In(), dsl.Anon().Out()).Values("name"), []any{"marko", "ripple", "lop"}},
		{
			"coalesce",
			dsl.V(1, 2).Coalesce(dsl.Anon().Out("created").Values("name"), dsl.Anon().Constant("none")),
			[]any{"lop", "none"},
		},
		{"repeat times", dsl.V(1).Repeat(dsl.Anon().Out()).Times(2).Values("name"), []any{"ripple", "lop"}},
		{
			"repeat emit",
			dsl.V(1).Repeat(dsl.Anon().Out()).Emit().Values("name"),
			[]any{"vadas", "josh", "lop", "ripple", "lop"},
		},
		{
			"emit first",
			dsl.V(1).Emit().Repeat(dsl.Anon().Out()).Times(2).Values("name"),
			[]any{"marko", "vadas", "josh", "lop", "ripple", "lop"},
		},
		{
			"repeat until",
			dsl.V(1).Repeat(dsl.Anon().Out()).Until(dsl.Anon().HasLabel("software")).Values("name"),
			[]any{"lop", "ripple", "lop"},
		},
		{"until first", dsl.V(1).Times(0).Repeat(dsl.Anon().Out()).Values("name"), []any{"marko"}},
		{
			"match",
			dsl.V().Match(
				dsl.Anon().As("a").Out("knows").As("b"),
				dsl.Anon().As("b").Out("created").As("c"),
			).Select("c").Values("name"),
			[]any{"ripple", "lop"},
		},
		{
			"select",
			dsl.V(1).As("a").Out("knows").As("b").Select("a", "b").By("name"),
			[]any{map[string]any{"a": "marko", "b": "vadas"}, map[string]any{"a": "marko", "b": "josh"}},
		},
		{
			"project",
			dsl.V(1).Project("name", "n").By("name").By(dsl.Anon().Out().Count()),
			[]any{map[string]any{"name": "marko", "n": int64(3)}},
		},
		{"fold", dsl.V(1).Out("knows").Values("name").Fold(), []any{[]any{"vadas", "josh"}}},
		{
			"group count",
			dsl.V().GroupCount().By(structure.TLabel),
			[]any{map[any]int64{"person": 4, "software": 2}},
		},
		{
			"group",
			dsl.V().Group().By(structure.TLabel).By("name"),
			[]any{map[any]any{
				"person":   []any{"marko", "vadas", "josh", "peter"},
				"software": []any{"lop", "ripple"},
			}},
		},
		{
			"group count values",
			dsl.V().Group().By(structure.TLabel).By(dsl.Anon().Count()),
			[]any{map[any]any{"person": int64(4), "software": int64(2)}},
		},
		{
			"aggregate",
			dsl.V().Values("name").Aggregate("x").Cap("x"),
			[]any{[]any{"marko", "vadas", "lop", "josh", "ripple", "peter"}},
		},
		{"barrier", dsl.V().Out().Barrier(2).Count(), []any{int64(6)}},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			values, err := New(g).Evaluate(context.Background(), tc.traversal.MustBuild())
			require.NoError(t, err)
			require.ElementsMatch(t, tc.expected, values)
		})
	}
}

func TestOrder(t *testing.T) {
	t.Parallel()

	g := modern(t)
	tcs := []struct {
		name      string
		traversal *dsl.Traversal
		expected  []any
	}{
		{"natural", dsl.V().Values("age").Order(), []any{27, 29, 32, 35}},
		{"descending", dsl.V().Values("age").Order().ByOrder(nil, traversal.Desc), []any{35, 32, 29, 27}},
		{"by property", dsl.V().Order().By("name").Values("name"), []any{"josh", "lop", "marko", "peter", "ripple", "vadas"}},
		{"drops unproductive", dsl.V().Order().By("age").Values("name"), []any{"vadas", "marko", "josh", "peter"}},
		{
			"several comparators",
			dsl.V().Order().By(structure.TLabel).ByOrder("name", traversal.Desc).Values("name"),
			[]any{"vadas", "peter", "marko", "josh", "ripple", "lop"},
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			values, err := New(g).Evaluate(context.Background(), tc.traversal.MustBuild())
			require.NoError(t, err)
			require.Equal(t, tc.expected, values)
		})
	}
}

func TestOrderLimit(t *testing.T) {
	t.Parallel()

	built := dsl.V().Values("age").Order().ByOrder(nil, traversal.Desc).MustBuild()
	built.EndStep().(*traversal.OrderGlobalStep).SetLimit(2)

	values, err := New(modern(t)).Evaluate(context.Background(), built)
	require.NoError(t, err)
	require.Equal(t, []any{35, 32}, values)
}

func TestBulk(t *testing.T) {
	t.Parallel()

	result, err := New(modern(t)).Execute(context.Background(), dsl.Inject(1, 1, 1, 2).Barrier(10).MustBuild())
	require.NoError(t, err)
	require.Len(t, result.Traversers(), 2)
	require.Equal(t, int64(3), result.Traversers()[0].Bulk())
	require.Equal(t, []any{1, 1, 1, 2}, result.Values())

	values, err := New(modern(t)).Evaluate(context.Background(), dsl.Inject(1, 1, 1, 2).Barrier(10).Range(1, 3).MustBuild())
	require.NoError(t, err)
	require.Equal(t, []any{1, 1}, values)
}

func TestSideEffects(t *testing.T) {
	t.Parallel()

	result, err := New(modern(t)).Execute(context.Background(), dsl.V(1).Out().Aggregate("x").Values("name").MustBuild())
	require.NoError(t, err)
	require.ElementsMatch(t, []any{"vadas", "josh", "lop"}, result.Values())

	aggregated, ok := result.SideEffects().Get("x")
	require.True(t, ok)
	require.Len(t, aggregated, 3)
}

func TestProfile(t *testing.T) {
	t.Parallel()

	result, err := New(modern(t)).Execute(context.Background(), dsl.V().Out().Profile().MustBuild())
	require.NoError(t, err)
	require.Len(t, result.Values(), 6)

	recorded, ok := result.SideEffects().Get(traversal.ProfileKey)
	require.True(t, ok)

	metrics := recorded.([]StepMetrics)
	require.Len(t, metrics, 3)
	require.Equal(t, 6, metrics[0].Traversers)
	require.Equal(t, int64(6), metrics[1].Count)
	require.Contains(t, metrics[1].Step, "VertexStep")
}

func TestLambdas(t *testing.T) {
	t.Parallel()

	var seen []any
	built := dsl.V().
		FilterFunc("adults", func(t *traversal.Traverser) (bool, error) {
			age, ok := t.Get().(structure.Vertex).Property("age")
			return ok && age.(int) >= 30, nil
		}).
		MapFunc("name", func(t *traversal.Traverser) (any, error) {
			name, _ := t.Get().(structure.Vertex).Property("name")
			return name, nil
		}).
		SideEffectFunc("record", func(t *traversal.Traverser) error {
			seen = append(seen, t.Get())
			return nil
		}).
		FlatMapFunc("twice", func(t *traversal.Traverser) ([]any, error) {
			return []any{t.Get(), t.Get()}, nil
		}).
		MustBuild()

	values, err := New(modern(t)).Evaluate(context.Background(), built)
	require.NoError(t, err)
	require.Equal(t, []any{"josh", "josh", "peter", "peter"}, values)
	require.Equal(t, []any{"josh", "peter"}, seen)

	failing := dsl.V().FilterFunc("fails", func(*traversal.Traverser) (bool, error) {
		return false, errors.New("boom")
	}).MustBuild()
	_, err = New(modern(t)).Evaluate(context.Background(), failing)
	require.ErrorContains(t, err, "boom")
}

func TestDrop(t *testing.T) {
	t.Parallel()

	g := modern(t)
	e := New(g)

	values, err := e.Evaluate(context.Background(), dsl.V(1).Drop().MustBuild())
	require.NoError(t, err)
	require.Empty(t, values)

	values, err = e.Evaluate(context.Background(), dsl.V().Count().MustBuild())
	require.NoError(t, err)
	require.Equal(t, []any{int64(5)}, values)

	values, err = e.Evaluate(context.Background(), dsl.E().Count().MustBuild())
	require.NoError(t, err)
	require.Equal(t, []any{int64(3)}, values)
}

func TestEvaluateErrors(t *testing.T) {
	t.Parallel()

	g := modern(t)

	t.Run("max loops", func(t *testing.T) {
		t.Parallel()

		_, err := New(g, WithMaxLoops(3)).Evaluate(context.Background(), dsl.V(1).Repeat(dsl.Anon().Both()).MustBuild())
		require.ErrorIs(t, err, ErrMaxLoops)
	})

	t.Run("infix connective", func(t *testing.T) {
		t.Parallel()

		_, err := New(g).Evaluate(context.Background(), dsl.V().Has("age", 29).And().Has("name", "marko").MustBuild())
		require.ErrorIs(t, err, errInfixConnective)
	})

	t.Run("child traversal", func(t *testing.T) {
		t.Parallel()

		built := dsl.V().Local(dsl.Anon().Out()).MustBuild()
		child := built.Step(1).(*traversal.LocalStep).Child()
		_, err := New(g).Evaluate(context.Background(), child)
		require.ErrorContains(t, err, "only root traversals")
	})

	t.Run("canceled", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := New(g).Evaluate(ctx, dsl.V().MustBuild())
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("values of a value", func(t *testing.T) {
		t.Parallel()

		_, err := New(g).Evaluate(context.Background(), dsl.Inject(1).Values("name").MustBuild())
		require.ErrorContains(t, err, "expected an element")
	})
}

func TestExecuteDoesNotModifyTraversal(t *testing.T) {
	t.Parallel()

	built := dsl.V().Out().Count().MustBuild()
	before := built.String()

	e := New(modern(t))
	for range 2 {
		values, err := e.Evaluate(context.Background(), built)
		require.NoError(t, err)
		require.Equal(t, []any{int64(6)}, values)
	}
	require.Equal(t, before, built.String())
}

func TestHelpers(t *testing.T) {
	t.Parallel()

	require.Equal(t, []any{int64(1), "a", []any{int64(2)}}, normalize([]any{1, "a", []any{int32(2)}}))
	require.Equal(t, int64(3), hashable(3))
	require.Equal(t, "[1 2]", hashable([]any{1, 2}))
	require.Nil(t, hashable(nil))

	require.Equal(t, -1, compareValues(nil, 1))
	require.Equal(t, 1, compareValues(2, 1.5))
	require.Equal(t, 0, compareValues("a", "a"))
	require.Equal(t, -1, compareValues(1, "a"))

	require.True(t, containsEqual([]any{int64(1)}, 1))
	require.False(t, containsEqual([]any{"1"}, 1))
}
