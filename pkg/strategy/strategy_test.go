package strategy

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"

	"github.com/authzed/graphtraversal/pkg/testutil"
	"github.com/authzed/graphtraversal/pkg/traversal"
)

type testStrategy struct {
	id       ID
	category Category
	prior    []ID
	post     []ID
	apply    func(ctx *Context, t *traversal.Traversal) error
}

func (s *testStrategy) ID() ID             { return s.id }
func (s *testStrategy) Category() Category { return s.category }
func (s *testStrategy) Prior() []ID        { return s.prior }
func (s *testStrategy) Post() []ID         { return s.post }

func (s *testStrategy) Apply(ctx *Context, t *traversal.Traversal) error {
	if s.apply == nil {
		return nil
	}
	return s.apply(ctx, t)
}

func (s *testStrategy) Configuration() Configuration { return ConfigurationFor(s.id) }

func idsOf(strs []Strategy) []ID {
	ids := make([]ID, 0, len(strs))
	for _, s := range strs {
		ids = append(ids, s.ID())
	}
	return ids
}

func TestSort(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		name       string
		strategies []Strategy
		expected   []ID
	}{
		{
			"empty",
			nil,
			[]ID{},
		},
		{
			"insertion order among unconstrained strategies",
			[]Strategy{
				&testStrategy{id: "a", category: Optimization},
				&testStrategy{id: "b", category: Optimization},
				&testStrategy{id: "c", category: Optimization},
			},
			[]ID{"a", "b", "c"},
		},
		{
			"categories order before insertion",
			[]Strategy{
				&testStrategy{id: "verify", category: Verification},
				&testStrategy{id: "finalize", category: Finalization},
				&testStrategy{id: "optimize", category: Optimization},
				&testStrategy{id: "decorate", category: Decoration},
			},
			[]ID{"decorate", "optimize", "finalize", "verify"},
		},
		{
			"prior and post constraints",
			[]Strategy{
				&testStrategy{id: "d", category: Verification},
				&testStrategy{id: "a", category: Optimization, prior: []ID{"b"}},
				&testStrategy{id: "b", category: Optimization},
				&testStrategy{id: "e", category: Optimization, post: []ID{"a"}},
				&testStrategy{id: "c", category: Decoration},
			},
			[]ID{"c", "b", "e", "a", "d"},
		},
		{
			"constraints on missing strategies are ignored",
			[]Strategy{
				&testStrategy{id: "a", category: Optimization, prior: []ID{"missing"}, post: []ID{"other"}},
				&testStrategy{id: "b", category: Optimization},
			},
			[]ID{"a", "b"},
		},
		{
			"post moves a later strategy",
			[]Strategy{
				&testStrategy{id: "late", category: Optimization},
				&testStrategy{id: "early", category: Optimization, post: []ID{"late"}},
			},
			[]ID{"early", "late"},
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			sorted, err := Sort(tc.strategies)
			require.NoError(t, err)
			require.Equal(t, tc.expected, idsOf(sorted))
		})
	}
}

func TestSortCycles(t *testing.T) {
	t.Parallel()

	t.Run("direct", func(t *testing.T) {
		t.Parallel()

		_, err := Sort([]Strategy{
			&testStrategy{id: "x", category: Optimization, prior: []ID{"y"}},
			&testStrategy{id: "y", category: Optimization, prior: []ID{"x"}},
		})

		var cycleErr *CyclicDependencyError
		require.ErrorAs(t, err, &cycleErr)
		require.Equal(t, []ID{"x", "y", "x"}, cycleErr.Cycle)
		require.Equal(t, "cyclic dependency between traversal strategies: [x -> y -> x]", err.Error())
	})

	t.Run("against category order", func(t *testing.T) {
		t.Parallel()

		_, err := Sort([]Strategy{
			&testStrategy{id: "optimize", category: Optimization, post: []ID{"decorate"}},
			&testStrategy{id: "decorate", category: Decoration},
		})

		var cycleErr *CyclicDependencyError
		require.ErrorAs(t, err, &cycleErr)
	})

	t.Run("duplicate ids", func(t *testing.T) {
		t.Parallel()

		_, err := Sort([]Strategy{
			&testStrategy{id: "x", category: Optimization},
			&testStrategy{id: "x", category: Optimization},
		})
		require.ErrorContains(t, err, "installed more than once")
	})
}

func TestStrategiesSet(t *testing.T) {
	t.Parallel()

	a := &testStrategy{id: "a", category: Optimization, prior: []ID{"b"}}
	b := &testStrategy{id: "b", category: Optimization}
	v := &testStrategy{id: "v", category: Verification}

	strs, err := NewStrategies(v, a, b)
	require.NoError(t, err)
	require.Equal(t, []ID{"b", "a", "v"}, strs.IDs())
	require.Equal(t, 3, strs.Len())
	require.True(t, strs.Has("a"))
	require.False(t, strs.Has("z"))

	found, ok := strs.Get("b")
	require.True(t, ok)
	require.Same(t, b, found)

	replacement := &testStrategy{id: "b", category: Optimization, prior: []ID{"a"}}
	_, err = strs.With(replacement)
	require.ErrorAs(t, err, new(*CyclicDependencyError))

	d := &testStrategy{id: "d", category: Decoration}
	withD, err := strs.With(d)
	require.NoError(t, err)
	require.Equal(t, []ID{"d", "b", "a", "v"}, withD.IDs())
	require.Equal(t, []ID{"b", "a", "v"}, strs.IDs())

	withoutA := withD.Without("a", "missing")
	require.Equal(t, []ID{"d", "b", "v"}, withoutA.IDs())

	again, err := withoutA.With(a)
	require.NoError(t, err)
	require.Equal(t, []ID{"d", "b", "a", "v"}, again.IDs())
}

func TestNewStrategiesLastWins(t *testing.T) {
	t.Parallel()

	first := &testStrategy{id: "a", category: Optimization}
	second := &testStrategy{id: "a", category: Optimization}

	strs, err := NewStrategies(first, second)
	require.NoError(t, err)
	require.Equal(t, []ID{"a"}, strs.IDs())

	found, _ := strs.Get("a")
	require.Same(t, second, found)
}

func TestApply(t *testing.T) {
	t.Parallel()

	var applied []ID
	var sawInstalled bool
	strs, err := NewStrategies(
		&testStrategy{id: "second", category: Optimization, prior: []ID{"first"}},
		&testStrategy{id: "first", category: Optimization, apply: func(ctx *Context, t *traversal.Traversal) error {
			sawInstalled = ctx.Installed("second") && !ctx.Installed("missing")
			t.AddStep(traversal.NewCountGlobalStep())
			return nil
		}},
	)
	require.NoError(t, err)

	var trace []string
	outer := func(s Strategy, apply func() error) error {
		trace = append(trace, "outer:"+string(s.ID()))
		return apply()
	}
	inner := func(s Strategy, apply func() error) error {
		trace = append(trace, "inner:"+string(s.ID()))
		err := apply()
		applied = append(applied, s.ID())
		return err
	}

	root := traversal.New(traversal.NewGraphStep(true))
	require.NoError(t, strs.Apply(NewContext(context.Background()), root, outer, inner))
	require.Equal(t, []ID{"first", "second"}, applied)
	require.Equal(t, []string{"outer:first", "inner:first", "outer:second", "inner:second"}, trace)
	require.True(t, sawInstalled)
	require.Equal(t, "[GraphStep(vertex,[]), CountGlobalStep]", root.String())
}

func TestApplyErrors(t *testing.T) {
	t.Parallel()

	failure := errors.New("boom")
	var ranAfter bool
	strs, err := NewStrategies(
		&testStrategy{id: "fails", category: Optimization, apply: func(*Context, *traversal.Traversal) error { return failure }},
		&testStrategy{id: "after", category: Verification, apply: func(*Context, *traversal.Traversal) error {
			ranAfter = true
			return nil
		}},
	)
	require.NoError(t, err)

	t.Run("strategy error stops application", func(t *testing.T) {
		err := strs.Apply(NewContext(context.Background()), traversal.New(traversal.NewGraphStep(true)))
		require.ErrorIs(t, err, failure)
		require.False(t, ranAfter)
	})

	t.Run("locked", func(t *testing.T) {
		root := traversal.New(traversal.NewGraphStep(true))
		root.Lock()
		require.ErrorIs(t, strs.Apply(NewContext(context.Background()), root), ErrLocked)
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := strs.Apply(NewContext(ctx), traversal.New(traversal.NewGraphStep(true)))
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestContextMarks(t *testing.T) {
	t.Parallel()

	ctx := NewContext(context.Background(), WithComputer(true))
	require.True(t, ctx.OnComputer())
	require.NotNil(t, ctx.Logger())

	first := traversal.New(traversal.NewIdentityStep())
	second := traversal.New(traversal.NewIdentityStep())

	ctx.Mark(first, "fullPath")
	require.True(t, ctx.Marked(first, "fullPath"))
	require.False(t, ctx.Marked(second, "fullPath"))
	require.False(t, ctx.Marked(first, "other"))

	ctx.Unmark(first, "fullPath")
	require.False(t, ctx.Marked(first, "fullPath"))
	require.False(t, NewContext(context.Background()).OnComputer())
}

func TestConcurrentOrdering(t *testing.T) {
	defer goleak.VerifyNone(t, append(testutil.GoLeakIgnores(), goleak.IgnoreCurrent())...)

	build := func() []Strategy {
		strs := make([]Strategy, 0, 10)
		for i := 9; i >= 0; i-- {
			var prior []ID
			if i > 0 {
				prior = []ID{ID(fmt.Sprintf("s%d", i-1))}
			}
			strs = append(strs, &testStrategy{id: ID(fmt.Sprintf("s%d", i)), category: Optimization, prior: prior})
		}
		return strs
	}

	expected, err := Sort(build())
	require.NoError(t, err)
	require.Equal(t, []ID{"s0", "s1", "s2", "s3", "s4", "s5", "s6", "s7", "s8", "s9"}, idsOf(expected))

	var g errgroup.Group
	for range 32 {
		g.Go(func() error {
			strs, err := NewStrategies(build()...)
			if err != nil {
				return err
			}
			if fmt.Sprint(strs.IDs()) != fmt.Sprint(idsOf(expected)) {
				return fmt.Errorf("unexpected ordering %v", strs.IDs())
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}
