package strategy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/authzed/graphtraversal/pkg/traversal"
)

func TestApplyRewritesIsBottomUp(t *testing.T) {
	t.Parallel()

	root := traversal.New(
		traversal.NewGraphStep(true),
		traversal.NewNotStep(traversal.New(traversal.NewIDStep())),
		traversal.NewCountGlobalStep(),
	)

	var visited []string
	record := func(_ *Context, s traversal.Step) (bool, error) {
		visited = append(visited, s.Name())
		return false, nil
	}

	changed, err := ApplyRewrites(NewContext(context.Background()), root, []StepRewrite{record})
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, []string{"GraphStep", "IdStep", "NotStep", "CountGlobalStep"}, visited)
}

func TestWrapRewrite(t *testing.T) {
	t.Parallel()

	removeIdentities := WrapRewrite(func(_ *Context, s *traversal.IdentityStep) (bool, error) {
		s.Traversal().RemoveStep(s)
		return true, nil
	})

	var countsSeen int
	countCounts := WrapRewrite(func(_ *Context, s *traversal.CountGlobalStep) (bool, error) {
		countsSeen++
		return false, nil
	})

	root := traversal.New(
		traversal.NewGraphStep(true),
		traversal.NewIdentityStep(),
		traversal.NewLocalStep(traversal.New(traversal.NewIdentityStep(), traversal.NewCountGlobalStep())),
		traversal.NewIdentityStep(),
	)

	changed, err := ApplyRewrites(NewContext(context.Background()), root, []StepRewrite{removeIdentities, countCounts})
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, 1, countsSeen)
	require.Equal(t, "[GraphStep(vertex,[]), LocalStep([CountGlobalStep])]", root.String())
}

func TestRunToFixedPoint(t *testing.T) {
	t.Parallel()

	t.Run("stops once unchanged", func(t *testing.T) {
		t.Parallel()

		remaining := 5
		iterations := 0
		err := RunToFixedPoint(func() int { return remaining }, func() (bool, error) {
			iterations++
			if remaining == 0 {
				return false, nil
			}
			remaining--
			return true, nil
		})
		require.NoError(t, err)
		require.Equal(t, 6, iterations)
	})

	t.Run("a change without progress is a bug", func(t *testing.T) {
		t.Parallel()

		require.Panics(t, func() {
			_ = RunToFixedPoint(func() int { return 1 }, func() (bool, error) { return true, nil })
		})
	})
}
