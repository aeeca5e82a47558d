package optimization

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/authzed/graphtraversal/pkg/predicate"
	"github.com/authzed/graphtraversal/pkg/strategy"
	"github.com/authzed/graphtraversal/pkg/structure"
	"github.com/authzed/graphtraversal/pkg/traversal"
)

func v(ids ...any) traversal.Step { return traversal.NewGraphStep(true, ids...) }

func out(labels ...string) traversal.Step {
	return traversal.NewVertexStep(true, structure.Out, labels...)
}

func outE(labels ...string) traversal.Step {
	return traversal.NewVertexStep(false, structure.Out, labels...)
}

func has(key string, p *predicate.P) *traversal.HasStep {
	return traversal.NewHasStep(&traversal.HasContainer{Key: key, Predicate: p})
}

func is(p *predicate.P) traversal.Step { return traversal.NewIsStep(p) }

func count() traversal.Step { return traversal.NewCountGlobalStep() }

func id() traversal.Step { return traversal.NewIDStep() }

func values(keys ...string) traversal.Step { return traversal.NewPropertiesStep(true, keys...) }

func rng(low, high int64) traversal.Step { return traversal.NewRangeGlobalStep(low, high) }

func barrier() traversal.Step { return traversal.NewNoOpBarrierStep(2500) }

func as[S traversal.Step](s S, labels ...string) S {
	for _, label := range labels {
		s.AddLabel(label)
	}
	return s
}

func times(n int64, body ...traversal.Step) *traversal.RepeatStep {
	repeat := traversal.NewRepeatStep()
	repeat.SetRepeatTraversal(traversal.New(body...))
	repeat.SetUntilTraversal(traversal.NewLoopTraversal(n))
	return repeat
}

func standalone(installed ...strategy.ID) *strategy.Context {
	return strategy.NewContext(context.Background(), strategy.WithInstalled(installed...))
}

func onComputer(installed ...strategy.ID) *strategy.Context {
	return strategy.NewContext(context.Background(), strategy.WithComputer(true), strategy.WithInstalled(installed...))
}

// rewriteCase applies a strategy to the input and compares the result with
// the expected traversal.
type rewriteCase struct {
	name     string
	input    func() *traversal.Traversal
	expected func() *traversal.Traversal
}

// unchanged returns a case expecting the input to be left as is.
func unchanged(name string, input func() *traversal.Traversal) rewriteCase {
	return rewriteCase{name: name, input: input, expected: input}
}

func runRewriteCases(t *testing.T, s strategy.Strategy, ctx func() *strategy.Context, tcs []rewriteCase) {
	t.Helper()

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			root := tc.input()
			require.NoError(t, s.Apply(ctx(), root))
			if diff := cmp.Diff(tc.expected().String(), root.String()); diff != "" {
				t.Fatalf("unexpected rewrite (-want +got):\n%s", diff)
			}

			// A second application has nothing left to do.
			require.NoError(t, s.Apply(ctx(), root))
			if diff := cmp.Diff(tc.expected().String(), root.String()); diff != "" {
				t.Fatalf("rewrite is not idempotent (-want +got):\n%s", diff)
			}
		})
	}
}
