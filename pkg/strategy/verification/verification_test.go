package verification

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/authzed/graphtraversal/pkg/strategy"
	"github.com/authzed/graphtraversal/pkg/structure"
	"github.com/authzed/graphtraversal/pkg/traversal"
)

func out(labels ...string) traversal.Step {
	return traversal.NewVertexStep(true, structure.Out, labels...)
}

func standalone() *strategy.Context {
	return strategy.NewContext(context.Background())
}

func onComputer() *strategy.Context {
	return strategy.NewContext(context.Background(), strategy.WithComputer(true))
}

func requireVerificationError(t *testing.T, err error, id strategy.ID, contains string) {
	t.Helper()

	var verr *VerificationError
	require.True(t, errors.As(err, &verr), "expected a verification error, got %v", err)
	require.Equal(t, id, verr.Strategy)
	require.Contains(t, verr.Error(), contains)
	require.Equal(t, string(id), verr.DetailsMetadata()["strategy"])
}

func TestStandard(t *testing.T) {
	t.Parallel()

	repeatOf := func(body ...traversal.Step) *traversal.Traversal {
		repeat := traversal.NewRepeatStep()
		repeat.SetRepeatTraversal(traversal.New(body...))
		repeat.SetUntilTraversal(traversal.NewLoopTraversal(2))
		return traversal.New(traversal.NewGraphStep(true), repeat)
	}

	tcs := []struct {
		name     string
		root     *traversal.Traversal
		rejected string
	}{
		{
			"plain traversal",
			traversal.New(traversal.NewGraphStep(true), out(), traversal.NewCountGlobalStep()),
			"",
		},
		{
			"count in repeat body",
			repeatOf(out(), traversal.NewCountGlobalStep()),
			"reducing barrier",
		},
		{
			"count nested below repeat body",
			repeatOf(traversal.NewLocalStep(traversal.New(out(), traversal.NewCountGlobalStep()))),
			"",
		},
		{
			"profile last",
			traversal.New(traversal.NewGraphStep(true), out(), traversal.NewProfileSideEffectStep()),
			"",
		},
		{
			"profile then cap",
			traversal.New(traversal.NewGraphStep(true), traversal.NewProfileSideEffectStep(), traversal.NewSideEffectCapStep("p")),
			"",
		},
		{
			"profile then cap then none",
			traversal.New(
				traversal.NewGraphStep(true), traversal.NewProfileSideEffectStep(),
				traversal.NewSideEffectCapStep("p"), traversal.NewNoneStep(),
			),
			"",
		},
		{
			"profile mid-traversal",
			traversal.New(traversal.NewGraphStep(true), traversal.NewProfileSideEffectStep(), out()),
			"must be the last step",
		},
		{
			"profile then none",
			traversal.New(traversal.NewGraphStep(true), traversal.NewProfileSideEffectStep(), traversal.NewNoneStep()),
			"must be the last step",
		},
		{
			"profile twice",
			traversal.New(traversal.NewGraphStep(true), traversal.NewProfileSideEffectStep(), traversal.NewProfileSideEffectStep()),
			"multiple times",
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := NewStandard().Apply(standalone(), tc.root)
			if tc.rejected == "" {
				require.NoError(t, err)
				return
			}
			requireVerificationError(t, err, strategy.StandardVerificationID, tc.rejected)
		})
	}
}

func TestLambdaRestriction(t *testing.T) {
	t.Parallel()

	require.NoError(t, NewLambdaRestriction().Apply(standalone(), traversal.New(traversal.NewGraphStep(true), out())))

	nested := traversal.New(
		traversal.NewGraphStep(true),
		traversal.NewTraversalFilterStep(traversal.New(traversal.NewLambdaFilterStep("adults", nil))),
	)
	err := NewLambdaRestriction().Apply(standalone(), nested)
	requireVerificationError(t, err, strategy.LambdaRestrictionID, "LambdaFilterStep(adults)")
}

func TestEdgeLabel(t *testing.T) {
	t.Parallel()

	unlabeled := func() *traversal.Traversal {
		return traversal.New(traversal.NewGraphStep(true), out("knows"), traversal.NewLocalStep(traversal.New(out())))
	}

	tcs := []struct {
		name           string
		throwException bool
		logWarning     bool
	}{
		{"silent", false, false},
		{"warn", false, true},
		{"throw", true, false},
		{"warn and throw", true, true},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			ctx := strategy.NewContext(context.Background(), strategy.WithLogger(zerolog.New(&buf)))

			err := NewEdgeLabel(tc.throwException, tc.logWarning).Apply(ctx, unlabeled())
			if tc.throwException {
				requireVerificationError(t, err, strategy.EdgeLabelVerificationID, "without any specified edge label")
			} else {
				require.NoError(t, err)
			}

			if tc.logWarning {
				require.Contains(t, buf.String(), `"level":"warn"`)
				require.Contains(t, buf.String(), "without any specified edge label")
			} else {
				require.Empty(t, buf.String())
			}
		})
	}

	t.Run("labeled", func(t *testing.T) {
		t.Parallel()

		labeled := traversal.New(traversal.NewGraphStep(true), out("knows"))
		require.NoError(t, NewEdgeLabel(true, true).Apply(standalone(), labeled))
	})
}

func TestEdgeLabelConfiguration(t *testing.T) {
	t.Parallel()

	config := NewEdgeLabel(true, false).Configuration()
	require.Equal(t, strategy.EdgeLabelVerificationID, config.Strategy)

	rebuilt, err := EdgeLabelFromConfiguration(config)
	require.NoError(t, err)
	require.Equal(t, NewEdgeLabel(true, false), rebuilt)

	defaulted, err := EdgeLabelFromConfiguration(strategy.ConfigurationFor(strategy.EdgeLabelVerificationID))
	require.NoError(t, err)
	require.Equal(t, NewEdgeLabel(false, false), defaulted)

	_, err = EdgeLabelFromConfiguration(config.With(logWarningKey, "yes"))
	require.Error(t, err)
}

func TestComputer(t *testing.T) {
	t.Parallel()

	selectName := func() *traversal.Traversal {
		sel := traversal.NewSelectOneStep(traversal.PopLast, "a")
		require.NoError(t, sel.ModulateBy(traversal.NewValueTraversal("name")))
		return traversal.New(traversal.NewGraphStep(true), sel)
	}

	selectID := func() *traversal.Traversal {
		sel := traversal.NewSelectOneStep(traversal.PopLast, "a")
		require.NoError(t, sel.ModulateBy(traversal.NewTokenTraversal(structure.TID)))
		return traversal.New(traversal.NewGraphStep(true), sel)
	}

	orderBy := func(by *traversal.Traversal) *traversal.Traversal {
		order := traversal.NewOrderGlobalStep()
		require.NoError(t, order.ModulateBy(by))
		return traversal.New(traversal.NewGraphStep(true), order)
	}

	tcs := []struct {
		name     string
		root     *traversal.Traversal
		rejected string
	}{
		{"plain traversal", traversal.New(traversal.NewGraphStep(true), out(), out()), ""},
		{"mid-traversal V()", traversal.New(traversal.NewGraphStep(true), out(), traversal.NewGraphStep(true)), "mid-traversal"},
		{"inject", traversal.New(traversal.NewInjectStep(1, 2)), "not supported"},
		{"drop", traversal.New(traversal.NewGraphStep(true), traversal.NewDropStep()), "not supported"},
		{"select by property", selectName(), "path element's id"},
		{"select by id", selectID(), ""},
		{"order by own property", orderBy(traversal.New(traversal.NewPropertiesStep(true, "age"))), ""},
		{"order by adjacent id", orderBy(traversal.New(out(), traversal.NewIDStep())), ""},
		{
			"order by adjacent property",
			orderBy(traversal.New(out(), traversal.NewPropertiesStep(true, "age"))),
			"local star-graph",
		},
		{"order by two hops", orderBy(traversal.New(out(), out())), "local star-graph"},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			require.NoError(t, NewComputer().Apply(standalone(), tc.root), "standalone traversals are not checked")

			err := NewComputer().Apply(onComputer(), tc.root)
			if tc.rejected == "" {
				require.NoError(t, err)
				return
			}
			requireVerificationError(t, err, strategy.ComputerVerificationID, tc.rejected)
		})
	}
}

func TestStandardRunsAfterComputer(t *testing.T) {
	t.Parallel()

	strs, err := strategy.NewStrategies(NewStandard(), NewComputer(), NewLambdaRestriction())
	require.NoError(t, err)

	ids := strs.IDs()
	require.Less(t, indexOf(ids, strategy.ComputerVerificationID), indexOf(ids, strategy.StandardVerificationID))
}

func indexOf(ids []strategy.ID, id strategy.ID) int {
	for i, candidate := range ids {
		if candidate == id {
			return i
		}
	}
	return -1
}
