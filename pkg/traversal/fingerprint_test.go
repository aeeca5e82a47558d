package traversal

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/authzed/graphtraversal/pkg/predicate"
)

func TestFingerprint(t *testing.T) {
	t.Parallel()

	hasAge := func(value any) *Traversal {
		return New(NewGraphStep(true), NewHasStep(&HasContainer{Key: "age", Predicate: predicate.EqP(value)}))
	}
	require.Equal(t, hasAge(29).String(), hasAge("29").String())
	require.NotEqual(t, Fingerprint(hasAge(29)), Fingerprint(hasAge("29")))
	require.Equal(t, Fingerprint(hasAge(29)), Fingerprint(hasAge(29)))

	// Clones carry new step IDs but fingerprint alike.
	original := hasAge(29)
	require.Equal(t, Fingerprint(original), Fingerprint(original.Clone()))

	tcs := []struct {
		name        string
		left, right *Traversal
	}{
		{"graph ids", New(NewGraphStep(true, 1)), New(NewGraphStep(true, "1"))},
		{"inject", New(NewInjectStep(int64(1))), New(NewInjectStep(1.0))},
		{"is", New(NewInjectStep(1), NewIsStep(predicate.WithinP(1, 2))), New(NewInjectStep(1), NewIsStep(predicate.WithinP("1", 2)))},
		{"constant step", New(NewInjectStep(1), NewConstantStep(true)), New(NewInjectStep(1), NewConstantStep("true"))},
		{
			"nested",
			New(NewGraphStep(true), NewTraversalFilterStep(New(NewIsStep(predicate.GtP(1))))),
			New(NewGraphStep(true), NewTraversalFilterStep(New(NewIsStep(predicate.GtP("1"))))),
		},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, tc.left.String(), tc.right.String())
			require.NotEqual(t, Fingerprint(tc.left), Fingerprint(tc.right))
		})
	}
}
