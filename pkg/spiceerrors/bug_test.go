package spiceerrors

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMustBugfPanicsUnderTest(t *testing.T) {
	t.Parallel()

	require.True(t, IsInTests())
	require.PanicsWithValue(t, "rewrite of step 3 did not converge", func() {
		_ = MustBugf("rewrite of step %d did not converge", 3)
	})
}

func TestMustPanic(t *testing.T) {
	t.Parallel()

	require.PanicsWithValue(t, "step out() is not part of traversal", func() {
		MustPanic("step %s is not part of traversal", "out()")
	})
}
