package slicez

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMap(t *testing.T) {
	require.Equal(t, []string{"1", "2", "3"}, Map([]int{1, 2, 3}, strconv.Itoa))
	require.Equal(t, []string{}, Map([]int{}, strconv.Itoa))
}

func TestUnique(t *testing.T) {
	require.Equal(t, []int{2, 3, 1}, Unique([]int{2, 3, 1, 2, 1}))
	require.Equal(t, []string{"a"}, Unique([]string{"a", "a"}))
	require.Equal(t, []int{}, Unique([]int{}))
}

func TestContainsAll(t *testing.T) {
	require.True(t, ContainsAll([]string{"knows", "created"}, []string{"created"}))
	require.True(t, ContainsAll([]string{"knows"}, nil))
	require.False(t, ContainsAll([]string{"knows"}, []string{"knows", "created"}))
}

func TestTypedValues(t *testing.T) {
	labels, ok := TypedValues[string]([]any{"knows", "created"})
	require.True(t, ok)
	require.Equal(t, []string{"knows", "created"}, labels)

	_, ok = TypedValues[string]([]any{"knows", 1})
	require.False(t, ok)
}
