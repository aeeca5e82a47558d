package traversal

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/authzed/graphtraversal/pkg/genutil/mapz"
	"github.com/authzed/graphtraversal/pkg/predicate"
	"github.com/authzed/graphtraversal/pkg/structure"
)

func nestedTree() (*Traversal, *Traversal, *Traversal) {
	inner := New(NewIDStep())
	local := New(NewNotStep(inner))
	global := New(outKnows())
	root := New(
		NewGraphStep(true),
		NewLocalStep(local),
		NewUnionStep(global),
	)
	return root, local, inner
}

func TestApplyOrder(t *testing.T) {
	t.Parallel()

	root, _, _ := nestedTree()

	var preOrder []string
	require.NoError(t, ApplyRecursively(root, func(t *Traversal) error {
		preOrder = append(preOrder, t.String())
		return nil
	}))
	require.Equal(t, []string{
		"[GraphStep(vertex,[]), LocalStep([NotStep([IdStep])]), UnionStep([[VertexStep(OUT,[knows],vertex), EndStep]])]",
		"[NotStep([IdStep])]",
		"[IdStep]",
		"[VertexStep(OUT,[knows],vertex), EndStep]",
	}, preOrder)

	var postOrder []string
	require.NoError(t, ApplyBottomUp(root, func(t *Traversal) error {
		postOrder = append(postOrder, t.String())
		return nil
	}))
	require.Equal(t, []string{
		"[IdStep]",
		"[NotStep([IdStep])]",
		"[VertexStep(OUT,[knows],vertex), EndStep]",
		"[GraphStep(vertex,[]), LocalStep([NotStep([IdStep])]), UnionStep([[VertexStep(OUT,[knows],vertex), EndStep]])]",
	}, postOrder)

	var children int
	require.NoError(t, ApplyToChildren(root, func(*Traversal) error {
		children++
		return nil
	}))
	require.Equal(t, 3, children)
}

func TestStepLookups(t *testing.T) {
	t.Parallel()

	root, local, inner := nestedTree()

	require.Len(t, StepsOf[FilterStep](root), 0)
	require.Len(t, StepsOfRecursively[FilterStep](root), 1)
	require.True(t, HasStepOf[*GraphStep](root))
	require.False(t, HasStepOf[*IDStep](root))
	require.True(t, HasStepOfRecursively[*IDStep](root))
	require.True(t, HasAllSteps(root,
		func(s Step) bool { _, ok := s.(*EndStep); return ok },
		func(s Step) bool { _, ok := s.(*NotStep); return ok },
	))
	require.False(t, HasAllSteps(root, func(s Step) bool { _, ok := s.(*DropStep); return ok }))

	require.False(t, IsGlobalChild(inner))
	require.True(t, IsLocalChild(local))
	require.False(t, IsLocalChild(root))
	require.True(t, IsGlobalChild(root))

	union := root.Step(2).(*UnionStep)
	require.True(t, IsGlobalChild(union.GlobalChildren()[0]))
	require.False(t, IsLocalChild(union.GlobalChildren()[0]))
	require.Same(t, Step(union), ParentStepOf(union.GlobalChildren()[0]))
	require.Nil(t, ParentStepOf(root))
}

func TestLabelHelpers(t *testing.T) {
	t.Parallel()

	graph := NewGraphStep(true)
	graph.AddLabel("a")
	vertex := outKnows()
	vertex.AddLabel("b")
	where := NewWherePredicateStep("", predicate.NeqP("a"))
	selectStep := NewSelectOneStep(PopLast, "b")
	root := New(graph, vertex, where, selectStep)

	require.Equal(t, []string{"a", "b"}, mapz.SortedSlice(LabelsOf(root)))
	require.Equal(t, []string{"a"}, mapz.SortedSlice(ReferencedLabels(where)))
	require.Empty(t, mapz.SortedSlice(ReferencedLabels(vertex)))
	require.Equal(t, []string{"a", "b"}, mapz.SortedSlice(ReferencedLabelsAfter(where)))
	require.Equal(t, []string{"b"}, mapz.SortedSlice(ReferencedLabelsAfter(selectStep)))

	target := NewIdentityStep()
	CopyLabels(vertex, target, false)
	require.Equal(t, []string{"b"}, target.Labels())
	require.True(t, vertex.HasLabel("b"))

	CopyLabels(graph, target, true)
	require.Equal(t, []string{"b", "a"}, target.Labels())
	require.Empty(t, graph.Labels())
}

func TestMatchReferencesAllLabelsAtEnd(t *testing.T) {
	t.Parallel()

	match, err := NewMatchStep(MatchAnd, patternOf("a", NewVertexStep(true, structure.Out), "b"))
	require.NoError(t, err)
	root := New(NewGraphStep(true), match)
	require.Equal(t, []string{"a", "b"}, mapz.SortedSlice(ReferencedLabels(match)))

	root.AddStep(NewCountGlobalStep())
	require.Empty(t, mapz.SortedSlice(ReferencedLabels(match)))
}

func TestRemoveToTraversal(t *testing.T) {
	t.Parallel()

	id := NewIDStep()
	label := NewLabelStep()
	count := NewCountGlobalStep()
	root := New(NewGraphStep(true), id, label, count)

	dst := New()
	RemoveToTraversal(id, count, dst)
	require.Equal(t, "[GraphStep(vertex,[]), CountGlobalStep]", root.String())
	require.Equal(t, "[IdStep, LabelStep]", dst.String())
	require.Same(t, dst, id.Traversal())
}
