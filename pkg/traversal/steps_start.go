package traversal

import (
	"slices"
)

// StartStep begins an anonymous child traversal. It may carry labels to bind
// the incoming object, as in where(as("a")...).
type StartStep struct {
	baseStep
}

func NewStartStep() *StartStep { return &StartStep{} }

func (s *StartStep) Name() string   { return "StartStep" }
func (s *StartStep) String() string { return stepString(s) }
func (s *StartStep) Clone() Step    { return &StartStep{baseStep: s.cloneBase()} }

// GraphStep reads vertices or edges from the graph, optionally by id. A
// GraphStep that is not the first step of the root is a mid-traversal V().
type GraphStep struct {
	baseStep
	returnsVertex bool
	ids           []any
}

// NewGraphStep returns a V() step, or an E() step if returnsVertex is false.
func NewGraphStep(returnsVertex bool, ids ...any) *GraphStep {
	return &GraphStep{returnsVertex: returnsVertex, ids: slices.Clone(ids)}
}

func (s *GraphStep) Name() string { return "GraphStep" }

func (s *GraphStep) String() string {
	returns := "edge"
	if s.returnsVertex {
		returns = "vertex"
	}
	return stepString(s, returns, renderList(s.ids))
}

func (s *GraphStep) Clone() Step {
	return &GraphStep{baseStep: s.cloneBase(), returnsVertex: s.returnsVertex, ids: slices.Clone(s.ids)}
}

func (s *GraphStep) ReturnsVertex() bool { return s.returnsVertex }
func (s *GraphStep) IDs() []any          { return slices.Clone(s.ids) }

// IsStartStep returns true if the step begins its traversal.
func (s *GraphStep) IsStartStep() bool { return s.Previous() == nil }

// InjectStep emits fixed values, either at the start of a traversal or in
// addition to its input.
type InjectStep struct {
	baseStep
	values []any
}

func NewInjectStep(values ...any) *InjectStep {
	return &InjectStep{values: slices.Clone(values)}
}

func (s *InjectStep) Name() string   { return "InjectStep" }
func (s *InjectStep) String() string { return stepString(s, s.values) }
func (s *InjectStep) Values() []any  { return slices.Clone(s.values) }

func (s *InjectStep) Clone() Step {
	return &InjectStep{baseStep: s.cloneBase(), values: slices.Clone(s.values)}
}
