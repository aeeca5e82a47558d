package traversal

import (
	"slices"
)

// RepeatStep loops its input through the repeat traversal. The until
// traversal ends the loop for a traverser once it produces a result; the emit
// traversal decides which traversers are also emitted on every iteration.
// Either may be checked before the first iteration.
type RepeatStep struct {
	baseStep
	repeat     *Traversal
	until      *Traversal
	emit       *Traversal
	untilFirst bool
	emitFirst  bool
}

func NewRepeatStep() *RepeatStep { return &RepeatStep{} }

func (s *RepeatStep) Name() string { return "RepeatStep" }

func (s *RepeatStep) String() string {
	var until, emit any
	if s.until != nil {
		until = "until(" + s.until.String() + ")"
	}
	if s.emit != nil {
		emit = "emit(" + s.emit.String() + ")"
	}

	switch {
	case s.untilFirst && s.emitFirst:
		return stepString(s, until, emit, s.repeat)
	case s.emitFirst:
		return stepString(s, emit, s.repeat, until)
	case s.untilFirst:
		return stepString(s, until, s.repeat, emit)
	default:
		return stepString(s, s.repeat, until, emit)
	}
}

func (s *RepeatStep) Requirements() Requirements {
	var children Requirements
	for _, child := range nonNil(s.repeat, s.until, s.emit) {
		children = children.Union(child.Requirements())
	}

	reqs := Requirements(0).With(RequireBulk, RequireSingleLoop)
	if children.Has(RequireSingleLoop) {
		reqs = reqs.With(RequireNestedLoop)
	}
	return reqs
}

// SetRepeatTraversal sets the loop body. A RepeatEndStep is appended to it.
func (s *RepeatStep) SetRepeatTraversal(repeat *Traversal) {
	repeat.AddStep(NewRepeatEndStep())
	s.repeat = adopt(s, repeat)
}

// SetUntilTraversal sets the loop condition. Set before the body, it is
// checked before the first iteration.
func (s *RepeatStep) SetUntilTraversal(until *Traversal) {
	if s.repeat == nil {
		s.untilFirst = true
	}
	s.until = adopt(s, until)
}

// SetEmitTraversal sets the emit condition. Set before the body, it is
// checked before the first iteration.
func (s *RepeatStep) SetEmitTraversal(emit *Traversal) {
	if s.repeat == nil {
		s.emitFirst = true
	}
	s.emit = adopt(s, emit)
}

func (s *RepeatStep) RepeatTraversal() *Traversal { return s.repeat }
func (s *RepeatStep) UntilTraversal() *Traversal  { return s.until }
func (s *RepeatStep) EmitTraversal() *Traversal   { return s.emit }
func (s *RepeatStep) UntilFirst() bool            { return s.untilFirst }
func (s *RepeatStep) EmitFirst() bool             { return s.emitFirst }

func (s *RepeatStep) LocalChildren() []*Traversal  { return nonNil(s.until, s.emit) }
func (s *RepeatStep) GlobalChildren() []*Traversal { return nonNil(s.repeat) }

func (s *RepeatStep) ReplaceLocalChild(existing, replacement *Traversal) error {
	switch {
	case existing != nil && existing == s.until:
		s.until = adopt(s, replacement)
	case existing != nil && existing == s.emit:
		s.emit = adopt(s, replacement)
	default:
		return unsupported(s, "replacing a traversal it does not own")
	}
	return nil
}

func (s *RepeatStep) Clone() Step {
	cloned := &RepeatStep{baseStep: s.cloneBase(), untilFirst: s.untilFirst, emitFirst: s.emitFirst}
	cloned.repeat = cloneChild(cloned, s.repeat)
	cloned.until = cloneChild(cloned, s.until)
	cloned.emit = cloneChild(cloned, s.emit)
	return cloned
}

// RepeatEndStep ends every repeat body. It hands traversers back to the
// owning RepeatStep.
type RepeatEndStep struct {
	baseStep
}

func NewRepeatEndStep() *RepeatEndStep { return &RepeatEndStep{} }

func (s *RepeatEndStep) Name() string   { return "RepeatEndStep" }
func (s *RepeatEndStep) String() string { return stepString(s) }
func (s *RepeatEndStep) Clone() Step    { return &RepeatEndStep{baseStep: s.cloneBase()} }

// EndStep ends every branch of a union.
type EndStep struct {
	baseStep
}

func NewEndStep() *EndStep { return &EndStep{} }

func (s *EndStep) Name() string   { return "EndStep" }
func (s *EndStep) String() string { return stepString(s) }
func (s *EndStep) Clone() Step    { return &EndStep{baseStep: s.cloneBase()} }

// UnionStep emits the results of every branch for each input.
type UnionStep struct {
	baseStep
	branches []*Traversal
}

func NewUnionStep(branches ...*Traversal) *UnionStep {
	s := &UnionStep{}
	for _, branch := range branches {
		_ = s.AddGlobalChild(branch)
	}
	return s
}

func (s *UnionStep) Name() string                 { return "UnionStep" }
func (s *UnionStep) String() string               { return stepString(s, s.branches) }
func (s *UnionStep) LocalChildren() []*Traversal  { return nil }
func (s *UnionStep) GlobalChildren() []*Traversal { return slices.Clone(s.branches) }

// AddGlobalChild adds a branch. An EndStep is appended to it.
func (s *UnionStep) AddGlobalChild(branch *Traversal) error {
	branch.AddStep(NewEndStep())
	s.branches = append(s.branches, adopt(s, branch))
	return nil
}

func (s *UnionStep) Clone() Step {
	cloned := &UnionStep{baseStep: s.cloneBase()}
	cloned.branches = cloneAll(cloned, s.branches)
	return cloned
}

// LocalStep runs its child traversal for each input in isolation.
type LocalStep struct {
	baseStep
	child *Traversal
}

func NewLocalStep(child *Traversal) *LocalStep {
	s := &LocalStep{}
	s.child = adopt(s, child)
	return s
}

func (s *LocalStep) Name() string                 { return "LocalStep" }
func (s *LocalStep) String() string               { return stepString(s, s.child) }
func (s *LocalStep) Child() *Traversal            { return s.child }
func (s *LocalStep) LocalChildren() []*Traversal  { return nonNil(s.child) }
func (s *LocalStep) GlobalChildren() []*Traversal { return nil }

func (s *LocalStep) ReplaceLocalChild(existing, replacement *Traversal) error {
	if s.child != existing {
		return unsupported(s, "replacing a traversal it does not own")
	}
	s.child = adopt(s, replacement)
	return nil
}

func (s *LocalStep) Clone() Step {
	cloned := &LocalStep{baseStep: s.cloneBase()}
	cloned.child = cloneChild(cloned, s.child)
	return cloned
}

// OptionalStep emits the results of its child, or its input if the child
// produces nothing.
type OptionalStep struct {
	baseStep
	child *Traversal
}

func NewOptionalStep(child *Traversal) *OptionalStep {
	s := &OptionalStep{}
	s.child = adopt(s, child)
	return s
}

func (s *OptionalStep) Name() string                 { return "OptionalStep" }
func (s *OptionalStep) String() string               { return stepString(s, s.child) }
func (s *OptionalStep) Child() *Traversal            { return s.child }
func (s *OptionalStep) LocalChildren() []*Traversal  { return nonNil(s.child) }
func (s *OptionalStep) GlobalChildren() []*Traversal { return nil }

func (s *OptionalStep) ReplaceLocalChild(existing, replacement *Traversal) error {
	if s.child != existing {
		return unsupported(s, "replacing a traversal it does not own")
	}
	s.child = adopt(s, replacement)
	return nil
}

func (s *OptionalStep) Clone() Step {
	cloned := &OptionalStep{baseStep: s.cloneBase()}
	cloned.child = cloneChild(cloned, s.child)
	return cloned
}
