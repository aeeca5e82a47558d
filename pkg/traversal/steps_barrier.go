package traversal

import (
	"fmt"
	"slices"
)

// DefaultBarrierSize is the capacity of a lazy barrier when none is given.
const DefaultBarrierSize = 2500

// CountGlobalStep counts its input, honoring bulk.
type CountGlobalStep struct {
	baseStep
	reducingBarrier
}

func NewCountGlobalStep() *CountGlobalStep {
	return &CountGlobalStep{reducingBarrier: reducingBarrier{reducer: countReducer{}}}
}

func (s *CountGlobalStep) Name() string               { return "CountGlobalStep" }
func (s *CountGlobalStep) String() string             { return stepString(s) }
func (s *CountGlobalStep) Requirements() Requirements { return Requirements(RequireBulk) }

func (s *CountGlobalStep) Clone() Step {
	cloned := NewCountGlobalStep()
	cloned.baseStep = s.cloneBase()
	return cloned
}

// FoldStep gathers its input into a single list.
type FoldStep struct {
	baseStep
	reducingBarrier
}

func NewFoldStep() *FoldStep {
	return &FoldStep{reducingBarrier: reducingBarrier{reducer: foldReducer{}}}
}

func (s *FoldStep) Name() string   { return "FoldStep" }
func (s *FoldStep) String() string { return stepString(s) }
func (s *FoldStep) Requirements() Requirements {
	return Requirements(0).With(RequireObject, RequireBulk)
}

func (s *FoldStep) Clone() Step {
	cloned := NewFoldStep()
	cloned.baseStep = s.cloneBase()
	return cloned
}

// Order is the direction of an order() comparator.
type Order uint8

const (
	Asc Order = iota
	Desc
)

func (o Order) String() string {
	if o == Desc {
		return "desc"
	}
	return "asc"
}

// OrderComparator sorts by the result of a by() modulator.
type OrderComparator struct {
	By    *Traversal
	Order Order
}

func (c OrderComparator) String() string {
	return fmt.Sprintf("[%s, %s]", c.By, c.Order)
}

// OrderGlobalStep sorts all of its input. A limit other than -1 bounds how
// many sorted traversers are kept.
type OrderGlobalStep struct {
	baseStep
	collectingBarrier
	comparators []OrderComparator
	limit       int64
}

func NewOrderGlobalStep() *OrderGlobalStep {
	return &OrderGlobalStep{limit: -1}
}

func (s *OrderGlobalStep) Name() string { return "OrderGlobalStep" }
func (s *OrderGlobalStep) Requirements() Requirements {
	return Requirements(0).With(RequireObject, RequireBulk)
}
func (s *OrderGlobalStep) Limit() int64         { return s.limit }
func (s *OrderGlobalStep) SetLimit(limit int64) { s.limit = limit }

func (s *OrderGlobalStep) String() string {
	comparators := make([]any, 0, len(s.comparators))
	for _, c := range s.comparators {
		comparators = append(comparators, c)
	}
	return stepString(s, comparators)
}

// Comparators returns the comparators in application order.
func (s *OrderGlobalStep) Comparators() []OrderComparator { return slices.Clone(s.comparators) }

func (s *OrderGlobalStep) LocalChildren() []*Traversal {
	children := make([]*Traversal, 0, len(s.comparators))
	for _, c := range s.comparators {
		children = append(children, c.By)
	}
	return children
}

func (s *OrderGlobalStep) GlobalChildren() []*Traversal { return nil }

func (s *OrderGlobalStep) ModulateBy(by *Traversal) error {
	return s.ModulateByOrder(by, Asc)
}

// ModulateByOrder adds a comparator sorting by the traversal in the order.
func (s *OrderGlobalStep) ModulateByOrder(by *Traversal, order Order) error {
	s.comparators = append(s.comparators, OrderComparator{By: adopt(s, by), Order: order})
	return nil
}

func (s *OrderGlobalStep) ReplaceLocalChild(existing, replacement *Traversal) error {
	for i, c := range s.comparators {
		if c.By == existing {
			s.comparators[i].By = adopt(s, replacement)
			return nil
		}
	}
	return unsupported(s, "replacing a traversal it does not own")
}

func (s *OrderGlobalStep) Clone() Step {
	cloned := &OrderGlobalStep{baseStep: s.cloneBase(), limit: s.limit}
	for _, c := range s.comparators {
		cloned.comparators = append(cloned.comparators, OrderComparator{By: cloneChild(cloned, c.By), Order: c.Order})
	}
	return cloned
}

// GroupStep groups its input by the key traversal and reduces every group
// with the value traversal, which defaults to fold().
type GroupStep struct {
	baseStep
	reducingBarrier
	key         *Traversal
	value       *Traversal
	modulations int
}

func NewGroupStep() *GroupStep {
	s := &GroupStep{reducingBarrier: reducingBarrier{reducer: groupReducer{}}}
	s.value = adopt(s, New(NewFoldStep()))
	return s
}

func (s *GroupStep) Name() string   { return "GroupStep" }
func (s *GroupStep) String() string { return stepString(s, s.key, s.value) }
func (s *GroupStep) Requirements() Requirements {
	return Requirements(0).With(RequireObject, RequireBulk)
}
func (s *GroupStep) KeyTraversal() *Traversal    { return s.key }
func (s *GroupStep) ValueTraversal() *Traversal  { return s.value }
func (s *GroupStep) LocalChildren() []*Traversal { return nonNil(s.key, s.value) }
func (s *GroupStep) GlobalChildren() []*Traversal {
	return nil
}

func (s *GroupStep) ModulateBy(by *Traversal) error {
	switch s.modulations {
	case 0:
		s.key = adopt(s, by)
	case 1:
		s.value = adopt(s, by)
	default:
		return unsupported(s, "more than two by() modulators")
	}
	s.modulations++
	return nil
}

func (s *GroupStep) ReplaceLocalChild(existing, replacement *Traversal) error {
	switch existing {
	case s.key:
		s.key = adopt(s, replacement)
	case s.value:
		s.value = adopt(s, replacement)
	default:
		return unsupported(s, "replacing a traversal it does not own")
	}
	return nil
}

func (s *GroupStep) Clone() Step {
	cloned := &GroupStep{
		baseStep:        s.cloneBase(),
		reducingBarrier: reducingBarrier{reducer: groupReducer{}},
		modulations:     s.modulations,
	}
	cloned.key = cloneChild(cloned, s.key)
	cloned.value = cloneChild(cloned, s.value)
	return cloned
}

// GroupCountStep counts its input per by() projection.
type GroupCountStep struct {
	baseStep
	reducingBarrier
	key *Traversal
}

func NewGroupCountStep() *GroupCountStep {
	return &GroupCountStep{reducingBarrier: reducingBarrier{reducer: groupCountReducer{}}}
}

func (s *GroupCountStep) Name() string                 { return "GroupCountStep" }
func (s *GroupCountStep) String() string               { return stepString(s, s.key) }
func (s *GroupCountStep) Requirements() Requirements   { return Requirements(RequireBulk) }
func (s *GroupCountStep) KeyTraversal() *Traversal     { return s.key }
func (s *GroupCountStep) LocalChildren() []*Traversal  { return nonNil(s.key) }
func (s *GroupCountStep) GlobalChildren() []*Traversal { return nil }

func (s *GroupCountStep) ModulateBy(by *Traversal) error {
	if s.key != nil {
		return unsupported(s, "more than one by() modulator")
	}
	s.key = adopt(s, by)
	return nil
}

func (s *GroupCountStep) ReplaceLocalChild(existing, replacement *Traversal) error {
	if s.key != existing {
		return unsupported(s, "replacing a traversal it does not own")
	}
	s.key = adopt(s, replacement)
	return nil
}

func (s *GroupCountStep) Clone() Step {
	cloned := NewGroupCountStep()
	cloned.baseStep = s.cloneBase()
	cloned.key = cloneChild(cloned, s.key)
	return cloned
}

// NoOpBarrierStep gathers up to a maximum number of traversers, merging
// interchangeable ones, so that the following steps process them in bulk.
type NoOpBarrierStep struct {
	baseStep
	collectingBarrier
}

func NewNoOpBarrierStep(maxBarrierSize int) *NoOpBarrierStep {
	return &NoOpBarrierStep{collectingBarrier: collectingBarrier{maxSize: maxBarrierSize}}
}

func (s *NoOpBarrierStep) Name() string               { return "NoOpBarrierStep" }
func (s *NoOpBarrierStep) String() string             { return stepString(s, s.maxSize) }
func (s *NoOpBarrierStep) Requirements() Requirements { return Requirements(RequireBulk) }
func (s *NoOpBarrierStep) MaxBarrierSize() int        { return s.maxSize }

func (s *NoOpBarrierStep) Clone() Step {
	cloned := NewNoOpBarrierStep(s.maxSize)
	cloned.baseStep = s.cloneBase()
	return cloned
}
