package traversal

import (
	"github.com/authzed/graphtraversal/pkg/genutil/mapz"
	"github.com/authzed/graphtraversal/pkg/predicate"
	"github.com/authzed/graphtraversal/pkg/structure"
)

// TraversalParent is implemented by steps owning child traversals. Local
// children are evaluated per element, such as by() modulators; global
// children are full branches, such as the arms of a union.
type TraversalParent interface {
	Step
	LocalChildren() []*Traversal
	GlobalChildren() []*Traversal
}

// LocalChildAdder is implemented by parents accepting additional local children.
type LocalChildAdder interface {
	AddLocalChild(child *Traversal) error
}

// GlobalChildAdder is implemented by parents accepting additional global children.
type GlobalChildAdder interface {
	AddGlobalChild(child *Traversal) error
}

// LocalChildRemover is implemented by parents whose local children can be removed.
type LocalChildRemover interface {
	RemoveLocalChild(child *Traversal) error
}

// LocalChildReplacer is implemented by parents whose local children can be
// swapped for another traversal.
type LocalChildReplacer interface {
	ReplaceLocalChild(existing, replacement *Traversal) error
}

// AddLocalChild adds the child to the parent, or returns an UnsupportedError.
func AddLocalChild(parent TraversalParent, child *Traversal) error {
	if adder, ok := parent.(LocalChildAdder); ok {
		return adder.AddLocalChild(child)
	}
	return unsupported(parent, "adding local children")
}

// AddGlobalChild adds the child to the parent, or returns an UnsupportedError.
func AddGlobalChild(parent TraversalParent, child *Traversal) error {
	if adder, ok := parent.(GlobalChildAdder); ok {
		return adder.AddGlobalChild(child)
	}
	return unsupported(parent, "adding global children")
}

// RemoveLocalChild removes the child from the parent, or returns an UnsupportedError.
func RemoveLocalChild(parent TraversalParent, child *Traversal) error {
	if remover, ok := parent.(LocalChildRemover); ok {
		return remover.RemoveLocalChild(child)
	}
	return unsupported(parent, "removing local children")
}

// ReplaceLocalChild swaps a local child of the parent, or returns an
// UnsupportedError.
func ReplaceLocalChild(parent TraversalParent, existing, replacement *Traversal) error {
	if replacer, ok := parent.(LocalChildReplacer); ok {
		return replacer.ReplaceLocalChild(existing, replacement)
	}
	return unsupported(parent, "replacing local children")
}

// adopt makes the parent the owner of the child.
func adopt(parent TraversalParent, child *Traversal) *Traversal {
	if child != nil {
		child.parent = parent
	}
	return child
}

// replaceIn swaps existing for replacement within children, returning false
// if existing was not found.
func replaceIn(parent TraversalParent, children []*Traversal, existing, replacement *Traversal) bool {
	for i, child := range children {
		if child == existing {
			children[i] = adopt(parent, replacement)
			return true
		}
	}
	return false
}

func cloneAll(parent TraversalParent, children []*Traversal) []*Traversal {
	if children == nil {
		return nil
	}
	cloned := make([]*Traversal, 0, len(children))
	for _, child := range children {
		cloned = append(cloned, adopt(parent, child.Clone()))
	}
	return cloned
}

func cloneChild(parent TraversalParent, child *Traversal) *Traversal {
	if child == nil {
		return nil
	}
	return adopt(parent, child.Clone())
}

func nonNil(children ...*Traversal) []*Traversal {
	found := make([]*Traversal, 0, len(children))
	for _, child := range children {
		if child != nil {
			found = append(found, child)
		}
	}
	return found
}

// ByModulating is implemented by steps accepting by() modulators.
type ByModulating interface {
	Step

	// ModulateBy adds the traversal as the next by() modulator. Steps with a
	// fixed number of modulators return an UnsupportedError once full.
	ModulateBy(by *Traversal) error
}

// Scoping is implemented by steps resolving keys against the current map
// value, the side effects or the path.
type Scoping interface {
	Step

	// ScopeKeys returns the keys the step resolves.
	ScopeKeys() []string
}

// ElementRequirement is how much of a path element a PathProcessor needs.
type ElementRequirement uint8

const (
	ElementID ElementRequirement = iota
	ElementLabel
	ElementProperties
	ElementEdges
)

func (r ElementRequirement) String() string {
	switch r {
	case ElementID:
		return "ID"
	case ElementLabel:
		return "LABEL"
	case ElementProperties:
		return "PROPERTIES"
	default:
		return "EDGES"
	}
}

// PathProcessor is implemented by steps that read path history and can be
// told which labels must survive them.
type PathProcessor interface {
	TraversalParent

	// KeepLabels returns the labels retained past the step. A nil set means
	// that every label is retained.
	KeepLabels() *mapz.Set[string]

	SetKeepLabels(labels *mapz.Set[string])
}

// pathProcessing is embedded by PathProcessor steps.
type pathProcessing struct {
	keepLabels *mapz.Set[string]
}

func (p *pathProcessing) KeepLabels() *mapz.Set[string] { return p.keepLabels }

func (p *pathProcessing) SetKeepLabels(labels *mapz.Set[string]) { p.keepLabels = labels }

func (p *pathProcessing) clone() pathProcessing {
	if p.keepLabels == nil {
		return pathProcessing{}
	}
	return pathProcessing{keepLabels: p.keepLabels.Copy()}
}

// MaxRequirement returns the largest element requirement of the local
// children of the processor.
func MaxRequirement(p PathProcessor) ElementRequirement {
	highest := ElementID
	for _, child := range p.LocalChildren() {
		var req ElementRequirement
		switch {
		case child.Kind() == KindIdentity:
			req = ElementID
		case child.Kind() == KindToken && child.Token() == structure.TID:
			req = ElementID
		case child.Kind() == KindToken && child.Token() == structure.TLabel:
			req = ElementLabel
		case child.Kind() == KindValue:
			req = ElementProperties
		default:
			req = ElementEdges
		}
		if req > highest {
			highest = req
		}
	}
	return highest
}

// FilterStep is implemented by steps that pass or drop their input unchanged.
type FilterStep interface {
	Step
	isFilter()
}

// MapStep is implemented by steps producing exactly one output per input.
type MapStep interface {
	Step
	isMap()
}

// FlatMapStep is implemented by steps producing any number of outputs per input.
type FlatMapStep interface {
	Step
	isFlatMap()
}

// SideEffectStep is implemented by steps passing their input through while
// recording something on the side.
type SideEffectStep interface {
	Step
	isSideEffect()
}

// SideEffectCapable is implemented by steps writing to a side-effect key.
type SideEffectCapable interface {
	Step
	SideEffectKey() string
}

// Grouping is implemented by steps grouping their input by a key traversal.
type Grouping interface {
	TraversalParent
	KeyTraversal() *Traversal
	ValueTraversal() *Traversal
}

// LambdaHolder is implemented by steps running opaque user functions.
type LambdaHolder interface {
	Step
	isLambda()
}

// Ranging is implemented by steps passing a window of their input. A high
// bound of -1 is unbounded.
type Ranging interface {
	Step
	Low() int64
	High() int64
}

// Mutating is implemented by steps modifying the graph.
type Mutating interface {
	Step
	isMutating()
}

// Connective is implemented by the and() and or() filter steps.
type Connective interface {
	TraversalParent
	LocalChildAdder
	isConnective()
}

// HasContainer is a property test of a has() step. The keys "~id" and
// "~label" address the element id and label.
type HasContainer struct {
	Key       string
	Predicate *predicate.P
}

const (
	IDKey    = "~id"
	LabelKey = "~label"
)

func (hc *HasContainer) String() string {
	return hc.Key + "." + hc.Predicate.String()
}

// HasContainerHolder is implemented by steps testing has containers.
type HasContainerHolder interface {
	Step
	HasContainers() []*HasContainer
	AddHasContainer(hc *HasContainer)
}

type filterMarker struct{}

func (filterMarker) isFilter() {}

type mapMarker struct{}

func (mapMarker) isMap() {}

type flatMapMarker struct{}

func (flatMapMarker) isFlatMap() {}

type sideEffectMarker struct{}

func (sideEffectMarker) isSideEffect() {}

type lambdaMarker struct{}

func (lambdaMarker) isLambda() {}

type mutatingMarker struct{}

func (mutatingMarker) isMutating() {}
