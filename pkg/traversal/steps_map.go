package traversal

import (
	"slices"

	"github.com/authzed/graphtraversal/pkg/structure"
)

// VertexStep walks from vertices to their adjacent vertices or incident
// edges, as out(), in(), both(), outE(), inE() and bothE().
type VertexStep struct {
	baseStep
	flatMapMarker
	direction     structure.Direction
	edgeLabels    []string
	returnsVertex bool
}

func NewVertexStep(returnsVertex bool, direction structure.Direction, edgeLabels ...string) *VertexStep {
	return &VertexStep{direction: direction, edgeLabels: slices.Clone(edgeLabels), returnsVertex: returnsVertex}
}

func (s *VertexStep) Name() string { return "VertexStep" }

func (s *VertexStep) String() string {
	return stepString(s, s.direction, s.edgeLabels, returnName(s.returnsVertex))
}

func (s *VertexStep) Clone() Step {
	return &VertexStep{
		baseStep:      s.cloneBase(),
		direction:     s.direction,
		edgeLabels:    slices.Clone(s.edgeLabels),
		returnsVertex: s.returnsVertex,
	}
}

func (s *VertexStep) Direction() structure.Direction { return s.direction }
func (s *VertexStep) EdgeLabels() []string           { return slices.Clone(s.edgeLabels) }
func (s *VertexStep) ReturnsVertex() bool            { return s.returnsVertex }
func (s *VertexStep) ReturnsEdge() bool              { return !s.returnsVertex }

// AddEdgeLabels restricts the step to additional edge labels.
func (s *VertexStep) AddEdgeLabels(labels ...string) {
	s.edgeLabels = append(s.edgeLabels, labels...)
}

func returnName(returnsVertex bool) string {
	if returnsVertex {
		return "vertex"
	}
	return "edge"
}

// EdgeVertexStep walks from edges to their vertices, as outV(), inV() and
// bothV().
type EdgeVertexStep struct {
	baseStep
	flatMapMarker
	direction structure.Direction
}

func NewEdgeVertexStep(direction structure.Direction) *EdgeVertexStep {
	return &EdgeVertexStep{direction: direction}
}

func (s *EdgeVertexStep) Name() string                   { return "EdgeVertexStep" }
func (s *EdgeVertexStep) String() string                 { return stepString(s, s.direction) }
func (s *EdgeVertexStep) Direction() structure.Direction { return s.direction }

func (s *EdgeVertexStep) Clone() Step {
	return &EdgeVertexStep{baseStep: s.cloneBase(), direction: s.direction}
}

// EdgeOtherVertexStep walks from an edge to the vertex it was not reached
// from, as otherV(). It needs the path to know where it came from.
type EdgeOtherVertexStep struct {
	baseStep
	mapMarker
}

func NewEdgeOtherVertexStep() *EdgeOtherVertexStep { return &EdgeOtherVertexStep{} }

func (s *EdgeOtherVertexStep) Name() string               { return "EdgeOtherVertexStep" }
func (s *EdgeOtherVertexStep) String() string             { return stepString(s) }
func (s *EdgeOtherVertexStep) Requirements() Requirements { return Requirements(RequirePath) }

func (s *EdgeOtherVertexStep) Clone() Step {
	return &EdgeOtherVertexStep{baseStep: s.cloneBase()}
}

// PropertiesStep emits the properties of an element, or their values, as
// properties() and values().
type PropertiesStep struct {
	baseStep
	flatMapMarker
	keys         []string
	returnsValue bool
}

func NewPropertiesStep(returnsValue bool, keys ...string) *PropertiesStep {
	return &PropertiesStep{keys: slices.Clone(keys), returnsValue: returnsValue}
}

func (s *PropertiesStep) Name() string { return "PropertiesStep" }

func (s *PropertiesStep) String() string {
	returns := "property"
	if s.returnsValue {
		returns = "value"
	}
	return stepString(s, s.keys, returns)
}

func (s *PropertiesStep) Clone() Step {
	return &PropertiesStep{baseStep: s.cloneBase(), keys: slices.Clone(s.keys), returnsValue: s.returnsValue}
}

func (s *PropertiesStep) Keys() []string        { return slices.Clone(s.keys) }
func (s *PropertiesStep) ReturnsValue() bool    { return s.returnsValue }
func (s *PropertiesStep) ReturnsProperty() bool { return !s.returnsValue }

// IDStep maps an element to its id.
type IDStep struct {
	baseStep
	mapMarker
}

func NewIDStep() *IDStep { return &IDStep{} }

func (s *IDStep) Name() string   { return "IdStep" }
func (s *IDStep) String() string { return stepString(s) }
func (s *IDStep) Clone() Step    { return &IDStep{baseStep: s.cloneBase()} }

// LabelStep maps an element to its label.
type LabelStep struct {
	baseStep
	mapMarker
}

func NewLabelStep() *LabelStep { return &LabelStep{} }

func (s *LabelStep) Name() string   { return "LabelStep" }
func (s *LabelStep) String() string { return stepString(s) }
func (s *LabelStep) Clone() Step    { return &LabelStep{baseStep: s.cloneBase()} }

// PropertyKeyStep maps a property to its key.
type PropertyKeyStep struct {
	baseStep
	mapMarker
}

func NewPropertyKeyStep() *PropertyKeyStep { return &PropertyKeyStep{} }

func (s *PropertyKeyStep) Name() string   { return "PropertyKeyStep" }
func (s *PropertyKeyStep) String() string { return stepString(s) }
func (s *PropertyKeyStep) Clone() Step    { return &PropertyKeyStep{baseStep: s.cloneBase()} }

// PropertyValueStep maps a property to its value.
type PropertyValueStep struct {
	baseStep
	mapMarker
}

func NewPropertyValueStep() *PropertyValueStep { return &PropertyValueStep{} }

func (s *PropertyValueStep) Name() string   { return "PropertyValueStep" }
func (s *PropertyValueStep) String() string { return stepString(s) }
func (s *PropertyValueStep) Clone() Step    { return &PropertyValueStep{baseStep: s.cloneBase()} }

// ConstantStep maps every input to a fixed value.
type ConstantStep struct {
	baseStep
	mapMarker
	value any
}

func NewConstantStep(value any) *ConstantStep { return &ConstantStep{value: value} }

func (s *ConstantStep) Name() string   { return "ConstantStep" }
func (s *ConstantStep) String() string { return stepString(s, s.value) }
func (s *ConstantStep) Value() any     { return s.value }

func (s *ConstantStep) Clone() Step {
	return &ConstantStep{baseStep: s.cloneBase(), value: s.value}
}

// IdentityStep passes its input through. It mostly exists to carry labels.
type IdentityStep struct {
	baseStep
}

func NewIdentityStep() *IdentityStep { return &IdentityStep{} }

func (s *IdentityStep) Name() string   { return "IdentityStep" }
func (s *IdentityStep) String() string { return stepString(s) }
func (s *IdentityStep) Clone() Step    { return &IdentityStep{baseStep: s.cloneBase()} }

// typicalScopingRequirements are needed by every step resolving keys.
var typicalScopingRequirements = Requirements(0).With(RequireObject, RequireLabeledPath, RequireSideEffects)

// SelectOneStep maps its input to the value of a single scoped key.
type SelectOneStep struct {
	baseStep
	mapMarker
	pathProcessing
	pop Pop
	key string
	by  *Traversal
}

func NewSelectOneStep(pop Pop, key string) *SelectOneStep {
	return &SelectOneStep{pop: pop, key: key}
}

func (s *SelectOneStep) Name() string               { return "SelectOneStep" }
func (s *SelectOneStep) String() string             { return stepString(s, s.pop, s.key, s.by) }
func (s *SelectOneStep) Requirements() Requirements { return typicalScopingRequirements }
func (s *SelectOneStep) Pop() Pop                   { return s.pop }
func (s *SelectOneStep) Key() string                { return s.key }
func (s *SelectOneStep) ScopeKeys() []string        { return []string{s.key} }
func (s *SelectOneStep) By() *Traversal             { return s.by }

func (s *SelectOneStep) LocalChildren() []*Traversal  { return nonNil(s.by) }
func (s *SelectOneStep) GlobalChildren() []*Traversal { return nil }

func (s *SelectOneStep) ModulateBy(by *Traversal) error {
	if s.by != nil {
		return unsupported(s, "more than one by() modulator")
	}
	s.by = adopt(s, by)
	return nil
}

func (s *SelectOneStep) ReplaceLocalChild(existing, replacement *Traversal) error {
	if s.by != existing {
		return unsupported(s, "replacing a traversal it does not own")
	}
	s.by = adopt(s, replacement)
	return nil
}

func (s *SelectOneStep) Clone() Step {
	cloned := &SelectOneStep{baseStep: s.cloneBase(), pathProcessing: s.pathProcessing.clone(), pop: s.pop, key: s.key}
	cloned.by = cloneChild(cloned, s.by)
	return cloned
}

// SelectStep maps its input to a map of several scoped keys. By()
// modulators apply to the keys round-robin.
type SelectStep struct {
	baseStep
	mapMarker
	pathProcessing
	pop  Pop
	keys []string
	by   []*Traversal
}

func NewSelectStep(pop Pop, keys ...string) *SelectStep {
	return &SelectStep{pop: pop, keys: slices.Clone(keys)}
}

func (s *SelectStep) Name() string               { return "SelectStep" }
func (s *SelectStep) String() string             { return stepString(s, s.pop, s.keys, s.by) }
func (s *SelectStep) Requirements() Requirements { return typicalScopingRequirements }
func (s *SelectStep) Pop() Pop                   { return s.pop }
func (s *SelectStep) ScopeKeys() []string        { return slices.Clone(s.keys) }

func (s *SelectStep) LocalChildren() []*Traversal  { return slices.Clone(s.by) }
func (s *SelectStep) GlobalChildren() []*Traversal { return nil }

// ByFor returns the modulator applying to the key at the index, or nil.
func (s *SelectStep) ByFor(i int) *Traversal {
	if len(s.by) == 0 {
		return nil
	}
	return s.by[i%len(s.by)]
}

func (s *SelectStep) ModulateBy(by *Traversal) error {
	s.by = append(s.by, adopt(s, by))
	return nil
}

func (s *SelectStep) ReplaceLocalChild(existing, replacement *Traversal) error {
	if !replaceIn(s, s.by, existing, replacement) {
		return unsupported(s, "replacing a traversal it does not own")
	}
	return nil
}

func (s *SelectStep) Clone() Step {
	cloned := &SelectStep{baseStep: s.cloneBase(), pathProcessing: s.pathProcessing.clone(), pop: s.pop, keys: slices.Clone(s.keys)}
	cloned.by = cloneAll(cloned, s.by)
	return cloned
}

// PathStep maps a traverser to its full path.
type PathStep struct {
	baseStep
	mapMarker
	by []*Traversal
}

func NewPathStep() *PathStep { return &PathStep{} }

func (s *PathStep) Name() string               { return "PathStep" }
func (s *PathStep) String() string             { return stepString(s, s.by) }
func (s *PathStep) Requirements() Requirements { return Requirements(RequirePath) }

func (s *PathStep) LocalChildren() []*Traversal  { return slices.Clone(s.by) }
func (s *PathStep) GlobalChildren() []*Traversal { return nil }

func (s *PathStep) ModulateBy(by *Traversal) error {
	s.by = append(s.by, adopt(s, by))
	return nil
}

func (s *PathStep) ReplaceLocalChild(existing, replacement *Traversal) error {
	if !replaceIn(s, s.by, existing, replacement) {
		return unsupported(s, "replacing a traversal it does not own")
	}
	return nil
}

func (s *PathStep) Clone() Step {
	cloned := &PathStep{baseStep: s.cloneBase()}
	cloned.by = cloneAll(cloned, s.by)
	return cloned
}

// LoopsStep maps a traverser to its loop counter.
type LoopsStep struct {
	baseStep
	mapMarker
}

func NewLoopsStep() *LoopsStep { return &LoopsStep{} }

func (s *LoopsStep) Name() string               { return "LoopsStep" }
func (s *LoopsStep) String() string             { return stepString(s) }
func (s *LoopsStep) Requirements() Requirements { return Requirements(RequireSingleLoop) }
func (s *LoopsStep) Clone() Step                { return &LoopsStep{baseStep: s.cloneBase()} }

// TraversalMapStep maps its input to the first result of a child traversal.
type TraversalMapStep struct {
	baseStep
	mapMarker
	child *Traversal
}

func NewTraversalMapStep(child *Traversal) *TraversalMapStep {
	s := &TraversalMapStep{}
	s.child = adopt(s, child)
	return s
}

func (s *TraversalMapStep) Name() string                 { return "TraversalMapStep" }
func (s *TraversalMapStep) String() string               { return stepString(s, s.child) }
func (s *TraversalMapStep) Child() *Traversal            { return s.child }
func (s *TraversalMapStep) LocalChildren() []*Traversal  { return nonNil(s.child) }
func (s *TraversalMapStep) GlobalChildren() []*Traversal { return nil }

func (s *TraversalMapStep) ReplaceLocalChild(existing, replacement *Traversal) error {
	if s.child != existing {
		return unsupported(s, "replacing a traversal it does not own")
	}
	s.child = adopt(s, replacement)
	return nil
}

func (s *TraversalMapStep) Clone() Step {
	cloned := &TraversalMapStep{baseStep: s.cloneBase()}
	cloned.child = cloneChild(cloned, s.child)
	return cloned
}

// ProjectStep maps its input to a map of keys to by() results.
type ProjectStep struct {
	baseStep
	mapMarker
	keys []string
	by   []*Traversal
}

func NewProjectStep(keys ...string) *ProjectStep {
	return &ProjectStep{keys: slices.Clone(keys)}
}

func (s *ProjectStep) Name() string               { return "ProjectStep" }
func (s *ProjectStep) String() string             { return stepString(s, s.keys, s.by) }
func (s *ProjectStep) Keys() []string             { return slices.Clone(s.keys) }
func (s *ProjectStep) Requirements() Requirements { return Requirements(RequireObject) }

func (s *ProjectStep) LocalChildren() []*Traversal  { return slices.Clone(s.by) }
func (s *ProjectStep) GlobalChildren() []*Traversal { return nil }

// ByFor returns the modulator of the key at the index, or nil for identity.
func (s *ProjectStep) ByFor(i int) *Traversal {
	if len(s.by) == 0 {
		return nil
	}
	return s.by[i%len(s.by)]
}

func (s *ProjectStep) ModulateBy(by *Traversal) error {
	if len(s.by) >= len(s.keys) {
		return unsupported(s, "more by() modulators than projected keys")
	}
	s.by = append(s.by, adopt(s, by))
	return nil
}

func (s *ProjectStep) ReplaceLocalChild(existing, replacement *Traversal) error {
	if !replaceIn(s, s.by, existing, replacement) {
		return unsupported(s, "replacing a traversal it does not own")
	}
	return nil
}

func (s *ProjectStep) Clone() Step {
	cloned := &ProjectStep{baseStep: s.cloneBase(), keys: slices.Clone(s.keys)}
	cloned.by = cloneAll(cloned, s.by)
	return cloned
}

// CoalesceStep emits the results of the first child traversal producing any.
type CoalesceStep struct {
	baseStep
	flatMapMarker
	children []*Traversal
}

func NewCoalesceStep(children ...*Traversal) *CoalesceStep {
	s := &CoalesceStep{}
	for _, child := range children {
		s.children = append(s.children, adopt(s, child))
	}
	return s
}

func (s *CoalesceStep) Name() string                 { return "CoalesceStep" }
func (s *CoalesceStep) String() string               { return stepString(s, s.children) }
func (s *CoalesceStep) LocalChildren() []*Traversal  { return slices.Clone(s.children) }
func (s *CoalesceStep) GlobalChildren() []*Traversal { return nil }

func (s *CoalesceStep) AddLocalChild(child *Traversal) error {
	s.children = append(s.children, adopt(s, child))
	return nil
}

func (s *CoalesceStep) ReplaceLocalChild(existing, replacement *Traversal) error {
	if !replaceIn(s, s.children, existing, replacement) {
		return unsupported(s, "replacing a traversal it does not own")
	}
	return nil
}

func (s *CoalesceStep) Clone() Step {
	cloned := &CoalesceStep{baseStep: s.cloneBase()}
	cloned.children = cloneAll(cloned, s.children)
	return cloned
}

// MapFunc computes the output of a lambda map step.
type MapFunc func(t *Traverser) (any, error)

// FlatMapFunc computes the outputs of a lambda flat map step.
type FlatMapFunc func(t *Traverser) ([]any, error)

// LambdaMapStep maps its input through an opaque function.
type LambdaMapStep struct {
	baseStep
	mapMarker
	lambdaMarker
	name string
	fn   MapFunc
}

func NewLambdaMapStep(name string, fn MapFunc) *LambdaMapStep {
	return &LambdaMapStep{name: name, fn: fn}
}

func (s *LambdaMapStep) Name() string   { return "LambdaMapStep" }
func (s *LambdaMapStep) String() string { return stepString(s, s.name) }
func (s *LambdaMapStep) Func() MapFunc  { return s.fn }

func (s *LambdaMapStep) Clone() Step {
	return &LambdaMapStep{baseStep: s.cloneBase(), name: s.name, fn: s.fn}
}

// LambdaFlatMapStep expands its input through an opaque function.
type LambdaFlatMapStep struct {
	baseStep
	flatMapMarker
	lambdaMarker
	name string
	fn   FlatMapFunc
}

func NewLambdaFlatMapStep(name string, fn FlatMapFunc) *LambdaFlatMapStep {
	return &LambdaFlatMapStep{name: name, fn: fn}
}

func (s *LambdaFlatMapStep) Name() string      { return "LambdaFlatMapStep" }
func (s *LambdaFlatMapStep) String() string    { return stepString(s, s.name) }
func (s *LambdaFlatMapStep) Func() FlatMapFunc { return s.fn }

func (s *LambdaFlatMapStep) Clone() Step {
	return &LambdaFlatMapStep{baseStep: s.cloneBase(), name: s.name, fn: s.fn}
}
