package traversal

import (
	"slices"

	"github.com/authzed/graphtraversal/pkg/predicate"
)

// HasStep passes elements matching all of its has containers.
type HasStep struct {
	baseStep
	filterMarker
	containers []*HasContainer
}

func NewHasStep(containers ...*HasContainer) *HasStep {
	return &HasStep{containers: slices.Clone(containers)}
}

func (s *HasStep) Name() string                   { return "HasStep" }
func (s *HasStep) String() string                 { return stepString(s, s.containers) }
func (s *HasStep) HasContainers() []*HasContainer { return slices.Clone(s.containers) }

func (s *HasStep) AddHasContainer(hc *HasContainer) {
	s.containers = append(s.containers, hc)
}

// RemoveHasContainer drops the container, returning false if not held.
func (s *HasStep) RemoveHasContainer(hc *HasContainer) bool {
	i := slices.Index(s.containers, hc)
	if i < 0 {
		return false
	}
	s.containers = slices.Delete(s.containers, i, i+1)
	return true
}

func (s *HasStep) Clone() Step {
	containers := make([]*HasContainer, 0, len(s.containers))
	for _, hc := range s.containers {
		containers = append(containers, &HasContainer{Key: hc.Key, Predicate: hc.Predicate})
	}
	return &HasStep{baseStep: s.cloneBase(), containers: containers}
}

// IsStep passes values matching its predicate.
type IsStep struct {
	baseStep
	filterMarker
	predicate *predicate.P
}

func NewIsStep(p *predicate.P) *IsStep { return &IsStep{predicate: p} }

func (s *IsStep) Name() string            { return "IsStep" }
func (s *IsStep) String() string          { return stepString(s, s.predicate) }
func (s *IsStep) Predicate() *predicate.P { return s.predicate }

func (s *IsStep) Clone() Step {
	return &IsStep{baseStep: s.cloneBase(), predicate: s.predicate}
}

func optString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// WherePredicateStep compares the current object, or the value of a start
// key, against the values of the scoped keys named by its predicate, as
// where(neq("a")) or where("a", eq("b")).
type WherePredicateStep struct {
	baseStep
	filterMarker
	pathProcessing
	startKey  string
	predicate *predicate.P
	by        []*Traversal
}

func NewWherePredicateStep(startKey string, p *predicate.P) *WherePredicateStep {
	return &WherePredicateStep{startKey: startKey, predicate: p}
}

func (s *WherePredicateStep) Name() string { return "WherePredicateStep" }

func (s *WherePredicateStep) String() string {
	return stepString(s, optString(s.startKey), s.predicate, s.by)
}

func (s *WherePredicateStep) Requirements() Requirements { return typicalScopingRequirements }
func (s *WherePredicateStep) StartKey() string           { return s.startKey }
func (s *WherePredicateStep) Predicate() *predicate.P    { return s.predicate }

// SetPredicate replaces the predicate.
func (s *WherePredicateStep) SetPredicate(p *predicate.P) { s.predicate = p }

// HasBy returns true if the step carries by() modulators.
func (s *WherePredicateStep) HasBy() bool { return len(s.by) > 0 }

// ByFor returns the modulator applying to the value at the index, or nil.
func (s *WherePredicateStep) ByFor(i int) *Traversal {
	if len(s.by) == 0 {
		return nil
	}
	return s.by[i%len(s.by)]
}

func (s *WherePredicateStep) ScopeKeys() []string {
	keys := make([]string, 0, 2)
	if s.startKey != "" {
		keys = append(keys, s.startKey)
	}
	return append(keys, predicateKeys(s.predicate)...)
}

func predicateKeys(p *predicate.P) []string {
	var keys []string
	switch {
	case p.Biz().IsConnective():
		for _, child := range p.Predicates() {
			keys = append(keys, predicateKeys(child)...)
		}
	case p.Biz().IsContains():
		for _, v := range p.Values() {
			if key, ok := v.(string); ok {
				keys = append(keys, key)
			}
		}
	default:
		if key, ok := p.Value().(string); ok {
			keys = append(keys, key)
		}
	}
	return keys
}

func (s *WherePredicateStep) LocalChildren() []*Traversal  { return slices.Clone(s.by) }
func (s *WherePredicateStep) GlobalChildren() []*Traversal { return nil }

func (s *WherePredicateStep) ModulateBy(by *Traversal) error {
	s.by = append(s.by, adopt(s, by))
	return nil
}

func (s *WherePredicateStep) ReplaceLocalChild(existing, replacement *Traversal) error {
	if !replaceIn(s, s.by, existing, replacement) {
		return unsupported(s, "replacing a traversal it does not own")
	}
	return nil
}

func (s *WherePredicateStep) Clone() Step {
	cloned := &WherePredicateStep{baseStep: s.cloneBase(), pathProcessing: s.pathProcessing.clone(), startKey: s.startKey, predicate: s.predicate}
	cloned.by = cloneAll(cloned, s.by)
	return cloned
}

// WhereTraversalStep passes its input if the child traversal, started from
// the current object or the value of the start key, produces a result. With
// an end key, the result must also equal the value of the end key.
type WhereTraversalStep struct {
	baseStep
	filterMarker
	pathProcessing
	startKey string
	endKey   string
	child    *Traversal
}

func NewWhereTraversalStep(startKey string, child *Traversal, endKey string) *WhereTraversalStep {
	s := &WhereTraversalStep{startKey: startKey, endKey: endKey}
	s.child = adopt(s, child)
	return s
}

func (s *WhereTraversalStep) Name() string { return "WhereTraversalStep" }

func (s *WhereTraversalStep) String() string {
	return stepString(s, optString(s.startKey), s.child, optString(s.endKey))
}

func (s *WhereTraversalStep) Requirements() Requirements { return typicalScopingRequirements }
func (s *WhereTraversalStep) StartKey() string           { return s.startKey }
func (s *WhereTraversalStep) EndKey() string             { return s.endKey }
func (s *WhereTraversalStep) Child() *Traversal          { return s.child }

func (s *WhereTraversalStep) ScopeKeys() []string {
	keys := make([]string, 0, 2)
	if s.startKey != "" {
		keys = append(keys, s.startKey)
	}
	if s.endKey != "" {
		keys = append(keys, s.endKey)
	}
	return keys
}

func (s *WhereTraversalStep) LocalChildren() []*Traversal  { return nonNil(s.child) }
func (s *WhereTraversalStep) GlobalChildren() []*Traversal { return nil }

func (s *WhereTraversalStep) ReplaceLocalChild(existing, replacement *Traversal) error {
	if s.child != existing {
		return unsupported(s, "replacing a traversal it does not own")
	}
	s.child = adopt(s, replacement)
	return nil
}

func (s *WhereTraversalStep) Clone() Step {
	cloned := &WhereTraversalStep{baseStep: s.cloneBase(), pathProcessing: s.pathProcessing.clone(), startKey: s.startKey, endKey: s.endKey}
	cloned.child = cloneChild(cloned, s.child)
	return cloned
}

// TraversalFilterStep passes its input if the child traversal produces any
// result, as filter(traversal).
type TraversalFilterStep struct {
	baseStep
	filterMarker
	child *Traversal
}

func NewTraversalFilterStep(child *Traversal) *TraversalFilterStep {
	s := &TraversalFilterStep{}
	s.child = adopt(s, child)
	return s
}

func (s *TraversalFilterStep) Name() string                 { return "TraversalFilterStep" }
func (s *TraversalFilterStep) String() string               { return stepString(s, s.child) }
func (s *TraversalFilterStep) Child() *Traversal            { return s.child }
func (s *TraversalFilterStep) LocalChildren() []*Traversal  { return nonNil(s.child) }
func (s *TraversalFilterStep) GlobalChildren() []*Traversal { return nil }

func (s *TraversalFilterStep) ReplaceLocalChild(existing, replacement *Traversal) error {
	if s.child != existing {
		return unsupported(s, "replacing a traversal it does not own")
	}
	s.child = adopt(s, replacement)
	return nil
}

func (s *TraversalFilterStep) Clone() Step {
	cloned := &TraversalFilterStep{baseStep: s.cloneBase()}
	cloned.child = cloneChild(cloned, s.child)
	return cloned
}

// NotStep passes its input if the child traversal produces no result.
type NotStep struct {
	baseStep
	filterMarker
	child *Traversal
}

func NewNotStep(child *Traversal) *NotStep {
	s := &NotStep{}
	s.child = adopt(s, child)
	return s
}

func (s *NotStep) Name() string                 { return "NotStep" }
func (s *NotStep) String() string               { return stepString(s, s.child) }
func (s *NotStep) Child() *Traversal            { return s.child }
func (s *NotStep) LocalChildren() []*Traversal  { return nonNil(s.child) }
func (s *NotStep) GlobalChildren() []*Traversal { return nil }

func (s *NotStep) ReplaceLocalChild(existing, replacement *Traversal) error {
	if s.child != existing {
		return unsupported(s, "replacing a traversal it does not own")
	}
	s.child = adopt(s, replacement)
	return nil
}

func (s *NotStep) Clone() Step {
	cloned := &NotStep{baseStep: s.cloneBase()}
	cloned.child = cloneChild(cloned, s.child)
	return cloned
}

// connectiveStep holds the children shared by and() and or().
type connectiveStep struct {
	baseStep
	filterMarker
	children []*Traversal
}

func (s *connectiveStep) isConnective() {}

func (s *connectiveStep) LocalChildren() []*Traversal  { return slices.Clone(s.children) }
func (s *connectiveStep) GlobalChildren() []*Traversal { return nil }

// AndStep passes its input if every child traversal produces a result.
type AndStep struct {
	connectiveStep
}

func NewAndStep(children ...*Traversal) *AndStep {
	s := &AndStep{}
	for _, child := range children {
		s.children = append(s.children, adopt(s, child))
	}
	return s
}

func (s *AndStep) Name() string   { return "AndStep" }
func (s *AndStep) String() string { return stepString(s, s.children) }

func (s *AndStep) AddLocalChild(child *Traversal) error {
	s.children = append(s.children, adopt(s, child))
	return nil
}

func (s *AndStep) RemoveLocalChild(child *Traversal) error {
	i := slices.Index(s.children, child)
	if i < 0 {
		return unsupported(s, "removing a traversal it does not own")
	}
	s.children = slices.Delete(s.children, i, i+1)
	return nil
}

func (s *AndStep) ReplaceLocalChild(existing, replacement *Traversal) error {
	if !replaceIn(s, s.children, existing, replacement) {
		return unsupported(s, "replacing a traversal it does not own")
	}
	return nil
}

func (s *AndStep) Clone() Step {
	cloned := &AndStep{}
	cloned.baseStep = s.cloneBase()
	cloned.children = cloneAll(cloned, s.children)
	return cloned
}

// OrStep passes its input if any child traversal produces a result.
type OrStep struct {
	connectiveStep
}

func NewOrStep(children ...*Traversal) *OrStep {
	s := &OrStep{}
	for _, child := range children {
		s.children = append(s.children, adopt(s, child))
	}
	return s
}

func (s *OrStep) Name() string   { return "OrStep" }
func (s *OrStep) String() string { return stepString(s, s.children) }

func (s *OrStep) AddLocalChild(child *Traversal) error {
	s.children = append(s.children, adopt(s, child))
	return nil
}

func (s *OrStep) RemoveLocalChild(child *Traversal) error {
	i := slices.Index(s.children, child)
	if i < 0 {
		return unsupported(s, "removing a traversal it does not own")
	}
	s.children = slices.Delete(s.children, i, i+1)
	return nil
}

func (s *OrStep) ReplaceLocalChild(existing, replacement *Traversal) error {
	if !replaceIn(s, s.children, existing, replacement) {
		return unsupported(s, "replacing a traversal it does not own")
	}
	return nil
}

func (s *OrStep) Clone() Step {
	cloned := &OrStep{}
	cloned.baseStep = s.cloneBase()
	cloned.children = cloneAll(cloned, s.children)
	return cloned
}

// DedupGlobalStep drops inputs seen before, comparing the current object,
// its by() projection, or the values of its dedup labels.
type DedupGlobalStep struct {
	baseStep
	filterMarker
	pathProcessing
	dedupLabels []string
	by          *Traversal
}

func NewDedupGlobalStep(dedupLabels ...string) *DedupGlobalStep {
	return &DedupGlobalStep{dedupLabels: slices.Clone(dedupLabels)}
}

func (s *DedupGlobalStep) Name() string        { return "DedupGlobalStep" }
func (s *DedupGlobalStep) String() string      { return stepString(s, s.dedupLabels, s.by) }
func (s *DedupGlobalStep) ScopeKeys() []string { return slices.Clone(s.dedupLabels) }
func (s *DedupGlobalStep) By() *Traversal      { return s.by }

func (s *DedupGlobalStep) Requirements() Requirements {
	if len(s.dedupLabels) == 0 {
		return Requirements(RequireBulk)
	}
	return typicalScopingRequirements.With(RequireBulk)
}

func (s *DedupGlobalStep) LocalChildren() []*Traversal  { return nonNil(s.by) }
func (s *DedupGlobalStep) GlobalChildren() []*Traversal { return nil }

func (s *DedupGlobalStep) ModulateBy(by *Traversal) error {
	if s.by != nil {
		return unsupported(s, "more than one by() modulator")
	}
	s.by = adopt(s, by)
	return nil
}

func (s *DedupGlobalStep) ReplaceLocalChild(existing, replacement *Traversal) error {
	if s.by != existing {
		return unsupported(s, "replacing a traversal it does not own")
	}
	s.by = adopt(s, replacement)
	return nil
}

func (s *DedupGlobalStep) Clone() Step {
	cloned := &DedupGlobalStep{baseStep: s.cloneBase(), pathProcessing: s.pathProcessing.clone(), dedupLabels: slices.Clone(s.dedupLabels)}
	cloned.by = cloneChild(cloned, s.by)
	return cloned
}

// RangeGlobalStep passes the inputs within [low, high). A high bound of -1
// is unbounded.
type RangeGlobalStep struct {
	baseStep
	filterMarker
	low  int64
	high int64
}

func NewRangeGlobalStep(low, high int64) *RangeGlobalStep {
	return &RangeGlobalStep{low: low, high: high}
}

func (s *RangeGlobalStep) Name() string               { return "RangeGlobalStep" }
func (s *RangeGlobalStep) String() string             { return stepString(s, s.low, s.high) }
func (s *RangeGlobalStep) Low() int64                 { return s.low }
func (s *RangeGlobalStep) High() int64                { return s.high }
func (s *RangeGlobalStep) Requirements() Requirements { return Requirements(RequireBulk) }

func (s *RangeGlobalStep) Clone() Step {
	return &RangeGlobalStep{baseStep: s.cloneBase(), low: s.low, high: s.high}
}

// DropStep removes elements from the graph.
type DropStep struct {
	baseStep
	filterMarker
	mutatingMarker
}

func NewDropStep() *DropStep { return &DropStep{} }

func (s *DropStep) Name() string   { return "DropStep" }
func (s *DropStep) String() string { return stepString(s) }
func (s *DropStep) Clone() Step    { return &DropStep{baseStep: s.cloneBase()} }

// PathFilterStep passes traversers with a simple (acyclic) path, or with a
// cyclic one.
type PathFilterStep struct {
	baseStep
	filterMarker
	simple bool
}

func NewPathFilterStep(simple bool) *PathFilterStep { return &PathFilterStep{simple: simple} }

func (s *PathFilterStep) Name() string               { return "PathFilterStep" }
func (s *PathFilterStep) Requirements() Requirements { return Requirements(RequirePath) }
func (s *PathFilterStep) IsSimple() bool             { return s.simple }

func (s *PathFilterStep) String() string {
	if s.simple {
		return stepString(s, "simple")
	}
	return stepString(s, "cyclic")
}

func (s *PathFilterStep) Clone() Step {
	return &PathFilterStep{baseStep: s.cloneBase(), simple: s.simple}
}

// NoneStep drops every input.
type NoneStep struct {
	baseStep
	filterMarker
}

func NewNoneStep() *NoneStep { return &NoneStep{} }

func (s *NoneStep) Name() string   { return "NoneStep" }
func (s *NoneStep) String() string { return stepString(s) }
func (s *NoneStep) Clone() Step    { return &NoneStep{baseStep: s.cloneBase()} }

// FilterFunc decides whether a lambda filter step passes its input.
type FilterFunc func(t *Traverser) (bool, error)

// LambdaFilterStep filters its input through an opaque function.
type LambdaFilterStep struct {
	baseStep
	filterMarker
	lambdaMarker
	name string
	fn   FilterFunc
}

func NewLambdaFilterStep(name string, fn FilterFunc) *LambdaFilterStep {
	return &LambdaFilterStep{name: name, fn: fn}
}

func (s *LambdaFilterStep) Name() string     { return "LambdaFilterStep" }
func (s *LambdaFilterStep) String() string   { return stepString(s, s.name) }
func (s *LambdaFilterStep) Func() FilterFunc { return s.fn }

func (s *LambdaFilterStep) Clone() Step {
	return &LambdaFilterStep{baseStep: s.cloneBase(), name: s.name, fn: s.fn}
}
