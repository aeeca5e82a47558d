package traversal

import (
	"fmt"
	"slices"

	"github.com/authzed/graphtraversal/pkg/genutil/mapz"
)

// MatchConnective combines the patterns of a match step.
type MatchConnective uint8

const (
	MatchAnd MatchConnective = iota
	MatchOr
)

func (c MatchConnective) String() string {
	if c == MatchOr {
		return "OR"
	}
	return "AND"
}

// MatchStep binds variables by matching every pattern traversal against the
// path. Each pattern starts with a MatchStartStep selecting its start label
// and ends with a MatchEndStep binding its end label.
type MatchStep struct {
	baseStep
	connective  MatchConnective
	patterns    []*Traversal
	startLabels *mapz.Set[string]
	endLabels   *mapz.Set[string]
	dedupLabels *mapz.Set[string]
	keepLabels  *mapz.Set[string]
}

// NewMatchStep returns a match step over the patterns. Every pattern must
// begin with a variable start (as("a")) or a where() step with a start key.
func NewMatchStep(connective MatchConnective, patterns ...*Traversal) (*MatchStep, error) {
	s := &MatchStep{
		connective:  connective,
		startLabels: mapz.NewSet[string](),
		endLabels:   mapz.NewSet[string](),
	}
	for _, pattern := range patterns {
		if err := s.AddGlobalChild(pattern); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *MatchStep) Name() string { return "MatchStep" }

func (s *MatchStep) String() string {
	var dedup any
	if s.dedupLabels != nil {
		dedup = mapz.SortedSlice(s.dedupLabels)
	}
	return stepString(s, dedup, s.connective, s.patterns)
}

func (s *MatchStep) Requirements() Requirements   { return typicalScopingRequirements }
func (s *MatchStep) Connective() MatchConnective  { return s.connective }
func (s *MatchStep) LocalChildren() []*Traversal  { return nil }
func (s *MatchStep) GlobalChildren() []*Traversal { return slices.Clone(s.patterns) }

// MatchStartLabels returns the labels the patterns start from.
func (s *MatchStep) MatchStartLabels() *mapz.Set[string] { return s.startLabels.Copy() }

// MatchEndLabels returns the labels the patterns bind.
func (s *MatchStep) MatchEndLabels() *mapz.Set[string] { return s.endLabels.Copy() }

// ComputedStartLabel returns the label the match starts from: the first
// pattern start label not bound by another pattern.
func (s *MatchStep) ComputedStartLabel() string {
	for _, pattern := range s.patterns {
		if start, ok := pattern.StartStep().(*MatchStartStep); ok && start.selectKey != "" && !s.endLabels.Has(start.selectKey) {
			return start.selectKey
		}
	}
	if len(s.patterns) > 0 {
		if start, ok := s.patterns[0].StartStep().(*MatchStartStep); ok {
			return start.selectKey
		}
	}
	return ""
}

func (s *MatchStep) ScopeKeys() []string {
	keys := mapz.NewSet[string]()
	for _, pattern := range s.patterns {
		if scoping, ok := pattern.StartStep().(Scoping); ok {
			keys.Insert(scoping.ScopeKeys()...)
		}
		if scoping, ok := pattern.EndStep().(Scoping); ok {
			keys.Insert(scoping.ScopeKeys()...)
		}
	}
	keys.RemoveAll(s.endLabels)
	keys.Delete(s.ComputedStartLabel())
	return mapz.SortedSlice(keys)
}

func (s *MatchStep) KeepLabels() *mapz.Set[string] { return s.keepLabels }

// SetKeepLabels sets the labels retained past the match. Dedup labels are
// always retained.
func (s *MatchStep) SetKeepLabels(labels *mapz.Set[string]) {
	if labels == nil {
		s.keepLabels = nil
		return
	}
	s.keepLabels = labels.Copy()
	s.keepLabels.Merge(s.dedupLabels)
}

// DedupLabels returns the labels whose bindings are deduplicated, or nil.
func (s *MatchStep) DedupLabels() *mapz.Set[string] { return s.dedupLabels }

// SetDedupLabels deduplicates the results of the match by the labels.
func (s *MatchStep) SetDedupLabels(labels *mapz.Set[string]) {
	if labels.IsEmpty() {
		return
	}
	s.dedupLabels = labels.Copy()
	if s.keepLabels != nil {
		s.keepLabels.Merge(s.dedupLabels)
	}
}

// AddGlobalChild configures the start and end steps of the pattern and adds it.
func (s *MatchStep) AddGlobalChild(pattern *Traversal) error {
	if err := s.configureStartAndEnd(pattern); err != nil {
		return err
	}
	s.patterns = append(s.patterns, adopt(s, pattern))
	return nil
}

// RemoveGlobalChild drops the pattern.
func (s *MatchStep) RemoveGlobalChild(pattern *Traversal) {
	if i := slices.Index(s.patterns, pattern); i >= 0 {
		s.patterns = slices.Delete(s.patterns, i, i+1)
	}
}

func (s *MatchStep) configureStartAndEnd(pattern *Traversal) error {
	switch start := pattern.StartStep().(type) {
	case *StartStep:
		labels := start.Labels()
		if len(labels) != 1 {
			return fmt.Errorf("all match() patterns must have a single start label: %s", pattern)
		}
		s.startLabels.Add(labels[0])
		pattern.ReplaceStep(start, NewMatchStartStep(labels[0]))

	case *WherePredicateStep:
		pattern.InsertBefore(NewMatchStartStep(start.startKey), start)
		if start.startKey != "" {
			s.startLabels.Add(start.startKey)
		}
		start.startKey = ""

	case *WhereTraversalStep:
		pattern.InsertBefore(NewMatchStartStep(start.startKey), start)
		if start.startKey != "" {
			s.startLabels.Add(start.startKey)
		}
		start.startKey = ""

	case *MatchStartStep:
		if start.selectKey != "" {
			s.startLabels.Add(start.selectKey)
		}

	default:
		return fmt.Errorf("all match() patterns must have a single start label: %s", pattern)
	}

	if end, ok := pattern.EndStep().(*MatchEndStep); ok {
		if end.matchKey != "" {
			s.endLabels.Add(end.matchKey)
		}
		return nil
	}

	end := pattern.EndStep()
	labels := end.Labels()
	if len(labels) > 1 {
		return fmt.Errorf("the end step of a match() pattern can have at most one label: %s", end)
	}

	matchKey := ""
	if len(labels) == 1 {
		matchKey = labels[0]
		end.RemoveLabel(matchKey)
		s.endLabels.Add(matchKey)
	}
	pattern.AddStep(NewMatchEndStep(matchKey))
	return nil
}

func (s *MatchStep) Clone() Step {
	cloned := &MatchStep{
		baseStep:    s.cloneBase(),
		connective:  s.connective,
		startLabels: s.startLabels.Copy(),
		endLabels:   s.endLabels.Copy(),
	}
	if s.dedupLabels != nil {
		cloned.dedupLabels = s.dedupLabels.Copy()
	}
	if s.keepLabels != nil {
		cloned.keepLabels = s.keepLabels.Copy()
	}
	cloned.patterns = cloneAll(cloned, s.patterns)
	return cloned
}

// MatchStartStep begins a match pattern from the value of its select key.
type MatchStartStep struct {
	baseStep
	selectKey string
}

func NewMatchStartStep(selectKey string) *MatchStartStep {
	return &MatchStartStep{selectKey: selectKey}
}

func (s *MatchStartStep) Name() string      { return "MatchStartStep" }
func (s *MatchStartStep) String() string    { return stepString(s, optString(s.selectKey)) }
func (s *MatchStartStep) SelectKey() string { return s.selectKey }

// ScopeKeys returns the select key along with every end label of the
// owning match referenced by where() steps within the pattern.
func (s *MatchStartStep) ScopeKeys() []string {
	keys := mapz.NewSet[string]()
	if s.selectKey != "" {
		keys.Add(s.selectKey)
	}

	pattern := s.Traversal()
	if pattern == nil {
		return mapz.SortedSlice(keys)
	}
	match, ok := pattern.Parent().(*MatchStep)
	if !ok {
		return mapz.SortedSlice(keys)
	}
	for _, step := range StepsOfRecursively[Scoping](pattern) {
		switch step.(type) {
		case *WherePredicateStep, *WhereTraversalStep:
			for _, key := range step.ScopeKeys() {
				if match.endLabels.Has(key) {
					keys.Add(key)
				}
			}
		}
	}
	return mapz.SortedSlice(keys)
}

func (s *MatchStartStep) Clone() Step {
	return &MatchStartStep{baseStep: s.cloneBase(), selectKey: s.selectKey}
}

// MatchEndStep ends a match pattern, binding the result to its match key.
type MatchEndStep struct {
	baseStep
	matchKey string
}

func NewMatchEndStep(matchKey string) *MatchEndStep {
	return &MatchEndStep{matchKey: matchKey}
}

func (s *MatchEndStep) Name() string   { return "MatchEndStep" }
func (s *MatchEndStep) String() string { return stepString(s, optString(s.matchKey)) }

// MatchKey returns the label the pattern binds, if any.
func (s *MatchEndStep) MatchKey() (string, bool) { return s.matchKey, s.matchKey != "" }

func (s *MatchEndStep) ScopeKeys() []string {
	if s.matchKey == "" {
		return nil
	}
	return []string{s.matchKey}
}

func (s *MatchEndStep) Clone() Step {
	return &MatchEndStep{baseStep: s.cloneBase(), matchKey: s.matchKey}
}
