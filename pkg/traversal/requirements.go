package traversal

import (
	"strings"
)

// Requirement is a capability a traverser must carry for a step to execute.
type Requirement uint16

const (
	RequireBulk Requirement = 1 << iota
	RequireLabeledPath
	RequireNestedLoop
	RequireObject
	RequireOneBulk
	RequirePath
	RequireSack
	RequireSideEffects
	RequireSingleLoop
)

var requirementNames = []struct {
	r    Requirement
	name string
}{
	{RequireBulk, "BULK"},
	{RequireLabeledPath, "LABELED_PATH"},
	{RequireNestedLoop, "NESTED_LOOP"},
	{RequireObject, "OBJECT"},
	{RequireOneBulk, "ONE_BULK"},
	{RequirePath, "PATH"},
	{RequireSack, "SACK"},
	{RequireSideEffects, "SIDE_EFFECTS"},
	{RequireSingleLoop, "SINGLE_LOOP"},
}

// Requirements is a set of traverser requirements.
type Requirements uint16

// Has returns true if every given requirement is in the set.
func (rs Requirements) Has(r ...Requirement) bool {
	for _, req := range r {
		if uint16(rs)&uint16(req) == 0 {
			return false
		}
	}
	return true
}

// With returns the set extended by the given requirements.
func (rs Requirements) With(r ...Requirement) Requirements {
	for _, req := range r {
		rs |= Requirements(req)
	}
	return rs
}

// Union returns the union of both sets.
func (rs Requirements) Union(other Requirements) Requirements {
	return rs | other
}

func (rs Requirements) String() string {
	names := make([]string, 0, len(requirementNames))
	for _, rn := range requirementNames {
		if rs.Has(rn.r) {
			names = append(names, rn.name)
		}
	}
	return "[" + strings.Join(names, ", ") + "]"
}

// requirementsOf returns the requirements of the step along with those of
// every child traversal it owns.
func requirementsOf(s Step) Requirements {
	reqs := s.Requirements()
	if parent, ok := s.(TraversalParent); ok {
		for _, child := range parent.LocalChildren() {
			reqs = reqs.Union(child.Requirements())
		}
		for _, child := range parent.GlobalChildren() {
			reqs = reqs.Union(child.Requirements())
		}
	}
	return reqs
}
