package strategy

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/jzelinskie/stringz"

	"github.com/authzed/graphtraversal/pkg/genutil/mapz"
	"github.com/authzed/graphtraversal/pkg/genutil/slicez"
)

// CyclicDependencyError is returned when the ordering constraints of a set of
// strategies cannot be satisfied.
type CyclicDependencyError struct {
	// Cycle lists the strategies of the cycle, starting and ending with the
	// same strategy.
	Cycle []ID
}

func (err *CyclicDependencyError) Error() string {
	names := slicez.Map(err.Cycle, func(id ID) string { return string(id) })
	return fmt.Sprintf("cyclic dependency between traversal strategies: [%s]", stringz.Join(" -> ", names...))
}

// DetailsMetadata returns the cycle.
func (err *CyclicDependencyError) DetailsMetadata() map[string]string {
	names := slicez.Map(err.Cycle, func(id ID) string { return string(id) })
	return map[string]string{"cycle": stringz.Join(",", names...)}
}

type visitState uint8

const (
	unvisited visitState = iota
	visiting
	visited
)

// Sort orders the strategies such that every Prior and Post constraint between
// installed strategies holds and every strategy runs after all strategies of
// earlier categories. Constraints naming strategies outside of the set are
// ignored. Among unconstrained strategies, the order is by category and then
// by position in the input.
func Sort(strategies []Strategy) ([]Strategy, error) {
	byID := make(map[ID]Strategy, len(strategies))
	position := make(map[ID]int, len(strategies))
	for i, s := range strategies {
		if _, ok := byID[s.ID()]; ok {
			return nil, fmt.Errorf("strategy %s installed more than once", s.ID())
		}
		byID[s.ID()] = s
		position[s.ID()] = i
	}

	// dependencies maps a strategy to the strategies that must run before it.
	dependencies := mapz.NewMultiMap[ID, ID]()
	for _, s := range strategies {
		for _, prior := range s.Prior() {
			if _, ok := byID[prior]; ok {
				dependencies.Add(s.ID(), prior)
			}
		}
		for _, post := range s.Post() {
			if _, ok := byID[post]; ok {
				dependencies.Add(post, s.ID())
			}
		}
		for _, other := range strategies {
			if other.Category() < s.Category() {
				dependencies.Add(s.ID(), other.ID())
			}
		}
	}

	compare := func(a, b ID) int {
		if c := cmp.Compare(byID[a].Category(), byID[b].Category()); c != 0 {
			return c
		}
		return cmp.Compare(position[a], position[b])
	}

	roots := slicez.Map(strategies, func(s Strategy) ID { return s.ID() })
	slices.SortStableFunc(roots, compare)

	states := make(map[ID]visitState, len(strategies))
	sorted := make([]Strategy, 0, len(strategies))
	var stack []ID

	var visit func(id ID) error
	visit = func(id ID) error {
		switch states[id] {
		case visited:
			return nil
		case visiting:
			start := slices.Index(stack, id)
			cycle := append(slices.Clone(stack[start:]), id)
			return &CyclicDependencyError{Cycle: cycle}
		}

		states[id] = visiting
		stack = append(stack, id)

		deps, _ := dependencies.Get(id)
		deps = slices.Clone(deps)
		slices.SortStableFunc(deps, compare)
		for _, dep := range deps {
			if err := visit(dep); err != nil {
				return err
			}
		}

		stack = stack[:len(stack)-1]
		states[id] = visited
		sorted = append(sorted, byID[id])
		return nil
	}

	for _, id := range roots {
		if err := visit(id); err != nil {
			return nil, err
		}
	}
	return sorted, nil
}
