package evaluator

import (
	"fmt"
	"maps"
	"slices"

	"github.com/authzed/graphtraversal/pkg/genutil/mapz"
	"github.com/authzed/graphtraversal/pkg/predicate"
	"github.com/authzed/graphtraversal/pkg/traversal"
)

// bindings are the values of match() labels for one candidate solution.
// Labels bound by the match itself are kept in binding order, as they are
// recorded in the path of the output.
type bindings struct {
	values map[string]any
	fresh  []string
	bulk   int64
}

func (b bindings) with(label string, v any, bulk int64) bindings {
	values := maps.Clone(b.values)
	values[label] = v
	return bindings{values: values, fresh: append(slices.Clone(b.fresh), label), bulk: b.bulk * bulk}
}

// matcher solves the patterns of one match() step for one traverser.
type matcher struct {
	x     *execution
	step  *traversal.MatchStep
	start string
	t     *traversal.Traverser
}

// match emits a map of the match labels for every way the patterns can be
// satisfied from each input.
func (x *execution) match(s *traversal.MatchStep, in []*traversal.Traverser) ([]*traversal.Traverser, error) {
	labels := s.MatchStartLabels()
	labels.Merge(s.MatchEndLabels())
	scope := mapz.SortedSlice(labels)

	var dedupKeys []string
	if s.DedupLabels() != nil {
		dedupKeys = mapz.SortedSlice(s.DedupLabels())
	}

	var seen []any
	var out []*traversal.Traverser
	for _, t := range in {
		m := &matcher{x: x, step: s, start: s.ComputedStartLabel(), t: t}

		initial := bindings{values: map[string]any{}, bulk: 1}
		for _, label := range scope {
			if v, ok := traversal.NullableScopeValue(traversal.PopLast, label, t, x.sideEffects); ok {
				initial.values[label] = v
			}
		}
		if _, ok := initial.values[m.start]; !ok && m.start != "" {
			initial = initial.with(m.start, t.Get(), 1)
		}

		var solutions []bindings
		var err error
		if s.Connective() == traversal.MatchOr {
			solutions, err = m.solveAny(s.GlobalChildren(), initial)
		} else {
			solutions, err = m.solveAll(s.GlobalChildren(), initial)
		}
		if err != nil {
			return nil, err
		}

		for _, solution := range solutions {
			bulk := t.Bulk() * solution.bulk
			if dedupKeys != nil {
				key := make([]any, 0, len(dedupKeys))
				for _, label := range dedupKeys {
					key = append(key, normalize(solution.values[label]))
				}
				if containsEqual(seen, key) {
					continue
				}
				seen = append(seen, key)
				bulk = 1
			}

			emitted := m.bound(solution)
			result := make(map[string]any, len(scope))
			for _, label := range scope {
				if v, ok := solution.values[label]; ok {
					result[label] = v
				}
			}
			emitted = mapTo(emitted, result)
			emitted.SetBulk(bulk)
			out = append(out, emitted)
		}
	}
	return out, nil
}

// bound returns a copy of the input traverser with the labels bound by the
// match recorded in its path.
func (m *matcher) bound(b bindings) *traversal.Traverser {
	t := m.t.Split(m.t.Get())
	for _, label := range b.fresh {
		if label == m.start && predicate.Equal(b.values[label], m.t.Get()) {
			t.AddLabels(label)
			continue
		}
		t = t.Split(b.values[label])
		t.ExtendPath(label)
	}
	return t
}

func (m *matcher) selectKey(pattern *traversal.Traversal) string {
	if start, ok := pattern.StartStep().(*traversal.MatchStartStep); ok && start.SelectKey() != "" {
		return start.SelectKey()
	}
	return m.start
}

func (m *matcher) startValue(pattern *traversal.Traversal, b bindings) (any, bool) {
	key := m.selectKey(pattern)
	if key == "" {
		return m.t.Get(), true
	}
	v, ok := b.values[key]
	return v, ok
}

// solveAll returns the bindings satisfying every pattern. The patterns are
// run in order of availability: the first one whose start is bound goes
// next.
func (m *matcher) solveAll(patterns []*traversal.Traversal, b bindings) ([]bindings, error) {
	if len(patterns) == 0 {
		return []bindings{b}, nil
	}

	next := slices.IndexFunc(patterns, func(pattern *traversal.Traversal) bool {
		_, ok := m.startValue(pattern, b)
		return ok
	})
	if next < 0 {
		return nil, fmt.Errorf("none of the remaining match() patterns can start from the bound labels: %v", patterns)
	}

	rest := slices.Delete(slices.Clone(patterns), next, next+1)
	extended, err := m.apply(patterns[next], b)
	if err != nil {
		return nil, err
	}

	var solutions []bindings
	for _, candidate := range extended {
		found, err := m.solveAll(rest, candidate)
		if err != nil {
			return nil, err
		}
		solutions = append(solutions, found...)
	}
	return solutions, nil
}

// solveAny returns the bindings satisfying each pattern on its own.
func (m *matcher) solveAny(patterns []*traversal.Traversal, b bindings) ([]bindings, error) {
	var solutions []bindings
	for _, pattern := range patterns {
		if _, ok := m.startValue(pattern, b); !ok {
			continue
		}
		extended, err := m.apply(pattern, b)
		if err != nil {
			return nil, err
		}
		solutions = append(solutions, extended...)
	}
	return solutions, nil
}

// apply runs a pattern from its bound start. A pattern binding a new label
// yields one candidate per result; a pattern ending in a bound label, or in
// no label, passes the bindings through if any result matches.
func (m *matcher) apply(pattern *traversal.Traversal, b bindings) ([]bindings, error) {
	from, _ := m.startValue(pattern, b)
	results, err := m.x.traversal(pattern, []*traversal.Traverser{m.pathFor(b, from)})
	if err != nil {
		return nil, err
	}

	end, hasEnd := pattern.EndStep().(*traversal.MatchEndStep)
	var endKey string
	if hasEnd {
		endKey, hasEnd = end.MatchKey()
	}
	if !hasEnd {
		if len(results) == 0 {
			return nil, nil
		}
		return []bindings{b}, nil
	}

	if bound, ok := b.values[endKey]; ok {
		for _, result := range results {
			if predicate.Equal(result.Get(), bound) {
				return []bindings{b}, nil
			}
		}
		return nil, nil
	}

	extended := make([]bindings, 0, len(results))
	for _, result := range results {
		extended = append(extended, b.with(endKey, result.Get(), result.Bulk()))
	}
	return extended, nil
}

// pathFor returns a traverser of bulk one at the object, whose path holds
// the labels bound so far.
func (m *matcher) pathFor(b bindings, obj any) *traversal.Traverser {
	t := m.bound(b)
	t = t.Split(obj)
	t.SetBulk(1)
	return t
}
