package evaluator

import (
	"cmp"
	"fmt"

	"github.com/emirpasic/gods/utils"

	"github.com/authzed/graphtraversal/pkg/predicate"
	"github.com/authzed/graphtraversal/pkg/traversal"
)

// drain pushes the input through the barrier protocol and returns every
// barrier it produces. The barrier is reset first, so a step can be drained
// once per evaluation of its traversal.
func drain(b traversal.Barrier, in []*traversal.Traverser) ([]*traversal.Traverser, error) {
	b.Reset()
	for _, t := range in {
		b.AddStart(t)
	}
	if err := b.ProcessAllStarts(); err != nil {
		return nil, err
	}

	var out []*traversal.Traverser
	for b.HasNextBarrier() {
		next, err := b.NextBarrier()
		if err != nil {
			return nil, err
		}
		out = append(out, next...)
	}
	return out, nil
}

// reduce drains a reducing barrier. Its single output starts a new path.
func (x *execution) reduce(b traversal.Barrier, in []*traversal.Traverser) ([]*traversal.Traverser, error) {
	out, err := drain(b, in)
	if err != nil {
		return nil, err
	}
	for _, t := range out {
		t.ExtendPath()
	}
	return out, nil
}

func (x *execution) groupCount(s *traversal.GroupCountStep, in []*traversal.Traverser) ([]*traversal.Traverser, error) {
	keyed := make([]*traversal.Traverser, 0, len(in))
	for _, t := range in {
		key, ok, err := x.project(s.KeyTraversal(), t)
		if err != nil {
			return nil, err
		}
		if ok {
			keyed = append(keyed, t.Split(hashable(key)))
		}
	}
	return x.reduce(s, keyed)
}

// group collects the traversers of every key and reduces each group with
// the value traversal.
func (x *execution) group(s *traversal.GroupStep, in []*traversal.Traverser) ([]*traversal.Traverser, error) {
	entries := make([]*traversal.Traverser, 0, len(in))
	for _, t := range in {
		key, ok, err := x.project(s.KeyTraversal(), t)
		if err != nil {
			return nil, err
		}
		if ok {
			entries = append(entries, traversal.NewTraverser(traversal.GroupEntry{Key: hashable(key), Value: t}))
		}
	}

	out, err := drain(s, entries)
	if err != nil {
		return nil, err
	}

	groups := out[0].Get().(map[any][]any)
	reduced := make(map[any]any, len(groups))
	for key, members := range groups {
		starts := make([]*traversal.Traverser, 0, len(members))
		for _, member := range members {
			t := member.(*traversal.Traverser)
			starts = append(starts, t.Split(t.Get()))
		}

		v, err := x.reduceGroup(s.ValueTraversal(), starts)
		if err != nil {
			return nil, err
		}
		reduced[key] = v
	}
	return []*traversal.Traverser{start(reduced)}, nil
}

// reduceGroup applies the value traversal of group() to the members of one
// group. Traversals not ending in a reducing barrier are folded.
func (x *execution) reduceGroup(value *traversal.Traversal, members []*traversal.Traverser) (any, error) {
	var results []*traversal.Traverser
	if value.IsShortcut() {
		for _, t := range members {
			v, ok, err := x.project(value, t)
			if err != nil {
				return nil, err
			}
			if ok {
				results = append(results, t.Split(v))
			}
		}
	} else {
		var err error
		results, err = x.traversal(value, members)
		if err != nil {
			return nil, err
		}
		if isReducing(value.EndStep()) && len(results) == 1 {
			return results[0].Get(), nil
		}
	}

	folded := []any{}
	for _, t := range results {
		for range t.Bulk() {
			folded = append(folded, t.Get())
		}
	}
	return folded, nil
}

func isReducing(s traversal.Step) bool {
	switch s.(type) {
	case *traversal.CountGlobalStep, *traversal.FoldStep, *traversal.GroupStep, *traversal.GroupCountStep:
		return true
	default:
		return false
	}
}

type sortable struct {
	t     *traversal.Traverser
	keys  []any
	index int
}

// order sorts the merged input by its comparators. Ties are broken by the
// string form of the objects and then by arrival, so that the result is
// deterministic. Traversers for which a comparator is unproductive are
// dropped.
func (x *execution) order(s *traversal.OrderGlobalStep, in []*traversal.Traverser) ([]*traversal.Traverser, error) {
	merged, err := drain(s, in)
	if err != nil {
		return nil, err
	}

	comparators := s.Comparators()
	items := make([]any, 0, len(merged))
	for i, t := range merged {
		keys := make([]any, 0, len(comparators))
		productive := true
		for _, c := range comparators {
			v, ok, err := x.project(c.By, t)
			if err != nil {
				return nil, err
			}
			if !ok {
				productive = false
				break
			}
			keys = append(keys, v)
		}
		if productive {
			items = append(items, &sortable{t: t, keys: keys, index: i})
		}
	}

	utils.Sort(items, func(a, b any) int {
		left, right := a.(*sortable), b.(*sortable)
		for i, c := range comparators {
			result := compareValues(left.keys[i], right.keys[i])
			if c.Order == traversal.Desc {
				result = -result
			}
			if result != 0 {
				return result
			}
		}
		if len(comparators) == 0 {
			if result := compareValues(left.t.Get(), right.t.Get()); result != 0 {
				return result
			}
		}
		if result := cmp.Compare(fmt.Sprint(left.t.Get()), fmt.Sprint(right.t.Get())); result != 0 {
			return result
		}
		return cmp.Compare(left.index, right.index)
	})

	sorted := make([]*traversal.Traverser, 0, len(items))
	for _, item := range items {
		sorted = append(sorted, item.(*sortable).t)
	}
	if s.Limit() >= 0 {
		sorted = rangeOf(sorted, 0, s.Limit())
	}
	return sorted, nil
}

// compareValues orders values naturally when they are comparable, and by
// their string form otherwise. Nil sorts first.
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if result, ok := predicate.Compare(a, b); ok {
		return result
	}
	return cmp.Compare(fmt.Sprint(a), fmt.Sprint(b))
}
