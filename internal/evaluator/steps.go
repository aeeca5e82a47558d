package evaluator

import (
	"errors"
	"fmt"

	"github.com/authzed/graphtraversal/pkg/predicate"
	"github.com/authzed/graphtraversal/pkg/structure"
	"github.com/authzed/graphtraversal/pkg/traversal"
)

// remover is implemented by graphs supporting drop().
type remover interface {
	Remove(element structure.Element) error
}

// step runs a single step over its whole input.
func (x *execution) step(s traversal.Step, in []*traversal.Traverser) ([]*traversal.Traverser, error) {
	switch s := s.(type) {
	case *traversal.StartStep, *traversal.IdentityStep, *traversal.EndStep,
		*traversal.RepeatEndStep, *traversal.MatchStartStep, *traversal.MatchEndStep,
		*traversal.ProfileSideEffectStep:
		return in, nil

	case *traversal.GraphStep:
		return x.graphStep(s, in)

	case *traversal.InjectStep:
		out := in
		for _, v := range s.Values() {
			out = append(out, start(v))
		}
		return out, nil

	case *traversal.VertexStep:
		return flatMap(in, func(t *traversal.Traverser) ([]any, error) { return x.adjacent(s, t) })

	case *traversal.EdgeVertexStep:
		return flatMap(in, func(t *traversal.Traverser) ([]any, error) {
			e, ok := t.Get().(structure.Edge)
			if !ok {
				return nil, fmt.Errorf("expected an edge, found %T", t.Get())
			}
			return vertices(structure.EdgeVertices(e, s.Direction())), nil
		})

	case *traversal.EdgeOtherVertexStep:
		return mapEach(in, otherVertex)

	case *traversal.PropertiesStep:
		return flatMap(in, func(t *traversal.Traverser) ([]any, error) { return properties(s, t.Get()) })

	case *traversal.IDStep:
		return mapEach(in, func(t *traversal.Traverser) (any, error) { return token(structure.TID, t.Get()) })

	case *traversal.LabelStep:
		return mapEach(in, func(t *traversal.Traverser) (any, error) { return token(structure.TLabel, t.Get()) })

	case *traversal.PropertyKeyStep:
		return mapEach(in, func(t *traversal.Traverser) (any, error) { return token(structure.TKey, t.Get()) })

	case *traversal.PropertyValueStep:
		return mapEach(in, func(t *traversal.Traverser) (any, error) { return token(structure.TValue, t.Get()) })

	case *traversal.ConstantStep:
		return mapEach(in, func(*traversal.Traverser) (any, error) { return s.Value(), nil })

	case *traversal.LoopsStep:
		return mapEach(in, func(t *traversal.Traverser) (any, error) { return t.Loops(), nil })

	case *traversal.SelectOneStep:
		return x.mapOptional(in, func(t *traversal.Traverser) (any, bool, error) {
			v, ok := traversal.NullableScopeValue(s.Pop(), s.Key(), t, x.sideEffects)
			if !ok {
				return nil, false, nil
			}
			return x.projectValue(s.By(), t, v)
		})

	case *traversal.SelectStep:
		return x.mapOptional(in, func(t *traversal.Traverser) (any, bool, error) {
			selected := make(map[string]any, len(s.ScopeKeys()))
			for i, key := range s.ScopeKeys() {
				v, ok := traversal.NullableScopeValue(s.Pop(), key, t, x.sideEffects)
				if !ok {
					return nil, false, nil
				}
				v, ok, err := x.projectValue(s.ByFor(i), t, v)
				if err != nil || !ok {
					return nil, false, err
				}
				selected[key] = v
			}
			return selected, true, nil
		})

	case *traversal.PathStep:
		return x.mapOptional(in, func(t *traversal.Traverser) (any, bool, error) {
			by := s.LocalChildren()
			objects := t.Path().Objects()
			for i, obj := range objects {
				if len(by) == 0 {
					break
				}
				v, ok, err := x.projectValue(by[i%len(by)], t, obj)
				if err != nil || !ok {
					return nil, false, err
				}
				objects[i] = v
			}
			return objects, true, nil
		})

	case *traversal.ProjectStep:
		return mapEach(in, func(t *traversal.Traverser) (any, error) {
			projected := make(map[string]any, len(s.Keys()))
			for i, key := range s.Keys() {
				v, ok, err := x.project(s.ByFor(i), t)
				if err != nil {
					return nil, err
				}
				if ok {
					projected[key] = v
				}
			}
			return projected, nil
		})

	case *traversal.TraversalMapStep:
		return x.mapOptional(in, func(t *traversal.Traverser) (any, bool, error) { return x.first(s.Child(), t) })

	case *traversal.CoalesceStep:
		return x.coalesce(s, in)

	case *traversal.LambdaMapStep:
		return mapEach(in, s.Func())

	case *traversal.LambdaFlatMapStep:
		return flatMap(in, s.Func())

	case *traversal.HasStep:
		return filter(in, func(t *traversal.Traverser) (bool, error) { return hasAll(s.HasContainers(), t.Get()), nil })

	case *traversal.IsStep:
		return filter(in, func(t *traversal.Traverser) (bool, error) { return s.Predicate().Test(t.Get()), nil })

	case *traversal.WherePredicateStep:
		return filter(in, func(t *traversal.Traverser) (bool, error) { return x.wherePredicate(s, t) })

	case *traversal.WhereTraversalStep:
		return filter(in, func(t *traversal.Traverser) (bool, error) { return x.whereTraversal(s, t) })

	case *traversal.TraversalFilterStep:
		return filter(in, func(t *traversal.Traverser) (bool, error) { return x.produces(s.Child(), t) })

	case *traversal.NotStep:
		return filter(in, func(t *traversal.Traverser) (bool, error) {
			ok, err := x.produces(s.Child(), t)
			return !ok, err
		})

	case *traversal.AndStep:
		return x.connective(s, in, true)

	case *traversal.OrStep:
		return x.connective(s, in, false)

	case *traversal.DedupGlobalStep:
		return x.dedup(s, in)

	case *traversal.RangeGlobalStep:
		return rangeOf(in, s.Low(), s.High()), nil

	case *traversal.PathFilterStep:
		return filter(in, func(t *traversal.Traverser) (bool, error) { return isSimple(t.Path()) == s.IsSimple(), nil })

	case *traversal.NoneStep:
		return nil, nil

	case *traversal.DropStep:
		return nil, x.drop(in)

	case *traversal.LambdaFilterStep:
		return filter(in, s.Func())

	case *traversal.LambdaSideEffectStep:
		for _, t := range in {
			if err := s.Func()(t); err != nil {
				return nil, err
			}
		}
		return in, nil

	case *traversal.RepeatStep:
		return x.repeat(s, in)

	case *traversal.UnionStep:
		var out []*traversal.Traverser
		for _, branch := range s.GlobalChildren() {
			starts := make([]*traversal.Traverser, 0, len(in))
			for _, t := range in {
				starts = append(starts, t.Split(t.Get()))
			}
			results, err := x.traversal(branch, starts)
			if err != nil {
				return nil, err
			}
			out = append(out, results...)
		}
		return out, nil

	case *traversal.LocalStep:
		var out []*traversal.Traverser
		for _, t := range in {
			results, err := x.child(s.Child(), t)
			if err != nil {
				return nil, err
			}
			out = append(out, multiplyBulk(results, t.Bulk())...)
		}
		return out, nil

	case *traversal.OptionalStep:
		var out []*traversal.Traverser
		for _, t := range in {
			results, err := x.child(s.Child(), t)
			if err != nil {
				return nil, err
			}
			if len(results) == 0 {
				out = append(out, t)
				continue
			}
			out = append(out, multiplyBulk(results, t.Bulk())...)
		}
		return out, nil

	case *traversal.MatchStep:
		return x.match(s, in)

	case *traversal.CountGlobalStep, *traversal.FoldStep:
		return x.reduce(s.(traversal.Barrier), in)

	case *traversal.GroupCountStep:
		return x.groupCount(s, in)

	case *traversal.GroupStep:
		return x.group(s, in)

	case *traversal.OrderGlobalStep:
		return x.order(s, in)

	case *traversal.NoOpBarrierStep:
		return drain(s, in)

	case *traversal.AggregateGlobalStep:
		return x.aggregate(s, in)

	case *traversal.SideEffectCapStep:
		return x.capSideEffects(s)

	default:
		return nil, fmt.Errorf("unsupported step %s", s)
	}
}

func (x *execution) graphStep(s *traversal.GraphStep, in []*traversal.Traverser) ([]*traversal.Traverser, error) {
	ids := s.IDs()
	for i, id := range ids {
		if element, ok := id.(structure.Element); ok {
			ids[i] = element.ID()
		}
	}

	var elements []any
	if s.ReturnsVertex() {
		found, err := x.graph.Vertices(ids...)
		if err != nil {
			return nil, err
		}
		elements = vertices(found)
	} else {
		found, err := x.graph.Edges(ids...)
		if err != nil {
			return nil, err
		}
		for _, e := range found {
			elements = append(elements, e)
		}
	}

	if s.IsStartStep() && s.Traversal().IsRoot() {
		out := make([]*traversal.Traverser, 0, len(elements))
		for _, element := range elements {
			out = append(out, start(element))
		}
		return out, nil
	}
	return flatMap(in, func(*traversal.Traverser) ([]any, error) { return elements, nil })
}

func (x *execution) adjacent(s *traversal.VertexStep, t *traversal.Traverser) ([]any, error) {
	v, ok := t.Get().(structure.Vertex)
	if !ok {
		return nil, fmt.Errorf("expected a vertex, found %T", t.Get())
	}

	edges, err := x.graph.VertexEdges(v, s.Direction(), s.EdgeLabels()...)
	if err != nil {
		return nil, err
	}

	out := make([]any, 0, len(edges))
	for _, e := range edges {
		switch {
		case !s.ReturnsVertex():
			out = append(out, e)
		case s.Direction() == structure.Out:
			out = append(out, e.InVertex())
		case s.Direction() == structure.In:
			out = append(out, e.OutVertex())
		default:
			out = append(out, structure.OtherVertex(e, v))
		}
	}
	return out, nil
}

// otherVertex returns the vertex of the edge the traverser did not arrive
// from, found by walking its path back.
func otherVertex(t *traversal.Traverser) (any, error) {
	e, ok := t.Get().(structure.Edge)
	if !ok {
		return nil, fmt.Errorf("expected an edge, found %T", t.Get())
	}

	objects := t.Path().Objects()
	for i := len(objects) - 1; i >= 0; i-- {
		v, ok := objects[i].(structure.Vertex)
		if !ok {
			continue
		}
		switch {
		case predicate.Equal(v.ID(), e.OutVertex().ID()):
			return e.InVertex(), nil
		case predicate.Equal(v.ID(), e.InVertex().ID()):
			return e.OutVertex(), nil
		}
	}
	return nil, fmt.Errorf("no vertex of edge %v found in the path", e.ID())
}

func properties(s *traversal.PropertiesStep, obj any) ([]any, error) {
	element, ok := obj.(structure.Element)
	if !ok {
		return nil, fmt.Errorf("expected an element, found %T", obj)
	}

	keys := s.Keys()
	if len(keys) == 0 {
		keys = element.Keys()
	}

	out := make([]any, 0, len(keys))
	for _, key := range keys {
		v, ok := element.Property(key)
		if !ok {
			continue
		}
		if s.ReturnsValue() {
			out = append(out, v)
		} else {
			out = append(out, structure.Property{Owner: element, Key: key, Value: v})
		}
	}
	return out, nil
}

// token resolves a T token against an element or a property.
func token(tok structure.T, obj any) (any, error) {
	switch obj := obj.(type) {
	case structure.Element:
		switch tok {
		case structure.TID:
			return obj.ID(), nil
		case structure.TLabel:
			return obj.Label(), nil
		}
	case structure.Property:
		switch tok {
		case structure.TKey:
			return obj.Key, nil
		case structure.TValue:
			return obj.Value, nil
		}
	}
	return nil, fmt.Errorf("%s is not available on %T", tok, obj)
}

// hasAll returns true if the object passes every container.
func hasAll(containers []*traversal.HasContainer, obj any) bool {
	for _, hc := range containers {
		v, ok := lookup(hc.Key, obj)
		if !ok || !hc.Predicate.Test(v) {
			return false
		}
	}
	return true
}

func lookup(key string, obj any) (any, bool) {
	switch obj := obj.(type) {
	case structure.Element:
		switch key {
		case traversal.IDKey:
			return obj.ID(), true
		case traversal.LabelKey:
			return obj.Label(), true
		default:
			return obj.Property(key)
		}
	case map[string]any:
		v, ok := obj[key]
		return v, ok
	default:
		return nil, false
	}
}

func (x *execution) wherePredicate(s *traversal.WherePredicateStep, t *traversal.Traverser) (bool, error) {
	startValue := t.Get()
	if s.StartKey() != "" {
		v, ok := traversal.NullableScopeValue(traversal.PopLast, s.StartKey(), t, x.sideEffects)
		if !ok {
			return false, nil
		}
		startValue = v
	}

	startValue, ok, err := x.projectValue(s.ByFor(0), t, startValue)
	if err != nil || !ok {
		return false, err
	}

	var resolveErr error
	p, ok := s.Predicate().Resolve(func(operand any) (any, bool) {
		key, ok := operand.(string)
		if !ok {
			return operand, true
		}
		v, ok := traversal.NullableScopeValue(traversal.PopLast, key, t, x.sideEffects)
		if !ok {
			return nil, false
		}
		v, ok, err := x.projectValue(s.ByFor(1), t, v)
		if err != nil {
			resolveErr = err
			return nil, false
		}
		return v, ok
	})
	if resolveErr != nil || !ok {
		return false, resolveErr
	}
	return p.Test(startValue), nil
}

func (x *execution) whereTraversal(s *traversal.WhereTraversalStep, t *traversal.Traverser) (bool, error) {
	from := t
	if s.StartKey() != "" {
		v, ok := traversal.NullableScopeValue(traversal.PopLast, s.StartKey(), t, x.sideEffects)
		if !ok {
			return false, nil
		}
		from = t.Split(v)
	}

	results, err := x.child(s.Child(), from)
	if err != nil || len(results) == 0 {
		return false, err
	}
	if s.EndKey() == "" {
		return true, nil
	}

	end, ok := traversal.NullableScopeValue(traversal.PopLast, s.EndKey(), t, x.sideEffects)
	if !ok {
		return false, nil
	}
	for _, result := range results {
		if predicate.Equal(result.Get(), end) {
			return true, nil
		}
	}
	return false, nil
}

var errInfixConnective = errors.New("and() and or() need child traversals; compile the traversal to resolve infix connectives")

func (x *execution) connective(s traversal.TraversalParent, in []*traversal.Traverser, all bool) ([]*traversal.Traverser, error) {
	children := s.LocalChildren()
	if len(children) == 0 {
		return nil, errInfixConnective
	}

	return filter(in, func(t *traversal.Traverser) (bool, error) {
		for _, child := range children {
			ok, err := x.produces(child, t)
			if err != nil {
				return false, err
			}
			if ok != all {
				return ok, nil
			}
		}
		return all, nil
	})
}

func (x *execution) coalesce(s *traversal.CoalesceStep, in []*traversal.Traverser) ([]*traversal.Traverser, error) {
	var out []*traversal.Traverser
	for _, t := range in {
		for _, child := range s.LocalChildren() {
			results, err := x.child(child, t)
			if err != nil {
				return nil, err
			}
			if len(results) == 0 {
				continue
			}
			for _, result := range results {
				emitted := mapTo(t, result.Get())
				emitted.SetBulk(t.Bulk() * result.Bulk())
				out = append(out, emitted)
			}
			break
		}
	}
	return out, nil
}

func (x *execution) dedup(s *traversal.DedupGlobalStep, in []*traversal.Traverser) ([]*traversal.Traverser, error) {
	var seen []any
	var out []*traversal.Traverser
	for _, t := range in {
		key, ok, err := x.dedupKey(s, t)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		key = normalize(key)
		if containsEqual(seen, key) {
			continue
		}
		seen = append(seen, key)
		t.SetBulk(1)
		out = append(out, t)
	}
	return out, nil
}

func (x *execution) dedupKey(s *traversal.DedupGlobalStep, t *traversal.Traverser) (any, bool, error) {
	labels := s.ScopeKeys()
	if len(labels) == 0 {
		return x.project(s.By(), t)
	}

	tuple := make([]any, 0, len(labels))
	for _, label := range labels {
		v, ok := traversal.NullableScopeValue(traversal.PopLast, label, t, x.sideEffects)
		if !ok {
			return nil, false, nil
		}
		v, ok, err := x.projectValue(s.By(), t, v)
		if err != nil || !ok {
			return nil, false, err
		}
		tuple = append(tuple, v)
	}
	return tuple, true, nil
}

// rangeOf passes the traversers falling in [low, high) of the stream,
// counting bulk. A high of -1 is unbounded.
func rangeOf(in []*traversal.Traverser, low, high int64) []*traversal.Traverser {
	var out []*traversal.Traverser
	var position int64
	for _, t := range in {
		from, to := position, position+t.Bulk()
		position = to

		from = max(from, low)
		if high >= 0 {
			to = min(to, high)
		}
		if to <= from {
			continue
		}
		if to-from != t.Bulk() {
			t.SetBulk(to - from)
		}
		out = append(out, t)
	}
	return out
}

// isSimple returns true if no object repeats in the path.
func isSimple(p traversal.Path) bool {
	objects := p.Objects()
	for i := range objects {
		for j := i + 1; j < len(objects); j++ {
			if predicate.Equal(objects[i], objects[j]) {
				return false
			}
		}
	}
	return true
}

func (x *execution) drop(in []*traversal.Traverser) error {
	g, ok := x.graph.(remover)
	if !ok {
		return fmt.Errorf("the graph does not support drop()")
	}
	for _, t := range in {
		element, ok := t.Get().(structure.Element)
		if !ok {
			return fmt.Errorf("cannot drop %T", t.Get())
		}
		if err := g.Remove(element); err != nil {
			return err
		}
	}
	return nil
}

func (x *execution) aggregate(s *traversal.AggregateGlobalStep, in []*traversal.Traverser) ([]*traversal.Traverser, error) {
	out, err := drain(s, in)
	if err != nil {
		return nil, err
	}

	current, _ := x.sideEffects.Get(s.SideEffectKey())
	values, _ := current.([]any)
	for _, t := range out {
		for range t.Bulk() {
			values = append(values, t.Get())
		}
	}
	x.sideEffects.Set(s.SideEffectKey(), values)
	return out, nil
}

func (x *execution) capSideEffects(s *traversal.SideEffectCapStep) ([]*traversal.Traverser, error) {
	keys := s.Keys()
	if len(keys) == 1 {
		v, ok := x.sideEffects.Get(keys[0])
		if !ok {
			return nil, &traversal.KeyNotFoundError{Key: keys[0], Step: s}
		}
		return []*traversal.Traverser{start(v)}, nil
	}

	capped := make(map[string]any, len(keys))
	for _, key := range keys {
		v, ok := x.sideEffects.Get(key)
		if !ok {
			return nil, &traversal.KeyNotFoundError{Key: key, Step: s}
		}
		capped[key] = v
	}
	return []*traversal.Traverser{start(capped)}, nil
}

func filter(in []*traversal.Traverser, pass func(t *traversal.Traverser) (bool, error)) ([]*traversal.Traverser, error) {
	out := make([]*traversal.Traverser, 0, len(in))
	for _, t := range in {
		ok, err := pass(t)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func mapEach[F ~func(*traversal.Traverser) (any, error)](in []*traversal.Traverser, fn F) ([]*traversal.Traverser, error) {
	out := make([]*traversal.Traverser, 0, len(in))
	for _, t := range in {
		v, err := fn(t)
		if err != nil {
			return nil, err
		}
		out = append(out, mapTo(t, v))
	}
	return out, nil
}

func (x *execution) mapOptional(in []*traversal.Traverser, fn func(t *traversal.Traverser) (any, bool, error)) ([]*traversal.Traverser, error) {
	out := make([]*traversal.Traverser, 0, len(in))
	for _, t := range in {
		v, ok, err := fn(t)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, mapTo(t, v))
		}
	}
	return out, nil
}

func flatMap[F ~func(*traversal.Traverser) ([]any, error)](in []*traversal.Traverser, fn F) ([]*traversal.Traverser, error) {
	var out []*traversal.Traverser
	for _, t := range in {
		values, err := fn(t)
		if err != nil {
			return nil, err
		}
		for _, v := range values {
			out = append(out, mapTo(t, v))
		}
	}
	return out, nil
}

func vertices(vs []structure.Vertex) []any {
	out := make([]any, 0, len(vs))
	for _, v := range vs {
		out = append(out, v)
	}
	return out
}
