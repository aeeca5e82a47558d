package evaluator

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/authzed/graphtraversal/pkg/predicate"
	"github.com/authzed/graphtraversal/pkg/traversal"
)

// project applies a by() modulator to the traverser. The boolean is false
// when the modulator is unproductive, in which case callers drop the
// traverser. A nil modulator is the identity.
func (x *execution) project(by *traversal.Traversal, t *traversal.Traverser) (any, bool, error) {
	if by == nil {
		return t.Get(), true, nil
	}

	switch by.Kind() {
	case traversal.KindIdentity:
		return t.Get(), true, nil

	case traversal.KindConstant:
		return by.Value(), true, nil

	case traversal.KindToken:
		v, err := token(by.Token(), t.Get())
		if err != nil {
			return nil, false, err
		}
		return v, true, nil

	case traversal.KindValue:
		if bypass := by.Bypass(); bypass != nil {
			return x.first(bypass, t)
		}
		v, ok := lookup(by.Key(), t.Get())
		return v, ok, nil

	case traversal.KindLoop:
		return t.Loops(), t.Loops() >= by.MaxLoops(), nil

	default:
		return x.first(by, t)
	}
}

// projectValue applies the modulator to a value other than the current
// object, such as one resolved from a label.
func (x *execution) projectValue(by *traversal.Traversal, t *traversal.Traverser, v any) (any, bool, error) {
	if by == nil {
		return v, true, nil
	}
	return x.project(by, t.Split(v))
}

// normalize widens integers to int64, recursively through slices, so that
// values read from different sources compare and hash alike.
func normalize(v any) any {
	switch v := v.(type) {
	case []any:
		normalized := make([]any, 0, len(v))
		for _, item := range v {
			normalized = append(normalized, normalize(item))
		}
		return normalized
	}
	if n, ok := predicate.AsInt64(v); ok {
		return n
	}
	return v
}

// hashable returns a value usable as a map key for the object. Objects that
// cannot be compared are keyed by their string form.
func hashable(v any) any {
	v = normalize(v)
	if v == nil || reflect.TypeOf(v).Comparable() {
		return v
	}
	return fmt.Sprint(v)
}

func containsEqual(values []any, v any) bool {
	return slices.ContainsFunc(values, func(existing any) bool { return predicate.Equal(existing, v) })
}
