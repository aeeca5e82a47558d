// Package slicez holds generic slice helpers shared by the strategies.
package slicez

import "slices"

// Map returns a new slice holding fn applied to each element of xs.
func Map[T any, R any](xs []T, fn func(T) R) []R {
	ys := make([]R, len(xs))
	for i, x := range xs {
		ys[i] = fn(x)
	}
	return ys
}

// Unique returns xs without duplicates, keeping the first occurrence of each
// element in its original position.
func Unique[T comparable, Slice ~[]T](xs Slice) Slice {
	ys := make(Slice, 0, len(xs))
	seen := make(map[T]struct{}, len(xs))
	for _, x := range xs {
		if _, ok := seen[x]; ok {
			continue
		}
		seen[x] = struct{}{}
		ys = append(ys, x)
	}
	return ys
}

// ContainsAll returns true if every needle is present in haystack.
func ContainsAll[T comparable](haystack, needles []T) bool {
	for _, needle := range needles {
		if !slices.Contains(haystack, needle) {
			return false
		}
	}
	return true
}

// TypedValues asserts every element of values to T. It returns false if any
// element has another type.
func TypedValues[T any](values []any) ([]T, bool) {
	ts := make([]T, 0, len(values))
	for _, v := range values {
		typed, ok := v.(T)
		if !ok {
			return nil, false
		}
		ts = append(ts, typed)
	}
	return ts, true
}
