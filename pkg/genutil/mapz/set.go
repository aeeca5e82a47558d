package mapz

import (
	"cmp"
	"maps"
	"slices"
)

// Set implements a very basic generic set.
type Set[T comparable] struct {
	values map[T]struct{}
}

// NewSet returns a new set.
func NewSet[T comparable](items ...T) *Set[T] {
	s := &Set[T]{
		values: make(map[T]struct{}, len(items)),
	}
	for _, item := range items {
		s.values[item] = struct{}{}
	}
	return s
}

// Has returns true if the set contains the given value.
func (s *Set[T]) Has(value T) bool {
	if s == nil {
		return false
	}
	_, exists := s.values[value]
	return exists
}

// Add adds the given value to the set and returns true. If
// the value is already present, returns false.
func (s *Set[T]) Add(value T) bool {
	if s.Has(value) {
		return false
	}

	s.values[value] = struct{}{}
	return true
}

// Insert adds all the values to the set.
func (s *Set[T]) Insert(values ...T) {
	for _, value := range values {
		s.values[value] = struct{}{}
	}
}

// Delete removes the value from the set, returning whether
// the element was present when the call was made.
func (s *Set[T]) Delete(value T) bool {
	if !s.Has(value) {
		return false
	}

	delete(s.values, value)
	return true
}

// Merge adds all values of the other set into this set.
func (s *Set[T]) Merge(other *Set[T]) {
	if other == nil {
		return
	}
	for value := range other.values {
		s.values[value] = struct{}{}
	}
}

// RemoveAll removes all values from this set found in the other set.
func (s *Set[T]) RemoveAll(other *Set[T]) {
	if other == nil {
		return
	}
	for value := range other.values {
		delete(s.values, value)
	}
}

// Intersects returns true if the sets share at least one value.
func (s *Set[T]) Intersects(other *Set[T]) bool {
	if s.IsEmpty() || other.IsEmpty() {
		return false
	}
	if s.Len() > other.Len() {
		s, other = other, s
	}
	for value := range s.values {
		if other.Has(value) {
			return true
		}
	}
	return false
}

// Intersect returns a new set holding the values found in both sets.
func (s *Set[T]) Intersect(other *Set[T]) *Set[T] {
	out := NewSet[T]()
	if s == nil {
		return out
	}
	for value := range s.values {
		if other.Has(value) {
			out.values[value] = struct{}{}
		}
	}
	return out
}

// Subtract subtracts the other set from this set, returning a new set.
func (s *Set[T]) Subtract(other *Set[T]) *Set[T] {
	out := s.Copy()
	out.RemoveAll(other)
	return out
}

// Copy returns a shallow copy of the set.
func (s *Set[T]) Copy() *Set[T] {
	if s == nil {
		return NewSet[T]()
	}
	return &Set[T]{values: maps.Clone(s.values)}
}

// Equal returns true if both sets hold exactly the same values.
func (s *Set[T]) Equal(other *Set[T]) bool {
	if s.Len() != other.Len() {
		return false
	}
	if s.IsEmpty() {
		return true
	}
	for value := range s.values {
		if !other.Has(value) {
			return false
		}
	}
	return true
}

// IsEmpty returns true if the set is empty.
func (s *Set[T]) IsEmpty() bool {
	return s.Len() == 0
}

// Len returns the number of values in the set.
func (s *Set[T]) Len() int {
	if s == nil {
		return 0
	}
	return len(s.values)
}

// AsSlice returns the set as a slice of values, in no particular order.
func (s *Set[T]) AsSlice() []T {
	if s.Len() == 0 {
		return nil
	}

	return slices.Collect(maps.Keys(s.values))
}

// SortedSlice returns the values of the set in ascending order.
func SortedSlice[T cmp.Ordered](s *Set[T]) []T {
	values := s.AsSlice()
	slices.Sort(values)
	return values
}
