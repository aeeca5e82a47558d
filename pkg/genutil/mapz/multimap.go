package mapz

import (
	"maps"
	"slices"
)

// NewMultiMap initializes a new MultiMap.
func NewMultiMap[T comparable, Q comparable]() *MultiMap[T, Q] {
	return &MultiMap[T, Q]{items: map[T][]Q{}}
}

// MultiMap represents a map that can contain 1 or more values for each key.
// Values are kept in insertion order and are never duplicated per key.
type MultiMap[T comparable, Q comparable] struct {
	items map[T][]Q
}

// Add inserts the value into the map at the given key, unless it is already
// present for that key. Returns true if the value was added.
func (mm *MultiMap[T, Q]) Add(key T, item Q) bool {
	if slices.Contains(mm.items[key], item) {
		return false
	}

	mm.items[key] = append(mm.items[key], item)
	return true
}

// Has returns true if the key is found in the map.
func (mm *MultiMap[T, Q]) Has(key T) bool {
	_, ok := mm.items[key]
	return ok
}

// Get returns the values stored in the map for the provided key and whether
// the key existed.
//
// If the key does not exist, an empty slice is returned.
func (mm *MultiMap[T, Q]) Get(key T) ([]Q, bool) {
	found, ok := mm.items[key]
	if !ok {
		return []Q{}, false
	}

	return found, true
}

// IsEmpty returns true if the map is currently empty.
func (mm *MultiMap[T, Q]) IsEmpty() bool { return len(mm.items) == 0 }

// Len returns the length of the map, e.g. the number of *keys* present.
func (mm *MultiMap[T, Q]) Len() int { return len(mm.items) }

// Keys returns the keys of the map, in no particular order.
func (mm *MultiMap[T, Q]) Keys() []T { return slices.Collect(maps.Keys(mm.items)) }

// CountOf returns the number of values stored for the given key.
func (mm *MultiMap[T, Q]) CountOf(key T) int {
	return len(mm.items[key])
}

// Contains returns true if the value is stored for the given key.
func (mm *MultiMap[T, Q]) Contains(key T, item Q) bool {
	return slices.Contains(mm.items[key], item)
}

// RemoveValue removes the value from the given key, dropping the key once it
// holds no values. Returns true if the value was present.
func (mm *MultiMap[T, Q]) RemoveValue(key T, item Q) bool {
	found := mm.items[key]
	i := slices.Index(found, item)
	if i < 0 {
		return false
	}

	found = slices.Delete(found, i, i+1)
	if len(found) == 0 {
		delete(mm.items, key)
		return true
	}
	mm.items[key] = found
	return true
}
