package traversal

import (
	"fmt"
	"slices"
	"strings"

	"github.com/jzelinskie/stringz"

	"github.com/authzed/graphtraversal/pkg/genutil/mapz"
	"github.com/authzed/graphtraversal/pkg/predicate"
)

// Pop selects which of several objects bound to the same label is returned.
type Pop uint8

const (
	PopLast Pop = iota
	PopFirst
	PopAll
	PopMixed
)

func (p Pop) String() string {
	switch p {
	case PopFirst:
		return "first"
	case PopAll:
		return "all"
	case PopMixed:
		return "mixed"
	default:
		return "last"
	}
}

// PathEntry is one object of a path along with the labels bound to it.
type PathEntry struct {
	Object any
	Labels []string
}

// Path is the history of a traverser. Paths are immutable: every operation
// returning a path leaves the receiver untouched.
type Path struct {
	entries []PathEntry
}

// Extend returns the path with the object appended.
func (p Path) Extend(object any, labels ...string) Path {
	entries := make([]PathEntry, len(p.entries), len(p.entries)+1)
	copy(entries, p.entries)
	entries = append(entries, PathEntry{Object: object, Labels: slices.Clone(labels)})
	return Path{entries: entries}
}

// Label returns the path with the labels added to its last object.
func (p Path) Label(labels ...string) Path {
	if len(p.entries) == 0 {
		return p
	}
	entries := slices.Clone(p.entries)
	last := &entries[len(entries)-1]
	merged := slices.Clone(last.Labels)
	for _, label := range labels {
		if !slices.Contains(merged, label) {
			merged = append(merged, label)
		}
	}
	last.Labels = merged
	return Path{entries: entries}
}

// Len returns the number of objects in the path.
func (p Path) Len() int { return len(p.entries) }

// Objects returns the objects of the path in order.
func (p Path) Objects() []any {
	objects := make([]any, 0, len(p.entries))
	for _, entry := range p.entries {
		objects = append(objects, entry.Object)
	}
	return objects
}

// Entries returns the entries of the path in order.
func (p Path) Entries() []PathEntry { return slices.Clone(p.entries) }

// HasLabel returns true if any object in the path is bound to the label.
func (p Path) HasLabel(label string) bool {
	for _, entry := range p.entries {
		if slices.Contains(entry.Labels, label) {
			return true
		}
	}
	return false
}

// Get returns the object bound to the label according to the pop. PopAll
// always returns a slice; PopMixed returns a slice only for several objects.
func (p Path) Get(pop Pop, label string) (any, bool) {
	var found []any
	for _, entry := range p.entries {
		if slices.Contains(entry.Labels, label) {
			found = append(found, entry.Object)
		}
	}
	if len(found) == 0 {
		if pop == PopAll {
			return []any{}, false
		}
		return nil, false
	}

	switch pop {
	case PopFirst:
		return found[0], true
	case PopAll:
		return found, true
	case PopMixed:
		if len(found) == 1 {
			return found[0], true
		}
		return found, true
	default:
		return found[len(found)-1], true
	}
}

// Retract returns the path with every label not kept removed. Objects left
// without any label are dropped.
func (p Path) Retract(keep *mapz.Set[string]) Path {
	entries := make([]PathEntry, 0, len(p.entries))
	for _, entry := range p.entries {
		labels := make([]string, 0, len(entry.Labels))
		for _, label := range entry.Labels {
			if keep.Has(label) {
				labels = append(labels, label)
			}
		}
		if len(labels) == 0 {
			continue
		}
		entries = append(entries, PathEntry{Object: entry.Object, Labels: labels})
	}
	return Path{entries: entries}
}

// Equal returns true if both paths hold equal objects with the same labels.
func (p Path) Equal(other Path) bool {
	if len(p.entries) != len(other.entries) {
		return false
	}
	for i := range p.entries {
		if !predicate.Equal(p.entries[i].Object, other.entries[i].Object) ||
			!slices.Equal(p.entries[i].Labels, other.entries[i].Labels) {
			return false
		}
	}
	return true
}

func (p Path) String() string {
	parts := make([]string, 0, len(p.entries))
	for _, entry := range p.entries {
		parts = append(parts, fmt.Sprint(entry.Object))
	}
	return "path[" + stringz.Join(", ", parts...) + "]"
}

// Traverser carries an object through a traversal, along with how many
// identical traversers it stands for, its loop counters and its path.
type Traverser struct {
	obj   any
	bulk  int64
	loops []int64
	path  Path
}

// NewTraverser returns a traverser of bulk one.
func NewTraverser(obj any) *Traverser {
	return &Traverser{obj: obj, bulk: 1}
}

func (t *Traverser) Get() any { return t.obj }

func (t *Traverser) Bulk() int64 { return t.bulk }

func (t *Traverser) SetBulk(bulk int64) { t.bulk = bulk }

func (t *Traverser) Path() Path { return t.path }

// Split returns a copy of the traverser carrying the new object. The path is
// shared, as paths are immutable.
func (t *Traverser) Split(obj any) *Traverser {
	return &Traverser{obj: obj, bulk: t.bulk, loops: slices.Clone(t.loops), path: t.path}
}

// ExtendPath records the current object in the path under the labels.
func (t *Traverser) ExtendPath(labels ...string) {
	t.path = t.path.Extend(t.obj, labels...)
}

// AddLabels binds the labels to the current object: to the last path entry
// when it holds the current object, or to a new entry otherwise.
func (t *Traverser) AddLabels(labels ...string) {
	if len(labels) == 0 {
		return
	}
	if n := len(t.path.entries); n > 0 && predicate.Equal(t.path.entries[n-1].Object, t.obj) {
		t.path = t.path.Label(labels...)
		return
	}
	t.ExtendPath(labels...)
}

// KeepLabels drops every path label not in the set. A nil set keeps all.
func (t *Traverser) KeepLabels(keep *mapz.Set[string]) {
	if keep == nil {
		return
	}
	t.path = t.path.Retract(keep)
}

// Loops returns the counter of the innermost loop.
func (t *Traverser) Loops() int64 {
	if len(t.loops) == 0 {
		return 0
	}
	return t.loops[len(t.loops)-1]
}

// InitLoops starts a counter for a new, nested loop.
func (t *Traverser) InitLoops() { t.loops = append(t.loops, 0) }

// IncrLoops increments the counter of the innermost loop.
func (t *Traverser) IncrLoops() {
	if len(t.loops) == 0 {
		t.InitLoops()
	}
	t.loops[len(t.loops)-1]++
}

// ResetLoops discards the counter of the innermost loop.
func (t *Traverser) ResetLoops() {
	if len(t.loops) > 0 {
		t.loops = t.loops[:len(t.loops)-1]
	}
}

// Mergeable returns true if both traversers are interchangeable, in which
// case they may be combined into one by summing their bulks.
func (t *Traverser) Mergeable(other *Traverser) bool {
	return predicate.Equal(t.obj, other.obj) && slices.Equal(t.loops, other.loops) && t.path.Equal(other.path)
}

func (t *Traverser) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%v", t.obj)
	if t.bulk != 1 {
		fmt.Fprintf(&sb, "x%d", t.bulk)
	}
	return sb.String()
}

// SideEffects is the table of values registered under side-effect keys.
type SideEffects struct {
	values map[string]any
	keys   []string
}

// NewSideEffects returns an empty side-effect table.
func NewSideEffects() *SideEffects {
	return &SideEffects{values: map[string]any{}}
}

// Register declares the key with its initial value.
func (se *SideEffects) Register(key string, initial any) {
	if _, ok := se.values[key]; !ok {
		se.keys = append(se.keys, key)
	}
	se.values[key] = initial
}

// Exists returns true if the key was registered.
func (se *SideEffects) Exists(key string) bool {
	if se == nil {
		return false
	}
	_, ok := se.values[key]
	return ok
}

// Get returns the value of the key.
func (se *SideEffects) Get(key string) (any, bool) {
	if se == nil {
		return nil, false
	}
	v, ok := se.values[key]
	return v, ok
}

// Set replaces the value of a key, registering it if needed.
func (se *SideEffects) Set(key string, value any) {
	se.Register(key, value)
}

// Keys returns the registered keys in registration order.
func (se *SideEffects) Keys() []string {
	if se == nil {
		return nil
	}
	return slices.Clone(se.keys)
}

// ScopeValue resolves the key for the step against the current object when
// it is a map, then the side effects, then the path of the traverser.
func ScopeValue(step Scoping, pop Pop, key string, t *Traverser, se *SideEffects) (any, error) {
	if v, ok := NullableScopeValue(pop, key, t, se); ok {
		return v, nil
	}
	return nil, &KeyNotFoundError{Key: key, Step: step}
}

// NullableScopeValue resolves the key like ScopeValue, returning false
// instead of an error when it cannot be found.
func NullableScopeValue(pop Pop, key string, t *Traverser, se *SideEffects) (any, bool) {
	if m, ok := t.Get().(map[string]any); ok {
		if v, ok := m[key]; ok {
			return v, true
		}
	}

	if v, ok := se.Get(key); ok {
		return v, true
	}

	return t.Path().Get(pop, key)
}
