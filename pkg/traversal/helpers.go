package traversal

import (
	"github.com/authzed/graphtraversal/pkg/genutil/mapz"
)

// CopyLabels adds the labels of one step to another. When move is true, the
// labels are removed from the source step.
func CopyLabels(from, to Step, move bool) {
	for _, label := range from.Labels() {
		to.AddLabel(label)
		if move {
			from.RemoveLabel(label)
		}
	}
}

// StepsOf returns the steps of the traversal implementing T, without
// descending into children.
func StepsOf[T any](t *Traversal) []T {
	var found []T
	for _, s := range t.steps {
		if v, ok := s.(T); ok {
			found = append(found, v)
		}
	}
	return found
}

// HasStepOf returns true if any step of the traversal implements T.
func HasStepOf[T any](t *Traversal) bool {
	for _, s := range t.steps {
		if _, ok := s.(T); ok {
			return true
		}
	}
	return false
}

// StepsOfRecursively returns the steps implementing T found in the
// traversal and, depth first, in every child traversal.
func StepsOfRecursively[T any](t *Traversal) []T {
	var found []T
	for _, s := range t.steps {
		if v, ok := s.(T); ok {
			found = append(found, v)
		}
		if parent, ok := s.(TraversalParent); ok {
			for _, child := range parent.LocalChildren() {
				found = append(found, StepsOfRecursively[T](child)...)
			}
			for _, child := range parent.GlobalChildren() {
				found = append(found, StepsOfRecursively[T](child)...)
			}
		}
	}
	return found
}

// HasStepOfRecursively returns true if a step implementing T is found in
// the traversal or any of its children.
func HasStepOfRecursively[T any](t *Traversal) bool {
	return AnyStepRecursively(t, func(s Step) bool {
		_, ok := s.(T)
		return ok
	})
}

// AnyStepRecursively returns true if the predicate holds for any step of the
// traversal or of its children.
func AnyStepRecursively(t *Traversal, pred func(Step) bool) bool {
	for _, s := range t.steps {
		if pred(s) {
			return true
		}
		if parent, ok := s.(TraversalParent); ok && AnyChildStep(parent, pred) {
			return true
		}
	}
	return false
}

// AnyChildStep returns true if the predicate holds for any step found
// recursively within the children of the parent.
func AnyChildStep(parent TraversalParent, pred func(Step) bool) bool {
	for _, child := range parent.LocalChildren() {
		if AnyStepRecursively(child, pred) {
			return true
		}
	}
	for _, child := range parent.GlobalChildren() {
		if AnyStepRecursively(child, pred) {
			return true
		}
	}
	return false
}

// HasAllSteps returns true if every predicate holds for some step of the
// traversal or of its children.
func HasAllSteps(t *Traversal, preds ...func(Step) bool) bool {
	for _, pred := range preds {
		if !AnyStepRecursively(t, pred) {
			return false
		}
	}
	return true
}

// ApplyRecursively calls fn on the traversal and then, in order, on the local
// and global children of each of its steps. The walk stops on the first
// error.
func ApplyRecursively(t *Traversal, fn func(*Traversal) error) error {
	if err := fn(t); err != nil {
		return err
	}
	for _, s := range t.Steps() {
		parent, ok := s.(TraversalParent)
		if !ok {
			continue
		}
		for _, child := range parent.LocalChildren() {
			if err := ApplyRecursively(child, fn); err != nil {
				return err
			}
		}
		for _, child := range parent.GlobalChildren() {
			if err := ApplyRecursively(child, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// ApplyBottomUp calls fn on the local and global children of each step of
// the traversal, recursively, before calling it on the traversal itself.
func ApplyBottomUp(t *Traversal, fn func(*Traversal) error) error {
	for _, s := range t.Steps() {
		parent, ok := s.(TraversalParent)
		if !ok {
			continue
		}
		for _, child := range append(parent.LocalChildren(), parent.GlobalChildren()...) {
			if err := ApplyBottomUp(child, fn); err != nil {
				return err
			}
		}
	}
	return fn(t)
}

// ApplyToChildren calls ApplyRecursively for every child of every step of
// the traversal, but not for the traversal itself.
func ApplyToChildren(t *Traversal, fn func(*Traversal) error) error {
	for _, s := range t.Steps() {
		parent, ok := s.(TraversalParent)
		if !ok {
			continue
		}
		for _, child := range parent.LocalChildren() {
			if err := ApplyRecursively(child, fn); err != nil {
				return err
			}
		}
		for _, child := range parent.GlobalChildren() {
			if err := ApplyRecursively(child, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// RemoveToTraversal moves the steps from the start step up to, but
// excluding, the end step into the destination. A nil end moves everything
// up to the end of the traversal.
func RemoveToTraversal(start, end Step, dst *Traversal) {
	current := start
	for current != nil && current != end {
		next := current.Next()
		dst.AddStep(current)
		current = next
	}
}

// IsGlobalChild returns true if no traversal on the way to the root is a
// local child.
func IsGlobalChild(t *Traversal) bool {
	for !t.IsRoot() {
		parent := t.Parent()
		for _, child := range parent.LocalChildren() {
			if child == t {
				return false
			}
		}
		owner := parent.Traversal()
		if owner == nil {
			return true
		}
		t = owner
	}
	return true
}

// IsLocalChild returns true if the traversal is a local child of its parent.
func IsLocalChild(t *Traversal) bool {
	if t.IsRoot() {
		return false
	}
	for _, child := range t.Parent().LocalChildren() {
		if child == t {
			return true
		}
	}
	return false
}

// ReferencedLabels returns the labels a step resolves. A match step ending
// its traversal also references all of its start and end labels.
func ReferencedLabels(s Step) *mapz.Set[string] {
	referenced := mapz.NewSet[string]()
	scoping, ok := s.(Scoping)
	if !ok {
		return referenced
	}

	referenced.Insert(scoping.ScopeKeys()...)
	if match, ok := s.(*MatchStep); ok && s.Next() == nil {
		referenced.Merge(match.startLabels)
		referenced.Merge(match.endLabels)
	}
	return referenced
}

// ReferencedLabelsAfter returns the labels referenced by the step and every
// step following it in its traversal.
func ReferencedLabelsAfter(s Step) *mapz.Set[string] {
	referenced := mapz.NewSet[string]()
	for current := s; current != nil; current = current.Next() {
		referenced.Merge(ReferencedLabels(current))
	}
	return referenced
}

// LabelsOf returns every label bound in the traversal and its children.
func LabelsOf(t *Traversal) *mapz.Set[string] {
	labels := mapz.NewSet[string]()
	_ = ApplyRecursively(t, func(child *Traversal) error {
		for _, s := range child.steps {
			labels.Insert(s.Labels()...)
		}
		return nil
	})
	return labels
}

// ParentStepOf returns the parent of the traversal, or nil for a root.
func ParentStepOf(t *Traversal) Step {
	if t.parent == nil {
		return nil
	}
	return t.parent
}
