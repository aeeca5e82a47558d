package strategy

import (
	"github.com/authzed/graphtraversal/pkg/spiceerrors"
	"github.com/authzed/graphtraversal/pkg/traversal"
)

// TypedStepRewrite rewrites a step of a specific type T in place within its
// traversal. It returns true if the traversal was changed.
//
// The type parameter T constrains the function to operate only on specific
// step types, providing compile-time type safety when creating typed rewrites.
type TypedStepRewrite[T traversal.Step] func(ctx *Context, s T) (bool, error)

// StepRewrite is a type-erased wrapper around TypedStepRewrite[T] that can be
// stored in a homogeneous list while maintaining type safety at runtime.
type StepRewrite func(ctx *Context, s traversal.Step) (bool, error)

// WrapRewrite wraps a typed TypedStepRewrite[T] into a type-erased
// StepRewrite. Steps of any other type are left untouched.
func WrapRewrite[T traversal.Step](fn TypedStepRewrite[T]) StepRewrite {
	return func(ctx *Context, s traversal.Step) (bool, error) {
		if v, ok := s.(T); ok {
			return fn(ctx, v)
		}
		return false, nil
	}
}

// ApplyRewrites applies the rewrites to every step of the traversal tree.
//
// The function operates bottom-up: the children of a step are rewritten
// before the step itself. Steps removed from the traversal by an earlier
// rewrite are skipped.
func ApplyRewrites(ctx *Context, t *traversal.Traversal, fns []StepRewrite) (bool, error) {
	changed := false
	for _, step := range t.Steps() {
		if step.Traversal() != t {
			continue
		}

		if parent, ok := step.(traversal.TraversalParent); ok {
			for _, child := range append(parent.GlobalChildren(), parent.LocalChildren()...) {
				if child.IsShortcut() {
					continue
				}
				childChanged, err := ApplyRewrites(ctx, child, fns)
				if err != nil {
					return false, err
				}
				changed = changed || childChanged
			}
		}

		for _, fn := range fns {
			if step.Traversal() != t {
				break
			}
			fnChanged, err := fn(ctx, step)
			if err != nil {
				return false, err
			}
			changed = changed || fnChanged
		}
	}
	return changed, nil
}

// RunToFixedPoint runs body until it reports no change. Every change must
// strictly decrease the progress measure, which guarantees termination; a
// change that does not is a bug in the rewrite.
func RunToFixedPoint(measure func() int, body func() (bool, error)) error {
	previous := measure()
	for {
		changed, err := body()
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}

		current := measure()
		if current >= previous {
			return spiceerrors.MustBugf("rewrite did not make progress: measure went from %d to %d", previous, current)
		}
		previous = current
	}
}
