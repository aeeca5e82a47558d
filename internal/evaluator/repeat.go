package evaluator

import (
	"fmt"

	"github.com/authzed/graphtraversal/pkg/traversal"
)

// repeat runs the loop body breadth first: every iteration runs the body
// over the whole frontier. until() and emit() are tested before the body
// when they precede repeat() and after it otherwise.
func (x *execution) repeat(s *traversal.RepeatStep, in []*traversal.Traverser) ([]*traversal.Traverser, error) {
	var out []*traversal.Traverser
	exit := func(t *traversal.Traverser) {
		t.ResetLoops()
		out = append(out, t)
	}
	emit := func(t *traversal.Traverser) {
		emitted := t.Split(t.Get())
		emitted.ResetLoops()
		out = append(out, emitted)
	}

	frontier := make([]*traversal.Traverser, 0, len(in))
	for _, t := range in {
		entered := t.Split(t.Get())
		entered.InitLoops()
		frontier = append(frontier, entered)
	}

	for len(frontier) > 0 {
		body := make([]*traversal.Traverser, 0, len(frontier))
		for _, t := range frontier {
			if s.UntilFirst() {
				done, err := x.test(s.UntilTraversal(), t)
				if err != nil {
					return nil, err
				}
				if done {
					exit(t)
					continue
				}
			}
			if s.EmitFirst() {
				emitted, err := x.test(s.EmitTraversal(), t)
				if err != nil {
					return nil, err
				}
				if emitted {
					emit(t)
				}
			}
			body = append(body, t)
		}
		if len(body) == 0 {
			break
		}

		repeatIterationsTotal.Inc()
		results, err := x.traversal(s.RepeatTraversal(), body)
		if err != nil {
			return nil, err
		}

		frontier = frontier[:0]
		for _, t := range results {
			t.IncrLoops()
			if t.Loops() > x.maxLoops {
				return nil, fmt.Errorf("%w: %d", ErrMaxLoops, x.maxLoops)
			}

			if !s.UntilFirst() {
				done, err := x.test(s.UntilTraversal(), t)
				if err != nil {
					return nil, err
				}
				if done {
					exit(t)
					continue
				}
			}
			if !s.EmitFirst() {
				emitted, err := x.test(s.EmitTraversal(), t)
				if err != nil {
					return nil, err
				}
				if emitted {
					emit(t)
				}
			}
			frontier = append(frontier, t)
		}
	}
	return out, nil
}

// test returns true if the condition of a loop holds for the traverser. A
// missing condition never holds.
func (x *execution) test(condition *traversal.Traversal, t *traversal.Traverser) (bool, error) {
	if condition == nil {
		return false, nil
	}
	return x.produces(condition, t)
}
