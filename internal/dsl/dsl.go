// Package dsl builds traversal trees fluently, the way a query language
// front end would:
//
//	dsl.V().Out("knows").As("a").Values("name").Build()
//
// Anonymous child traversals start from dsl.Anon(). Errors are collected
// while building and reported by Build.
package dsl

import (
	"errors"
	"fmt"

	"github.com/authzed/graphtraversal/pkg/predicate"
	"github.com/authzed/graphtraversal/pkg/structure"
	"github.com/authzed/graphtraversal/pkg/traversal"
)

// Traversal is a traversal under construction.
type Traversal struct {
	t    *traversal.Traversal
	errs []error

	pendingUntil *traversal.Traversal
	pendingEmit  *traversal.Traversal
}

func newTraversal(steps ...traversal.Step) *Traversal {
	return &Traversal{t: traversal.New(steps...)}
}

// V starts a traversal from the vertices with the ids, or all vertices.
func V(ids ...any) *Traversal { return newTraversal(traversal.NewGraphStep(true, ids...)) }

// E starts a traversal from the edges with the ids, or all edges.
func E(ids ...any) *Traversal { return newTraversal(traversal.NewGraphStep(false, ids...)) }

// Inject starts a traversal from the values.
func Inject(values ...any) *Traversal { return newTraversal(traversal.NewInjectStep(values...)) }

// Anon starts an anonymous child traversal.
func Anon() *Traversal { return newTraversal() }

// Build returns the traversal, or the errors met while building it.
func (b *Traversal) Build() (*traversal.Traversal, error) {
	if b.pendingUntil != nil || b.pendingEmit != nil {
		b.fail("until() and emit() must be followed by repeat()")
	}
	if err := errors.Join(b.errs...); err != nil {
		return nil, err
	}
	return b.t, nil
}

// MustBuild returns the traversal and panics on errors.
func (b *Traversal) MustBuild() *traversal.Traversal {
	t, err := b.Build()
	if err != nil {
		panic(err)
	}
	return t
}

func (b *Traversal) fail(format string, args ...any) {
	b.errs = append(b.errs, fmt.Errorf(format, args...))
}

func (b *Traversal) add(s traversal.Step) *Traversal {
	b.t.AddStep(s)
	return b
}

// child builds an anonymous traversal, collecting its errors.
func (b *Traversal) child(c *Traversal) *traversal.Traversal {
	t, err := c.Build()
	if err != nil {
		b.errs = append(b.errs, err)
		return traversal.New()
	}
	return t
}

func (b *Traversal) children(cs []*Traversal) []*traversal.Traversal {
	built := make([]*traversal.Traversal, 0, len(cs))
	for _, c := range cs {
		built = append(built, b.child(c))
	}
	return built
}

// As labels the last step. On an empty traversal, it labels a start step, as
// in Anon().As("a").
func (b *Traversal) As(labels ...string) *Traversal {
	if b.t.Len() == 0 {
		b.t.AddStep(traversal.NewStartStep())
	}
	end := b.t.EndStep()
	for _, label := range labels {
		end.AddLabel(label)
	}
	return b
}

func (b *Traversal) Out(labels ...string) *Traversal {
	return b.add(traversal.NewVertexStep(true, structure.Out, labels...))
}

func (b *Traversal) In(labels ...string) *Traversal {
	return b.add(traversal.NewVertexStep(true, structure.In, labels...))
}

func (b *Traversal) Both(labels ...string) *Traversal {
	return b.add(traversal.NewVertexStep(true, structure.Both, labels...))
}

func (b *Traversal) OutE(labels ...string) *Traversal {
	return b.add(traversal.NewVertexStep(false, structure.Out, labels...))
}

func (b *Traversal) InE(labels ...string) *Traversal {
	return b.add(traversal.NewVertexStep(false, structure.In, labels...))
}

func (b *Traversal) BothE(labels ...string) *Traversal {
	return b.add(traversal.NewVertexStep(false, structure.Both, labels...))
}

func (b *Traversal) OutV() *Traversal  { return b.add(traversal.NewEdgeVertexStep(structure.Out)) }
func (b *Traversal) InV() *Traversal   { return b.add(traversal.NewEdgeVertexStep(structure.In)) }
func (b *Traversal) BothV() *Traversal { return b.add(traversal.NewEdgeVertexStep(structure.Both)) }
func (b *Traversal) OtherV() *Traversal {
	return b.add(traversal.NewEdgeOtherVertexStep())
}

// Has filters elements whose property matches the value, which is either a
// predicate or a value to compare for equality.
func (b *Traversal) Has(key string, value any) *Traversal {
	return b.add(traversal.NewHasStep(&traversal.HasContainer{Key: key, Predicate: asPredicate(value)}))
}

// HasLabel filters elements with any of the labels.
func (b *Traversal) HasLabel(labels ...string) *Traversal {
	return b.Has(traversal.LabelKey, within(labels))
}

// HasID filters elements with any of the ids.
func (b *Traversal) HasID(ids ...any) *Traversal {
	return b.Has(traversal.IDKey, within(ids))
}

func within[T any](values []T) *predicate.P {
	if len(values) == 1 {
		return predicate.EqP(values[0])
	}
	anys := make([]any, 0, len(values))
	for _, v := range values {
		anys = append(anys, v)
	}
	return predicate.WithinP(anys...)
}

func asPredicate(value any) *predicate.P {
	if p, ok := value.(*predicate.P); ok {
		return p
	}
	return predicate.EqP(value)
}

// Is filters values matching the predicate or equal to the value.
func (b *Traversal) Is(value any) *Traversal {
	return b.add(traversal.NewIsStep(asPredicate(value)))
}

func (b *Traversal) Values(keys ...string) *Traversal {
	return b.add(traversal.NewPropertiesStep(true, keys...))
}

func (b *Traversal) Properties(keys ...string) *Traversal {
	return b.add(traversal.NewPropertiesStep(false, keys...))
}

func (b *Traversal) ID() *Traversal       { return b.add(traversal.NewIDStep()) }
func (b *Traversal) Label() *Traversal    { return b.add(traversal.NewLabelStep()) }
func (b *Traversal) Key() *Traversal      { return b.add(traversal.NewPropertyKeyStep()) }
func (b *Traversal) Value() *Traversal    { return b.add(traversal.NewPropertyValueStep()) }
func (b *Traversal) Identity() *Traversal { return b.add(traversal.NewIdentityStep()) }
func (b *Traversal) Path() *Traversal     { return b.add(traversal.NewPathStep()) }
func (b *Traversal) Loops() *Traversal    { return b.add(traversal.NewLoopsStep()) }
func (b *Traversal) Count() *Traversal    { return b.add(traversal.NewCountGlobalStep()) }
func (b *Traversal) Fold() *Traversal     { return b.add(traversal.NewFoldStep()) }
func (b *Traversal) Order() *Traversal    { return b.add(traversal.NewOrderGlobalStep()) }
func (b *Traversal) Group() *Traversal    { return b.add(traversal.NewGroupStep()) }
func (b *Traversal) Drop() *Traversal     { return b.add(traversal.NewDropStep()) }
func (b *Traversal) None() *Traversal     { return b.add(traversal.NewNoneStep()) }
func (b *Traversal) Profile() *Traversal  { return b.add(traversal.NewProfileSideEffectStep()) }

func (b *Traversal) GroupCount() *Traversal { return b.add(traversal.NewGroupCountStep()) }
func (b *Traversal) SimplePath() *Traversal { return b.add(traversal.NewPathFilterStep(true)) }
func (b *Traversal) CyclicPath() *Traversal { return b.add(traversal.NewPathFilterStep(false)) }

func (b *Traversal) Constant(value any) *Traversal {
	return b.add(traversal.NewConstantStep(value))
}

// Barrier bulks traversers in batches of the size.
func (b *Traversal) Barrier(size int) *Traversal {
	return b.add(traversal.NewNoOpBarrierStep(size))
}

func (b *Traversal) Dedup(labels ...string) *Traversal {
	return b.add(traversal.NewDedupGlobalStep(labels...))
}

func (b *Traversal) Range(low, high int64) *Traversal {
	return b.add(traversal.NewRangeGlobalStep(low, high))
}

func (b *Traversal) Limit(n int64) *Traversal { return b.Range(0, n) }
func (b *Traversal) Skip(n int64) *Traversal  { return b.Range(n, -1) }

func (b *Traversal) Aggregate(key string) *Traversal {
	return b.add(traversal.NewAggregateGlobalStep(key))
}

func (b *Traversal) Cap(keys ...string) *Traversal {
	return b.add(traversal.NewSideEffectCapStep(keys...))
}

func (b *Traversal) Project(keys ...string) *Traversal {
	return b.add(traversal.NewProjectStep(keys...))
}

// Select maps to the value of one scoped key, or to a map of several.
func (b *Traversal) Select(keys ...string) *Traversal {
	return b.SelectPop(traversal.PopLast, keys...)
}

func (b *Traversal) SelectPop(pop traversal.Pop, keys ...string) *Traversal {
	switch len(keys) {
	case 0:
		b.fail("select() requires at least one key")
		return b
	case 1:
		return b.add(traversal.NewSelectOneStep(pop, keys[0]))
	default:
		return b.add(traversal.NewSelectStep(pop, keys...))
	}
}

// By modulates the last step. The modulator is a property key, a token, an
// anonymous traversal, or nil for the identity.
func (b *Traversal) By(modulator any) *Traversal {
	return b.ByOrder(modulator, traversal.Asc)
}

// ByOrder modulates an order() step with the sort order.
func (b *Traversal) ByOrder(modulator any, order traversal.Order) *Traversal {
	if b.t.Len() == 0 {
		b.fail("by() requires a step to modulate")
		return b
	}

	var by *traversal.Traversal
	switch m := modulator.(type) {
	case nil:
		by = traversal.NewIdentityTraversal()
	case string:
		by = traversal.NewValueTraversal(m)
	case structure.T:
		by = traversal.NewTokenTraversal(m)
	case *Traversal:
		by = b.child(m)
	default:
		b.fail("unsupported by() modulator %T", modulator)
		return b
	}

	switch s := b.t.EndStep().(type) {
	case *traversal.OrderGlobalStep:
		if err := s.ModulateByOrder(by, order); err != nil {
			b.errs = append(b.errs, err)
		}
	case traversal.ByModulating:
		if err := s.ModulateBy(by); err != nil {
			b.errs = append(b.errs, err)
		}
	default:
		b.fail("%s does not accept by() modulators", s.Name())
	}
	return b
}

// Where filters on a predicate over scoped keys, or on an anonymous
// traversal. Traversals starting from as() and optionally ending with as()
// compare scoped keys; others pass inputs for which they produce a result.
func (b *Traversal) Where(filter any) *Traversal {
	switch f := filter.(type) {
	case *predicate.P:
		return b.add(traversal.NewWherePredicateStep("", f))
	case *Traversal:
		child := b.child(f)
		startKey, endKey := whereKeys(child)
		if startKey == "" && endKey == "" {
			return b.add(traversal.NewTraversalFilterStep(child))
		}
		return b.add(traversal.NewWhereTraversalStep(startKey, child, endKey))
	default:
		b.fail("unsupported where() filter %T", filter)
		return b
	}
}

// WhereKey compares the value of the start key against the predicate.
func (b *Traversal) WhereKey(startKey string, p *predicate.P) *Traversal {
	return b.add(traversal.NewWherePredicateStep(startKey, p))
}

// whereKeys strips the labeled start step and the end label of a where()
// traversal, returning them.
func whereKeys(child *traversal.Traversal) (string, string) {
	var startKey, endKey string
	if start, ok := child.StartStep().(*traversal.StartStep); ok && len(start.Labels()) == 1 {
		startKey = start.Labels()[0]
		child.RemoveStep(start)
	}
	if end := child.EndStep(); end != nil && len(end.Labels()) == 1 {
		endKey = end.Labels()[0]
		end.RemoveLabel(endKey)
	}
	return startKey, endKey
}

func (b *Traversal) Filter(child *Traversal) *Traversal {
	return b.add(traversal.NewTraversalFilterStep(b.child(child)))
}

func (b *Traversal) Not(child *Traversal) *Traversal {
	return b.add(traversal.NewNotStep(b.child(child)))
}

// And filters inputs for which every child produces a result. Without
// children it is an infix marker, as in has("a").and().has("b").
func (b *Traversal) And(children ...*Traversal) *Traversal {
	return b.add(traversal.NewAndStep(b.children(children)...))
}

// Or filters inputs for which any child produces a result. Without children
// it is an infix marker, as in has("a").or().has("b").
func (b *Traversal) Or(children ...*Traversal) *Traversal {
	return b.add(traversal.NewOrStep(b.children(children)...))
}

func (b *Traversal) Map(child *Traversal) *Traversal {
	return b.add(traversal.NewTraversalMapStep(b.child(child)))
}

func (b *Traversal) Local(child *Traversal) *Traversal {
	return b.add(traversal.NewLocalStep(b.child(child)))
}

func (b *Traversal) Optional(child *Traversal) *Traversal {
	return b.add(traversal.NewOptionalStep(b.child(child)))
}

func (b *Traversal) Union(branches ...*Traversal) *Traversal {
	return b.add(traversal.NewUnionStep(b.children(branches)...))
}

func (b *Traversal) Coalesce(children ...*Traversal) *Traversal {
	return b.add(traversal.NewCoalesceStep(b.children(children)...))
}

// Match binds the variables of the patterns, each starting from as().
func (b *Traversal) Match(patterns ...*Traversal) *Traversal {
	match, err := traversal.NewMatchStep(traversal.MatchAnd, b.children(patterns)...)
	if err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	return b.add(match)
}

// Repeat loops the body. Until() and Emit() given before Repeat() are checked
// before the first iteration; given after, after every iteration.
func (b *Traversal) Repeat(body *Traversal) *Traversal {
	repeat := traversal.NewRepeatStep()
	if b.pendingUntil != nil {
		repeat.SetUntilTraversal(b.pendingUntil)
		b.pendingUntil = nil
	}
	if b.pendingEmit != nil {
		repeat.SetEmitTraversal(b.pendingEmit)
		b.pendingEmit = nil
	}
	repeat.SetRepeatTraversal(b.child(body))
	return b.add(repeat)
}

// Times bounds the preceding repeat() to n iterations.
func (b *Traversal) Times(n int64) *Traversal {
	return b.until(traversal.NewLoopTraversal(n))
}

// Until ends the loop of a traverser once the condition produces a result.
func (b *Traversal) Until(condition *Traversal) *Traversal {
	return b.until(b.child(condition))
}

func (b *Traversal) until(condition *traversal.Traversal) *Traversal {
	if repeat, ok := b.lastRepeat(); ok {
		repeat.SetUntilTraversal(condition)
		return b
	}
	b.pendingUntil = condition
	return b
}

// Emit emits traversers from the loop, all of them or those matching the
// condition.
func (b *Traversal) Emit(condition ...*Traversal) *Traversal {
	emit := traversal.NewIdentityTraversal()
	switch len(condition) {
	case 0:
	case 1:
		emit = b.child(condition[0])
	default:
		b.fail("emit() takes at most one condition")
	}

	if repeat, ok := b.lastRepeat(); ok {
		repeat.SetEmitTraversal(emit)
		return b
	}
	b.pendingEmit = emit
	return b
}

func (b *Traversal) lastRepeat() (*traversal.RepeatStep, bool) {
	if b.t.Len() == 0 {
		return nil, false
	}
	repeat, ok := b.t.EndStep().(*traversal.RepeatStep)
	return repeat, ok
}

func (b *Traversal) FilterFunc(name string, fn traversal.FilterFunc) *Traversal {
	return b.add(traversal.NewLambdaFilterStep(name, fn))
}

func (b *Traversal) MapFunc(name string, fn traversal.MapFunc) *Traversal {
	return b.add(traversal.NewLambdaMapStep(name, fn))
}

func (b *Traversal) FlatMapFunc(name string, fn traversal.FlatMapFunc) *Traversal {
	return b.add(traversal.NewLambdaFlatMapStep(name, fn))
}

func (b *Traversal) SideEffectFunc(name string, fn traversal.SideEffectFunc) *Traversal {
	return b.add(traversal.NewLambdaSideEffectStep(name, fn))
}
