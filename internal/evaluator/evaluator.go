// Package evaluator executes traversals against a structure.Graph.
//
// It is a reference executor rather than a fast one: every step processes
// the whole stream before the next one runs, barriers are driven through
// their protocol one step at a time, and paths are always recorded. It
// backs the tests checking that a compiled traversal returns what its
// original does.
package evaluator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/authzed/graphtraversal/internal/logging"
	"github.com/authzed/graphtraversal/pkg/structure"
	"github.com/authzed/graphtraversal/pkg/traversal"
)

var tracer = otel.Tracer("graphtraversal/internal/evaluator")

// DefaultMaxLoops bounds the iterations of a repeat() loop.
const DefaultMaxLoops = 1000

// ErrMaxLoops is returned when a repeat() loop iterates past the bound.
var ErrMaxLoops = errors.New("repeat() exceeded the maximum number of loops")

// Evaluator executes traversals against a graph.
type Evaluator struct {
	graph    structure.Graph
	maxLoops int64
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithMaxLoops sets the bound on repeat() iterations.
func WithMaxLoops(maxLoops int64) Option {
	return func(e *Evaluator) { e.maxLoops = maxLoops }
}

// New returns an evaluator reading from the graph.
func New(graph structure.Graph, opts ...Option) *Evaluator {
	e := &Evaluator{graph: graph, maxLoops: DefaultMaxLoops}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result holds the traversers a traversal emitted and its side effects.
type Result struct {
	traversers  []*traversal.Traverser
	sideEffects *traversal.SideEffects
}

// Traversers returns the emitted traversers, with their bulks.
func (r *Result) Traversers() []*traversal.Traverser { return r.traversers }

// SideEffects returns the side effects registered while executing.
func (r *Result) SideEffects() *traversal.SideEffects { return r.sideEffects }

// Values returns the emitted objects, each repeated as many times as its
// traverser's bulk.
func (r *Result) Values() []any {
	var values []any
	for _, t := range r.traversers {
		for range t.Bulk() {
			values = append(values, t.Get())
		}
	}
	return values
}

// Execute runs the traversal and returns what it emits. The traversal itself
// is not modified: a clone of it is executed, so compiled traversals can be
// executed any number of times.
func (e *Evaluator) Execute(ctx context.Context, t *traversal.Traversal) (*Result, error) {
	if !t.IsRoot() {
		return nil, fmt.Errorf("only root traversals can be executed: %s", t)
	}

	ctx, span := tracer.Start(ctx, "Execute")
	defer span.End()

	x := &execution{
		Evaluator:   e,
		ctx:         ctx,
		logger:      logging.Ctx(ctx),
		sideEffects: traversal.NewSideEffects(),
	}

	root := t.Clone()
	for _, aggregate := range traversal.StepsOfRecursively[*traversal.AggregateGlobalStep](root) {
		x.sideEffects.Register(aggregate.SideEffectKey(), []any{})
	}
	if traversal.HasStepOf[*traversal.ProfileSideEffectStep](root) {
		x.profile = &profiler{}
	}

	out, err := x.traversal(root, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		executionsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	if x.profile != nil {
		x.sideEffects.Set(traversal.ProfileKey, x.profile.metrics)
	}

	span.SetAttributes(attribute.Int("traversers", len(out)))
	executionsTotal.WithLabelValues("success").Inc()
	x.logger.Debug().Stringer("traversal", t).Int("traversers", len(out)).Msg("executed traversal")
	return &Result{traversers: out, sideEffects: x.sideEffects}, nil
}

// Evaluate runs the traversal and returns the emitted objects.
func (e *Evaluator) Evaluate(ctx context.Context, t *traversal.Traversal) ([]any, error) {
	result, err := e.Execute(ctx, t)
	if err != nil {
		return nil, err
	}
	return result.Values(), nil
}

// execution is the state of one Execute call.
type execution struct {
	*Evaluator

	ctx         context.Context
	logger      *zerolog.Logger
	sideEffects *traversal.SideEffects
	profile     *profiler
}

// traversal runs the steps of t over the input. Step labels are bound to the
// output of each step, after path processors have dropped the labels no
// longer needed.
func (x *execution) traversal(t *traversal.Traversal, in []*traversal.Traverser) ([]*traversal.Traverser, error) {
	for _, s := range t.Steps() {
		if err := x.ctx.Err(); err != nil {
			return nil, err
		}

		began := time.Now()
		out, err := x.step(s, in)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.Name(), err)
		}

		processor, keep := s.(traversal.PathProcessor)
		labels := s.Labels()
		for _, tr := range out {
			if keep {
				tr.KeepLabels(processor.KeepLabels())
			}
			tr.AddLabels(labels...)
		}

		if x.profile != nil && t.IsRoot() {
			x.profile.record(s, out, time.Since(began))
		}
		x.logger.Trace().Str("step", s.String()).Int("in", len(in)).Int("out", len(out)).Msg("evaluated step")
		in = out
	}
	return in, nil
}

// child runs a child traversal from a copy of the traverser with a bulk of
// one. Callers emitting the results multiply their bulks by the bulk of the
// traverser.
func (x *execution) child(child *traversal.Traversal, t *traversal.Traverser) ([]*traversal.Traverser, error) {
	if child.IsShortcut() {
		v, ok, err := x.project(child, t)
		if err != nil || !ok {
			return nil, err
		}

		out := t.Split(v)
		out.SetBulk(1)
		switch child.Kind() {
		case traversal.KindIdentity, traversal.KindLoop:
		default:
			out.ExtendPath()
		}
		return []*traversal.Traverser{out}, nil
	}

	start := t.Split(t.Get())
	start.SetBulk(1)
	return x.traversal(child, []*traversal.Traverser{start})
}

// produces returns true if the child traversal emits anything for the
// traverser.
func (x *execution) produces(child *traversal.Traversal, t *traversal.Traverser) (bool, error) {
	out, err := x.child(child, t)
	return len(out) > 0, err
}

// first returns the first object the child traversal emits for the
// traverser.
func (x *execution) first(child *traversal.Traversal, t *traversal.Traverser) (any, bool, error) {
	out, err := x.child(child, t)
	if err != nil || len(out) == 0 {
		return nil, false, err
	}
	return out[0].Get(), true, nil
}

// mapTo returns a copy of the traverser carrying the object, recorded in its
// path.
func mapTo(t *traversal.Traverser, obj any) *traversal.Traverser {
	out := t.Split(obj)
	out.ExtendPath()
	return out
}

// start returns a fresh traverser for an object emitted by a start step.
func start(obj any) *traversal.Traverser {
	t := traversal.NewTraverser(obj)
	t.ExtendPath()
	return t
}

func multiplyBulk(out []*traversal.Traverser, bulk int64) []*traversal.Traverser {
	for _, t := range out {
		t.SetBulk(t.Bulk() * bulk)
	}
	return out
}
