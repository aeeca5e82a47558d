package traversal

import (
	"slices"
)

// BarrierState is the lifecycle state of a Barrier.
type BarrierState uint8

const (
	// Accumulating barriers are receiving input and hold nothing to emit.
	Accumulating BarrierState = iota

	// Ready barriers hold at least one value retrievable without blocking.
	Ready

	// Drained barriers were force-completed by Done.
	Drained
)

func (s BarrierState) String() string {
	switch s {
	case Ready:
		return "ready"
	case Drained:
		return "drained"
	default:
		return "accumulating"
	}
}

// Barrier is implemented by steps that consume all of their input before
// emitting. Input is pushed with AddStart, folded by ProcessAllStarts and
// retrieved one barrier at a time. Barriers of parallel instances of the same
// step may be merged with AddBarrier.
type Barrier interface {
	Step

	// AddStart queues a traverser for the barrier.
	AddStart(t *Traverser)

	// ProcessAllStarts folds every queued traverser into the barrier.
	ProcessAllStarts() error

	// HasNextBarrier returns true if a barrier is ready to be retrieved.
	HasNextBarrier() bool

	// NextBarrier returns the next barrier, or ErrNoBarrier.
	NextBarrier() ([]*Traverser, error)

	// AddBarrier merges a barrier produced by another instance of the step.
	AddBarrier(barrier []*Traverser) error

	// Done force-completes the barrier, discarding pending input.
	Done()

	State() BarrierState

	// Reset returns the barrier to its initial, empty state.
	Reset()
}

// collectingBarrier gathers traversers, merging interchangeable ones, up to
// an optional maximum size per barrier.
type collectingBarrier struct {
	maxSize int
	starts  []*Traverser
	barrier []*Traverser
	done    bool
}

func (b *collectingBarrier) AddStart(t *Traverser) {
	b.done = false
	b.starts = append(b.starts, t)
}

func (b *collectingBarrier) ProcessAllStarts() error {
	for len(b.starts) > 0 && (b.maxSize <= 0 || len(b.barrier) < b.maxSize) {
		b.collect(b.starts[0])
		b.starts = b.starts[1:]
	}
	return nil
}

func (b *collectingBarrier) collect(t *Traverser) {
	for _, existing := range b.barrier {
		if existing.Mergeable(t) {
			existing.bulk += t.bulk
			return
		}
	}
	b.barrier = append(b.barrier, t)
}

func (b *collectingBarrier) HasNextBarrier() bool {
	if b.done {
		return false
	}
	_ = b.ProcessAllStarts()
	return len(b.barrier) > 0
}

func (b *collectingBarrier) NextBarrier() ([]*Traverser, error) {
	if !b.HasNextBarrier() {
		return nil, ErrNoBarrier
	}
	next := b.barrier
	b.barrier = nil
	return next, nil
}

func (b *collectingBarrier) AddBarrier(barrier []*Traverser) error {
	for _, t := range barrier {
		b.collect(t)
	}
	return nil
}

func (b *collectingBarrier) Done() {
	b.done = true
	b.starts = nil
	b.barrier = nil
}

func (b *collectingBarrier) State() BarrierState {
	switch {
	case b.done:
		return Drained
	case len(b.barrier) > 0:
		return Ready
	default:
		return Accumulating
	}
}

func (b *collectingBarrier) Reset() {
	b.starts = nil
	b.barrier = nil
	b.done = false
}

// reducer folds traversers into a single value.
type reducer interface {
	seed() any
	reduce(acc any, t *Traverser) any
	merge(acc any, other any) any
}

// reducingBarrier folds all of its input into one value. It emits the seed
// even without any input, so that count() yields 0 on an empty stream.
type reducingBarrier struct {
	reducer       reducer
	starts        []*Traverser
	acc           any
	hasAcc        bool
	processedOnce bool
	done          bool
}

func (b *reducingBarrier) AddStart(t *Traverser) {
	b.done = false
	b.starts = append(b.starts, t)
}

func (b *reducingBarrier) ProcessAllStarts() error {
	if b.processedOnce && len(b.starts) == 0 {
		return nil
	}
	b.processedOnce = false
	if !b.hasAcc {
		b.acc = b.reducer.seed()
		b.hasAcc = true
	}
	for _, t := range b.starts {
		b.acc = b.reducer.reduce(b.acc, t)
	}
	b.starts = nil
	return nil
}

func (b *reducingBarrier) HasNextBarrier() bool {
	if b.done {
		return false
	}
	_ = b.ProcessAllStarts()
	return !b.processedOnce
}

func (b *reducingBarrier) NextBarrier() ([]*Traverser, error) {
	if !b.HasNextBarrier() {
		return nil, ErrNoBarrier
	}
	b.processedOnce = true
	value := b.acc
	b.acc = nil
	b.hasAcc = false
	return []*Traverser{NewTraverser(value)}, nil
}

func (b *reducingBarrier) AddBarrier(barrier []*Traverser) error {
	if !b.hasAcc {
		b.acc = b.reducer.seed()
		b.hasAcc = true
	}
	for _, t := range barrier {
		b.acc = b.reducer.merge(b.acc, t.Get())
	}
	b.processedOnce = false
	return nil
}

func (b *reducingBarrier) Done() {
	b.done = true
	b.processedOnce = true
	b.starts = nil
	b.acc = nil
	b.hasAcc = false
}

func (b *reducingBarrier) State() BarrierState {
	switch {
	case b.done:
		return Drained
	case !b.processedOnce && b.hasAcc:
		return Ready
	default:
		return Accumulating
	}
}

func (b *reducingBarrier) Reset() {
	b.starts = nil
	b.acc = nil
	b.hasAcc = false
	b.processedOnce = false
	b.done = false
}

type countReducer struct{}

func (countReducer) seed() any { return int64(0) }

func (countReducer) reduce(acc any, t *Traverser) any { return acc.(int64) + t.Bulk() }

func (countReducer) merge(acc any, other any) any { return acc.(int64) + other.(int64) }

type foldReducer struct{}

func (foldReducer) seed() any { return []any{} }

func (foldReducer) reduce(acc any, t *Traverser) any {
	values := acc.([]any)
	for range t.Bulk() {
		values = append(values, t.Get())
	}
	return values
}

func (foldReducer) merge(acc any, other any) any {
	return append(acc.([]any), other.([]any)...)
}

// groupCountReducer counts the objects it receives. Objects must be
// comparable; the evaluator projects them through the by() modulator first.
type groupCountReducer struct{}

func (groupCountReducer) seed() any { return map[any]int64{} }

func (groupCountReducer) reduce(acc any, t *Traverser) any {
	counts := acc.(map[any]int64)
	counts[t.Get()] += t.Bulk()
	return counts
}

func (groupCountReducer) merge(acc any, other any) any {
	counts := acc.(map[any]int64)
	for k, v := range other.(map[any]int64) {
		counts[k] += v
	}
	return counts
}

// GroupEntry is the input of a group() barrier: the projected key and value
// of one traverser.
type GroupEntry struct {
	Key   any
	Value any
}

type groupReducer struct{}

func (groupReducer) seed() any { return map[any][]any{} }

func (groupReducer) reduce(acc any, t *Traverser) any {
	groups := acc.(map[any][]any)
	entry := t.Get().(GroupEntry)
	for range t.Bulk() {
		groups[entry.Key] = append(groups[entry.Key], entry.Value)
	}
	return groups
}

func (groupReducer) merge(acc any, other any) any {
	groups := acc.(map[any][]any)
	for k, v := range other.(map[any][]any) {
		groups[k] = append(groups[k], slices.Clone(v)...)
	}
	return groups
}
