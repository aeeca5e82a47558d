package traversal

import (
	"fmt"
	"strings"

	"github.com/emirpasic/gods/sets/linkedhashset"
	"github.com/google/uuid"
	"github.com/jzelinskie/stringz"
)

// Step is a single operation of a traversal. Steps are created unattached and
// become part of exactly one traversal when added to it.
type Step interface {
	// ID returns the unique, stable identifier of the step.
	ID() string

	// Name returns the type name of the step, as used in explain output.
	Name() string

	// Traversal returns the traversal owning the step, or nil if the step is
	// not attached.
	Traversal() *Traversal

	// Previous returns the step before this one in its traversal, or nil.
	Previous() Step

	// Next returns the step after this one in its traversal, or nil.
	Next() Step

	// Labels returns the labels bound to the step, in insertion order.
	Labels() []string
	HasLabel(label string) bool
	AddLabel(label string)
	RemoveLabel(label string)
	ClearLabels()

	// Requirements returns the traverser requirements of the step itself,
	// excluding those of its children.
	Requirements() Requirements

	// Clone returns an unattached deep copy of the step with a fresh ID. Child
	// traversals are cloned as well.
	Clone() Step

	String() string

	base() *baseStep
}

// baseStep holds the state shared by every step: identity, labels and the
// handle of the step within its owning traversal.
type baseStep struct {
	id        string
	labels    *linkedhashset.Set
	traversal *Traversal
	index     int
}

func (b *baseStep) base() *baseStep { return b }

func (b *baseStep) ID() string {
	if b.id == "" {
		b.id = uuid.NewString()
	}
	return b.id
}

func (b *baseStep) Traversal() *Traversal { return b.traversal }

func (b *baseStep) Previous() Step {
	if b.traversal == nil || b.index <= 0 {
		return nil
	}
	return b.traversal.steps[b.index-1]
}

func (b *baseStep) Next() Step {
	if b.traversal == nil || b.index >= len(b.traversal.steps)-1 {
		return nil
	}
	return b.traversal.steps[b.index+1]
}

func (b *baseStep) Labels() []string {
	if b.labels == nil || b.labels.Empty() {
		return nil
	}
	values := b.labels.Values()
	labels := make([]string, 0, len(values))
	for _, v := range values {
		labels = append(labels, v.(string))
	}
	return labels
}

func (b *baseStep) HasLabel(label string) bool {
	return b.labels != nil && b.labels.Contains(label)
}

func (b *baseStep) AddLabel(label string) {
	if b.labels == nil {
		b.labels = linkedhashset.New()
	}
	b.labels.Add(label)
}

func (b *baseStep) RemoveLabel(label string) {
	if b.labels != nil {
		b.labels.Remove(label)
	}
}

func (b *baseStep) ClearLabels() {
	if b.labels != nil {
		b.labels.Clear()
	}
}

func (b *baseStep) Requirements() Requirements { return 0 }

// cloneBase returns an unattached copy of the base with a new identity.
func (b *baseStep) cloneBase() baseStep {
	cloned := baseStep{id: uuid.NewString()}
	if b.labels != nil && !b.labels.Empty() {
		cloned.labels = linkedhashset.New(b.labels.Values()...)
	}
	return cloned
}

// stepString renders a step as Name(arg1,arg2)@[label1, label2]. Nil
// arguments and empty lists are skipped.
func stepString(s Step, args ...any) string {
	var sb strings.Builder
	sb.WriteString(s.Name())

	rendered := make([]string, 0, len(args))
	for _, arg := range args {
		if isOmitted(arg) {
			continue
		}
		rendered = append(rendered, renderArg(arg))
	}
	if len(rendered) > 0 {
		sb.WriteString("(")
		sb.WriteString(strings.Join(rendered, ","))
		sb.WriteString(")")
	}

	if labels := s.Labels(); len(labels) > 0 {
		sb.WriteString("@[")
		sb.WriteString(stringz.Join(", ", labels...))
		sb.WriteString("]")
	}
	return sb.String()
}

func isOmitted(arg any) bool {
	switch v := arg.(type) {
	case nil:
		return true
	case *Traversal:
		return v == nil
	case []string:
		return len(v) == 0
	case []any:
		return len(v) == 0
	case []*Traversal:
		return len(v) == 0
	case []*HasContainer:
		return len(v) == 0
	default:
		return false
	}
}

func renderArg(arg any) string {
	switch v := arg.(type) {
	case string:
		return v
	case []string:
		return "[" + stringz.Join(", ", v...) + "]"
	case []any:
		return renderList(v)
	case []*Traversal:
		parts := make([]string, 0, len(v))
		for _, t := range v {
			parts = append(parts, t.String())
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case []*HasContainer:
		parts := make([]string, 0, len(v))
		for _, hc := range v {
			parts = append(parts, hc.String())
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func renderList(values []any) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, renderArg(v))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
