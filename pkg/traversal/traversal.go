package traversal

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/authzed/graphtraversal/pkg/spiceerrors"
	"github.com/authzed/graphtraversal/pkg/structure"
)

// Kind distinguishes ordinary step traversals from the shortcut traversals
// used as by() modulators.
type Kind uint8

const (
	// KindSteps is an ordinary traversal made of steps.
	KindSteps Kind = iota

	// KindValue yields the value of a single property key.
	KindValue

	// KindToken yields an intrinsic part of an element, such as its id.
	KindToken

	// KindIdentity yields its input unchanged.
	KindIdentity

	// KindConstant yields a fixed value.
	KindConstant

	// KindLoop yields its input once the loop counter reaches a bound.
	KindLoop
)

// Traversal is an ordered, mutable sequence of steps. A traversal with no
// parent is a root; every other traversal is owned by exactly one
// TraversalParent step as a local or global child.
type Traversal struct {
	id     string
	steps  []Step
	parent TraversalParent
	locked bool

	kind   Kind
	key    string
	token  structure.T
	value  any
	loops  int64
	bypass *Traversal
}

// New returns a root traversal holding the given steps.
func New(steps ...Step) *Traversal {
	t := &Traversal{}
	for _, s := range steps {
		t.AddStep(s)
	}
	return t
}

// NewValueTraversal returns a traversal yielding the value of the property key.
func NewValueTraversal(key string) *Traversal {
	return &Traversal{kind: KindValue, key: key}
}

// NewTokenTraversal returns a traversal yielding the token of an element.
func NewTokenTraversal(token structure.T) *Traversal {
	return &Traversal{kind: KindToken, token: token}
}

// NewIdentityTraversal returns a traversal yielding its input.
func NewIdentityTraversal() *Traversal {
	return &Traversal{kind: KindIdentity}
}

// NewConstantTraversal returns a traversal always yielding the value.
func NewConstantTraversal(value any) *Traversal {
	return &Traversal{kind: KindConstant, value: value}
}

// NewLoopTraversal returns a traversal yielding its input once the current
// loop counter reaches the bound. It backs repeat().times().
func NewLoopTraversal(loops int64) *Traversal {
	return &Traversal{kind: KindLoop, loops: loops}
}

// ID returns the unique identifier of the traversal.
func (t *Traversal) ID() string {
	if t.id == "" {
		t.id = uuid.NewString()
	}
	return t.id
}

func (t *Traversal) Kind() Kind { return t.kind }

// IsShortcut returns true for the special by() traversals that hold no steps.
func (t *Traversal) IsShortcut() bool { return t.kind != KindSteps }

// Key returns the property key of a value traversal.
func (t *Traversal) Key() string { return t.key }

// Token returns the token of a token traversal.
func (t *Traversal) Token() structure.T { return t.token }

// Value returns the value of a constant traversal.
func (t *Traversal) Value() any { return t.value }

// MaxLoops returns the bound of a loop traversal.
func (t *Traversal) MaxLoops() int64 { return t.loops }

// Bypass returns the traversal used in place of a value traversal, if any.
func (t *Traversal) Bypass() *Traversal { return t.bypass }

// SetBypass sets the traversal used in place of a value traversal.
func (t *Traversal) SetBypass(bypass *Traversal) {
	if t.kind != KindValue {
		spiceerrors.MustPanic("bypass is only supported on value traversals, found %s", t)
	}
	t.bypass = bypass
}

// Steps returns a snapshot of the steps of the traversal. Mutating the
// traversal does not affect a previously returned slice.
func (t *Traversal) Steps() []Step { return slices.Clone(t.steps) }

// Len returns the number of steps.
func (t *Traversal) Len() int { return len(t.steps) }

// IsEmpty returns true for a step traversal without steps.
func (t *Traversal) IsEmpty() bool { return t.kind == KindSteps && len(t.steps) == 0 }

// Step returns the step at the index.
func (t *Traversal) Step(i int) Step { return t.steps[i] }

// StartStep returns the first step, or nil if the traversal is empty.
func (t *Traversal) StartStep() Step {
	if len(t.steps) == 0 {
		return nil
	}
	return t.steps[0]
}

// EndStep returns the last step, or nil if the traversal is empty.
func (t *Traversal) EndStep() Step {
	if len(t.steps) == 0 {
		return nil
	}
	return t.steps[len(t.steps)-1]
}

// IndexOf returns the index of the step in this traversal, or -1.
func (t *Traversal) IndexOf(s Step) int {
	if s == nil || s.base().traversal != t {
		return -1
	}
	return s.base().index
}

// AddStep appends the step.
func (t *Traversal) AddStep(s Step) *Traversal {
	return t.InsertStep(len(t.steps), s)
}

// InsertStep inserts the step at the index. A step attached to another
// traversal is detached from it first.
func (t *Traversal) InsertStep(i int, s Step) *Traversal {
	t.mustBeMutable()

	b := s.base()
	if b.traversal != nil {
		if b.traversal == t && b.index < i {
			i--
		}
		b.traversal.RemoveStep(s)
	}

	b.traversal = t
	t.steps = slices.Insert(t.steps, i, s)
	t.reindex(i)
	return t
}

// RemoveStep removes the step if it belongs to this traversal.
func (t *Traversal) RemoveStep(s Step) *Traversal {
	if i := t.IndexOf(s); i >= 0 {
		t.RemoveStepAt(i)
	}
	return t
}

// RemoveStepAt removes and returns the step at the index.
func (t *Traversal) RemoveStepAt(i int) Step {
	t.mustBeMutable()

	removed := t.steps[i]
	t.steps = slices.Delete(t.steps, i, i+1)
	t.reindex(i)

	b := removed.base()
	b.traversal = nil
	b.index = 0
	return removed
}

// ReplaceStep puts the replacement at the position of the existing step,
// which is removed.
func (t *Traversal) ReplaceStep(existing Step, replacement Step) *Traversal {
	i := t.IndexOf(existing)
	if i < 0 {
		spiceerrors.MustPanic("step %s is not part of traversal %s", existing, t)
		return t
	}
	t.RemoveStepAt(i)
	return t.InsertStep(i, replacement)
}

// InsertBefore inserts the step before the existing one.
func (t *Traversal) InsertBefore(s Step, existing Step) *Traversal {
	i := t.IndexOf(existing)
	if i < 0 {
		spiceerrors.MustPanic("step %s is not part of traversal %s", existing, t)
		return t
	}
	return t.InsertStep(i, s)
}

// InsertAfter inserts the step after the existing one.
func (t *Traversal) InsertAfter(s Step, existing Step) *Traversal {
	i := t.IndexOf(existing)
	if i < 0 {
		spiceerrors.MustPanic("step %s is not part of traversal %s", existing, t)
		return t
	}
	return t.InsertStep(i+1, s)
}

// InsertTraversal moves all steps of the other traversal into this one,
// directly after the given step, or at the start if the step is nil. It
// returns the last inserted step, or the given step if other was empty.
func (t *Traversal) InsertTraversal(after Step, other *Traversal) Step {
	i := 0
	if after != nil {
		i = t.IndexOf(after) + 1
		if i == 0 {
			spiceerrors.MustPanic("step %s is not part of traversal %s", after, t)
			return after
		}
	}

	last := after
	for _, s := range other.Steps() {
		t.InsertStep(i, s)
		last = s
		i++
	}
	return last
}

func (t *Traversal) reindex(from int) {
	for i := from; i < len(t.steps); i++ {
		t.steps[i].base().index = i
	}
}

func (t *Traversal) mustBeMutable() {
	if t.locked {
		spiceerrors.MustPanic("traversal %s is locked and can no longer be modified", t)
	}
	if t.kind != KindSteps {
		spiceerrors.MustPanic("steps cannot be added to or removed from %s", t)
	}
}

// Parent returns the step owning the traversal, or nil for a root.
func (t *Traversal) Parent() TraversalParent { return t.parent }

// SetParent sets the step owning the traversal.
func (t *Traversal) SetParent(parent TraversalParent) { t.parent = parent }

// IsRoot returns true if the traversal has no parent.
func (t *Traversal) IsRoot() bool { return t.parent == nil }

// Root returns the root of the tree the traversal belongs to.
func (t *Traversal) Root() *Traversal {
	current := t
	for current.parent != nil {
		owner := current.parent.Traversal()
		if owner == nil {
			break
		}
		current = owner
	}
	return current
}

// Lock freezes the traversal and all of its children.
func (t *Traversal) Lock() {
	_ = ApplyRecursively(t, func(child *Traversal) error {
		child.locked = true
		return nil
	})
}

// IsLocked returns true once the traversal was locked.
func (t *Traversal) IsLocked() bool { return t.locked }

// Requirements returns the traverser requirements of all steps, including
// those of child traversals.
func (t *Traversal) Requirements() Requirements {
	var reqs Requirements
	for _, s := range t.steps {
		reqs = reqs.Union(requirementsOf(s))
		if len(s.Labels()) > 0 {
			reqs = reqs.With(RequireLabeledPath)
		}
	}
	if t.bypass != nil {
		reqs = reqs.Union(t.bypass.Requirements())
	}
	return reqs
}

// Clone returns a deep copy of the traversal without a parent. Every step of
// the copy has a new ID.
func (t *Traversal) Clone() *Traversal {
	cloned := &Traversal{
		kind:  t.kind,
		key:   t.key,
		token: t.token,
		value: t.value,
		loops: t.loops,
	}
	if t.bypass != nil {
		cloned.bypass = t.bypass.Clone()
	}
	for _, s := range t.steps {
		cloned.AddStep(s.Clone())
	}
	return cloned
}

// Equal returns true if both traversals have the same structure, including
// step arguments and labels.
func (t *Traversal) Equal(other *Traversal) bool {
	if t == nil || other == nil {
		return t == other
	}
	return t.String() == other.String()
}

func (t *Traversal) String() string {
	switch t.kind {
	case KindValue:
		if t.bypass != nil {
			return fmt.Sprintf("value(%s,%s)", t.key, t.bypass)
		}
		return "value(" + t.key + ")"
	case KindToken:
		return t.token.String()
	case KindIdentity:
		return "identity"
	case KindConstant:
		return fmt.Sprintf("constant(%v)", t.value)
	case KindLoop:
		return fmt.Sprintf("loops(%d)", t.loops)
	}

	parts := make([]string, 0, len(t.steps))
	for _, s := range t.steps {
		parts = append(parts, s.String())
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
