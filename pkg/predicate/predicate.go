// Package predicate implements the comparison predicates used by has(), is()
// and where() steps, along with the and/or connectives that combine them.
package predicate

import (
	"fmt"
	"slices"
	"strings"

	"github.com/jzelinskie/stringz"
)

// Biz identifies the bi-predicate a P applies.
type Biz uint8

const (
	Eq Biz = iota
	Neq
	Lt
	Lte
	Gt
	Gte
	Within
	Without
	And
	Or
)

var bizNames = [...]string{
	Eq:      "eq",
	Neq:     "neq",
	Lt:      "lt",
	Lte:     "lte",
	Gt:      "gt",
	Gte:     "gte",
	Within:  "within",
	Without: "without",
	And:     "and",
	Or:      "or",
}

func (b Biz) String() string {
	if int(b) < len(bizNames) {
		return bizNames[b]
	}
	return fmt.Sprintf("Biz(%d)", uint8(b))
}

// IsCompare returns true for the scalar comparisons.
func (b Biz) IsCompare() bool { return b <= Gte }

// IsContains returns true for within and without.
func (b Biz) IsContains() bool { return b == Within || b == Without }

// IsConnective returns true for and and or.
func (b Biz) IsConnective() bool { return b == And || b == Or }

// Negate returns the complementary bi-predicate.
func (b Biz) Negate() Biz {
	switch b {
	case Eq:
		return Neq
	case Neq:
		return Eq
	case Lt:
		return Gte
	case Lte:
		return Gt
	case Gt:
		return Lte
	case Gte:
		return Lt
	case Within:
		return Without
	case Without:
		return Within
	case And:
		return Or
	default:
		return And
	}
}

// P is an immutable predicate. Scalar and containment predicates carry a
// value; connectives carry their operands.
type P struct {
	biz        Biz
	value      any
	values     []any
	predicates []*P
}

func EqP(value any) *P  { return &P{biz: Eq, value: value} }
func NeqP(value any) *P { return &P{biz: Neq, value: value} }
func LtP(value any) *P  { return &P{biz: Lt, value: value} }
func LteP(value any) *P { return &P{biz: Lte, value: value} }
func GtP(value any) *P  { return &P{biz: Gt, value: value} }
func GteP(value any) *P { return &P{biz: Gte, value: value} }

// WithinP matches values that equal any of the given values.
func WithinP(values ...any) *P { return &P{biz: Within, values: slices.Clone(values)} }

// WithoutP matches values that equal none of the given values.
func WithoutP(values ...any) *P { return &P{biz: Without, values: slices.Clone(values)} }

// AndP matches when every operand matches. Nested and operands are flattened.
func AndP(predicates ...*P) *P { return connective(And, predicates) }

// OrP matches when any operand matches. Nested or operands are flattened.
func OrP(predicates ...*P) *P { return connective(Or, predicates) }

func connective(biz Biz, predicates []*P) *P {
	flattened := make([]*P, 0, len(predicates))
	for _, p := range predicates {
		if p.biz == biz {
			flattened = append(flattened, p.predicates...)
			continue
		}
		flattened = append(flattened, p)
	}
	return &P{biz: biz, predicates: flattened}
}

// Biz returns the bi-predicate of p.
func (p *P) Biz() Biz { return p.biz }

// Value returns the scalar operand of a compare predicate, or the operand list
// of a containment predicate.
func (p *P) Value() any {
	if p.biz.IsContains() {
		return slices.Clone(p.values)
	}
	return p.value
}

// Values returns the operands of a containment predicate.
func (p *P) Values() []any { return slices.Clone(p.values) }

// Predicates returns the operands of a connective, or p itself otherwise.
func (p *P) Predicates() []*P {
	if p.biz.IsConnective() {
		return slices.Clone(p.predicates)
	}
	return []*P{p}
}

// And combines p with other.
func (p *P) And(other *P) *P { return AndP(p, other) }

// Or combines p with other.
func (p *P) Or(other *P) *P { return OrP(p, other) }

// Negate returns the complement of p.
func (p *P) Negate() *P {
	if p.biz.IsConnective() {
		negated := make([]*P, 0, len(p.predicates))
		for _, child := range p.predicates {
			negated = append(negated, child.Negate())
		}
		return connective(p.biz.Negate(), negated)
	}
	return &P{biz: p.biz.Negate(), value: p.value, values: p.values}
}

// Resolve returns the predicate with every operand replaced by the result of
// resolve, as where() does with the labels it compares against. It returns
// false if any operand cannot be resolved.
func (p *P) Resolve(resolve func(operand any) (any, bool)) (*P, bool) {
	switch {
	case p.biz.IsConnective():
		resolved := make([]*P, 0, len(p.predicates))
		for _, child := range p.predicates {
			r, ok := child.Resolve(resolve)
			if !ok {
				return nil, false
			}
			resolved = append(resolved, r)
		}
		return connective(p.biz, resolved), true

	case p.biz.IsContains():
		values := make([]any, 0, len(p.values))
		for _, v := range p.values {
			r, ok := resolve(v)
			if !ok {
				return nil, false
			}
			values = append(values, r)
		}
		return &P{biz: p.biz, values: values}, true

	default:
		r, ok := resolve(p.value)
		if !ok {
			return nil, false
		}
		return &P{biz: p.biz, value: r}, true
	}
}

// Test applies the predicate to the value.
func (p *P) Test(value any) bool {
	switch p.biz {
	case Eq:
		return Equal(value, p.value)
	case Neq:
		return !Equal(value, p.value)
	case Lt, Lte, Gt, Gte:
		c, ok := Compare(value, p.value)
		if !ok {
			return false
		}
		switch p.biz {
		case Lt:
			return c < 0
		case Lte:
			return c <= 0
		case Gt:
			return c > 0
		default:
			return c >= 0
		}
	case Within:
		return slices.ContainsFunc(p.values, func(v any) bool { return Equal(value, v) })
	case Without:
		return !slices.ContainsFunc(p.values, func(v any) bool { return Equal(value, v) })
	case And:
		for _, child := range p.predicates {
			if !child.Test(value) {
				return false
			}
		}
		return true
	case Or:
		for _, child := range p.predicates {
			if child.Test(value) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func (p *P) String() string {
	switch {
	case p.biz.IsConnective():
		parts := make([]string, 0, len(p.predicates))
		for _, child := range p.predicates {
			parts = append(parts, child.String())
		}
		return p.biz.String() + "(" + strings.Join(parts, ", ") + ")"
	case p.biz.IsContains():
		parts := make([]string, 0, len(p.values))
		for _, v := range p.values {
			parts = append(parts, fmt.Sprint(v))
		}
		return p.biz.String() + "([" + stringz.Join(", ", parts...) + "])"
	default:
		return fmt.Sprintf("%s(%v)", p.biz, p.value)
	}
}

// TypedString renders p like String, but tags every operand with its Go
// type, so eq(29) and eq("29") render differently.
func (p *P) TypedString() string {
	switch {
	case p.biz.IsConnective():
		parts := make([]string, 0, len(p.predicates))
		for _, child := range p.predicates {
			parts = append(parts, child.TypedString())
		}
		return p.biz.String() + "(" + strings.Join(parts, ", ") + ")"
	case p.biz.IsContains():
		parts := make([]string, 0, len(p.values))
		for _, v := range p.values {
			parts = append(parts, typedValue(v))
		}
		return p.biz.String() + "([" + stringz.Join(", ", parts...) + "])"
	default:
		return p.biz.String() + "(" + typedValue(p.value) + ")"
	}
}

func typedValue(v any) string { return fmt.Sprintf("%T:%#v", v, v) }

// Equal reports whether two predicates are structurally identical.
func (p *P) Equal(other *P) bool {
	if p == nil || other == nil {
		return p == other
	}
	if p.biz != other.biz || len(p.values) != len(other.values) || len(p.predicates) != len(other.predicates) {
		return false
	}
	if !p.biz.IsContains() && !p.biz.IsConnective() && !Equal(p.value, other.value) {
		return false
	}
	for i := range p.values {
		if !Equal(p.values[i], other.values[i]) {
			return false
		}
	}
	for i := range p.predicates {
		if !p.predicates[i].Equal(other.predicates[i]) {
			return false
		}
	}
	return true
}
