package traversal

import (
	"fmt"
	"strings"

	"github.com/authzed/graphtraversal/pkg/predicate"
)

// Fingerprint identifies the traversal for caching. It extends String with
// the Go type of every operand held by the tree, which String drops.
func Fingerprint(t *Traversal) string {
	var sb strings.Builder
	sb.WriteString(t.String())
	writeOperands(&sb, t)
	return sb.String()
}

// writeOperands appends the typed operands of every traversal in the tree, in
// walk order. Steps are numbered by position since their IDs differ between
// clones.
func writeOperands(sb *strings.Builder, t *Traversal) {
	position := 0
	_ = ApplyRecursively(t, func(child *Traversal) error {
		switch child.Kind() {
		case KindConstant:
			sb.WriteString("|constant=")
			sb.WriteString(typedOperand(child.Value()))
		case KindValue:
			if bypass := child.Bypass(); bypass != nil {
				sb.WriteString("|bypass{")
				writeOperands(sb, bypass)
				sb.WriteString("}")
			}
		}

		for _, s := range child.Steps() {
			position++
			if holder, ok := s.(HasContainerHolder); ok {
				for _, hc := range holder.HasContainers() {
					fmt.Fprintf(sb, "|%d:%s.%s", position, hc.Key, typedPredicate(hc.Predicate))
				}
			}
			switch s := s.(type) {
			case *IsStep:
				fmt.Fprintf(sb, "|%d:%s", position, typedPredicate(s.Predicate()))
			case *WherePredicateStep:
				fmt.Fprintf(sb, "|%d:%s", position, typedPredicate(s.Predicate()))
			case *ConstantStep:
				fmt.Fprintf(sb, "|%d:%s", position, typedOperand(s.Value()))
			case *GraphStep:
				fmt.Fprintf(sb, "|%d:%s", position, typedOperands(s.IDs()))
			case *InjectStep:
				fmt.Fprintf(sb, "|%d:%s", position, typedOperands(s.Values()))
			}
		}
		return nil
	})
}

func typedPredicate(p *predicate.P) string {
	if p == nil {
		return "<nil>"
	}
	return p.TypedString()
}

func typedOperand(v any) string { return fmt.Sprintf("%T:%#v", v, v) }

func typedOperands(values []any) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, typedOperand(v))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
