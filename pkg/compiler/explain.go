package compiler

import (
	"fmt"
	"strings"

	"github.com/jzelinskie/stringz"

	"github.com/authzed/graphtraversal/pkg/strategy"
	"github.com/authzed/graphtraversal/pkg/traversal"
)

const (
	originalTitle = "Original Traversal"
	finalTitle    = "Final Traversal"
)

// Explain renders the traversal before compilation, after every strategy and
// once compiled:
//
//	Traversal Explanation
//	=========================================================
//	Original Traversal                  [GraphStep(vertex,[]), ...]
//
//	IdentityRemovalStrategy        [O]  [GraphStep(vertex,[]), ...]
//	...
//
//	Final Traversal                     [GraphStep(vertex,[]), ...]
func (c *Compiled) Explain() string {
	width := len(originalTitle)
	for _, rewrite := range c.rewrites {
		width = max(width, len(rewrite.Strategy)+5)
	}
	width += 2

	lines := make([]string, 0, len(c.rewrites)+2)
	lines = append(lines, fmt.Sprintf("%-*s%s", width, originalTitle, c.original))
	for _, rewrite := range c.rewrites {
		name := fmt.Sprintf("%-*s[%s]", width-5, rewrite.Strategy, categoryInitial(rewrite.Category))
		lines = append(lines, fmt.Sprintf("%-*s%s", width, name, rewrite.Traversal))
	}
	final := fmt.Sprintf("%-*s%s", width, finalTitle, c.traversal)

	longest := 0
	for _, line := range append(lines, final) {
		longest = max(longest, len(line))
	}

	var sb strings.Builder
	sb.WriteString("Traversal Explanation\n")
	sb.WriteString(strings.Repeat("=", longest))
	sb.WriteString("\n")
	sb.WriteString(lines[0])
	sb.WriteString("\n\n")
	for _, line := range lines[1:] {
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	if len(lines) > 1 {
		sb.WriteString("\n")
	}
	sb.WriteString(final)
	return sb.String()
}

func categoryInitial(c strategy.Category) string {
	return strings.ToUpper(c.String()[:1])
}

// Tree renders the compiled traversal as a tree, with every child traversal
// below the step owning it.
func (c *Compiled) Tree() string {
	var sb strings.Builder
	for i, s := range c.traversal.Steps() {
		formatStep(s, &sb, "", i == c.traversal.Len()-1)
	}
	return sb.String()
}

func formatStep(s traversal.Step, sb *strings.Builder, indent string, isLast bool) {
	branch, childIndent := "├─ ", indent+"│  "
	if isLast {
		branch, childIndent = "└─ ", indent+"   "
	}

	parent, ok := s.(traversal.TraversalParent)
	if !ok {
		sb.WriteString(indent + branch + s.String() + "\n")
		return
	}

	info := s.Name()
	if labels := s.Labels(); len(labels) > 0 {
		info += "@[" + stringz.Join(",", labels...) + "]"
	}
	sb.WriteString(indent + branch + info + "\n")

	children := make([]*traversal.Traversal, 0)
	kinds := make([]string, 0)
	for _, child := range parent.LocalChildren() {
		children = append(children, child)
		kinds = append(kinds, "local")
	}
	for _, child := range parent.GlobalChildren() {
		children = append(children, child)
		kinds = append(kinds, "global")
	}

	for i, child := range children {
		formatChild(child, kinds[i], sb, childIndent, i == len(children)-1)
	}
}

func formatChild(t *traversal.Traversal, kind string, sb *strings.Builder, indent string, isLast bool) {
	branch, childIndent := "├─ ", indent+"│  "
	if isLast {
		branch, childIndent = "└─ ", indent+"   "
	}

	if t.IsShortcut() || t.IsEmpty() {
		sb.WriteString(indent + branch + kind + " " + t.String() + "\n")
		return
	}

	sb.WriteString(indent + branch + kind + "\n")
	for i, s := range t.Steps() {
		formatStep(s, sb, childIndent, i == t.Len()-1)
	}
}
