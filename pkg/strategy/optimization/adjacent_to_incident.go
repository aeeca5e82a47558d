package optimization

import (
	"github.com/authzed/graphtraversal/pkg/strategy"
	"github.com/authzed/graphtraversal/pkg/traversal"
)

// AdjacentToIncident stops walks short of the vertices or property values
// they reach when only their number or existence matters:
//
//	out().count()          -> outE().count()
//	values("age").count()  -> properties("age").count()
//	where(out())           -> where(outE())
type AdjacentToIncident struct {
	strategy.Base
}

func NewAdjacentToIncident() *AdjacentToIncident { return &AdjacentToIncident{} }

func (*AdjacentToIncident) ID() strategy.ID             { return strategy.AdjacentToIncidentID }
func (*AdjacentToIncident) Category() strategy.Category { return strategy.Optimization }

func (*AdjacentToIncident) Prior() []strategy.ID {
	return []strategy.ID{strategy.IdentityRemovalID, strategy.IncidentToAdjacentID}
}

func (s *AdjacentToIncident) Configuration() strategy.Configuration {
	return strategy.ConfigurationFor(s.ID())
}

func (s *AdjacentToIncident) Apply(_ *strategy.Context, root *traversal.Traversal) error {
	return traversal.ApplyRecursively(root, func(t *traversal.Traversal) error {
		if t.IsShortcut() {
			return nil
		}

		var prev traversal.Step
		steps := t.Steps()
		for i, curr := range steps {
			switch {
			case i == len(steps)-1 && shortenable(curr):
				if onlyExistenceMatters(t) {
					shorten(t, curr)
				}
			case shortenable(prev):
				if _, ok := curr.(*traversal.CountGlobalStep); ok {
					shorten(t, prev)
				}
			}

			if _, ok := curr.(*traversal.RangeGlobalStep); !ok {
				prev = curr
			}
		}
		return nil
	})
}

// shortenable returns true for walks to vertices or values whose results are
// not bound to a label, unless they are counted anyway.
func shortenable(s traversal.Step) bool {
	switch step := s.(type) {
	case *traversal.VertexStep:
		if !step.ReturnsVertex() {
			return false
		}
	case *traversal.PropertiesStep:
		if !step.ReturnsValue() {
			return false
		}
	default:
		return false
	}

	if _, ok := s.Next().(*traversal.CountGlobalStep); ok {
		return true
	}
	return len(s.Traversal().EndStep().Labels()) == 0
}

// onlyExistenceMatters returns true if the parent of the traversal only
// checks whether it produces anything.
func onlyExistenceMatters(t *traversal.Traversal) bool {
	switch parent := t.Parent().(type) {
	case *traversal.NotStep, *traversal.TraversalFilterStep, traversal.Connective:
		return true
	case *traversal.WhereTraversalStep:
		return parent.EndKey() == ""
	default:
		return false
	}
}

func shorten(t *traversal.Traversal, s traversal.Step) {
	var replacement traversal.Step
	switch step := s.(type) {
	case *traversal.VertexStep:
		replacement = traversal.NewVertexStep(false, step.Direction(), step.EdgeLabels()...)
	case *traversal.PropertiesStep:
		replacement = traversal.NewPropertiesStep(false, step.Keys()...)
	default:
		return
	}
	traversal.CopyLabels(s, replacement, false)
	t.ReplaceStep(s, replacement)
}
