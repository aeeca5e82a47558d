package optimization

import (
	"github.com/authzed/graphtraversal/pkg/strategy"
	"github.com/authzed/graphtraversal/pkg/structure"
	"github.com/authzed/graphtraversal/pkg/traversal"
)

// IncidentToAdjacent walks to adjacent vertices directly instead of through
// their incident edges, where the edge itself is never looked at:
//
//	outE().inV()      -> out()
//	inE().outV()      -> in()
//	bothE().otherV()  -> both()
//
// Trees reading paths or running lambdas could observe the skipped edges
// and are left untouched.
type IncidentToAdjacent struct {
	strategy.Base
}

func NewIncidentToAdjacent() *IncidentToAdjacent { return &IncidentToAdjacent{} }

func (*IncidentToAdjacent) ID() strategy.ID             { return strategy.IncidentToAdjacentID }
func (*IncidentToAdjacent) Category() strategy.Category { return strategy.Optimization }
func (*IncidentToAdjacent) Prior() []strategy.ID        { return []strategy.ID{strategy.IdentityRemovalID} }
func (*IncidentToAdjacent) Post() []strategy.ID         { return []strategy.ID{strategy.PathRetractionID} }

func (s *IncidentToAdjacent) Configuration() strategy.Configuration {
	return strategy.ConfigurationFor(s.ID())
}

var incidentToAdjacentRewrites = []strategy.StepRewrite{
	strategy.WrapRewrite(rewriteIncidentToAdjacent),
}

func (s *IncidentToAdjacent) Apply(ctx *strategy.Context, root *traversal.Traversal) error {
	invalid := traversal.AnyStepRecursively(root, func(s traversal.Step) bool {
		switch s.(type) {
		case *traversal.PathStep, *traversal.PathFilterStep, traversal.LambdaHolder:
			return true
		default:
			return false
		}
	})
	if invalid {
		return nil
	}

	_, err := strategy.ApplyRewrites(ctx, root, incidentToAdjacentRewrites)
	return err
}

func rewriteIncidentToAdjacent(_ *strategy.Context, incident *traversal.VertexStep) (bool, error) {
	if !incident.ReturnsEdge() || len(incident.Labels()) > 0 {
		return false, nil
	}

	next := incident.Next()
	switch v := next.(type) {
	case *traversal.EdgeOtherVertexStep:
	case *traversal.EdgeVertexStep:
		if incident.Direction() == structure.Both || v.Direction() != incident.Direction().Opposite() {
			return false, nil
		}
	default:
		return false, nil
	}

	t := incident.Traversal()
	adjacent := traversal.NewVertexStep(true, incident.Direction(), incident.EdgeLabels()...)
	traversal.CopyLabels(next, adjacent, false)
	t.ReplaceStep(incident, adjacent)
	t.RemoveStep(next)
	return true, nil
}
