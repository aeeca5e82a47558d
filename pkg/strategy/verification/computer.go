package verification

import (
	"github.com/authzed/graphtraversal/pkg/strategy"
	"github.com/authzed/graphtraversal/pkg/structure"
	"github.com/authzed/graphtraversal/pkg/traversal"
)

// Computer rejects traversals that cannot run distributed over a graph
// computer. Traversals compiled for standalone execution are not checked.
type Computer struct {
	strategy.Base
}

func NewComputer() *Computer { return &Computer{} }

func (*Computer) ID() strategy.ID             { return strategy.ComputerVerificationID }
func (*Computer) Category() strategy.Category { return strategy.Verification }

func (s *Computer) Configuration() strategy.Configuration {
	return strategy.ConfigurationFor(s.ID())
}

func (s *Computer) Apply(ctx *strategy.Context, root *traversal.Traversal) error {
	if !ctx.OnComputer() {
		return nil
	}

	if len(traversal.StepsOfRecursively[*traversal.GraphStep](root)) > 1 {
		return verificationErrorf(s.ID(), root, "mid-traversal V()/E() is currently not supported on graph computer")
	}
	if root.Requirements().Has(traversal.RequireOneBulk) {
		return verificationErrorf(s.ID(), root, "one bulk is currently not supported on graph computer: %s", root)
	}

	return traversal.ApplyRecursively(root, func(t *traversal.Traversal) error {
		if !traversal.IsGlobalChild(t) && !isLocalStarGraph(t) {
			return verificationErrorf(s.ID(), t, "local traversals may not traverse past the local star-graph on graph computer: %s", t)
		}

		for _, step := range t.Steps() {
			if processor, ok := step.(traversal.PathProcessor); ok {
				if required := traversal.MaxRequirement(processor); required != traversal.ElementID {
					return verificationErrorf(s.ID(), t,
						"it is not possible to access more than a path element's id on graph computer: %s requires %s", step, required)
				}
			}

			switch step.(type) {
			case *traversal.InjectStep, traversal.Mutating:
				return verificationErrorf(s.ID(), t, "the following step is currently not supported on graph computer: %s", step)
			}
		}
		return nil
	})
}

// starPosition is where a local traversal stands relative to the vertex it
// started from.
type starPosition uint8

const (
	atVertex starPosition = iota
	atIncidentEdge
	atAdjacentVertex
	pastStar
)

// isLocalStarGraph returns true if the traversal only reads the vertex it
// starts from, its incident edges and the ids of its adjacent vertices.
func isLocalStarGraph(t *traversal.Traversal) bool {
	return starWalk(t, atVertex) != pastStar
}

func starWalk(t *traversal.Traversal, position starPosition) starPosition {
	if position == atAdjacentVertex {
		switch t.Kind() {
		case traversal.KindValue:
			return pastStar
		case traversal.KindToken:
			if t.Token() != structure.TID {
				return pastStar
			}
		}
	}

	for _, step := range t.Steps() {
		switch s := step.(type) {
		case *traversal.PropertiesStep, *traversal.LabelStep:
			if position == atAdjacentVertex {
				return pastStar
			}

		case *traversal.VertexStep:
			if position == atAdjacentVertex {
				return pastStar
			}
			position = atIncidentEdge
			if s.ReturnsVertex() {
				position = atAdjacentVertex
			}

		case *traversal.EdgeVertexStep, *traversal.EdgeOtherVertexStep:
			position = atAdjacentVertex

		case traversal.HasContainerHolder:
			if position != atAdjacentVertex {
				continue
			}
			for _, hc := range s.HasContainers() {
				if hc.Key != traversal.IDKey {
					return pastStar
				}
			}

		case traversal.TraversalParent:
			current := position
			var reached []starPosition
			for _, child := range s.LocalChildren() {
				p := starWalk(child, current)
				if p == pastStar {
					return pastStar
				}
				reached = append(reached, p)
			}
			if _, modulating := s.(traversal.ByModulating); !modulating {
				position = furthest(position, reached)
			}

			reached = reached[:0]
			switch s.(type) {
			case *traversal.SelectStep, *traversal.SelectOneStep:
				reached = append(reached, atAdjacentVertex)
			}
			for _, child := range s.GlobalChildren() {
				p := starWalk(child, current)
				if p == pastStar {
					return pastStar
				}
				reached = append(reached, p)
			}
			position = furthest(position, reached)

			switch s.(type) {
			case *traversal.RepeatStep, *traversal.MatchStep:
				if position != current {
					return pastStar
				}
			}
		}
	}
	return position
}

// furthest returns the adjacent vertex if any child reached it, or else an
// incident edge if any child reached one, or else the given position.
func furthest(position starPosition, reached []starPosition) starPosition {
	for _, want := range []starPosition{atAdjacentVertex, atIncidentEdge} {
		for _, p := range reached {
			if p == want {
				return want
			}
		}
	}
	return position
}
