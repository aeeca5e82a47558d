// Package structure defines the narrow view of a property graph that the
// traversal compiler and its reference evaluator depend on. Storage engines
// implement Graph; the compiler itself only needs Direction and T.
package structure

import (
	"fmt"
)

// Direction is the direction of an edge relative to a vertex.
type Direction uint8

const (
	Out Direction = iota
	In
	Both
)

// Opposite returns the reverse direction. Both is its own opposite.
func (d Direction) Opposite() Direction {
	switch d {
	case Out:
		return In
	case In:
		return Out
	default:
		return Both
	}
}

func (d Direction) String() string {
	switch d {
	case Out:
		return "OUT"
	case In:
		return "IN"
	case Both:
		return "BOTH"
	default:
		return fmt.Sprintf("Direction(%d)", uint8(d))
	}
}

// T is a token addressing an intrinsic part of an element.
type T uint8

const (
	TID T = iota
	TLabel
	TKey
	TValue
)

func (t T) String() string {
	switch t {
	case TID:
		return "id"
	case TLabel:
		return "label"
	case TKey:
		return "key"
	case TValue:
		return "value"
	default:
		return fmt.Sprintf("T(%d)", uint8(t))
	}
}

// Element is a vertex or an edge.
type Element interface {
	ID() any
	Label() string

	// Property returns the value stored under the key, if any.
	Property(key string) (any, bool)

	// Keys returns the property keys in ascending order.
	Keys() []string
}

// Vertex is a graph vertex.
type Vertex interface {
	Element
	isVertex()
}

// Edge is a directed, labeled graph edge.
type Edge interface {
	Element
	OutVertex() Vertex
	InVertex() Vertex
	isEdge()
}

// Property is a key/value pair owned by an element.
type Property struct {
	Owner Element
	Key   string
	Value any
}

func (p Property) String() string {
	return fmt.Sprintf("p[%s->%v]", p.Key, p.Value)
}

// Graph is the read surface the evaluator needs from storage.
type Graph interface {
	// Vertices returns the vertices with the given ids, or all vertices when
	// no ids are provided.
	Vertices(ids ...any) ([]Vertex, error)

	// Edges returns the edges with the given ids, or all edges when no ids are
	// provided.
	Edges(ids ...any) ([]Edge, error)

	// VertexEdges returns the edges incident to the vertex in the given
	// direction, restricted to the labels when any are given.
	VertexEdges(v Vertex, direction Direction, labels ...string) ([]Edge, error)
}

// VertexMarker may be embedded by Vertex implementations outside this package.
type VertexMarker struct{}

func (VertexMarker) isVertex() {}

// EdgeMarker may be embedded by Edge implementations outside this package.
type EdgeMarker struct{}

func (EdgeMarker) isEdge() {}

// OtherVertex returns the vertex of the edge opposite to the given one.
func OtherVertex(e Edge, v Vertex) Vertex {
	if e.OutVertex().ID() == v.ID() {
		return e.InVertex()
	}
	return e.OutVertex()
}

// EdgeVertices returns the vertices of the edge selected by the direction.
func EdgeVertices(e Edge, direction Direction) []Vertex {
	switch direction {
	case Out:
		return []Vertex{e.OutVertex()}
	case In:
		return []Vertex{e.InVertex()}
	default:
		return []Vertex{e.OutVertex(), e.InVertex()}
	}
}
