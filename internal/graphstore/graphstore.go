// Package graphstore is an in-memory property graph backed by go-memdb. It
// serves the reference evaluator and the tests exercising compiled
// traversals against real data.
package graphstore

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-memdb"

	"github.com/authzed/graphtraversal/internal/logging"
	"github.com/authzed/graphtraversal/pkg/structure"
)

const (
	defaultVertexLabel = "vertex"
	defaultEdgeLabel   = "edge"
)

// ErrDuplicateElement is returned when adding an element whose id is taken.
var ErrDuplicateElement = errors.New("an element with this id already exists")

// VertexNotFoundError is returned when an edge references a missing vertex.
type VertexNotFoundError struct {
	ID any
}

func (err VertexNotFoundError) Error() string {
	return fmt.Sprintf("vertex %v not found", err.ID)
}

// Graph is a mutable in-memory graph. Reads see a consistent snapshot.
type Graph struct {
	db *memdb.MemDB
}

var _ structure.Graph = (*Graph)(nil)

// New returns an empty graph.
func New() (*Graph, error) {
	db, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to create graph store: %w", err)
	}
	return &Graph{db: db}, nil
}

// AddVertex adds a vertex. An empty label defaults to "vertex".
func (g *Graph) AddVertex(id any, label string, props map[string]any) (structure.Vertex, error) {
	if label == "" {
		label = defaultVertexLabel
	}
	v := &vertex{key: elementKey(id), id: id, label: label, properties: clone(props)}

	txn := g.db.Txn(true)
	defer txn.Abort()

	existing, err := txn.First(tableVertex, indexID, v.key)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("vertex %v: %w", id, ErrDuplicateElement)
	}
	if err := txn.Insert(tableVertex, v); err != nil {
		return nil, err
	}
	txn.Commit()

	logging.Trace().Object("vertex", v).Msg("added vertex")
	return v, nil
}

// AddEdge adds an edge between two existing vertices. An empty label
// defaults to "edge".
func (g *Graph) AddEdge(id any, label string, outID, inID any, props map[string]any) (structure.Edge, error) {
	if label == "" {
		label = defaultEdgeLabel
	}

	txn := g.db.Txn(true)
	defer txn.Abort()

	out, err := vertexByKey(txn, elementKey(outID))
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, VertexNotFoundError{ID: outID}
	}
	in, err := vertexByKey(txn, elementKey(inID))
	if err != nil {
		return nil, err
	}
	if in == nil {
		return nil, VertexNotFoundError{ID: inID}
	}

	e := &edge{
		key:        elementKey(id),
		id:         id,
		label:      label,
		outKey:     out.key,
		inKey:      in.key,
		out:        out,
		in:         in,
		properties: clone(props),
	}
	existing, err := txn.First(tableEdge, indexID, e.key)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("edge %v: %w", id, ErrDuplicateElement)
	}
	if err := txn.Insert(tableEdge, e); err != nil {
		return nil, err
	}
	txn.Commit()

	logging.Trace().Object("edge", e).Msg("added edge")
	return e, nil
}

// Remove deletes the element. Removing a vertex removes its incident edges.
// Removing a missing element is a no-op.
func (g *Graph) Remove(element structure.Element) error {
	txn := g.db.Txn(true)
	defer txn.Abort()

	key := elementKey(element.ID())
	switch element.(type) {
	case structure.Vertex:
		for _, index := range []string{indexOut, indexIn} {
			if _, err := txn.DeleteAll(tableEdge, index, key); err != nil {
				return err
			}
		}
		if _, err := txn.DeleteAll(tableVertex, indexID, key); err != nil {
			return err
		}
	case structure.Edge:
		if _, err := txn.DeleteAll(tableEdge, indexID, key); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported element %T", element)
	}
	txn.Commit()
	return nil
}

// Vertices returns the vertices with the ids, in the order of the ids and
// skipping missing ones, or all vertices ordered by id.
func (g *Graph) Vertices(ids ...any) ([]structure.Vertex, error) {
	txn := g.db.Txn(false)
	defer txn.Abort()

	if len(ids) == 0 {
		it, err := txn.Get(tableVertex, indexID)
		if err != nil {
			return nil, err
		}
		return collect[structure.Vertex](it), nil
	}

	found := make([]structure.Vertex, 0, len(ids))
	for _, id := range ids {
		v, err := vertexByKey(txn, elementKey(id))
		if err != nil {
			return nil, err
		}
		if v != nil {
			found = append(found, v)
		}
	}
	return found, nil
}

// Edges returns the edges with the ids, in the order of the ids and skipping
// missing ones, or all edges ordered by id.
func (g *Graph) Edges(ids ...any) ([]structure.Edge, error) {
	txn := g.db.Txn(false)
	defer txn.Abort()

	if len(ids) == 0 {
		it, err := txn.Get(tableEdge, indexID)
		if err != nil {
			return nil, err
		}
		return collect[structure.Edge](it), nil
	}

	found := make([]structure.Edge, 0, len(ids))
	for _, id := range ids {
		raw, err := txn.First(tableEdge, indexID, elementKey(id))
		if err != nil {
			return nil, err
		}
		if raw != nil {
			found = append(found, raw.(*edge))
		}
	}
	return found, nil
}

// VertexEdges returns the edges incident to the vertex. For Both, outgoing
// edges come first and a self-loop is returned once per direction.
func (g *Graph) VertexEdges(v structure.Vertex, direction structure.Direction, labels ...string) ([]structure.Edge, error) {
	txn := g.db.Txn(false)
	defer txn.Abort()

	key := elementKey(v.ID())
	var found []structure.Edge
	for _, d := range []structure.Direction{structure.Out, structure.In} {
		if direction != structure.Both && direction != d {
			continue
		}

		index, labelIndex := indexOut, indexOutLabel
		if d == structure.In {
			index, labelIndex = indexIn, indexInLabel
		}

		if len(labels) == 0 {
			it, err := txn.Get(tableEdge, index, key)
			if err != nil {
				return nil, err
			}
			found = append(found, collect[structure.Edge](it)...)
			continue
		}
		for _, label := range labels {
			it, err := txn.Get(tableEdge, labelIndex, key, label)
			if err != nil {
				return nil, err
			}
			found = append(found, collect[structure.Edge](it)...)
		}
	}
	return found, nil
}

func vertexByKey(txn *memdb.Txn, key string) (*vertex, error) {
	raw, err := txn.First(tableVertex, indexID, key)
	if err != nil || raw == nil {
		return nil, err
	}
	return raw.(*vertex), nil
}

func collect[T any](it memdb.ResultIterator) []T {
	var found []T
	for raw := it.Next(); raw != nil; raw = it.Next() {
		found = append(found, raw.(T))
	}
	return found
}

func clone(props map[string]any) properties {
	cloned := make(properties, len(props))
	for k, v := range props {
		cloned[k] = v
	}
	return cloned
}
