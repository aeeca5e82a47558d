package graphstore

import (
	"fmt"
	"slices"

	"github.com/hashicorp/go-memdb"
	"github.com/rs/zerolog"

	"github.com/authzed/graphtraversal/pkg/predicate"
	"github.com/authzed/graphtraversal/pkg/structure"
)

const (
	tableVertex = "vertex"
	tableEdge   = "edge"

	indexID       = "id"
	indexLabel    = "label"
	indexOut      = "out"
	indexIn       = "in"
	indexOutLabel = "outLabel"
	indexInLabel  = "inLabel"
)

// elementKey is the indexed form of an element id. Integers of any width map
// to the same key, and keep their numeric order.
func elementKey(id any) string {
	if n, ok := predicate.AsInt64(id); ok {
		return fmt.Sprintf("i:%020d", uint64(n)^(1<<63))
	}
	if s, ok := id.(string); ok {
		return "s:" + s
	}
	return fmt.Sprintf("%T:%v", id, id)
}

type properties map[string]any

func (p properties) property(key string) (any, bool) {
	v, ok := p[key]
	return v, ok
}

func (p properties) keys() []string {
	keys := make([]string, 0, len(p))
	for key := range p {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

type vertex struct {
	structure.VertexMarker

	key        string
	id         any
	label      string
	properties properties
}

func (v *vertex) ID() any                         { return v.id }
func (v *vertex) Label() string                   { return v.label }
func (v *vertex) Property(key string) (any, bool) { return v.properties.property(key) }
func (v *vertex) Keys() []string                  { return v.properties.keys() }
func (v *vertex) String() string                  { return fmt.Sprintf("v[%v]", v.id) }

func (v *vertex) MarshalZerologObject(e *zerolog.Event) {
	e.Interface("id", v.id).Str("label", v.label)
}

type edge struct {
	structure.EdgeMarker

	key        string
	id         any
	label      string
	outKey     string
	inKey      string
	out        *vertex
	in         *vertex
	properties properties
}

func (e *edge) ID() any                         { return e.id }
func (e *edge) Label() string                   { return e.label }
func (e *edge) Property(key string) (any, bool) { return e.properties.property(key) }
func (e *edge) Keys() []string                  { return e.properties.keys() }
func (e *edge) OutVertex() structure.Vertex     { return e.out }
func (e *edge) InVertex() structure.Vertex      { return e.in }

func (e *edge) String() string {
	return fmt.Sprintf("e[%v][%v-%s->%v]", e.id, e.out.id, e.label, e.in.id)
}

func (e *edge) MarshalZerologObject(ev *zerolog.Event) {
	ev.Interface("id", e.id).Str("label", e.label).Interface("out", e.out.id).Interface("in", e.in.id)
}

var schema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		tableVertex: {
			Name: tableVertex,
			Indexes: map[string]*memdb.IndexSchema{
				indexID: {
					Name:    indexID,
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "key"},
				},
				indexLabel: {
					Name:    indexLabel,
					Unique:  false,
					Indexer: &memdb.StringFieldIndex{Field: "label"},
				},
			},
		},
		tableEdge: {
			Name: tableEdge,
			Indexes: map[string]*memdb.IndexSchema{
				indexID: {
					Name:    indexID,
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "key"},
				},
				indexOut: {
					Name:    indexOut,
					Unique:  false,
					Indexer: &memdb.StringFieldIndex{Field: "outKey"},
				},
				indexIn: {
					Name:    indexIn,
					Unique:  false,
					Indexer: &memdb.StringFieldIndex{Field: "inKey"},
				},
				indexOutLabel: {
					Name:   indexOutLabel,
					Unique: false,
					Indexer: &memdb.CompoundIndex{
						Indexes: []memdb.Indexer{
							&memdb.StringFieldIndex{Field: "outKey"},
							&memdb.StringFieldIndex{Field: "label"},
						},
					},
				},
				indexInLabel: {
					Name:   indexInLabel,
					Unique: false,
					Indexer: &memdb.CompoundIndex{
						Indexes: []memdb.Indexer{
							&memdb.StringFieldIndex{Field: "inKey"},
							&memdb.StringFieldIndex{Field: "label"},
						},
					},
				},
			},
		},
	},
}
