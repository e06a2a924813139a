// Package graph defines the in-memory graph representations shared by the
// partitioner, the superstep engine and the storage layer.
//
// A raw graph enters the system as an EdgeList. The partitioner turns it into
// one CSR fragment per worker; the engine then executes supersteps over a
// single fragment at a time using VertexInfo records as frontier entries.
package graph

import "math"

// VID is a vertex identifier. The same type is used for global ids and for
// fragment-local ids.
type VID = uint32

// GID is a fragment (partition) identifier.
type GID = uint32

// VData is the per-vertex payload.
type VData = float32

// EData is the per-edge payload.
type EData = float32

const (
	// MaxVID is reserved as the "no vertex" sentinel and is never a valid input id.
	MaxVID VID = math.MaxUint32
	// MaxGID marks vid map slots that do not belong to any fragment.
	MaxGID GID = math.MaxUint32
)

// Edge is a directed edge of the raw input graph.
type Edge struct {
	Src  VID
	Dst  VID
	Data EData
}

// Vertex carries explicit initial data for a vertex of the raw input graph.
type Vertex struct {
	ID   VID
	Data VData
}

// EdgeList is the raw, unpartitioned input graph.
//
// Vertexes is optional: vertices that only appear as edge endpoints get a zero
// payload. It can also be used to declare isolated vertices.
type EdgeList struct {
	Edges    []Edge
	Vertexes []Vertex
}

// NumEdges returns the number of edges.
func (el *EdgeList) NumEdges() int {
	return len(el.Edges)
}

// Empty reports whether the list carries neither edges nor explicit vertices.
func (el *EdgeList) Empty() bool {
	return el == nil || (len(el.Edges) == 0 && len(el.Vertexes) == 0)
}

// MaxID returns the largest vertex id referenced by the list and false when
// the list is empty.
func (el *EdgeList) MaxID() (VID, bool) {
	if el.Empty() {
		return 0, false
	}
	var hi VID
	for _, e := range el.Edges {
		if e.Src > hi {
			hi = e.Src
		}
		if e.Dst > hi {
			hi = e.Dst
		}
	}
	for _, v := range el.Vertexes {
		if v.ID > hi {
			hi = v.ID
		}
	}
	return hi, true
}
