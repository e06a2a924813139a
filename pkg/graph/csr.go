package graph

import (
	"slices"
)

// CSR is an immutable compressed-sparse-row fragment: the vertices one
// partition owns, their adjacency and their payloads.
//
// Local id i refers to GlobalIDs[i]; GlobalIDs is strictly ascending.
// Outgoing neighbours of local vertex i are OutEdges[OutOffset[i]:OutOffset[i+1]]
// (global ids), with the matching payloads in OutEData when present. The
// incoming side follows the same layout and is empty when the partitioner
// did not replicate in-edges.
type CSR struct {
	GID       GID
	GlobalIDs []VID
	OutOffset []uint64
	OutEdges  []VID
	OutEData  []EData
	InOffset  []uint64
	InEdges   []VID
	VData     []VData
}

// NewEmptyCSR returns a well-formed fragment without vertices.
func NewEmptyCSR(gid GID) *CSR {
	return &CSR{
		GID:       gid,
		GlobalIDs: []VID{},
		OutOffset: []uint64{0},
		OutEdges:  []VID{},
		InOffset:  []uint64{0},
		InEdges:   []VID{},
		VData:     []VData{},
	}
}

// NumVertexes returns the number of vertices owned by the fragment.
func (g *CSR) NumVertexes() int {
	return len(g.GlobalIDs)
}

// NumOutEdges returns the number of materialized outgoing edges.
func (g *CSR) NumOutEdges() int {
	return len(g.OutEdges)
}

// NumInEdges returns the number of materialized incoming edges.
func (g *CSR) NumInEdges() int {
	return len(g.InEdges)
}

// HasEData reports whether outgoing edges carry payloads.
func (g *CSR) HasEData() bool {
	return len(g.OutEData) > 0
}

// Vertex builds the frontier record for a local id. The caller must ensure
// local < NumVertexes().
func (g *CSR) Vertex(local VID) VertexInfo {
	lo, hi := g.OutOffset[local], g.OutOffset[local+1]
	v := VertexInfo{
		VID:      g.GlobalIDs[local],
		LocalID:  local,
		OutEdges: g.OutEdges[lo:hi:hi],
		Data:     &g.VData[local],
	}
	if g.HasEData() {
		v.OutEData = g.OutEData[lo:hi:hi]
	}
	if len(g.InOffset) == len(g.GlobalIDs)+1 {
		ilo, ihi := g.InOffset[local], g.InOffset[local+1]
		v.InEdges = g.InEdges[ilo:ihi:ihi]
	}
	return v
}

// LocalID maps a global id to the fragment-local id.
func (g *CSR) LocalID(global VID) (VID, bool) {
	i, found := slices.BinarySearch(g.GlobalIDs, global)
	if !found {
		return 0, false
	}
	return VID(i), true
}

// Owns reports whether the fragment owns the given global id.
func (g *CSR) Owns(global VID) bool {
	_, ok := g.LocalID(global)
	return ok
}

// Range calls fn for every vertex in local id order until fn returns false.
func (g *CSR) Range(fn func(v VertexInfo) bool) {
	for i := range g.GlobalIDs {
		if !fn(g.Vertex(VID(i))) {
			return
		}
	}
}

// Validate checks the structural invariants of the fragment. A fragment that
// fails validation must not be handed to the engine.
func (g *CSR) Validate() error {
	n := len(g.GlobalIDs)
	if len(g.VData) != n {
		return Preconditionf("fragment %d: %d vertex payloads for %d vertices", g.GID, len(g.VData), n)
	}
	for i := 1; i < n; i++ {
		if g.GlobalIDs[i-1] >= g.GlobalIDs[i] {
			return Preconditionf("fragment %d: global ids not strictly ascending at local %d", g.GID, i)
		}
	}
	if err := checkOffsets(g.GID, "out", g.OutOffset, n, len(g.OutEdges)); err != nil {
		return err
	}
	if len(g.OutEData) != 0 && len(g.OutEData) != len(g.OutEdges) {
		return Preconditionf("fragment %d: %d edge payloads for %d out edges", g.GID, len(g.OutEData), len(g.OutEdges))
	}
	if len(g.InOffset) == 0 && len(g.InEdges) == 0 {
		return nil
	}
	return checkOffsets(g.GID, "in", g.InOffset, n, len(g.InEdges))
}

func checkOffsets(gid GID, side string, offsets []uint64, n, m int) error {
	if len(offsets) != n+1 {
		return Preconditionf("fragment %d: %s offsets have length %d, want %d", gid, side, len(offsets), n+1)
	}
	if offsets[0] != 0 || offsets[n] != uint64(m) {
		return Preconditionf("fragment %d: %s offsets span [%d,%d], want [0,%d]", gid, side, offsets[0], offsets[n], m)
	}
	for i := 1; i <= n; i++ {
		if offsets[i] < offsets[i-1] {
			return Preconditionf("fragment %d: %s offsets decrease at local %d", gid, side, i)
		}
	}
	return nil
}
