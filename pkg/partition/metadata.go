package partition

import (
	"github.com/RoaringBitmap/roaring"
	"github.com/sanonone/minigraph/pkg/graph"
	"gonum.org/v1/gonum/mat"
)

// VidEntry locates a global vertex inside the fragment set.
type VidEntry struct {
	GID     graph.GID
	LocalID graph.VID
}

// absent marks vid map slots of ids that never appeared in the input.
var absent = VidEntry{GID: graph.MaxGID, LocalID: graph.MaxVID}

// Metadata is the global bookkeeping derived while partitioning. Fragments
// are referenced by id only, never by address, so metadata can be shared by
// readers and written independently of the fragments.
type Metadata struct {
	NumFragments int
	NumVertexes  int
	MaxVID       graph.VID

	// VidMap is indexed by global id and has MaxVID+1 entries.
	VidMap []VidEntry

	// Border holds every global id with at least one incident edge whose
	// other endpoint is owned by a different fragment.
	Border *roaring.Bitmap

	// Communication is NumFragments x NumFragments. Cell (i,j) counts edges
	// whose source is owned by i and whose destination is owned by j, i != j.
	Communication *mat.Dense
}

// Lookup returns where a global id lives.
func (m *Metadata) Lookup(vid graph.VID) (VidEntry, bool) {
	if int64(vid) >= int64(len(m.VidMap)) {
		return absent, false
	}
	e := m.VidMap[vid]
	return e, e.GID != graph.MaxGID
}

// IsBorder reports whether vid is a border vertex.
func (m *Metadata) IsBorder(vid graph.VID) bool {
	return m.Border != nil && m.Border.Contains(vid)
}

// NumBorder returns the number of border vertices.
func (m *Metadata) NumBorder() uint64 {
	if m.Border == nil {
		return 0
	}
	return m.Border.GetCardinality()
}

// Cross returns the communication matrix cell (from, to).
func (m *Metadata) Cross(from, to graph.GID) uint64 {
	return uint64(m.Communication.At(int(from), int(to)))
}

// CrossTotal returns the number of cut edges.
func (m *Metadata) CrossTotal() uint64 {
	return uint64(mat.Sum(m.Communication))
}

// Validate checks that the vid map is a bijection between the input ids and
// the union of the fragments' local id ranges.
func (m *Metadata) Validate(fragments []*graph.CSR) error {
	if len(fragments) != m.NumFragments {
		return graph.Preconditionf("metadata describes %d fragments, got %d", m.NumFragments, len(fragments))
	}
	if r, c := m.Communication.Dims(); r != m.NumFragments || c != m.NumFragments {
		return graph.Preconditionf("communication matrix is %dx%d, want %dx%d", r, c, m.NumFragments, m.NumFragments)
	}

	mapped := 0
	for vid, e := range m.VidMap {
		if e.GID == graph.MaxGID {
			continue
		}
		mapped++
		if int(e.GID) >= len(fragments) {
			return graph.Preconditionf("vertex %d mapped to unknown fragment %d", vid, e.GID)
		}
		g := fragments[e.GID]
		if int(e.LocalID) >= g.NumVertexes() || g.GlobalIDs[e.LocalID] != graph.VID(vid) {
			return graph.Preconditionf("vertex %d mapped to (%d,%d) which holds another vertex", vid, e.GID, e.LocalID)
		}
	}

	total := 0
	for _, g := range fragments {
		total += g.NumVertexes()
	}
	if mapped != total || mapped != m.NumVertexes {
		return graph.Preconditionf("vid map covers %d vertices, fragments hold %d, metadata claims %d", mapped, total, m.NumVertexes)
	}
	return nil
}
