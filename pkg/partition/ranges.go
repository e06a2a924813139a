package partition

import (
	"github.com/sanonone/minigraph/pkg/graph"
	"github.com/tidwall/btree"
)

// vertexRange is the contiguous slice of sorted global ids owned by one fragment.
type vertexRange struct {
	first graph.VID
	last  graph.VID
	gid   graph.GID
}

// rangeIndex answers "which fragment owns this id" while edges are bucketed,
// before the dense vid map exists. It is read-only once built and shared by
// all workers.
type rangeIndex struct {
	tree *btree.BTreeG[vertexRange]
}

// splitRanges cuts sorted into k contiguous runs of ceil(n/k) ids. Trailing
// fragments are empty when there are fewer ids than fragments.
func splitRanges(sorted []graph.VID, k int) (*rangeIndex, [][]graph.VID) {
	tree := btree.NewBTreeGOptions(func(a, b vertexRange) bool {
		return a.first < b.first
	}, btree.Options{NoLocks: true})

	per := (len(sorted) + k - 1) / k
	owned := make([][]graph.VID, k)
	for f := 0; f < k; f++ {
		lo := min(f*per, len(sorted))
		hi := min(lo+per, len(sorted))
		owned[f] = sorted[lo:hi]
		if lo < hi {
			tree.Set(vertexRange{first: sorted[lo], last: sorted[hi-1], gid: graph.GID(f)})
		}
	}
	return &rangeIndex{tree: tree}, owned
}

// owner returns the fragment owning vid.
func (r *rangeIndex) owner(vid graph.VID) (graph.GID, bool) {
	gid, found := graph.MaxGID, false
	r.tree.Descend(vertexRange{first: vid}, func(item vertexRange) bool {
		if vid <= item.last {
			gid, found = item.gid, true
		}
		return false
	})
	return gid, found
}
