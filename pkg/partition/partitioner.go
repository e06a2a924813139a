// Package partition implements edge-cut partitioning of a raw edge list into
// CSR fragments, together with the metadata needed to execute across them.
//
// Vertices are assigned to fragments by contiguous ranges of their sorted
// global ids, so the result only depends on the input and the worker count.
// Each edge (u,v) is stored as an out-edge of u in the fragment owning u and,
// with a replication factor of 2, also as an in-edge of v in the fragment
// owning v. Edges whose endpoints land in different fragments are cut: both
// endpoints become border vertices and the communication matrix cell
// (owner(u), owner(v)) is incremented.
package partition

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/RoaringBitmap/roaring"
	"github.com/sanonone/minigraph/pkg/executor"
	"github.com/sanonone/minigraph/pkg/graph"
	"github.com/sanonone/minigraph/pkg/metrics"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// Options configures a partitioning run.
type Options struct {
	// Workers is both the number of fragments produced and the number of
	// goroutines used to build them.
	Workers int

	// ReplicationFactor selects how many fragments materialize each edge:
	// 1 stores out-edges only, 2 also stores in-edges at the destination.
	ReplicationFactor int
}

// DefaultOptions returns one fragment per logical core and no in-edge replication.
func DefaultOptions() Options {
	return Options{
		Workers:           executor.DefaultParallelism(),
		ReplicationFactor: 1,
	}
}

// Validate reports invalid settings as configuration errors.
func (o Options) Validate() error {
	if o.Workers < 1 {
		return graph.Configf("partition workers must be >= 1, got %d", o.Workers)
	}
	if o.ReplicationFactor != 1 && o.ReplicationFactor != 2 {
		return graph.Configf("replication factor must be 1 or 2, got %d", o.ReplicationFactor)
	}
	return nil
}

// Result is the output of a partitioning run. Fragments are indexed by GID.
type Result struct {
	Fragments []*graph.CSR
	Metadata  *Metadata
}

// EdgeCut partitions el into workers fragments.
func EdgeCut(el *graph.EdgeList, replicationFactor, workers int) (*Result, error) {
	return Partition(el, Options{Workers: workers, ReplicationFactor: replicationFactor})
}

// cell addresses the communication matrix.
type cell struct {
	from, to graph.GID
}

// partial is the private output of one edge-scanning worker.
type partial struct {
	out    [][]int // per destination fragment, indexes into el.Edges
	in     [][]int
	border *roaring.Bitmap
	comm   map[cell]uint64 // cut edges per (source owner, destination owner)
}

// Partition runs the edge-cut partitioner.
func Partition(el *graph.EdgeList, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if el.Empty() {
		return nil, graph.Inputf("edge list is empty")
	}
	start := time.Now()
	k := opts.Workers

	// 1. Collect and validate the vertex id set.
	ids, initial, err := collectVertexes(el, k)
	if err != nil {
		return nil, err
	}
	sorted := ids.ToArray()
	maxVID := sorted[len(sorted)-1]
	ranges, owned := splitRanges(sorted, k)

	// 2. Scan edge chunks into private buckets.
	partials := make([]*partial, k)
	per := (len(el.Edges) + k - 1) / k
	var scan errgroup.Group
	scan.SetLimit(k)
	for w := 0; w < k; w++ {
		lo := min(w*per, len(el.Edges))
		hi := min(lo+per, len(el.Edges))
		scan.Go(func() error {
			p, err := scanEdges(el.Edges[lo:hi], lo, ranges, k, opts.ReplicationFactor)
			partials[w] = p
			return err
		})
	}
	if err := scan.Wait(); err != nil {
		return nil, err
	}

	// 3. Build every fragment and its slice of the vid map from the owned range.
	vidMap := make([]VidEntry, int(maxVID)+1)
	for i := range vidMap {
		vidMap[i] = absent
	}
	fragments := make([]*graph.CSR, k)
	var build errgroup.Group
	build.SetLimit(k)
	for f := 0; f < k; f++ {
		build.Go(func() error {
			fragments[f] = buildFragment(graph.GID(f), owned[f], el, partials, vidMap, initial)
			return nil
		})
	}
	if err := build.Wait(); err != nil {
		return nil, err
	}

	// 4. Reduce the per-worker partial results.
	borders := make([]*roaring.Bitmap, 0, k)
	comm := mat.NewDense(k, k, nil)
	for _, p := range partials {
		borders = append(borders, p.border)
		for c, n := range p.comm {
			comm.Set(int(c.from), int(c.to), comm.At(int(c.from), int(c.to))+float64(n))
		}
	}

	meta := &Metadata{
		NumFragments:  k,
		NumVertexes:   len(sorted),
		MaxVID:        maxVID,
		VidMap:        vidMap,
		Border:        roaring.FastOr(borders...),
		Communication: comm,
	}

	metrics.PartitionDuration.Observe(time.Since(start).Seconds())
	metrics.CrossEdges.Add(float64(meta.CrossTotal()))
	slog.Info("Edge-cut partitioning completed",
		"fragments", k,
		"vertexes", meta.NumVertexes,
		"edges", len(el.Edges),
		"border_vertexes", meta.NumBorder(),
		"cut_edges", meta.CrossTotal(),
		"elapsed", time.Since(start),
	)

	return &Result{Fragments: fragments, Metadata: meta}, nil
}

// collectVertexes gathers every referenced id. It also returns the explicit
// initial payloads indexed by global id, or nil when the list declares none.
func collectVertexes(el *graph.EdgeList, k int) (*roaring.Bitmap, map[graph.VID]graph.VData, error) {
	per := (len(el.Edges) + k - 1) / k
	sets := make([]*roaring.Bitmap, k)
	var g errgroup.Group
	g.SetLimit(k)
	for w := 0; w < k; w++ {
		lo := min(w*per, len(el.Edges))
		hi := min(lo+per, len(el.Edges))
		g.Go(func() error {
			set := roaring.New()
			for i, e := range el.Edges[lo:hi] {
				if e.Src == graph.MaxVID || e.Dst == graph.MaxVID {
					return graph.Inputf("edge %d uses reserved vertex id %d", lo+i, graph.MaxVID)
				}
				set.Add(e.Src)
				set.Add(e.Dst)
			}
			sets[w] = set
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	ids := roaring.FastOr(sets...)

	if len(el.Vertexes) == 0 {
		return ids, nil, nil
	}
	declared := roaring.New()
	initial := make(map[graph.VID]graph.VData, len(el.Vertexes))
	for _, v := range el.Vertexes {
		if v.ID == graph.MaxVID {
			return nil, nil, graph.Inputf("vertex uses reserved id %d", graph.MaxVID)
		}
		if !declared.CheckedAdd(v.ID) {
			return nil, nil, graph.Inputf("vertex %d declared more than once", v.ID)
		}
		initial[v.ID] = v.Data
	}
	ids.Or(declared)
	return ids, initial, nil
}

// scanEdges buckets edges[base:] by owning fragment and records cut edges.
func scanEdges(edges []graph.Edge, base int, ranges *rangeIndex, k, rf int) (*partial, error) {
	p := &partial{
		out:    make([][]int, k),
		border: roaring.New(),
		comm:   make(map[cell]uint64),
	}
	if rf == 2 {
		p.in = make([][]int, k)
	}
	for i, e := range edges {
		su, ok := ranges.owner(e.Src)
		if !ok {
			return nil, fmt.Errorf("edge %d: no fragment owns source %d", base+i, e.Src)
		}
		sv, ok := ranges.owner(e.Dst)
		if !ok {
			return nil, fmt.Errorf("edge %d: no fragment owns destination %d", base+i, e.Dst)
		}
		p.out[su] = append(p.out[su], base+i)
		if p.in != nil {
			p.in[sv] = append(p.in[sv], base+i)
		}
		if su != sv {
			p.border.Add(e.Src)
			p.border.Add(e.Dst)
			p.comm[cell{from: su, to: sv}]++
		}
	}
	return p, nil
}

// buildFragment assembles fragment gid. It writes only the vid map slots of
// the ids it owns, which no other worker touches.
func buildFragment(gid graph.GID, owned []graph.VID, el *graph.EdgeList, partials []*partial, vidMap []VidEntry, initial map[graph.VID]graph.VData) *graph.CSR {
	if len(owned) == 0 {
		return graph.NewEmptyCSR(gid)
	}
	n := len(owned)
	g := &graph.CSR{
		GID:       gid,
		GlobalIDs: owned,
		VData:     make([]graph.VData, n),
	}
	for local, vid := range owned {
		vidMap[vid] = VidEntry{GID: gid, LocalID: graph.VID(local)}
		if initial != nil {
			g.VData[local] = initial[vid]
		}
	}

	local := func(vid graph.VID) int { return int(vidMap[vid].LocalID) }

	// Out-edges, kept in input order per vertex.
	g.OutOffset, g.OutEdges, g.OutEData = layout(n, partials, gid, false, func(idx int) (int, graph.VID, graph.EData) {
		e := el.Edges[idx]
		return local(e.Src), e.Dst, e.Data
	})

	if partials[0].in == nil {
		g.InOffset = make([]uint64, n+1)
		g.InEdges = []graph.VID{}
		return g
	}
	g.InOffset, g.InEdges, _ = layout(n, partials, gid, true, func(idx int) (int, graph.VID, graph.EData) {
		e := el.Edges[idx]
		return local(e.Dst), e.Src, e.Data
	})
	return g
}

// layout turns the bucketed edge indexes of one fragment into CSR arrays
// using a stable counting sort on the local vertex id.
func layout(n int, partials []*partial, gid graph.GID, incoming bool, edge func(idx int) (int, graph.VID, graph.EData)) ([]uint64, []graph.VID, []graph.EData) {
	bucket := func(p *partial) []int {
		if incoming {
			return p.in[gid]
		}
		return p.out[gid]
	}

	offsets := make([]uint64, n+1)
	for _, p := range partials {
		for _, idx := range bucket(p) {
			l, _, _ := edge(idx)
			offsets[l+1]++
		}
	}
	for i := 1; i <= n; i++ {
		offsets[i] += offsets[i-1]
	}

	m := offsets[n]
	targets := make([]graph.VID, m)
	data := make([]graph.EData, m)
	cursor := make([]uint64, n)
	copy(cursor, offsets[:n])
	for _, p := range partials {
		for _, idx := range bucket(p) {
			l, other, d := edge(idx)
			targets[cursor[l]] = other
			data[cursor[l]] = d
			cursor[l]++
		}
	}
	return offsets, targets, data
}
